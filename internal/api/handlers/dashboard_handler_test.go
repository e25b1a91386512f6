package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/classifier"
	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/database"
	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/models"
	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/services"
	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/trafficlog"
)

func setupDashboardHandler(t *testing.T) (*services.DashboardService, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Connect(database.MemoryDSN(), &models.TrafficEvent{})
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })

	path := filepath.Join(t.TempDir(), "traffic_log.csv")
	w, err := trafficlog.NewWriter(path)
	require.NoError(t, err)
	now := time.Now()
	for i, e := range []trafficlog.Entry{
		{SimulatedType: trafficlog.Malicious, Result: classifier.LabelDDoS, Confidence: 0.97},
		{SimulatedType: trafficlog.Benign, Result: classifier.LabelBenign, Confidence: 0.88},
		{SimulatedType: trafficlog.Benign, Result: classifier.LabelDDoS, Confidence: 0.51},
	} {
		e.Timestamp = now.Add(time.Duration(i-3) * time.Minute)
		require.NoError(t, w.Append(e))
	}

	svc := services.NewDashboardService(db, path)
	_, err = svc.Refresh(context.Background())
	require.NoError(t, err)

	h := NewDashboardHandler(svc)
	r := gin.New()
	g := r.Group("/dashboard")
	g.GET("/summary", h.Summary)
	g.GET("/confusion", h.Confusion)
	g.GET("/distribution", h.Distribution)
	g.GET("/timeline", h.Timeline)
	g.GET("/events", h.Events)
	g.POST("/refresh", h.Refresh)
	return svc, r
}

func doJSON(t *testing.T, r *gin.Engine, method, url string, out any) int {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, url, nil))
	if out != nil {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
	}
	return w.Code
}

func TestDashboardHandler_Summary(t *testing.T) {
	_, r := setupDashboardHandler(t)

	var sum services.Summary
	require.Equal(t, http.StatusOK, doJSON(t, r, http.MethodGet, "/dashboard/summary?window=24h", &sum))
	assert.Equal(t, int64(3), sum.Total)
	assert.Equal(t, int64(2), sum.DDoS)
	assert.Equal(t, services.WindowDay, sum.Window)
	assert.Equal(t, 0.6667, sum.Accuracy)
}

func TestDashboardHandler_InvalidWindow(t *testing.T) {
	_, r := setupDashboardHandler(t)

	for _, url := range []string{
		"/dashboard/summary?window=1y",
		"/dashboard/confusion?window=yesterday",
		"/dashboard/distribution?window=%0A",
		"/dashboard/timeline?window=forever",
		"/dashboard/events?window=week",
	} {
		var resp map[string]string
		assert.Equal(t, http.StatusBadRequest, doJSON(t, r, http.MethodGet, url, &resp), url)
		assert.Contains(t, resp["error"], "invalid time window")
	}
}

func TestDashboardHandler_Confusion(t *testing.T) {
	_, r := setupDashboardHandler(t)

	var cm services.Confusion
	require.Equal(t, http.StatusOK, doJSON(t, r, http.MethodGet, "/dashboard/confusion", &cm))
	assert.Equal(t, int64(1), cm.TruePositives)
	assert.Equal(t, int64(1), cm.FalsePositives)
	assert.Equal(t, int64(1), cm.TrueNegatives)
	assert.Zero(t, cm.FalseNegatives)
	assert.Equal(t, 1.0, cm.Recall)
}

func TestDashboardHandler_Distribution(t *testing.T) {
	_, r := setupDashboardHandler(t)

	var d services.Distribution
	require.Equal(t, http.StatusOK, doJSON(t, r, http.MethodGet, "/dashboard/distribution?window=all", &d))
	assert.Equal(t, int64(2), d.ByResult["DDoS"])
	assert.Equal(t, int64(2), d.BySimulated["BENIGNO"])
}

func TestDashboardHandler_Timeline(t *testing.T) {
	_, r := setupDashboardHandler(t)

	var resp struct {
		Bucket string                   `json:"bucket"`
		Points []services.TimelinePoint `json:"points"`
	}
	require.Equal(t, http.StatusOK, doJSON(t, r, http.MethodGet, "/dashboard/timeline?bucket=minute", &resp))
	assert.Equal(t, "minute", resp.Bucket)
	var total int64
	for _, p := range resp.Points {
		total += p.DDoS + p.Benign
	}
	assert.Equal(t, int64(3), total)

	var bad map[string]string
	assert.Equal(t, http.StatusBadRequest, doJSON(t, r, http.MethodGet, "/dashboard/timeline?bucket=day", &bad))
	assert.Contains(t, bad["error"], "invalid timeline bucket")
}

func TestDashboardHandler_Events(t *testing.T) {
	_, r := setupDashboardHandler(t)

	var resp struct {
		Events []services.EventView `json:"events"`
	}
	require.Equal(t, http.StatusOK, doJSON(t, r, http.MethodGet, "/dashboard/events?limit=2", &resp))
	require.Len(t, resp.Events, 2)
	assert.Equal(t, 0.51, resp.Events[0].Confidence)

	assert.Equal(t, http.StatusBadRequest, doJSON(t, r, http.MethodGet, "/dashboard/events?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, doJSON(t, r, http.MethodGet, "/dashboard/events?limit=-1", nil))
}

func TestDashboardHandler_Refresh(t *testing.T) {
	svc, r := setupDashboardHandler(t)

	w, err := trafficlog.NewWriter(svc.LogPath)
	require.NoError(t, err)
	require.NoError(t, w.Append(trafficlog.Entry{
		Timestamp:     time.Now(),
		SimulatedType: trafficlog.Malicious,
		Result:        classifier.LabelDDoS,
		Confidence:    0.9,
	}))

	var res services.RefreshResult
	require.Equal(t, http.StatusOK, doJSON(t, r, http.MethodPost, "/dashboard/refresh", &res))
	assert.Equal(t, 4, res.Loaded)
}

func TestDashboardHandler_InternalError(t *testing.T) {
	svc, r := setupDashboardHandler(t)
	require.NoError(t, database.Close(svc.DB))

	var resp map[string]string
	assert.Equal(t, http.StatusInternalServerError, doJSON(t, r, http.MethodGet, "/dashboard/summary", &resp))
	assert.Equal(t, "Failed to compute summary", resp["error"])
}
