package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/services"
	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/version"
)

// NewHealthHandler responds with service metadata and the state of the last
// traffic log reload.
func NewHealthHandler(dash *services.DashboardService) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := gin.H{
			"status":     "ok",
			"service":    version.Name,
			"version":    version.Version,
			"git_commit": version.Commit(),
			"build_time": version.BuildTime,
		}
		if dash != nil {
			last := dash.LastRefresh()
			resp["traffic_log"] = dash.LogPath
			resp["events_loaded"] = last.Loaded
			if !last.Refreshed.IsZero() {
				resp["last_refresh"] = last.Refreshed
			}
		}
		c.JSON(http.StatusOK, resp)
	}
}
