package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/api/middleware"
	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/services"
	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/util"
)

type DashboardHandler struct {
	service *services.DashboardService
}

func NewDashboardHandler(service *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// window parses ?window= and answers 400 itself when it is invalid.
func (h *DashboardHandler) window(c *gin.Context) (services.Window, bool) {
	w, err := services.ParseWindow(c.Query("window"))
	if err != nil {
		badRequest(c, err)
		return "", false
	}
	return w, true
}

func (h *DashboardHandler) Summary(c *gin.Context) {
	w, ok := h.window(c)
	if !ok {
		return
	}
	sum, err := h.service.Summary(w)
	if err != nil {
		internalError(c, err, "Failed to compute summary")
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (h *DashboardHandler) Confusion(c *gin.Context) {
	w, ok := h.window(c)
	if !ok {
		return
	}
	cm, err := h.service.Confusion(w)
	if err != nil {
		internalError(c, err, "Failed to compute confusion matrix")
		return
	}
	c.JSON(http.StatusOK, cm)
}

func (h *DashboardHandler) Distribution(c *gin.Context) {
	w, ok := h.window(c)
	if !ok {
		return
	}
	d, err := h.service.Distribution(w)
	if err != nil {
		internalError(c, err, "Failed to compute distribution")
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *DashboardHandler) Timeline(c *gin.Context) {
	w, ok := h.window(c)
	if !ok {
		return
	}
	b, err := services.ParseBucket(c.Query("bucket"))
	if err != nil {
		badRequest(c, err)
		return
	}
	points, err := h.service.Timeline(w, b)
	if err != nil {
		internalError(c, err, "Failed to compute timeline")
		return
	}
	c.JSON(http.StatusOK, gin.H{"window": w, "bucket": b, "points": points})
}

func (h *DashboardHandler) Events(c *gin.Context) {
	w, ok := h.window(c)
	if !ok {
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(services.DefaultRecentLimit)))
	if err != nil || limit < 0 {
		badRequest(c, errors.New("limit must be a non-negative integer"))
		return
	}
	events, err := h.service.Recent(w, limit)
	if err != nil {
		internalError(c, err, "Failed to list events")
		return
	}
	c.JSON(http.StatusOK, gin.H{"window": w, "events": events})
}

func (h *DashboardHandler) Refresh(c *gin.Context) {
	res, err := h.service.Refresh(c.Request.Context())
	if err != nil {
		internalError(c, err, "Failed to reload traffic log")
		return
	}
	c.JSON(http.StatusOK, res)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": util.SanitizeForLog(err.Error())})
}

func internalError(c *gin.Context, err error, msg string) {
	middleware.GetRequestLogger(c).WithError(err).Error(msg)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}
