package routes

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/api/handlers"
	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/services"
)

// MetricsPath is where the Prometheus registry is exposed.
const MetricsPath = "/metrics"

// Register wires up the versioned API and, when registry is non-nil, the
// metrics endpoint.
func Register(router *gin.Engine, dash *services.DashboardService, registry *prometheus.Registry) error {
	if dash == nil {
		return errors.New("dashboard service is required")
	}

	router.GET("/api/v1/health", handlers.NewHealthHandler(dash))

	api := router.Group("/api/v1")

	dashboardHandler := handlers.NewDashboardHandler(dash)
	dashboard := api.Group("/dashboard")
	dashboard.GET("/summary", dashboardHandler.Summary)
	dashboard.GET("/confusion", dashboardHandler.Confusion)
	dashboard.GET("/distribution", dashboardHandler.Distribution)
	dashboard.GET("/timeline", dashboardHandler.Timeline)
	dashboard.GET("/events", dashboardHandler.Events)
	dashboard.POST("/refresh", dashboardHandler.Refresh)

	if registry != nil {
		router.GET(MetricsPath, gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	return nil
}
