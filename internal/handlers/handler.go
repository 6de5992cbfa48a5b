package handlers

import (
	"kiln_dashboard/internal/logger"
	"kiln_dashboard/internal/metrics"
	"kiln_dashboard/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires the browser-shell HTTP surface to the services.
type Handler struct {
	services *service.Service
	metrics  *metrics.Metrics
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, m *metrics.Metrics, log *logger.Logger) *Handler {
	return &Handler{services: services, metrics: m, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", h.health)
	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}

	h.registerAPIRoutes(router)

	// Widget-tree push for the shell; same port
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		h.registerControlRoutes(api)
		h.registerReadingsRoutes(api)
		h.registerViewRoutes(api)
		api.GET("/notifications", h.getNotifications)
		api.GET("/diagnostics/messages", h.getMessages)
	}
}

func (h *Handler) registerViewRoutes(api *gin.RouterGroup) {
	views := api.Group("/views")
	{
		// Body example: {"sensor":"Temp Forno","hours":6}
		views.POST("/:view", h.enterView)
		views.GET("/:view", h.getView)
		views.DELETE("/:view", h.exitView)
		views.POST("/:view/refresh", h.refreshView)
		views.POST("/:view/auto-refresh", h.setAutoRefresh)
		views.POST("/:view/unit", h.setUnit)
	}
}

func (h *Handler) registerControlRoutes(api *gin.RouterGroup) {
	ctl := api.Group("/views/control")
	{
		// Body example: {"control":"drum_forward"}
		ctl.POST("/click", h.clickControl)
		ctl.POST("/press", h.pressControl)
		ctl.POST("/release", h.releaseControl)
		// Body example: {"name":"temp_max","value":"85,5"}
		ctl.POST("/settings", h.setSetting)
		ctl.POST("/mode", h.setMode)
		ctl.POST("/heating", h.toggleHeating)
	}
}

func (h *Handler) registerReadingsRoutes(api *gin.RouterGroup) {
	rd := api.Group("/views/readings")
	{
		rd.POST("/filters", h.applyFilters)
		rd.POST("/page", h.goToPage)
		rd.POST("/clear", h.clearFilters)
		rd.GET("/export", h.exportReadings)
	}
}
