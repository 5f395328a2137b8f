package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"climate_bridge/internal/broadcast"
	"climate_bridge/internal/logger"
	"climate_bridge/internal/service"
)

// Handler wires HTTP layer to services, the broadcast hub and logging.
type Handler struct {
	services *service.Service
	hub      *broadcast.Hub
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, hub *broadcast.Hub, log *logger.Logger) *Handler {
	return &Handler{services: services, hub: hub, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health endpoint
	router.GET("/health", h.health)

	// Auth endpoints
	h.registerAuthRoutes(router)

	// Versioned API endpoints (protected)
	h.registerAPIRoutes(router)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.sessionMiddleware)
	{
		h.registerClimateRoutes(api)
		h.registerJobRoutes(api)
		h.registerStreamRoutes(api)
	}
}

func (h *Handler) registerClimateRoutes(api *gin.RouterGroup) {
	homes := api.Group("/homes")
	{
		homes.GET("", h.listHomes)
		homes.GET("/:homeId/devices", h.getDevices)
		homes.GET("/:homeId/devices/:deviceId", h.getDeviceStatus)
		// Body example: {"mode":"cool","target_temp_c":21,"fan":"auto"}
		homes.POST("/:homeId/devices/:deviceId/mode", h.setDeviceMode)
	}
}

func (h *Handler) registerJobRoutes(api *gin.RouterGroup) {
	jobs := api.Group("/jobs")
	{
		jobs.GET("", h.getJobs)
	}
}

func (h *Handler) registerStreamRoutes(api *gin.RouterGroup) {
	// Long-lived subscriber transports: SSE and WebSocket on the same hub.
	api.GET("/events", h.sseSubscribe)
	api.GET("/ws", h.wsSubscribe)
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"subscribers": h.hub.Count(),
	})
}
