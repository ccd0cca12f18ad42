package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"backend/internal/logger"
)

// NewRouter builds the full route table over h, with CORS and a request
// logging middleware in the teacher's server.go style (gin.New() plus
// explicit middleware, not gin.Default()'s bundled ones).
func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.Use(requestLogger())

	api := router.Group("/api")
	{
		api.POST("/check-in", h.CheckIn)
		api.POST("/check-out", h.CheckOut)
		api.POST("/control", h.Control)
		api.GET("/rooms/:roomId", h.RoomState)
		api.GET("/rooms/:roomId/bill", h.RoomBill)
		api.GET("/scheduler", h.SchedulerStatus)

		admin := api.Group("/plant")
		{
			admin.POST("/power-on", h.PlantPowerOn)
			admin.POST("/power-off", h.PlantPowerOff)
		}

		sim := api.Group("/simulate")
		{
			sim.POST("/start", h.SimulationStart)
			sim.POST("/stop", h.SimulationStop)
			sim.POST("/advance", h.SimulationAdvance)
		}
	}

	return router
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.Info("[%s] %s %s %v", c.Request.Method, path, c.ClientIP(), time.Since(start))
	}
}
