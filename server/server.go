// server/server.go

package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"backend/internal/billing"
	"backend/internal/config"
	"backend/internal/handlers"
	"backend/internal/logger"
	"backend/internal/scheduler"
)

// NewRouter assembles the gin engine: command routes, admin routes and
// /metrics, with CORS via gin-contrib/cors the way the teacher's newer
// server/server.go does (replacing the older hand-rolled middleware.Cors).
func NewRouter(sched *scheduler.Scheduler, cfg *config.Config, billingSvc *billing.Service) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization"},
	}))

	acHandler := handlers.NewACHandler(sched, billingSvc)
	adminHandler := handlers.NewAdminHandler(sched, cfg)

	rooms := r.Group("/rooms")
	{
		rooms.GET("", acHandler.ListRooms)
		rooms.GET("/:id", acHandler.GetStatus)
		rooms.GET("/:id/history", acHandler.GetHistory)
		rooms.POST("/:id/power-on", acHandler.PowerOn)
		rooms.POST("/:id/power-off", acHandler.PowerOff)
		rooms.POST("/:id/target-temp", acHandler.SetTargetTemp)
		rooms.POST("/:id/fan-speed", acHandler.SetFanSpeed)
	}

	admin := r.Group("/admin")
	{
		admin.POST("/mode", adminHandler.SetMode)
		admin.GET("/tariff", adminHandler.GetTariff)
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("%s %s -> %d (%v)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
