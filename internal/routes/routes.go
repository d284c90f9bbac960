package routes

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"shadowbot/internal/handlers"
	"shadowbot/internal/middleware"
)

func SetupRoutes(
	r *gin.Engine,
	statusHandler *handlers.StatusHandler,
	tokenParser middleware.TokenParser,
) *gin.Engine {

	// ---- public
	r.GET("/healthz", statusHandler.Healthz)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api")
	{
		api.GET("/status", statusHandler.Status)
		api.GET("/stats", middleware.Auth(tokenParser), statusHandler.Stats)
	}

	return r
}
