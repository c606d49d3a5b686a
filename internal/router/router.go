package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/handler"
	"github.com/noah-isme/timetable-api/internal/middleware"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/pkg/config"
	"github.com/noah-isme/timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/timetable-api/pkg/middleware/requestid"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Timetable *handler.TimetableHandler
	Export    *handler.ExportHandler
	Metrics   *handler.MetricsHandler
}

// Dependencies carries the cross-cutting collaborators of the HTTP stack.
type Dependencies struct {
	Config   *config.Config
	Logger   *zap.Logger
	Verifier middleware.TokenVerifier
	Observer middleware.RequestObserver
}

// Setup builds the gin engine with health routes, docs and the timetable API.
func Setup(deps Dependencies, h Handlers) *gin.Engine {
	if deps.Config.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.Logger))
	r.Use(gin.Recovery())
	r.Use(corsmiddleware.New(deps.Config.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.Observer))

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	if deps.Config.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	readers := []models.UserRole{models.RoleAdmin, models.RoleInstructor, models.RoleStudent}

	api := r.Group(deps.Config.APIPrefix)
	api.Use(middleware.JWT(deps.Verifier))
	{
		api.POST("/generate", middleware.RequireRoles(models.RoleAdmin), h.Timetable.Generate)
		api.POST("/save",
			middleware.RequireRoles(models.RoleAdmin),
			middleware.Audit(deps.Logger, "timetable.save", "timetable"),
			h.Timetable.Save,
		)
		api.GET("/list", middleware.RequireRoles(readers...), h.Timetable.List)
		api.GET("/details/:id", middleware.RequireRoles(readers...), h.Timetable.Details)
		api.GET("/export/:id", middleware.RequireRoles(readers...), h.Export.Export)
		api.PATCH("/header/:id",
			middleware.RequireRoles(models.RoleAdmin),
			middleware.Audit(deps.Logger, "timetable.patch_header", "timetable"),
			h.Timetable.PatchHeader,
		)
		// The handler checks the Admin role before the tenant and the service checks it again.
		api.DELETE("/:id",
			middleware.Audit(deps.Logger, "timetable.delete", "timetable"),
			h.Timetable.Delete,
		)
	}

	return r
}
