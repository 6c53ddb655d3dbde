package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/uni-timetable-api/api/swagger"
	"github.com/noah-isme/uni-timetable-api/internal/bootstrap"
	"github.com/noah-isme/uni-timetable-api/internal/handler"
	internalmiddleware "github.com/noah-isme/uni-timetable-api/internal/middleware"
	"github.com/noah-isme/uni-timetable-api/internal/models"
	"github.com/noah-isme/uni-timetable-api/pkg/config"
	"github.com/noah-isme/uni-timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/uni-timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/uni-timetable-api/pkg/middleware/requestid"
)

func newRouter(cfg *config.Config, c *bootstrap.Container, logr *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(c.Metrics))

	metricsHandler := handler.NewMetricsHandler(c.Metrics, c.DB)
	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	generatorHandler := handler.NewScheduleGeneratorHandler(c.Dispatcher, c.Generator)
	scheduleHandler := handler.NewSubjectScheduleHandler(c.Schedules)
	overrideHandler := handler.NewScheduleOverrideHandler(c.Overrides)
	timetableHandler := handler.NewTimetableHandler(c.Timetables)

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.JWT(c.Auth))

	readers := internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleTeacher, models.RoleStudent)
	editors := internalmiddleware.RequireRoles(models.RoleAdmin)

	schedule := api.Group("/schedule")
	schedule.GET("/time-windows", readers, generatorHandler.TimeWindows)
	schedule.GET("/validate", editors, generatorHandler.Validate)
	schedule.GET("/statistics", editors, generatorHandler.Statistics)
	schedule.POST("/generate", editors, generatorHandler.Generate)

	assignments := api.Group("/subject-schedules")
	assignments.GET("", readers, scheduleHandler.List)
	assignments.GET("/free-slots", readers, scheduleHandler.FreeSlots)
	assignments.GET("/:id", readers, scheduleHandler.Get)
	assignments.POST("", editors, scheduleHandler.Create)
	assignments.POST("/clear", editors, scheduleHandler.ClearGroup)
	assignments.PUT("/:id", editors, scheduleHandler.Update)
	assignments.DELETE("/:id", editors, scheduleHandler.Delete)

	overrides := api.Group("/schedule-overrides")
	overrides.GET("", readers, overrideHandler.List)
	overrides.GET("/:id", readers, overrideHandler.Get)
	overrides.POST("", editors, overrideHandler.Create)
	overrides.PUT("/:id", editors, overrideHandler.Update)
	overrides.DELETE("/:id", editors, overrideHandler.Delete)

	timetables := api.Group("/timetables")
	timetables.GET("/:owner/:id", readers, timetableHandler.Get)
	timetables.GET("/:owner/:id/export", readers, timetableHandler.Export)

	return r
}
