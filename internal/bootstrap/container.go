// Package bootstrap assembles the service graph shared by the HTTP server
// and the command line tool.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-timetable-api/internal/repository"
	"github.com/noah-isme/uni-timetable-api/internal/service"
	"github.com/noah-isme/uni-timetable-api/pkg/cache"
	"github.com/noah-isme/uni-timetable-api/pkg/config"
	"github.com/noah-isme/uni-timetable-api/pkg/database"
)

// Container holds the wired repositories and services.
type Container struct {
	DB    *sqlx.DB
	Redis *redis.Client

	Metrics    *service.MetricsService
	Cache      *service.CacheService
	Auth       *service.AuthService
	Validator  *service.ScheduleConflictValidator
	Generator  *service.ScheduleGeneratorService
	Dispatcher *service.GenerationDispatcher
	Schedules  *service.SubjectScheduleService
	Overrides  *service.ScheduleOverrideService
	Timetables *service.TimetableService
}

// New connects to Postgres (and Redis when enabled) and wires every service.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	c := &Container{DB: db, Redis: redisClient, Metrics: service.NewMetricsService()}

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logger)
	}
	c.Cache = service.NewCacheService(cacheRepo, c.Metrics, cfg.Timetable.CacheTTL, logger, cfg.Timetable.CacheEnabled)

	validate := validator.New()
	catalog := repository.NewCatalogRepository(db)
	schedules := repository.NewSubjectScheduleRepository(db)
	overrides := repository.NewScheduleOverrideRepository(db)

	c.Auth = service.NewAuthService(logger, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		Issuer:            cfg.JWT.Issuer,
	})
	c.Validator = service.NewScheduleConflictValidator(schedules, logger)
	c.Generator = service.NewScheduleGeneratorService(catalog, schedules, c.Validator, db, c.Cache, c.Metrics, validate, logger,
		service.ScheduleGeneratorConfig{MaxAttempts: cfg.Scheduler.MaxAttempts, Seed: cfg.Scheduler.Seed})
	c.Dispatcher = service.NewGenerationDispatcher(c.Generator, logger)
	c.Schedules = service.NewSubjectScheduleService(schedules, catalog, c.Validator, db, c.Cache, validate, logger)
	c.Overrides = service.NewScheduleOverrideService(overrides, c.Cache, validate, logger)
	c.Timetables = service.NewTimetableService(schedules, c.Cache, cfg.Timetable.CacheTTL, logger)
	return c, nil
}

// Close releases the database and cache connections.
func (c *Container) Close() error {
	var firstErr error
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			firstErr = err
		}
	}
	if err := c.DB.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
