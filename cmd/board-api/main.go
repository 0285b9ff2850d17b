package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/bellsnotice/board-api/api/swagger"
	"github.com/bellsnotice/board-api/internal/handler"
	"github.com/bellsnotice/board-api/internal/middleware"
	"github.com/bellsnotice/board-api/internal/models"
	"github.com/bellsnotice/board-api/internal/repository"
	"github.com/bellsnotice/board-api/internal/service"
	"github.com/bellsnotice/board-api/pkg/cache"
	"github.com/bellsnotice/board-api/pkg/config"
	"github.com/bellsnotice/board-api/pkg/database"
	"github.com/bellsnotice/board-api/pkg/logger"
	corsmiddleware "github.com/bellsnotice/board-api/pkg/middleware/cors"
	reqidmiddleware "github.com/bellsnotice/board-api/pkg/middleware/requestid"
	"github.com/bellsnotice/board-api/pkg/storage"
)

// @title Bells Notice Board API
// @version 1.0.0
// @description Campus notice board with a request/approval workflow
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, list caching disabled", "error", err)
		redisClient = nil
	}

	mediaStorage, err := storage.NewLocalStorage(cfg.Media.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init media storage", "error", err)
	}
	mediaURLs, err := storage.NewPublicURLResolver(cfg.Media.PublicBaseURL)
	if err != nil {
		logr.Sugar().Fatalw("invalid media public base URL", "error", err)
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	noticeRepo := repository.NewNoticeRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	reactionRepo := repository.NewReactionRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient)

	metricsService := service.NewMetricsService()
	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "board-api",
		Audience:           []string{"board-api"},
	})
	requestService := service.NewRequestService(requestRepo, userRepo, userRepo, mediaStorage, mediaURLs, cacheRepo, metricsService, validate, logr, cfg.Media.MaxFileSizeBytes)
	noticeService := service.NewNoticeService(noticeRepo, userRepo, reactionRepo, commentRepo, userRepo, mediaStorage, mediaURLs, cacheRepo, cfg.Board.ListCacheTTL, metricsService, validate, logr, cfg.Media.MaxFileSizeBytes)
	commentService := service.NewCommentService(commentRepo, noticeRepo, userRepo, validate, logr)
	reactionService := service.NewReactionService(reactionRepo, noticeRepo, logr)
	userService := service.NewUserService(userRepo, mediaStorage, mediaURLs, validate, logr)

	var exportService *service.ExportService
	if cfg.Board.ExportEnabled {
		exportService = service.NewExportService(noticeRepo, userRepo, userRepo, logr, nil, nil)
	}

	authHandler := handler.NewAuthHandler(authService)
	requestHandler := handler.NewRequestHandler(requestService)
	noticeHandler := handler.NewNoticeHandler(noticeService, exportService)
	commentHandler := handler.NewCommentHandler(commentService)
	reactionHandler := handler.NewReactionHandler(reactionService)
	userHandler := handler.NewUserHandler(userService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)
	r.Static("/media", mediaStorage.Dir())

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authService), authHandler.Logout)
	}

	requests := api.Group("/requests", middleware.JWT(authService))
	{
		requests.POST("", requestHandler.Create)
		requests.GET("/mine", requestHandler.History)
		requests.GET("/inbox", middleware.RequireRoles(models.RoleRep, models.RoleAdmin, models.RoleSuperAdmin), requestHandler.Inbox)
		requests.POST("/:id/decision", middleware.RequireRoles(models.RoleRep, models.RoleAdmin, models.RoleSuperAdmin), requestHandler.Decide)
		requests.DELETE("/:id", requestHandler.Delete)
	}

	notices := api.Group("/notices")
	{
		notices.GET("", noticeHandler.List)
		notices.GET("/tags", noticeHandler.Tags)
		notices.GET("/:id", middleware.OptionalJWT(authService), noticeHandler.Detail)
		notices.GET("/:id/comments", commentHandler.List)

		notices.POST("",
			middleware.JWT(authService),
			middleware.RequireRoles(models.RoleRep, models.RoleAdmin, models.RoleSuperAdmin),
			noticeHandler.Create)
		notices.POST("/:id/view", middleware.JWT(authService), noticeHandler.View)
		notices.POST("/:id/comments", middleware.JWT(authService), commentHandler.Create)
		notices.PUT("/:id/reaction", middleware.JWT(authService), reactionHandler.ToggleReaction)
		notices.PUT("/:id/save", middleware.JWT(authService), reactionHandler.ToggleSaved)
		notices.PUT("/:id", middleware.JWT(authService), noticeHandler.Update)
		notices.PATCH("/:id/flags",
			middleware.JWT(authService),
			middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin),
			middleware.Audit(userRepo, "NOTICE_FLAGS_REQUEST", "notices"),
			noticeHandler.Flags)
		notices.DELETE("/:id", middleware.JWT(authService), noticeHandler.Delete)
	}

	api.GET("/saved", middleware.JWT(authService), reactionHandler.Saved)
	api.DELETE("/comments/:id", middleware.JWT(authService), commentHandler.Delete)

	admin := api.Group("/admin",
		middleware.JWT(authService),
		middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin))
	{
		admin.GET("/notices", noticeHandler.AdminList)
		admin.GET("/notices/export",
			middleware.Audit(userRepo, "NOTICE_EXPORT_REQUEST", "notices"),
			noticeHandler.Export)
	}

	users := api.Group("/users", middleware.JWT(authService))
	{
		users.GET("/me", userHandler.Me)
		users.PUT("/me", userHandler.UpdateMe)
		users.GET("/reps", userHandler.Reps)
		users.GET("/:id", userHandler.Profile)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
