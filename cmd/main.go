package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/lshigami/Margay/config"
	"github.com/lshigami/Margay/database"
	"github.com/lshigami/Margay/internal/controller"
	"github.com/lshigami/Margay/internal/logger"
	"github.com/lshigami/Margay/internal/middleware"
	"github.com/lshigami/Margay/internal/model"
	"github.com/lshigami/Margay/internal/repository"
	"github.com/lshigami/Margay/internal/service"
	"github.com/lshigami/Margay/pkg/monitoring"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// @title Margay Study Platform API
// @version 1.0
// @description Upload study documents, generate AI tests from them and take timed attempts.
// @host localhost:8080
// @BasePath /api
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
func main() {
	app := fx.New(
		// Core application components
		fx.Provide(
			config.NewConfig,
			database.NewDatabase,
			NewGinEngine,
		),

		// Repositories
		fx.Provide(
			repository.NewUserRepository,
			repository.NewDocumentRepository,
			repository.NewTestRepository,
			repository.NewTestAttemptRepository,
		),

		// Services
		fx.Provide(
			service.NewStorageProvider,
			service.NewTextExtractor,
			service.NewGeminiLLMService,
			service.NewAuthService,
			service.NewDocumentService,
			service.NewTestService,
			service.NewTestGenerationService,
			service.NewAttemptService,
		),

		// Controllers
		fx.Provide(
			controller.NewAuthController,
			controller.NewDocumentController,
			controller.NewTestController,
			controller.NewAttemptController,
		),

		fx.Invoke(AutoMigrateDB),
		fx.Invoke(RegisterRoutesAndStartServer),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	<-app.Done()
	log.Info().Msg("Application shutting down gracefully...")
}

func NewGinEngine(cfg *config.Config) *gin.Engine {
	logger.Init(cfg.Server.Mode)
	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		log.Info().
			Str("client_ip", param.ClientIP).
			Str("method", param.Method).
			Str("path", param.Path).
			Int("status_code", param.StatusCode).
			Dur("latency", param.Latency).
			Str("user_agent", param.Request.UserAgent()).
			Str("error_message", param.ErrorMessage).
			Msg("gin_request")
		return ""
	}))
	r.Use(gin.Recovery())
	r.Use(monitoring.MetricsMiddleware())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/metrics", monitoring.PrometheusHandler())

	return r
}

// RegisterRoutesAndStartServer configures API routes and manages server lifecycle.
func RegisterRoutesAndStartServer(
	lc fx.Lifecycle,
	router *gin.Engine,
	cfg *config.Config,
	authCtrl *controller.AuthController,
	docCtrl *controller.DocumentController,
	testCtrl *controller.TestController,
	attemptCtrl *controller.AttemptController,
) {
	api := router.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/register/", authCtrl.Register)
		auth.POST("/login/", authCtrl.Login)
		auth.POST("/refresh/", authCtrl.Refresh)
	}

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(cfg))
	{
		docs := protected.Group("/documents")
		docs.GET("/", docCtrl.ListDocuments)
		docs.POST("/", docCtrl.UploadDocument)
		docs.GET("/:id/", docCtrl.GetDocument)
		docs.DELETE("/:id/", docCtrl.DeleteDocument)
		docs.POST("/:id/generate_test/", docCtrl.GenerateTest)

		protected.GET("/tests/:id/", testCtrl.GetTest)

		attempts := protected.Group("/test-attempts")
		attempts.POST("/", attemptCtrl.CreateAttempt)
		attempts.GET("/:id/", attemptCtrl.GetAttempt)
		attempts.POST("/:id/submit/", attemptCtrl.SubmitAttempt)
	}

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msgf("Margay API server starting on port %s", cfg.Server.Port)
			log.Info().Msgf("Swagger UI available at http://localhost:%s/swagger/index.html", cfg.Server.Port)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal().Err(err).Msg("Server ListenAndServe failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Server shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	})
}

func AutoMigrateDB(db *gorm.DB) error {
	log.Info().Msg("Running database migrations...")
	err := db.AutoMigrate(
		&model.User{},
		&model.Document{},
		&model.Test{},
		&model.Question{},
		&model.TestAttempt{},
		&model.Answer{},
	)
	if err != nil {
		log.Error().Err(err).Msg("Database migration failed")
		return err
	}
	log.Info().Msg("Database migration completed successfully.")
	return nil
}
