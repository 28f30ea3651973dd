package app

import (
	"database/sql"
	"fmt"
	"log"

	"storegate/internal/config"
	"storegate/internal/handlers"
	"storegate/internal/pdf"
	"storegate/internal/repositories"
	"storegate/internal/routes"
	"storegate/internal/services"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	_ "storegate/docs"
)

func Run() {
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration: ", err)
	}

	// === DB ===
	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		log.Fatal("failed to connect to database: ", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("failed to close database: %v", err)
		}
	}()

	// === Redis ===
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Printf("failed to close redis: %v", err)
		}
	}()

	// === Repos ===
	userRepo := repositories.NewUserRepository(db)
	roleRepo := repositories.NewRoleRepository(db)
	eventRepo := repositories.NewSignInEventRepository(db)
	otpRepo := repositories.NewOtpRepository(rdb, "otp")
	sessionRepo := repositories.NewSessionRepository(rdb, "sess")

	// === Services ===
	emailService := services.NewEmailService(
		cfg.Email.SMTPHost,
		cfg.Email.SMTPPort,
		cfg.Email.SMTPUser,
		cfg.Email.SMTPPassword,
		cfg.Email.FromEmail,
	)
	accountService := services.NewAccountService(userRepo, sessionRepo, cfg.Auth.SessionTTL())
	captchaService := services.NewCaptchaService(cfg.Captcha.Secret, cfg.Captcha.VerifyURL, cfg.Captcha.Timeout())
	challengeService := services.NewChallengeService(otpRepo, emailService, cfg.Auth)
	roleService := services.NewRoleService(roleRepo)
	userService := services.NewUserService(userRepo, roleRepo, emailService, accountService, cfg.Auth.RefreshTTL())

	var notifier *services.NotifyService
	if cfg.Telegram.Enabled && cfg.Telegram.BotToken != "" {
		notifier, err = services.NewNotifyService(cfg.Telegram.BotToken, cfg.Telegram.OpsChatID)
		if err != nil {
			// alerting is optional; run without it
			log.Printf("telegram notifier disabled: %v", err)
			notifier = nil
		}
	}

	loginService := services.NewLoginService(
		accountService,
		captchaService,
		challengeService,
		otpRepo,
		roleService,
		userRepo,
		eventRepo,
		notifier,
		cfg.Auth,
	)

	reportGen := pdf.NewReportGenerator()

	// === Handlers ===
	authHandler := handlers.NewAuthHandler(loginService, userService, []byte(cfg.Auth.JWTSecret), cfg.Auth.AccessTTL())
	userHandler := handlers.NewUserHandler(userService)
	reportHandler := handlers.NewReportHandler(eventRepo, reportGen)

	// === Gin ===
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	router.Use(corsMiddleware())

	// Swagger
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	routes.SetupRoutes(router, authHandler, userHandler, reportHandler, []byte(cfg.Auth.JWTSecret))

	// === Run ===
	listenAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("server listening on %s (env=%s)", listenAddr, cfg.Server.Env)
	if err := router.Run(listenAddr); err != nil {
		log.Fatal("server failed: ", err)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
