package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/yourusername/carmarket-api/internal/config"
	"github.com/yourusername/carmarket-api/internal/handler"
	"github.com/yourusername/carmarket-api/internal/middleware"
	pgRepo "github.com/yourusername/carmarket-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/carmarket-api/internal/repository/redis"
	"github.com/yourusername/carmarket-api/internal/service"
	ws "github.com/yourusername/carmarket-api/internal/websocket"
	"github.com/yourusername/carmarket-api/pkg/auth"
	"github.com/yourusername/carmarket-api/pkg/database"
)

func main() {
	// Загружаем конфигурацию
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к PostgreSQL
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	// Применяем миграции
	if err := database.MigrateDB(db); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к Redis с использованием унифицированной конфигурации
	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	log.Println("Successfully connected to Redis")

	// Инициализируем репозитории
	userRepo := pgRepo.NewUserRepo(db)
	sessionRepo := pgRepo.NewSessionRepo(db)
	applicationRepo := pgRepo.NewDealerApplicationRepo(db)
	dealerRepo := pgRepo.NewDealerRepo(db)
	listingRepo := pgRepo.NewListingRepo(db)
	messageRepo := pgRepo.NewMessageRepo(db)
	articleRepo := pgRepo.NewArticleRepo(db)
	receiptRepo := pgRepo.NewReceiptRepo(db)

	cacheRepo, err := redisRepo.NewCacheRepo(redisClient)
	if err != nil {
		log.Printf("Failed to initialize CacheRepo: %v", err)
		os.Exit(1)
	}

	// --- Инициализация JWSService и внешних каналов доставки ---

	jwtService, err := auth.NewJWTService(
		cfg.JWT.Secret,
		cfg.JWT.ExpirationHrs,
		time.Duration(cfg.JWT.RefreshLifetimeHrs)*time.Hour,
	)
	if err != nil {
		log.Printf("Failed to initialize JWTService: %v", err)
		os.Exit(1)
	}

	isProduction := gin.Mode() == gin.ReleaseMode

	// WhatsApp: Twilio в production при заданных кредах, иначе dummy-режим
	// (код возвращается в ответе API вместо отправки)
	var whatsappSender service.WhatsAppSender
	if cfg.Twilio.AccountSID != "" && cfg.Twilio.AuthToken != "" {
		whatsappSender, err = service.NewTwilioWhatsAppSender(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.WhatsAppFrom)
		if err != nil {
			log.Printf("Failed to initialize Twilio sender: %v", err)
			os.Exit(1)
		}
		log.Println("[Main] WhatsApp-доставка: Twilio")
	} else {
		whatsappSender = service.NewDummyWhatsAppSender()
		log.Println("[Main] WhatsApp-доставка: dummy-режим (TWILIO_ACCOUNT_SID не задан)")
	}

	// Email: Resend либо заглушка
	var emailService service.EmailService
	if cfg.Resend.APIKey != "" {
		emailService, err = service.NewResendEmailService(cfg.Resend.APIKey, cfg.Resend.From, cfg.Server.BaseURL)
		if err != nil {
			log.Printf("Failed to initialize Resend email service: %v", err)
			os.Exit(1)
		}
		log.Println("[Main] Email-доставка: Resend")
	} else {
		emailService = &service.NoopEmailService{}
		log.Println("[Main] Email-доставка отключена (RESEND_API_KEY не задан)")
	}

	// AI: OpenAI-совместимый провайдер либо заглушка
	var aiClient service.AIClient
	if cfg.AI.APIKey != "" {
		aiClient, err = service.NewHTTPAIClient(cfg.AI.BaseURL, cfg.AI.APIKey, cfg.AI.Model)
		if err != nil {
			log.Printf("Failed to initialize AI client: %v", err)
			os.Exit(1)
		}
		log.Printf("[Main] AI-генерация: %s", cfg.AI.Model)
	} else {
		aiClient = &service.StubAIClient{}
		log.Println("[Main] AI-генерация: заглушка (AI_API_KEY не задан)")
	}

	// WebSocket hub для уведомлений чата
	hub := ws.NewHub()
	go hub.Run()

	// Инициализируем сервисы
	verificationService, err := service.NewVerificationService(whatsappSender, cfg.Server.AppName)
	if err != nil {
		log.Printf("Failed to initialize VerificationService: %v", err)
		os.Exit(1)
	}
	authService := service.NewAuthService(userRepo, sessionRepo, verificationService, jwtService, emailService)
	dealerService := service.NewDealerService(applicationRepo, dealerRepo, userRepo, verificationService)
	listingService := service.NewListingService(listingRepo, dealerRepo, cacheRepo)
	messageService := service.NewMessageService(messageRepo, listingRepo, hub)
	articleService := service.NewArticleService(articleRepo, listingRepo, aiClient)
	financeService := service.NewFinanceService(receiptRepo, dealerRepo)

	// Инициализируем обработчики
	accessTokenTTL := time.Duration(cfg.JWT.ExpirationHrs) * time.Hour
	authHandler := handler.NewAuthHandler(authService, userRepo, accessTokenTTL, cfg.Server.CookieSecure)
	dealerHandler := handler.NewDealerHandler(dealerService)
	listingHandler := handler.NewListingHandler(listingService, articleService)
	messageHandler := handler.NewMessageHandler(messageService)
	articleHandler := handler.NewArticleHandler(articleService)
	financeHandler := handler.NewFinanceHandler(financeService, dealerService)

	allowedOrigins := cfg.Server.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	wsHandler := handler.NewWSHandler(hub, jwtService, allowedOrigins)

	// Инициализируем middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtService)
	rateLimiter := middleware.NewRateLimiter(redisClient)
	otpLimit := rateLimiter.Limit(middleware.OTPRateLimitConfig())
	strictLimit := rateLimiter.Limit(middleware.StrictAuthRateLimitConfig())

	// Инициализируем роутер Gin
	router := gin.Default()

	// Настройка доверенных прокси для корректной работы c.ClientIP()
	// В production (GIN_MODE=release): не доверяем прокси (защита от IP spoofing)
	// При деплое за load balancer добавьте IP балансировщика в список
	if isProduction {
		if err := router.SetTrustedProxies(nil); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	} else {
		if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	}

	// Настройка CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Настраиваем маршруты API
	api := router.Group("/api")
	{
		// Аутентификация и OTP-верификация
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", strictLimit, authHandler.Register)
			authGroup.POST("/verify-otp", otpLimit, authHandler.VerifyOTP)
			authGroup.POST("/resend-otp", otpLimit, authHandler.ResendOTP)
			authGroup.POST("/login", strictLimit, authHandler.Login)
			authGroup.POST("/send-otp", otpLimit, authHandler.SendLoginOTP)
			authGroup.POST("/login/verify-otp", otpLimit, authHandler.VerifyLoginOTP)
			authGroup.POST("/forgot-password", otpLimit, authHandler.ForgotPassword)
			authGroup.POST("/forgot-password/verify", otpLimit, authHandler.VerifyResetOTP)
			authGroup.POST("/reset-password", strictLimit, authHandler.ResetPassword)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.POST("/logout", authHandler.Logout)

			// Маршруты, требующие аутентификации
			authedAuth := authGroup.Group("/")
			authedAuth.Use(authMiddleware.RequireAuth())
			{
				authedAuth.POST("/change-phone", otpLimit, authHandler.ChangePhone)
				authedAuth.POST("/verify-phone", otpLimit, authHandler.VerifyPhone)
				authedAuth.POST("/logout-all", authHandler.LogoutAll)
			}
		}

		// Пользователи
		users := api.Group("/users")
		users.Use(authMiddleware.RequireAuth())
		{
			users.GET("/me", authHandler.Me)
		}

		// Дилеры
		dealers := api.Group("/dealers")
		{
			dealers.GET("", dealerHandler.List)
			dealers.GET("/:slug", dealerHandler.GetBySlug)
			dealers.POST("/apply", otpLimit, dealerHandler.Apply)
			dealers.POST("/apply/verify-otp", otpLimit, dealerHandler.VerifyApplication)

			authedDealers := dealers.Group("")
			authedDealers.Use(authMiddleware.RequireAuth(), authMiddleware.DealerOnly())
			{
				authedDealers.GET("/me", dealerHandler.MyDealer)
				authedDealers.PUT("/me", dealerHandler.UpdateProfile)
			}

			adminDealers := dealers.Group("")
			adminDealers.Use(authMiddleware.RequireAuth(), authMiddleware.AdminOnly())
			{
				adminDealers.GET("/applications", dealerHandler.ListApplications)
			}
		}

		// Объявления
		listings := api.Group("/listings")
		{
			listings.GET("", listingHandler.Search)

			authedListings := listings.Group("")
			authedListings.Use(authMiddleware.RequireAuth())
			{
				authedListings.POST("", listingHandler.Create)
				authedListings.GET("/my", listingHandler.MyListings)
			}

			listingWithID := listings.Group("/:id")
			listingWithID.Use(middleware.ExtractUintParam("id", "listing_id"))
			{
				listingWithID.GET("", listingHandler.Get)

				authedListingWithID := listingWithID.Group("")
				authedListingWithID.Use(authMiddleware.RequireAuth())
				{
					authedListingWithID.PUT("", listingHandler.Update)
					authedListingWithID.DELETE("", listingHandler.Delete)
					authedListingWithID.POST("/publish", listingHandler.Publish)
					authedListingWithID.POST("/sold", listingHandler.MarkSold)
					authedListingWithID.POST("/generate-description", listingHandler.GenerateDescription)
					authedListingWithID.PUT("/description", listingHandler.SetDescription)
				}
			}
		}

		// Сообщения (чат покупатель-продавец)
		messages := api.Group("/messages")
		messages.Use(authMiddleware.RequireAuth())
		{
			messages.GET("/conversations", messageHandler.ListConversations)
			messages.POST("/conversations", messageHandler.StartConversation)

			convWithID := messages.Group("/conversations/:id")
			convWithID.Use(middleware.ExtractUintParam("id", "conversation_id"))
			{
				convWithID.GET("", messageHandler.ListMessages)
				convWithID.POST("", messageHandler.Send)
			}
		}

		// Статьи блога
		articles := api.Group("/articles")
		{
			articles.GET("", articleHandler.List)
			articles.GET("/:slug", articleHandler.GetBySlug)
		}
		adminArticles := api.Group("/admin/articles")
		adminArticles.Use(authMiddleware.RequireAuth(), authMiddleware.AdminOnly())
		{
			adminArticles.GET("", articleHandler.ListAll)
			adminArticles.POST("", articleHandler.Create)
			adminArticles.POST("/generate", articleHandler.Generate)

			articleWithID := adminArticles.Group("/:id")
			articleWithID.Use(middleware.ExtractUintParam("id", "article_id"))
			{
				articleWithID.PUT("", articleHandler.Update)
				articleWithID.DELETE("", articleHandler.Delete)
				articleWithID.POST("/publish", articleHandler.Publish)
			}
		}

		// Финансы: квитанции и отчетность
		finance := api.Group("/finance")
		finance.Use(authMiddleware.RequireAuth(), authMiddleware.DealerOnly())
		{
			finance.GET("/receipts", financeHandler.ListReceipts)
			finance.GET("/report", financeHandler.MonthlyReport)
			finance.GET("/report/export", financeHandler.ExportMonthlyReport)
		}
		adminFinance := api.Group("/admin/finance")
		adminFinance.Use(authMiddleware.RequireAuth(), authMiddleware.AdminOnly())
		{
			adminFinance.POST("/receipts", financeHandler.IssueReceipt)

			receiptWithID := adminFinance.Group("/receipts/:id")
			receiptWithID.Use(middleware.ExtractUintParam("id", "receipt_id"))
			{
				receiptWithID.POST("/void", financeHandler.VoidReceipt)
			}
		}
	}

	// WebSocket маршрут
	router.GET("/ws", wsHandler.HandleConnection)

	// Настраиваем HTTP сервер с тайм-аутами для защиты от slow client attacks
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Запускаем сервер в горутине
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	log.Printf("Server started on port %s", cfg.Server.Port)

	// После получения сигнала SIGINT или SIGTERM вызываем cancel() для завершения горутин
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Создаем контекст с таймаутом для graceful shutdown сервера
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	log.Println("Server exited properly")
}
