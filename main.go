package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tutorbook/config"
	"tutorbook/cron"
	"tutorbook/database"
	availabilityRepo "tutorbook/database/repository/availability"
	recordsRepo "tutorbook/database/repository/records"
	schedulerRepo "tutorbook/database/repository/scheduler"
	settingsRepo "tutorbook/database/repository/settings"
	tutorRepo "tutorbook/database/repository/tutor"
	userRepo "tutorbook/database/repository/user"
	"tutorbook/handlers"
	"tutorbook/routes"
	"tutorbook/services/availability"
	"tutorbook/services/booking"
	"tutorbook/services/ledger"
	"tutorbook/services/meeting"
	"tutorbook/services/notification"
	"tutorbook/services/payment"
	"tutorbook/services/storage"
	"tutorbook/services/tutor"
	"tutorbook/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/stripe/stripe-go/v76"
	"go.uber.org/zap"
)

type repositories struct {
	availability availabilityRepo.AvailabilityRepository
	scheduler    schedulerRepo.SchedulerRepository
	tutors       tutorRepo.TutorRepository
	settings     settingsRepo.SettingsRepository
	withdrawals  recordsRepo.WithdrawalRepository
	devices      userRepo.DeviceRepository
}

func memoryRepositories() repositories {
	return repositories{
		availability: availabilityRepo.NewMemoryAvailabilityRepo(),
		scheduler:    schedulerRepo.NewMemorySchedulerRepo(),
		tutors:       tutorRepo.NewMemoryTutorRepo(),
		settings:     settingsRepo.NewMemorySettingsRepo(),
		withdrawals:  recordsRepo.NewMemoryWithdrawalRepo(),
		devices:      userRepo.NewMemoryDeviceRepo(),
	}
}

func mongoRepositories(ctx context.Context, logger *zap.Logger) repositories {
	if err := database.InitDB(ctx); err != nil {
		logger.Fatal("main: failed to connect to MongoDB", zap.Error(err))
	}
	repos := repositories{
		availability: availabilityRepo.NewMongoAvailabilityRepo(),
		scheduler:    schedulerRepo.NewMongoSchedulerRepo(),
		tutors:       tutorRepo.NewMongoTutorRepo(),
		settings:     settingsRepo.NewMongoSettingsRepo(),
		withdrawals:  recordsRepo.NewMongoWithdrawalRepo(),
		devices:      userRepo.NewMongoDeviceRepo(),
	}

	indexCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	steps := []struct {
		name string
		fn   func() error
	}{
		{"availability", func() error { return availabilityRepo.EnsureIndexes(indexCtx, repos.availability) }},
		{"scheduler", func() error { return schedulerRepo.EnsureIndexes(indexCtx, repos.scheduler) }},
		{"tutors", func() error { return tutorRepo.EnsureIndexes(indexCtx, repos.tutors) }},
		{"withdrawals", func() error { return recordsRepo.EnsureIndexes(indexCtx, repos.withdrawals) }},
		{"devices", func() error { return userRepo.EnsureIndexes(indexCtx, repos.devices) }},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			logger.Fatal("main: failed to ensure indexes", zap.String("repo", step.name), zap.Error(err))
		}
	}
	return repos
}

func credentialSealer(logger *zap.Logger) *utils.Sealer {
	secret := config.AppConfig.CredentialSealingKey
	if secret == "" {
		if config.IsProduction() {
			logger.Fatal("main: CREDENTIAL_SEALING_KEY is required in production")
		}
		logger.Warn("main: CREDENTIAL_SEALING_KEY not set, deriving from JWT secret")
		secret = "dev-seal:" + config.AppConfig.JWTSecret
	}
	sealer, err := utils.NewSealer(secret)
	if err != nil {
		logger.Fatal("main: failed to build credential sealer", zap.Error(err))
	}
	return sealer
}

func main() {
	config.LoadConfig()
	utils.InitializeLogger()
	logger := utils.GetLogger()

	if err := utils.RegisterValidators(); err != nil {
		logger.Fatal("main: failed to register validators", zap.Error(err))
	}

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	memory := config.UseMemoryStore()
	var repos repositories
	if memory {
		logger.Info("main: using in-memory store")
		repos = memoryRepositories()
	} else {
		repos = mongoRepositories(rootCtx, logger)
	}

	// Redis backs the calendar cache, token revocation, slot locks and the
	// task queue. The memory driver runs without it.
	var (
		cacheClient *redis.Client
		authClient  *redis.Client
		locker      utils.SlotLocker = utils.NewLocalLocker()
	)
	if !memory {
		cacheClient = utils.GetCacheClient()
		authClient = utils.GetAuthCacheClient()
		locker = &utils.RedisLocker{Client: cacheClient}
		utils.StartHealthMonitor(rootCtx, 30*time.Second, []*redis.Client{cacheClient, authClient}, database.MongoClient)
	} else {
		utils.StartHealthMonitor(rootCtx, 30*time.Second, nil, nil)
	}

	stripe.Key = config.AppConfig.StripeKey

	messagingClient, err := utils.NewMessagingClient(rootCtx, config.AppConfig.FirebaseCredentialsFile)
	if err != nil {
		logger.Warn("main: push notifications disabled", zap.Error(err))
	}

	var avatarStorage storage.StorageService
	if cld, err := utils.NewCloudinary(config.AppConfig.CloudinaryURL); err != nil {
		logger.Warn("main: avatar uploads disabled", zap.Error(err))
		avatarStorage = storage.NewCloudinaryStorage(nil)
	} else {
		avatarStorage = storage.NewCloudinaryStorage(cld)
	}

	// services.
	availabilityService := &availability.DefaultAvailabilityService{
		Repo:   repos.availability,
		Tutors: repos.tutors,
		Logger: logger,
	}
	if cacheClient != nil {
		ttl := time.Duration(config.AppConfig.CalendarCacheTTLSeconds) * time.Second
		availabilityService.Cache = &availability.RedisMonthCache{Client: cacheClient, TTL: ttl, Logger: logger}
	}

	ledgerService := &ledger.DefaultLedgerService{
		Scheduler:   repos.scheduler,
		Settings:    repos.settings,
		Withdrawals: repos.withdrawals,
		Logger:      logger,
	}

	oauthConfig := meeting.NewOAuthConfig(
		config.AppConfig.GoogleOAuthClientID,
		config.AppConfig.GoogleOAuthClientSecret,
		config.AppConfig.GoogleOAuthRedirectURL,
	)
	sealer := credentialSealer(logger)
	provisioner := meeting.NewProvisioner(
		&meeting.GoogleCalendarAPI{OAuth: oauthConfig},
		repos.tutors,
		sealer,
		config.MeetingTimeout(),
		logger,
	)
	connector := &meeting.Connector{
		OAuth:       oauthConfig,
		Credentials: repos.tutors,
		Sealer:      sealer,
		Logger:      logger,
		Clear:       repos.tutors.ClearCalendarCredential,
	}

	dispatcher := &notification.PushDispatcher{
		Devices:   repos.devices,
		Messaging: messagingClient,
		Logger:    logger,
	}
	var (
		sink        notification.NotificationSink
		queueClient *asynq.Client
		redisOpts   asynq.RedisClientOpt
	)
	if memory {
		sink = &notification.DirectSink{Dispatcher: dispatcher, Logger: logger}
	} else {
		redisOpts = asynq.RedisClientOpt{
			Addr:     config.AppConfig.RedisAddr,
			Password: config.AppConfig.RedisPassword,
			DB:       config.AppConfig.RedisQueueDB,
		}
		queueClient = asynq.NewClient(redisOpts)
		sink = &notification.QueueSink{Client: queueClient, Logger: logger}
	}

	bookingService := &booking.DefaultBookingService{
		Scheduler:    repos.scheduler,
		Tutors:       repos.tutors,
		Availability: availabilityService,
		Ledger:       ledgerService,
		Meetings:     provisioner,
		Notifier:     sink,
		Locker:       locker,
		Logger:       logger,
		LockTTL:      booking.LockTTLFor(config.MeetingTimeout()),
	}
	tutorService := &tutor.DefaultTutorService{
		Repo:    repos.tutors,
		Storage: avatarStorage,
		Logger:  logger,
	}
	paymentService := &payment.DefaultPaymentService{
		Gateway:   &payment.StripeGateway{WebhookSecret: config.AppConfig.StripeWebhookSecret},
		Bookings:  bookingService,
		Scheduler: repos.scheduler,
		Logger:    logger,
	}

	// background work.
	var worker *cron.Worker
	if memory {
		go cron.RunLocalSweep(rootCtx, 5*time.Minute, bookingService, logger)
	} else {
		mux := cron.NewMux(dispatcher, bookingService, logger)
		worker, err = cron.StartWorker(redisOpts, config.AppConfig.CompletionSweepSpec, mux, logger)
		if err != nil {
			logger.Fatal("main: failed to start worker", zap.Error(err))
		}
	}

	// Assemble the handler bundle.
	handlerBundle := &handlers.HandlerBundle{
		AuthCache:       authClient,
		Bookings:        handlers.NewBookingHandler(bookingService),
		Availability:    handlers.NewAvailabilityHandler(availabilityService, tutorService),
		Ledger:          handlers.NewLedgerHandler(ledgerService, bookingService, tutorService),
		Tutors:          handlers.NewTutorHandler(tutorService),
		CalendarConnect: handlers.NewCalendarConnectHandler(connector, tutorService),
		Payments:        handlers.NewPaymentHandler(paymentService),
		Devices:         handlers.NewDeviceHandler(repos.devices),
		Auth:            handlers.NewAuthHandler(authClient),
	}

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	routes.RegisterRoutes(router, handlerBundle)

	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Info("main: starting server", zap.String("addr", srv.Addr), zap.String("store", config.AppConfig.StoreDriver))
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("main: server failed to start", zap.Error(err))
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("main: server forced to shutdown", zap.Error(err))
	}
	stop()
	if worker != nil {
		worker.Shutdown()
	}
	if queueClient != nil {
		_ = queueClient.Close()
	}
	bookingService.Wait()
	if database.MongoClient != nil {
		_ = database.MongoClient.Disconnect(ctx)
	}
	_ = logger.Sync()
	logger.Info("main: server stopped gracefully")
}
