package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	locale "github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/haperhq/haper-auth/internal/config"
	"github.com/haperhq/haper-auth/internal/gmail"
	"github.com/haperhq/haper-auth/internal/httpapi"
	"github.com/haperhq/haper-auth/internal/logger"
	"github.com/haperhq/haper-auth/internal/provider"
	"github.com/haperhq/haper-auth/internal/registry"
	"github.com/haperhq/haper-auth/internal/relay"
	"github.com/haperhq/haper-auth/internal/repository"
	"github.com/haperhq/haper-auth/internal/security"
	"github.com/haperhq/haper-auth/internal/token"
	"github.com/haperhq/haper-auth/internal/usecase"
)

const bootstrapTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New("haper-auth", "info")
		fallback.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.New(cfg.AppName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bootCtx, cancel := context.WithTimeout(ctx, bootstrapTimeout)
	defer cancel()

	client, err := mongo.Connect(options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to mongodb")
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Error().Err(err).Msg("failed to disconnect from mongodb")
		}
	}()

	if err := client.Ping(bootCtx, nil); err != nil {
		log.Fatal().Err(err).Msg("failed to ping mongodb")
	}

	db := client.Database(cfg.MongoDatabase)
	userRepo := repository.NewUserMongoRepository(bootCtx, &log, db)
	accountRepo := repository.NewAccountMongoRepository(bootCtx, &log, db)

	hasher := security.NewHasher(security.DefaultParams)
	issuer := token.NewIssuer(cfg.JWTSecret, cfg.JWTTTL)

	verifiers := provider.NewRegistry()
	verifiers.Register("google", provider.NewGoogleVerifier(cfg.GoogleClientID))

	var publisher relay.Publisher
	if cfg.SQSQueueURL != "" {
		publisher, err = relay.NewSQSPublisher(bootCtx, relay.SQSConfig{
			QueueURL:        cfg.SQSQueueURL,
			Region:          cfg.SQSRegion,
			Endpoint:        cfg.SQSEndpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create sqs publisher")
		}
	} else {
		publisher = &relay.NopPublisher{Logger: &log}
	}

	authUsecase := usecase.NewAuthUsecase(userRepo, accountRepo, hasher, verifiers, issuer, &log)
	syncUsecase := usecase.NewMessageSyncUsecase(
		accountRepo,
		gmail.NewClient(cfg.GoogleClientID, cfg.GoogleClientSecret),
		publisher,
		&log,
	)

	validate := validator.New(validator.WithRequiredStructEnabled())
	enLocale := locale.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ := uni.GetTranslator("en")
	if err := entranslations.RegisterDefaultTranslations(validate, trans); err != nil {
		log.Fatal().Err(err).Msg("failed to register validator translations")
	}

	router := httpapi.NewRouter(httpapi.RouterDeps{
		Auth:        httpapi.NewAuthHandler(authUsecase, validate, trans, &log, cfg.JWTCookieName, cfg.JWTTTL),
		Webhook:     httpapi.NewWebhookHandler(syncUsecase, &log),
		Delegation:  httpapi.NewDelegationHandler(accountRepo, &log),
		Issuer:      issuer,
		CookieName:  cfg.JWTCookieName,
		CORSOrigins: cfg.CORSOrigins,
		Logger:      &log,
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	if cfg.ConsulAddr != "" {
		registration, err := registry.Register(cfg.ConsulAddr, cfg.AppName, cfg.ServiceHost, cfg.HTTPAddr, &log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to register with consul")
		}
		defer registration.Deregister()
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http server started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}

	log.Info().Msg("server stopped")
}
