// Command server runs the asset registry auth core over gRPC.
package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"asset-registry/backend/internal/access"
	auditrepo "asset-registry/backend/internal/audit/repository"
	"asset-registry/backend/internal/config"
	"asset-registry/backend/internal/db"
	"asset-registry/backend/internal/devotp"
	devotphandler "asset-registry/backend/internal/devotp/handler"
	identitydomain "asset-registry/backend/internal/identity/domain"
	identityrepo "asset-registry/backend/internal/identity/repository"
	"asset-registry/backend/internal/memstore"
	"asset-registry/backend/internal/mfa/dispatch"
	"asset-registry/backend/internal/mfa/email"
	mfarepo "asset-registry/backend/internal/mfa/repository"
	mfaservice "asset-registry/backend/internal/mfa/service"
	"asset-registry/backend/internal/mfa/sms"
	"asset-registry/backend/internal/security"
	"asset-registry/backend/internal/server"
	sessionrepo "asset-registry/backend/internal/session/repository"
	sessionservice "asset-registry/backend/internal/session/service"
	"asset-registry/backend/internal/telemetry"
	telemetryotel "asset-registry/backend/internal/telemetry/otel"
	"asset-registry/backend/internal/telemetry/producer"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := telemetryotel.NewProviders(ctx, telemetryotel.Config{
		Endpoint:    cfg.OTelEndpoint,
		ServiceName: cfg.OTelServiceName,
		Insecure:    cfg.OTelInsecure,
	}, logger)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	providers.SetGlobal()
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := providers.Shutdown(sctx); err != nil {
			logger.Warn("otel shutdown", zap.Error(err))
		}
	}()

	stores, pool, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
	}

	tokens, err := tokenProvider(cfg, logger)
	if err != nil {
		return err
	}
	pepper, err := tokenPepper(cfg, logger)
	if err != nil {
		return err
	}
	policy, err := access.LoadPolicy(cfg.AccessPolicyFile)
	if err != nil {
		return fmt.Errorf("access policy: %w", err)
	}

	dispatcher, devStore := buildDispatcher(cfg, logger)

	emitters := []telemetry.EventEmitter{telemetryotel.NewEventEmitter(providers.LoggerProvider)}
	if kp := producer.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.AuditKafkaTopic); kp != nil {
		async := telemetry.NewAsyncEmitter(kp, logger.Named("kafka"))
		emitters = append(emitters, async)
		logger.Info("publishing audit events to kafka", zap.String("topic", kp.Topic()))
		defer func() {
			wctx, cancel := context.WithTimeout(context.Background(), telemetry.ShutdownDrainDuration)
			defer cancel()
			if err := async.Wait(wctx); err != nil {
				logger.Warn("kafka drain", zap.Error(err))
			}
			if err := kp.Close(); err != nil {
				logger.Warn("kafka close", zap.Error(err))
			}
		}()
	}

	deps, _, err := server.Build(ctx, stores, server.Options{
		Tokens: tokens,
		Pepper: pepper,
		Session: sessionservice.Config{
			TTL:           cfg.SessionTTL(),
			RefreshWindow: cfg.SessionRefreshWindow(),
		},
		OTP: mfaservice.Config{
			TTL:            cfg.OTPTTL(),
			MaxAttempts:    cfg.OTPMaxAttempts,
			ResendCooldown: cfg.OTPResendCooldown(),
		},
		Dispatcher:    dispatcher,
		Policy:        policy,
		AuditEmitters: emitters,
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	if pool != nil {
		deps.HealthPinger = pool
	}
	if devStore != nil {
		deps.DevOTPHandler = devotphandler.NewServer(devStore)
		logger.Warn("OTP_RETURN_TO_CLIENT is set: codes are captured for DevService/GetOTP and never sent")
	}
	deps.RateLimitRPS = cfg.RateLimitRPS
	deps.RateLimitBurst = cfg.RateLimitBurst

	s := server.NewGRPCServer(deps)
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("gRPC server listening", zap.String("addr", lis.Addr().String()))
		errCh <- s.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down gRPC server")
		done := make(chan struct{})
		go func() {
			s.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(shutdownTimeout):
			s.Stop()
		}
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	}
	logger.Info("gRPC server stopped")
	return nil
}

// openStores returns Postgres repositories when DATABASE_URL is set, otherwise in-memory stores.
// The pool is nil for in-memory stores.
func openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (server.Stores, db.Pool, error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL is not set; using in-memory stores")
		mem := memstore.New()
		return server.Stores{
			Identities: mem.Identities(),
			Challenges: mem.Challenges(),
			Sessions:   mem.Sessions(),
			Audit:      mem.Audit(),
		}, nil, nil
	}
	pool, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return server.Stores{}, nil, fmt.Errorf("database: %w", err)
	}
	return server.Stores{
		Identities: identityrepo.NewPostgresRepository(pool),
		Challenges: mfarepo.NewPostgresRepository(pool),
		Sessions:   sessionrepo.NewPostgresRepository(pool),
		Audit:      auditrepo.NewPostgresRepository(pool),
	}, pool, nil
}

func tokenProvider(cfg *config.Config, logger *zap.Logger) (*security.TokenProvider, error) {
	if cfg.JWTPrivateKey == "" || cfg.JWTPublicKey == "" {
		logger.Warn("JWT keys not set; signing with an ephemeral key, tokens will not survive a restart")
		return security.NewEphemeralTokenProvider(cfg.JWTIssuer, cfg.JWTAudience)
	}
	priv, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("JWT_PRIVATE_KEY: %w", err)
	}
	pub, err := security.ParsePublicKey(cfg.JWTPublicKey)
	if err != nil {
		return nil, fmt.Errorf("JWT_PUBLIC_KEY: %w", err)
	}
	return security.NewTokenProvider(priv, pub, cfg.JWTIssuer, cfg.JWTAudience)
}

func tokenPepper(cfg *config.Config, logger *zap.Logger) ([]byte, error) {
	if cfg.TokenPepper != "" {
		return []byte(cfg.TokenPepper), nil
	}
	logger.Warn("TOKEN_PEPPER not set; using a random pepper, stored digests will not survive a restart")
	pepper := make([]byte, 32)
	if _, err := rand.Read(pepper); err != nil {
		return nil, fmt.Errorf("generate pepper: %w", err)
	}
	return pepper, nil
}

// buildDispatcher returns the OTP dispatcher. In dev OTP mode every channel goes to the capture store,
// which is returned so DevService can read it back.
func buildDispatcher(cfg *config.Config, logger *zap.Logger) (*dispatch.Dispatcher, *devotp.MemoryStore) {
	if cfg.OTPReturnToClient {
		store := devotp.NewMemoryStore()
		sender := devotp.NewSender(store)
		return dispatch.New(map[identitydomain.Channel]dispatch.Sender{
			identitydomain.ChannelSMS:   sender,
			identitydomain.ChannelEmail: sender,
		}), store
	}
	senders := map[identitydomain.Channel]dispatch.Sender{}
	if cfg.SMSLocalAPIKey != "" {
		senders[identitydomain.ChannelSMS] = sms.NewSMSLocalClient(cfg.SMSLocalAPIKey, cfg.SMSLocalBaseURL, cfg.SMSLocalSender)
	} else {
		logger.Warn("SMS_LOCAL_API_KEY not set; sms OTP dispatch will fail")
	}
	if cfg.SMTPAddr != "" {
		senders[identitydomain.ChannelEmail] = email.NewSMTPSender(cfg.SMTPAddr, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
	} else {
		logger.Warn("SMTP_ADDR not set; email OTP dispatch will fail")
	}
	return dispatch.New(senders), nil
}
