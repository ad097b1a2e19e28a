package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"redline/internal/adapters/analytics"
	emailPkg "redline/internal/adapters/email"
	"redline/internal/adapters/gateway"
	web "redline/internal/adapters/http"
	"redline/internal/adapters/http/perf"
	"redline/internal/adapters/producer"
	"redline/internal/adapters/producer/gemini"
	"redline/internal/adapters/producer/remote"
	"redline/internal/adapters/producer/static"
	"redline/internal/adapters/storage"
	confirmationStore "redline/internal/adapters/storage/confirmation"
	leadStore "redline/internal/adapters/storage/lead"
	outboxStore "redline/internal/adapters/storage/outbox"
	sessionStore "redline/internal/adapters/storage/session"
	"redline/internal/application/orchestrators"
	"redline/internal/application/sessionstate"
	"redline/internal/config"
	"redline/internal/domain/outbox"
	"redline/internal/logger"
	"redline/internal/secrets"
)

const (
	janitorInterval = 10 * time.Minute
	outboxInterval  = time.Minute
	shutdownTimeout = 15 * time.Second

	// sandboxClientKey stands in for a gateway client key in sandbox mode.
	sandboxClientKey = "sandbox_client_key"
	// sandboxSDK is served instead of the gateway script in sandbox mode.
	sandboxSDK = "window.TossPayments=function(){return{requestPayment:function(){return Promise.reject(new Error('sandbox'))}}};"
)

func runServe(ctx context.Context, v *viper.Viper, configFile string) error {
	cfg, err := config.Load(v, configFile)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.OpenSQLite(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	if err := storage.MigrateDB(db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	collector := perf.NewCollector(perf.DefaultRingSize)
	timedDB := storage.NewTimedDB(db, log.Named("db"), collector, storage.SlowQueryFromEnv())

	sessions, err := newSessionStore(ctx, cfg, timedDB, log)
	if err != nil {
		return err
	}

	prod, improver, err := newProducer(ctx, cfg, log, collector)
	if err != nil {
		return err
	}

	payDeps, confirmDeps, confirmer, err := newPayment(cfg, timedDB, log, collector)
	if err != nil {
		return err
	}

	outboxes := outboxStore.NewSQLiteStore(timedDB)
	sender, err := newSender(cfg, log)
	if err != nil {
		return err
	}
	processor := orchestrators.NewOutboxProcessor(outboxes, map[string]orchestrators.ActionExecutor{
		outbox.ActionTypeLeadNotification: &orchestrators.LeadNotificationExecutor{Sender: sender},
	}, log)
	go processor.Run(ctx, outboxInterval)

	sessionSecret, err := secrets.Optional(secrets.Source{
		Name:  "session.secret",
		Value: cfg.Session.Secret,
		File:  cfg.Session.SecretFile,
	})
	if err != nil {
		return err
	}
	keys, err := web.LoadKeys(sessionSecret, cfg.IsProduction(), log)
	if err != nil {
		return err
	}

	handler, err := web.NewMux(web.Options{
		StaticDir:      cfg.Server.StaticDir,
		BasePath:       cfg.Server.BasePath,
		Production:     cfg.IsProduction(),
		TrustedOrigins: cfg.Server.TrustedOrigins,
		RateLimit:      float64(cfg.Server.RateLimit),
		RateBurst:      cfg.Server.RateBurst,
		Keys:           keys,
	}, &web.Deps{
		State:           sessionstate.New(sessions, log),
		Producer:        prod,
		Improver:        improver,
		ProducerTimeout: cfg.Producer.Timeout,
		Payment:         payDeps,
		Confirmer:       confirmer,
		Confirm:         confirmDeps,
		Leads:           leadStore.NewSQLiteStore(timedDB),
		Outbox:          outboxes,
		LeadNotifyTo:    cfg.Email.LeadNotify,
		Tracker:         analytics.New(log),
		Collector:       collector,
		Log:             log,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("server_starting",
			zap.String("version", version),
			zap.String("addr", cfg.Server.Addr),
			zap.String("env", cfg.Server.Env),
			zap.String("base_path", cfg.Server.BasePath),
			zap.String("gateway", cfg.Payment.Gateway),
			zap.String("producer", cfg.Producer.Mode),
			zap.Int("schema", storage.LatestSchemaVersion()),
		)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("server_stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newSessionStore opens the configured session backend. The SQLite backend
// gets a janitor; Redis expires keys on its own.
func newSessionStore(ctx context.Context, cfg *config.Config, db storage.SQLDB, log *zap.Logger) (sessionStore.Store, error) {
	if cfg.Session.Backend == config.SessionBackendRedis {
		client := sessionStore.NewRedisClient(cfg.Session.Redis.Addr, cfg.Session.Redis.Password, cfg.Session.Redis.DB)
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis unreachable at %s: %w", cfg.Session.Redis.Addr, err)
		}
		go func() {
			<-ctx.Done()
			client.Close()
		}()
		return sessionStore.NewRedisStore(client, cfg.Session.IdleTTL), nil
	}
	store := sessionStore.NewSQLiteStore(db)
	go sessionStore.RunJanitor(ctx, store, cfg.Session.IdleTTL, janitorInterval, log.Named("session"))
	return store, nil
}

func newProducer(ctx context.Context, cfg *config.Config, log *zap.Logger, collector *perf.Collector) (producer.ReportProducer, producer.QuestionImprover, error) {
	switch cfg.Producer.Mode {
	case config.ProducerGemini:
		key, err := secrets.Load(secrets.Source{
			Name:  "producer.gemini.api_key",
			Value: cfg.Producer.Gemini.APIKey,
			File:  cfg.Producer.Gemini.APIKeyFile,
		})
		if err != nil {
			return nil, nil, err
		}
		gen, err := gemini.NewGenerator(ctx, key, cfg.Producer.Gemini.Model)
		if err != nil {
			return nil, nil, fmt.Errorf("gemini client: %w", err)
		}
		p := gemini.NewProducer(gen, log, cfg.Producer.Gemini.MaxLogLength, collector)
		return p, p, nil
	case config.ProducerRemote:
		c := remote.NewClient(cfg.Producer.Remote.BaseURL, cfg.Producer.Timeout, log, collector)
		return c, c, nil
	default:
		log.Warn("static_producer", zap.String("hint", "set REDLINE_PRODUCER_MODE for real analysis"))
		return static.Producer{}, static.Producer{}, nil
	}
}

func newPayment(cfg *config.Config, db storage.SQLDB, log *zap.Logger, collector *perf.Collector) (orchestrators.InitiatePaymentDeps, orchestrators.ConfirmPaymentDeps, gateway.Confirmer, error) {
	pc := cfg.Payment
	initiate := orchestrators.InitiatePaymentDeps{
		ClientKey: pc.ClientKey,
		Amount:    pc.Amount,
		OrderName: pc.OrderName,
		Method:    pc.Method,
		AppURL:    cfg.Server.AppURL,
		BasePath:  cfg.Server.BasePath,
		Flight:    &singleflight.Group{},
		Log:       log.Named("payment"),
	}
	confirm := orchestrators.ConfirmPaymentDeps{
		Ledger: confirmationStore.NewSQLiteStore(db),
		Price:  pc.Amount,
		Log:    log.Named("payment"),
	}

	if pc.Gateway == config.GatewaySandbox {
		if initiate.ClientKey == "" {
			initiate.ClientKey = sandboxClientKey
		}
		initiate.SDK = gateway.StaticSDK(sandboxSDK)
		initiate.Gateway = gateway.SandboxGateway{}
		confirm.API = gateway.SandboxPaymentsAPI{}
		log.Warn("sandbox_gateway", zap.String("hint", "payments are approved without a gateway"))
	} else {
		secretKey, err := secrets.Optional(secrets.Source{
			Name:  "payment.secret_key",
			Value: pc.SecretKey,
			File:  pc.SecretKeyFile,
		})
		if err != nil {
			return initiate, confirm, nil, err
		}
		if secretKey == "" && pc.ConfirmEndpoint == "" {
			log.Warn("payment_secret_missing", zap.String("hint", "confirmations will be refused by the gateway"))
		}
		if pc.ClientKey == "" {
			log.Warn("payment_client_key_missing", zap.String("hint", "checkout reports CONFIG_MISSING"))
		}
		initiate.SDK = gateway.NewSDKLoader(pc.SDKURL, pc.SDKTimeout, log, collector)
		initiate.Gateway = gateway.NewTossGateway(pc.ClientKey)
		confirm.API = gateway.NewTossAPI(pc.APIURL, secretKey, pc.ConfirmTimeout, log, collector)
	}

	var confirmer gateway.Confirmer = orchestrators.LocalConfirmer{Deps: confirm}
	if pc.ConfirmEndpoint != "" {
		confirmer = gateway.NewRemoteConfirmer(pc.ConfirmEndpoint, pc.ConfirmTimeout, log, collector)
	}
	return initiate, confirm, confirmer, nil
}

func newSender(cfg *config.Config, log *zap.Logger) (emailPkg.Sender, error) {
	key, err := secrets.Optional(secrets.Source{
		Name:  "email.resend_key",
		Value: cfg.Email.ResendKey,
		File:  cfg.Email.ResendKeyFile,
	})
	if err != nil {
		return nil, err
	}
	if key == "" {
		if cfg.IsProduction() && cfg.Email.LeadNotify != "" {
			log.Warn("email_disabled", zap.String("hint", "set REDLINE_EMAIL_RESEND_KEY for lead notifications"))
		}
		return emailPkg.NewNoopSender(log), nil
	}
	return emailPkg.NewResendSender(key, cfg.Email.From, cfg.Email.ReplyTo, log), nil
}
