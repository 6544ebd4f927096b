package rewardd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"azorion/config"
	azrcrypto "azorion/crypto"
	rewards "azorion/native/taskrewards"
	"azorion/observability/logging"
	telemetry "azorion/observability/otel"
	rewardstate "azorion/state/taskrewards"
	"azorion/services/rewardd/wallet"
	"azorion/storage"
)

// PassphraseFunc resolves the authority keystore passphrase, consulting envVar
// before any interactive prompt.
type PassphraseFunc func(envVar string) (string, error)

// Main initialises and runs the reward daemon.
func Main(passphrase PassphraseFunc) error {
	if passphrase == nil {
		return errors.New("rewardd: passphrase source required")
	}

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "services/rewardd/config.yaml", "path to rewardd configuration")
	flag.Parse()

	cfg, err := LoadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	env := strings.TrimSpace(os.Getenv("AZR_ENV"))
	logger := logging.Setup("rewardd", env,
		logging.WithLevel(cfg.Logging.Level),
		logging.WithFile(cfg.Logging.File, cfg.Logging.MaxSizeMB, cfg.Logging.MaxBackups))

	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName:    "rewardd",
		Environment:    env,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		Metrics:        cfg.Telemetry.Metrics,
		Traces:         cfg.Telemetry.Traces,
		SampleRatio:    cfg.Telemetry.SampleRatio,
		MetricInterval: cfg.Telemetry.MetricInterval.Duration,
	}.WithEnv(os.LookupEnv))
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() { _ = shutdownTelemetry(context.Background()) }()

	pass, err := passphrase(cfg.Authority.PassphraseEnv)
	if err != nil {
		return err
	}
	key, err := azrcrypto.LoadFromKeystore(cfg.Authority.Keystore, pass)
	if err != nil {
		return fmt.Errorf("load authority keystore: %w", err)
	}
	signer := NewReceiptSigner(key)

	db, err := storage.Open(cfg.Storage.Backend, cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()
	store := rewardstate.NewStore(db)
	ledger := wallet.NewLedger(db)

	receiptDB, err := OpenReceiptDB(cfg.Receipts.Driver, cfg.Receipts.DSN)
	if err != nil {
		return fmt.Errorf("open receipts: %w", err)
	}
	receipts, err := NewReceiptStore(receiptDB)
	if err != nil {
		return fmt.Errorf("migrate receipts: %w", err)
	}

	genesis, err := config.LoadProgram(cfg.GenesisPath)
	if err != nil {
		return fmt.Errorf("load genesis: %w", err)
	}

	hub := NewHub()
	var estimator rewards.ClaimantEstimator = genesis.Estimator()
	var observed *ObservedEstimator
	if cfg.Estimator.Mode == EstimatorObserved {
		observed = NewObservedEstimator(cfg.Estimator.Window.Duration, cfg.Estimator.Floor)
		estimator = observed
	}
	engine := rewards.NewEngine(
		rewards.WithClaimantEstimator(estimator),
		rewards.WithEmitter(hub),
	)
	processor := NewProcessor(store,
		WithEngine(engine),
		WithWallet(ledger),
		WithReceipts(receipts, signer),
		WithEntropy(SlotEntropy{Genesis: time.Unix(0, 0), Slot: cfg.Scheduler.Slot.Duration}),
		WithClaimObserver(observed),
		WithLogger(logger),
	)
	if cfg.PauseOnStart {
		processor.Pause()
	}

	program, err := EnsureProgram(processor, ledger, genesis, logger)
	if err != nil {
		return err
	}
	if program.Authority != signer.Identity() {
		return fmt.Errorf("authority keystore %s does not match program authority %s", signer.Identity(), program.Authority)
	}

	auth, err := NewAuthenticator(cfg.Auth, logger)
	if err != nil {
		return err
	}
	server := NewServer(ServerConfig{
		Processor: processor,
		Auth:      auth,
		Limiter:   NewRateLimiter(cfg.RateLimit),
		Hub:       hub,
		Authority: program.Authority,
		Logger:    logger,
	})
	httpServer := &http.Server{
		Addr:         cfg.ListenAddress,
		Handler:      server,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	group, ctx := errgroup.WithContext(stopCtx)

	group.Go(func() error {
		logger.Info("rewardd listening", slog.String("addr", cfg.ListenAddress))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if cfg.Scheduler.Enabled {
		scheduler := NewScheduler(processor, program.Authority, cfg.Scheduler.Interval.Duration, logger)
		group.Go(func() error { return scheduler.Run(ctx) })
	}
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			_ = httpServer.Close()
			return err
		}
		return nil
	})
	return group.Wait()
}

// EnsureProgram initialises the program from genesis on first start and tops
// the custody account up to the program balance on every start, so an
// interrupted first start is repaired on the next one.
func EnsureProgram(processor *Processor, ledger *wallet.Ledger, genesis *config.Program, logger *slog.Logger) (*rewards.ProgramState, error) {
	program, err := processor.Program()
	switch {
	case err == nil:
		logger.Info("task reward program loaded",
			slog.Uint64("current_balance", program.CurrentBalance),
			slog.Int("available_tasks", int(program.AvailableTasks)))
	case errors.Is(err, rewards.ErrNotInitialized):
		params, err := genesis.InitParams(time.Now().Unix())
		if err != nil {
			return nil, err
		}
		program, err = processor.Initialize(params)
		if err != nil {
			return nil, fmt.Errorf("initialise program: %w", err)
		}
	default:
		return nil, fmt.Errorf("load program: %w", err)
	}
	credited, err := ledger.EnsureBalance(program.Custody, program.CurrentBalance)
	if err != nil {
		return nil, fmt.Errorf("fund custody: %w", err)
	}
	if credited > 0 {
		logger.Info("custody funded",
			slog.String("custody", program.Custody.String()),
			slog.Uint64("credited", credited))
	}
	return program, nil
}
