package rewardd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	rewards "azorion/native/taskrewards"
	"azorion/observability"
)

// ErrProcessorPaused is returned when a claim is attempted while the processor is paused.
var ErrProcessorPaused = errors.New("rewardd: processor paused")

// ErrInvalidClaimant is returned for claims without a claimant identity.
var ErrInvalidClaimant = errors.New("rewardd: claimant required")

// EntropySource supplies randomizer entropy.
type EntropySource interface {
	Entropy(now time.Time, program *rewards.ProgramState) uint64
}

// ClaimInput is a claim submitted through the API.
type ClaimInput struct {
	Caller   rewards.Identity
	Claimant rewards.Identity
	Activity string
}

// ClaimResult bundles the reward breakdown with the stored receipt.
type ClaimResult struct {
	Outcome *rewards.ClaimOutcome
	Receipt *ClaimReceipt
}

// Processor serialises access to the reward engine, pays claims through the
// wallet and records signed receipts.
type Processor struct {
	engine   *rewards.Engine
	state    rewards.State
	wallet   rewards.Transferer
	receipts *ReceiptStore
	signer   *ReceiptSigner
	entropy  EntropySource
	observer claimObserver
	metrics  *observability.TaskRewardsMetrics
	logger   *slog.Logger
	tracer   trace.Tracer
	now      func() time.Time

	// Claims take the claimant lock before programMu.
	userLocks *keyedMutex
	programMu sync.Mutex

	pauseMu sync.RWMutex
	paused  bool
}

// ProcessorOption customises the processor instance.
type ProcessorOption func(*Processor)

// WithEngine supplies a preconfigured engine.
func WithEngine(engine *rewards.Engine) ProcessorOption {
	return func(p *Processor) { p.engine = engine }
}

// WithWallet supplies the payout wallet.
func WithWallet(w rewards.Transferer) ProcessorOption {
	return func(p *Processor) { p.wallet = w }
}

// WithReceipts enables receipt persistence.
func WithReceipts(store *ReceiptStore, signer *ReceiptSigner) ProcessorOption {
	return func(p *Processor) {
		p.receipts = store
		p.signer = signer
	}
}

// WithEntropy overrides the randomizer entropy source.
func WithEntropy(source EntropySource) ProcessorOption {
	return func(p *Processor) { p.entropy = source }
}

// WithClaimObserver feeds accepted claimants to an observed estimator.
func WithClaimObserver(observer *ObservedEstimator) ProcessorOption {
	return func(p *Processor) {
		if observer != nil {
			p.observer = observer
		}
	}
}

// WithMetrics overrides the default metrics registry.
func WithMetrics(m *observability.TaskRewardsMetrics) ProcessorOption {
	return func(p *Processor) { p.metrics = m }
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) { p.logger = logger }
}

// WithClock sets the function used to derive timestamps.
func WithClock(clock func() time.Time) ProcessorOption {
	return func(p *Processor) { p.now = clock }
}

// NewProcessor constructs a processor over state.
func NewProcessor(state rewards.State, opts ...ProcessorOption) *Processor {
	proc := &Processor{
		state:     state,
		metrics:   observability.TaskRewards(),
		logger:    slog.Default(),
		tracer:    otel.Tracer("azorion/rewardd"),
		now:       time.Now,
		userLocks: newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(proc)
	}
	if proc.engine == nil {
		proc.engine = rewards.NewEngine()
	}
	if proc.entropy == nil {
		proc.entropy = SlotEntropy{Genesis: time.Unix(0, 0), Slot: time.Second}
	}
	if proc.logger == nil {
		proc.logger = slog.Default()
	}
	return proc
}

// Initialize stores the genesis program unless one already exists.
func (p *Processor) Initialize(params rewards.InitParams) (*rewards.ProgramState, error) {
	p.programMu.Lock()
	defer p.programMu.Unlock()
	program, err := p.engine.Initialize(p.state, params)
	if err != nil {
		return nil, err
	}
	p.metrics.SetProgram(program.CurrentBalance, program.AvailableTasks)
	p.logger.Info("task reward program initialised",
		slog.String("authority", program.Authority.String()),
		slog.Uint64("total_supply", program.TotalSupply),
		slog.Int("min_tasks", int(program.MinTasks)),
		slog.Int("max_tasks", int(program.MaxTasks)))
	return program, nil
}

// Claim validates and pays a claim.
func (p *Processor) Claim(ctx context.Context, in ClaimInput) (*ClaimResult, error) {
	if p.isPaused() {
		p.metrics.RecordRejection(activityLabel(in.Activity), "paused")
		return nil, ErrProcessorPaused
	}
	if in.Claimant.IsZero() {
		return nil, ErrInvalidClaimant
	}
	ctx, span := p.tracer.Start(ctx, "rewardd.claim", trace.WithAttributes(
		attribute.String("claimant", in.Claimant.String()),
		attribute.String("activity", in.Activity),
	))
	defer span.End()

	unlock := p.userLocks.Lock(in.Claimant)
	defer unlock()
	p.programMu.Lock()
	defer p.programMu.Unlock()

	start := p.now()
	now := start.Unix()
	outcome, err := p.engine.ClaimReward(ctx, p.state, p.wallet, rewards.ClaimRequest{
		Caller:   in.Caller,
		Claimant: in.Claimant,
		Activity: in.Activity,
		Now:      now,
	})
	if err != nil {
		reason := rewards.CodeOf(err).String()
		span.RecordError(err)
		span.SetStatus(codes.Error, reason)
		p.metrics.RecordRejection(activityLabel(in.Activity), reason)
		p.logger.Warn("claim rejected",
			slog.String("claimant", in.Claimant.String()),
			slog.String("activity", in.Activity),
			slog.String("reason", reason),
			slog.Any("error", err))
		return nil, err
	}

	if p.observer != nil {
		p.observer.Observe(in.Claimant, now)
	}
	result := &ClaimResult{Outcome: outcome}
	if p.receipts != nil {
		receipt := ReceiptFromOutcome(in.Claimant, outcome, now)
		if err := p.signer.Sign(receipt); err != nil {
			p.logger.Error("sign receipt", slog.Any("error", err))
		} else if err := p.receipts.Record(ctx, receipt); err != nil {
			// The claim is already paid and committed; the receipt is advisory.
			p.logger.Error("record receipt", slog.String("receipt", receipt.ID.String()), slog.Any("error", err))
		} else {
			result.Receipt = receipt
		}
	}

	p.metrics.RecordClaim(outcome.Activity.Key(), outcome.Reward, outcome.Repetition, p.now().Sub(start))
	p.metrics.SetProgram(outcome.Program.CurrentBalance, outcome.Program.AvailableTasks)
	span.SetAttributes(attribute.Int64("reward", int64(outcome.Reward)))
	p.logger.Info("claim accepted",
		slog.String("claimant", in.Claimant.String()),
		slog.String("activity", outcome.Activity.Key()),
		slog.Uint64("reward", outcome.Reward),
		slog.Int("repetition", int(outcome.Repetition)),
		slog.Uint64("balance", outcome.Program.CurrentBalance))
	return result, nil
}

// Randomize resamples the available task count on behalf of caller.
func (p *Processor) Randomize(ctx context.Context, caller rewards.Identity) (*rewards.ProgramState, error) {
	ctx, span := p.tracer.Start(ctx, "rewardd.randomize")
	defer span.End()

	p.programMu.Lock()
	defer p.programMu.Unlock()

	program, err := p.engine.Program(p.state)
	if err != nil {
		return nil, err
	}
	now := p.now()
	next, err := p.engine.RandomizeTasks(ctx, p.state, rewards.RandomizeRequest{
		Caller:  caller,
		Now:     now.Unix(),
		Entropy: p.entropy.Entropy(now, program),
	})
	if err != nil {
		reason := rewards.CodeOf(err).String()
		span.SetStatus(codes.Error, reason)
		p.metrics.RecordRandomization(reason)
		return nil, err
	}
	p.metrics.RecordRandomization("ok")
	p.metrics.SetProgram(next.CurrentBalance, next.AvailableTasks)
	p.logger.Info("task slots randomized",
		slog.Int("previous", int(program.AvailableTasks)),
		slog.Int("available", int(next.AvailableTasks)))
	return next, nil
}

// Program returns the current program state.
func (p *Processor) Program() (*rewards.ProgramState, error) {
	p.programMu.Lock()
	defer p.programMu.Unlock()
	return p.engine.Program(p.state)
}

// User returns the claim record for id.
func (p *Processor) User(id rewards.Identity) (*rewards.UserRecord, error) {
	unlock := p.userLocks.Lock(id)
	defer unlock()
	return p.engine.User(p.state, id)
}

// Receipts returns the receipt store, if configured.
func (p *Processor) Receipts() *ReceiptStore {
	return p.receipts
}

// Pause halts new claim processing.
func (p *Processor) Pause() {
	p.pauseMu.Lock()
	defer p.pauseMu.Unlock()
	p.paused = true
	p.metrics.SetPause(true)
}

// Resume re-enables claim processing.
func (p *Processor) Resume() {
	p.pauseMu.Lock()
	defer p.pauseMu.Unlock()
	p.paused = false
	p.metrics.SetPause(false)
}

func (p *Processor) isPaused() bool {
	p.pauseMu.RLock()
	defer p.pauseMu.RUnlock()
	return p.paused
}

// Status summarises processor state for administrative endpoints.
type Status struct {
	Paused         bool   `json:"paused"`
	Initialized    bool   `json:"initialized"`
	CurrentBalance uint64 `json:"current_balance"`
	AvailableTasks uint8  `json:"available_tasks"`
}

// Status reports the current processor status snapshot.
func (p *Processor) Status() (Status, error) {
	status := Status{Paused: p.isPaused()}
	program, err := p.Program()
	switch {
	case errors.Is(err, rewards.ErrNotInitialized):
		return status, nil
	case err != nil:
		return status, fmt.Errorf("rewardd: status: %w", err)
	}
	status.Initialized = true
	status.CurrentBalance = program.CurrentBalance
	status.AvailableTasks = program.AvailableTasks
	return status, nil
}

func activityLabel(raw string) string {
	if id, err := rewards.Resolve(raw); err == nil {
		return id.Key()
	}
	return "unknown"
}
