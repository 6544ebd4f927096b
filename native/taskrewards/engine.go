package taskrewards

import (
	"context"
	"errors"
	"fmt"

	"azorion/core/events"
)

// Engine executes task-reward operations against a host supplied State. The
// engine holds no program data of its own; callers must serialise operations
// that touch the same program or user record.
type Engine struct {
	estimator ClaimantEstimator
	emitter   events.Emitter
}

// EngineOption customises the engine.
type EngineOption func(*Engine)

// WithClaimantEstimator sets the source of the active-claimant signal.
func WithClaimantEstimator(estimator ClaimantEstimator) EngineOption {
	return func(e *Engine) { e.estimator = estimator }
}

// WithEmitter sets the event sink.
func WithEmitter(emitter events.Emitter) EngineOption {
	return func(e *Engine) { e.emitter = emitter }
}

// NewEngine creates an engine using a static claimant estimate of
// DefaultClaimantEstimate unless overridden.
func NewEngine(opts ...EngineOption) *Engine {
	engine := &Engine{
		estimator: StaticEstimate(DefaultClaimantEstimate),
		emitter:   events.NoopEmitter{},
	}
	for _, opt := range opts {
		opt(engine)
	}
	if engine.estimator == nil {
		engine.estimator = StaticEstimate(DefaultClaimantEstimate)
	}
	if engine.emitter == nil {
		engine.emitter = events.NoopEmitter{}
	}
	return engine
}

// InitParams configures a new program.
type InitParams struct {
	// InitialSupply is expressed in catalogue units and scaled by
	// BaseRewardMultiplier.
	InitialSupply uint64
	MinTasks      uint8
	MaxTasks      uint8
	Authority     Identity
	// Custody is the account rewards are paid from. Defaults to Authority.
	Custody Identity
	Now     int64
}

// NewProgramState builds the genesis program state.
func NewProgramState(params InitParams) (*ProgramState, error) {
	if params.MinTasks > params.MaxTasks {
		return nil, ErrMaxTasksExceeded
	}
	if params.Authority.IsZero() {
		return nil, fmt.Errorf("taskrewards: authority required")
	}
	supply, ok := mulUint64(params.InitialSupply, BaseRewardMultiplier)
	if !ok {
		return nil, ErrSupplyOverflow
	}
	custody := params.Custody
	if custody.IsZero() {
		custody = params.Authority
	}
	return &ProgramState{
		TotalSupply:      supply,
		CurrentBalance:   supply,
		Authority:        params.Authority,
		Custody:          custody,
		MinTasks:         params.MinTasks,
		MaxTasks:         params.MaxTasks,
		AvailableTasks:   params.MinTasks,
		TasksLastUpdated: params.Now,
	}, nil
}

// Initialize creates and stores the program state. It fails with
// ErrAlreadyInitialized if a program already exists.
func (e *Engine) Initialize(st State, params InitParams) (*ProgramState, error) {
	if st == nil {
		return nil, ErrNilState
	}
	existing, err := st.ProgramState()
	switch {
	case err == nil && existing != nil:
		return nil, ErrAlreadyInitialized
	case err != nil && !errors.Is(err, ErrNotInitialized):
		return nil, err
	}
	program, err := NewProgramState(params)
	if err != nil {
		return nil, err
	}
	if err := st.PutProgramState(program); err != nil {
		return nil, fmt.Errorf("taskrewards: store program: %w", err)
	}
	e.emitter.Emit(events.TaskRewardsInitialized{
		Authority:      program.Authority,
		Custody:        program.Custody,
		TotalSupply:    program.TotalSupply,
		MinTasks:       program.MinTasks,
		MaxTasks:       program.MaxTasks,
		AvailableTasks: program.AvailableTasks,
		Timestamp:      params.Now,
	})
	return program.Clone(), nil
}

// ClaimReward validates and pays a claim. The transfer is the only externally
// visible side effect; it runs after every check has passed and before any
// state is written. A failed transfer leaves all state untouched. If the commit
// fails after a successful transfer, the payout is reversed through the
// transferer's Reverser; when that is impossible the error wraps
// ErrPayoutNotReversed. Zero rewards are committed without invoking the
// transferer.
func (e *Engine) ClaimReward(ctx context.Context, st State, xfer Transferer, req ClaimRequest) (*ClaimOutcome, error) {
	if st == nil {
		return nil, ErrNilState
	}
	program, err := st.ProgramState()
	if err != nil {
		return nil, err
	}
	user, err := st.UserRecord(req.Claimant)
	if err != nil {
		return nil, err
	}
	outcome, err := EvaluateClaim(program, user, req, e.estimator.ActiveClaimants(req.Now))
	if err != nil {
		e.emitRejected(req, err)
		return nil, err
	}

	if outcome.Reward > 0 {
		if xfer == nil {
			err := fmt.Errorf("%w: no transferer configured", ErrTransferFailed)
			e.emitRejected(req, err)
			return nil, err
		}
		if err := xfer.Transfer(ctx, program.Custody, req.Claimant, outcome.Reward); err != nil {
			wrapped := fmt.Errorf("%w: %w", ErrTransferFailed, err)
			e.emitRejected(req, wrapped)
			return nil, wrapped
		}
	}

	if err := st.CommitClaim(&outcome.Program, req.Claimant, &outcome.User); err != nil {
		commitErr := fmt.Errorf("taskrewards: commit claim: %w", err)
		if outcome.Reward > 0 {
			if rerr := reversePayout(ctx, xfer, program.Custody, req.Claimant, outcome.Reward); rerr != nil {
				commitErr = fmt.Errorf("%w: %w: %w", commitErr, ErrPayoutNotReversed, rerr)
			}
		}
		e.emitRejected(req, commitErr)
		return nil, commitErr
	}

	e.emitter.Emit(events.TaskRewardClaimed{
		Claimant:       req.Claimant,
		Activity:       outcome.Activity.String(),
		Rank:           outcome.Activity.AvailabilityRank(),
		BaseReward:     outcome.BaseReward,
		AdjustedReward: outcome.AdjustedReward,
		Repetition:     outcome.Repetition,
		PenaltyBps:     outcome.PenaltyBps(),
		Reward:         outcome.Reward,
		BalanceAfter:   outcome.Program.CurrentBalance,
		RewardTotal:    outcome.User.RewardTotal,
		Timestamp:      req.Now,
	})
	return outcome, nil
}

// RandomizeTasks resamples the available task count and persists the result.
func (e *Engine) RandomizeTasks(ctx context.Context, st State, req RandomizeRequest) (*ProgramState, error) {
	if st == nil {
		return nil, ErrNilState
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	program, err := st.ProgramState()
	if err != nil {
		return nil, err
	}
	next, err := RefreshTasks(program, req)
	if err != nil {
		return nil, err
	}
	if err := st.PutProgramState(next); err != nil {
		return nil, fmt.Errorf("taskrewards: store program: %w", err)
	}
	e.emitter.Emit(events.TaskSlotsRandomized{
		Caller:    req.Caller,
		Previous:  program.AvailableTasks,
		Available: next.AvailableTasks,
		MinTasks:  next.MinTasks,
		MaxTasks:  next.MaxTasks,
		Entropy:   req.Entropy,
		Timestamp: req.Now,
	})
	return next.Clone(), nil
}

// reversePayout returns a paid reward to custody. The caller's context may
// already be cancelled; the reversal still runs.
func reversePayout(ctx context.Context, xfer Transferer, custody, claimant Identity, amount uint64) error {
	reverser, ok := xfer.(Reverser)
	if !ok {
		return fmt.Errorf("transferer %T cannot reverse", xfer)
	}
	return reverser.Reverse(context.WithoutCancel(ctx), custody, claimant, amount)
}

func (e *Engine) emitRejected(req ClaimRequest, err error) {
	code := CodeOf(err)
	e.emitter.Emit(events.TaskRewardRejected{
		Claimant:  req.Claimant,
		Activity:  req.Activity,
		Reason:    code.String(),
		Code:      uint32(code),
		Timestamp: req.Now,
	})
}

// Program returns the current program state.
func (e *Engine) Program(st State) (*ProgramState, error) {
	if st == nil {
		return nil, ErrNilState
	}
	return st.ProgramState()
}

// User returns the record for id; identities that never claimed yield a zero
// record.
func (e *Engine) User(st State, id Identity) (*UserRecord, error) {
	if st == nil {
		return nil, ErrNilState
	}
	return st.UserRecord(id)
}
