package taskrewards

import (
	"context"
	"fmt"
)

// ProgramState is the singleton configuration and balance record owned by the
// program authority.
type ProgramState struct {
	TotalSupply      uint64
	CurrentBalance   uint64
	Authority        Identity
	Custody          Identity
	MinTasks         uint8
	MaxTasks         uint8
	AvailableTasks   uint8
	TasksLastUpdated int64
}

// Clone returns a copy of the program state.
func (p *ProgramState) Clone() *ProgramState {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

// Validate checks the program invariants.
func (p *ProgramState) Validate() error {
	if p == nil {
		return ErrNotInitialized
	}
	if p.CurrentBalance > p.TotalSupply {
		return fmt.Errorf("taskrewards: balance %d exceeds total supply %d", p.CurrentBalance, p.TotalSupply)
	}
	if p.MinTasks > p.MaxTasks {
		return ErrMaxTasksExceeded
	}
	if p.AvailableTasks < p.MinTasks || p.AvailableTasks > p.MaxTasks {
		return fmt.Errorf("taskrewards: available tasks %d outside [%d, %d]", p.AvailableTasks, p.MinTasks, p.MaxTasks)
	}
	return nil
}

// UserRecord tracks the claim history of a single identity. The zero value is
// a user that has never claimed.
type UserRecord struct {
	RewardTotal   uint64
	LastActivity  ActivityID
	LastClaimedAt int64
	History       ClaimHistory
}

// Clone returns a copy of the record.
func (u *UserRecord) Clone() *UserRecord {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

// HasClaimed reports whether the user has completed at least one claim.
func (u *UserRecord) HasClaimed() bool {
	return u != nil && u.LastClaimedAt != 0
}

// State describes the persistence the engine needs from its host.
type State interface {
	// ProgramState returns ErrNotInitialized when no program exists.
	ProgramState() (*ProgramState, error)
	PutProgramState(program *ProgramState) error
	// UserRecord returns a zero record for identities that never claimed.
	UserRecord(id Identity) (*UserRecord, error)
	// CommitClaim writes the program and user records atomically.
	CommitClaim(program *ProgramState, id Identity, user *UserRecord) error
}

// Transferer moves value from the program custody account to a claimant.
// Implementations must either complete the transfer or return an error with
// no effect.
type Transferer interface {
	Transfer(ctx context.Context, from, to Identity, amount uint64) error
}

// Reverser undoes a completed transfer from custody to a claimant. The engine
// uses it when the claim cannot be committed after the payout went through.
type Reverser interface {
	Reverse(ctx context.Context, from, to Identity, amount uint64) error
}

// TransferFunc adapts a function to the Transferer interface.
type TransferFunc func(ctx context.Context, from, to Identity, amount uint64) error

// Transfer implements Transferer.
func (f TransferFunc) Transfer(ctx context.Context, from, to Identity, amount uint64) error {
	if f == nil {
		return fmt.Errorf("taskrewards: transfer function not configured")
	}
	return f(ctx, from, to, amount)
}
