package taskrewards

// ClaimRequest is a single reward claim submitted by the authority on behalf
// of a claimant.
type ClaimRequest struct {
	Caller   Identity
	Claimant Identity
	// Activity is the display name, snake_case key or ordinal of the
	// activity.
	Activity string
	Now      int64
}

// ClaimOutcome is the result of evaluating a claim: the reward breakdown and
// the program and user records as they must be committed once the transfer
// succeeds.
type ClaimOutcome struct {
	Activity         ActivityID
	ClaimantEstimate uint64
	BaseReward       uint64
	AdjustedReward   uint64
	Repetition       uint8
	Penalty          float64
	Reward           uint64

	Program ProgramState
	User    UserRecord
}

// PenaltyBps returns the applied farming penalty in basis points.
func (o *ClaimOutcome) PenaltyBps() uint32 {
	if o == nil {
		return 0
	}
	return penaltyBps(o.Repetition)
}

// EvaluateClaim runs every claim check and computes the reward without side
// effects. Checks run in a fixed order and the first failure is returned:
// authority, activity, availability, cooldown, then balance.
func EvaluateClaim(program *ProgramState, user *UserRecord, req ClaimRequest, claimantEstimate uint64) (*ClaimOutcome, error) {
	if program == nil {
		return nil, ErrNotInitialized
	}
	if user == nil {
		user = &UserRecord{}
	}
	if req.Caller != program.Authority {
		return nil, ErrUnauthorized
	}
	activity, err := Resolve(req.Activity)
	if err != nil {
		return nil, err
	}
	if !activity.AvailableAt(program.AvailableTasks) {
		return nil, ErrTaskUnavailable
	}
	if user.LastClaimedAt != 0 && req.Now-user.LastClaimedAt < ClaimCooldownSeconds {
		return nil, ErrCooldownActive
	}

	base := activity.BaseReward()
	adjusted := ScaleReward(base, program.AvailableTasks, claimantEstimate)
	history, repetition := user.History.Record(activity)
	penalty := FarmingPenalty(repetition)
	reward := ApplyFarmingPenalty(adjusted, repetition)

	if reward > program.CurrentBalance {
		return nil, ErrInsufficientBalance
	}
	total, ok := addUint64(user.RewardTotal, reward)
	if !ok {
		return nil, ErrRewardOverflow
	}

	nextProgram := *program
	nextProgram.CurrentBalance -= reward

	nextUser := UserRecord{
		RewardTotal:   total,
		LastActivity:  activity,
		LastClaimedAt: req.Now,
		History:       history,
	}

	return &ClaimOutcome{
		Activity:         activity,
		ClaimantEstimate: claimantEstimate,
		BaseReward:       base,
		AdjustedReward:   adjusted,
		Repetition:       repetition,
		Penalty:          penalty,
		Reward:           reward,
		Program:          nextProgram,
		User:             nextUser,
	}, nil
}
