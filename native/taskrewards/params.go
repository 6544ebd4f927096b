package taskrewards

const (
	// BaseRewardMultiplier converts catalogue reward units into base units.
	BaseRewardMultiplier uint64 = 1_000_000

	// HistoryDepth is the number of past claims retained per user.
	HistoryDepth = 10

	// ClaimCooldownSeconds is the minimum spacing between two claims by the
	// same user.
	ClaimCooldownSeconds int64 = 5
	// TaskRefreshCooldownSeconds is the minimum spacing between two task-slot
	// refreshes.
	TaskRefreshCooldownSeconds int64 = 10

	// DefaultClaimantEstimate is the active-claimant signal used when no
	// estimator is configured.
	DefaultClaimantEstimate uint64 = 10

	// PenaltyBpsDenominator expresses the farming penalty in basis points for
	// events and receipts.
	PenaltyBpsDenominator = 10_000
)

const (
	rewardIncreaseFactor = 1.0 + 0.20
	rewardDecreaseFactor = 1.0 - 0.10
	penaltyStep          = 0.50
)
