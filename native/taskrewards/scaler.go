package taskrewards

// ClaimantEstimator supplies the active-claimant signal used by the reward
// scaler. Implementations must be safe for concurrent use.
type ClaimantEstimator interface {
	ActiveClaimants(now int64) uint64
}

// StaticEstimate is a ClaimantEstimator that always reports the same value.
type StaticEstimate uint64

// ActiveClaimants implements ClaimantEstimator.
func (s StaticEstimate) ActiveClaimants(int64) uint64 { return uint64(s) }

// ScaleReward adjusts base by the supply/demand ratio between available task
// slots and active claimants: +20% when slots outnumber claimants, -10% when
// claimants outnumber slots, unchanged otherwise. The float product is
// truncated, matching the historical payout values exactly.
func ScaleReward(base uint64, availableTasks uint8, claimantEstimate uint64) uint64 {
	available := uint64(availableTasks)
	switch {
	case available > claimantEstimate:
		return uint64(float64(base) * rewardIncreaseFactor)
	case claimantEstimate > available:
		return uint64(float64(base) * rewardDecreaseFactor)
	default:
		return base
	}
}
