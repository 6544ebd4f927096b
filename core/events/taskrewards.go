package events

import (
	"strconv"
	"strings"

	"azorion/core/types"
	"azorion/crypto"
)

const (
	// TypeTaskRewardsInitialized is emitted once when the program state is
	// created.
	TypeTaskRewardsInitialized = "taskrewards.program.initialized"
	// TypeTaskRewardClaimed is emitted after a claim has been paid and
	// committed.
	TypeTaskRewardClaimed = "taskrewards.reward.claimed"
	// TypeTaskRewardRejected is emitted when a claim fails validation or the
	// payout transfer fails.
	TypeTaskRewardRejected = "taskrewards.reward.rejected"
	// TypeTaskSlotsRandomized is emitted when the available task count is
	// resampled.
	TypeTaskSlotsRandomized = "taskrewards.tasks.randomized"
)

// TaskRewardsInitialized captures the genesis parameters of the program.
type TaskRewardsInitialized struct {
	Authority      [20]byte
	Custody        [20]byte
	TotalSupply    uint64
	MinTasks       uint8
	MaxTasks       uint8
	AvailableTasks uint8
	Timestamp      int64
}

// EventType implements the Event interface.
func (TaskRewardsInitialized) EventType() string { return TypeTaskRewardsInitialized }

// Event converts the initialisation record to the generic event payload.
func (e TaskRewardsInitialized) Event() *types.Event {
	return &types.Event{
		Type: TypeTaskRewardsInitialized,
		Attributes: map[string]string{
			"authority":       formatAddress(e.Authority),
			"custody":         formatAddress(e.Custody),
			"total_supply":    strconv.FormatUint(e.TotalSupply, 10),
			"min_tasks":       strconv.FormatUint(uint64(e.MinTasks), 10),
			"max_tasks":       strconv.FormatUint(uint64(e.MaxTasks), 10),
			"available_tasks": strconv.FormatUint(uint64(e.AvailableTasks), 10),
			"timestamp":       strconv.FormatInt(e.Timestamp, 10),
		},
	}
}

// TaskRewardClaimed captures the full reward computation of an accepted claim.
type TaskRewardClaimed struct {
	Claimant       [20]byte
	Activity       string
	Rank           uint8
	BaseReward     uint64
	AdjustedReward uint64
	Repetition     uint8
	PenaltyBps     uint32
	Reward         uint64
	BalanceAfter   uint64
	RewardTotal    uint64
	Timestamp      int64
}

// EventType implements the Event interface.
func (TaskRewardClaimed) EventType() string { return TypeTaskRewardClaimed }

// Event converts the claim to the generic event payload.
func (e TaskRewardClaimed) Event() *types.Event {
	return &types.Event{
		Type: TypeTaskRewardClaimed,
		Attributes: map[string]string{
			"claimant":        formatAddress(e.Claimant),
			"activity":        e.Activity,
			"rank":            strconv.FormatUint(uint64(e.Rank), 10),
			"base_reward":     strconv.FormatUint(e.BaseReward, 10),
			"adjusted_reward": strconv.FormatUint(e.AdjustedReward, 10),
			"repetition":      strconv.FormatUint(uint64(e.Repetition), 10),
			"penalty_bps":     strconv.FormatUint(uint64(e.PenaltyBps), 10),
			"reward":          strconv.FormatUint(e.Reward, 10),
			"balance_after":   strconv.FormatUint(e.BalanceAfter, 10),
			"reward_total":    strconv.FormatUint(e.RewardTotal, 10),
			"timestamp":       strconv.FormatInt(e.Timestamp, 10),
		},
	}
}

// TaskRewardRejected records why a claim was refused.
type TaskRewardRejected struct {
	Claimant  [20]byte
	Activity  string
	Reason    string
	Code      uint32
	Timestamp int64
}

// EventType implements the Event interface.
func (TaskRewardRejected) EventType() string { return TypeTaskRewardRejected }

// Event converts the rejection to the generic event payload.
func (e TaskRewardRejected) Event() *types.Event {
	reason := strings.TrimSpace(e.Reason)
	if reason == "" {
		reason = "unknown"
	}
	return &types.Event{
		Type: TypeTaskRewardRejected,
		Attributes: map[string]string{
			"claimant":  formatAddress(e.Claimant),
			"activity":  strings.TrimSpace(e.Activity),
			"reason":    reason,
			"code":      strconv.FormatUint(uint64(e.Code), 10),
			"timestamp": strconv.FormatInt(e.Timestamp, 10),
		},
	}
}

// TaskSlotsRandomized captures a task-slot refresh.
type TaskSlotsRandomized struct {
	Caller    [20]byte
	Previous  uint8
	Available uint8
	MinTasks  uint8
	MaxTasks  uint8
	Entropy   uint64
	Timestamp int64
}

// EventType implements the Event interface.
func (TaskSlotsRandomized) EventType() string { return TypeTaskSlotsRandomized }

// Event converts the refresh to the generic event payload.
func (e TaskSlotsRandomized) Event() *types.Event {
	return &types.Event{
		Type: TypeTaskSlotsRandomized,
		Attributes: map[string]string{
			"caller":    formatAddress(e.Caller),
			"previous":  strconv.FormatUint(uint64(e.Previous), 10),
			"available": strconv.FormatUint(uint64(e.Available), 10),
			"min_tasks": strconv.FormatUint(uint64(e.MinTasks), 10),
			"max_tasks": strconv.FormatUint(uint64(e.MaxTasks), 10),
			"entropy":   strconv.FormatUint(e.Entropy, 10),
			"timestamp": strconv.FormatInt(e.Timestamp, 10),
		},
	}
}

func formatAddress(addr [20]byte) string {
	if addr == ([20]byte{}) {
		return ""
	}
	return crypto.NewAddress(crypto.AZRPrefix, addr[:]).String()
}
