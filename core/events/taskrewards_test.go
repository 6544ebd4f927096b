package events

import (
	"strings"
	"testing"
)

func TestTaskRewardClaimedAttributes(t *testing.T) {
	evt := TaskRewardClaimed{
		Claimant:       [20]byte{1},
		Activity:       "check-in",
		BaseReward:     10_000_000,
		AdjustedReward: 9_000_000,
		Repetition:     1,
		PenaltyBps:     5_000,
		Reward:         4_500_000,
		Timestamp:      105,
	}.Event()
	if evt.Type != TypeTaskRewardClaimed {
		t.Fatalf("type %q", evt.Type)
	}
	if evt.Attributes["reward"] != "4500000" || evt.Attributes["penalty_bps"] != "5000" {
		t.Fatalf("unexpected attributes %v", evt.Attributes)
	}
	if !strings.HasPrefix(evt.Attributes["claimant"], "azr1") {
		t.Fatalf("claimant not bech32 encoded: %q", evt.Attributes["claimant"])
	}
}

func TestTaskRewardRejectedDefaultsReason(t *testing.T) {
	evt := TaskRewardRejected{Code: 6001}.Event()
	if evt.Attributes["reason"] != "unknown" || evt.Attributes["claimant"] != "" {
		t.Fatalf("unexpected attributes %v", evt.Attributes)
	}
}

func TestMultiEmitterFansOut(t *testing.T) {
	first, second := &Recorder{}, &Recorder{}
	MultiEmitter{first, nil, second}.Emit(TaskSlotsRandomized{Available: 4})
	if len(first.Events()) != 1 || len(second.Events()) != 1 {
		t.Fatalf("expected both recorders to receive the event")
	}
	if first.Types()[0] != TypeTaskSlotsRandomized {
		t.Fatalf("unexpected type %v", first.Types())
	}
}
