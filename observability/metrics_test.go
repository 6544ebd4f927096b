package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestTaskRewardsMetrics(t *testing.T) {
	m := TaskRewards()
	if TaskRewards() != m {
		t.Fatalf("registry must be a singleton")
	}
	before := testutil.ToFloat64(m.claims.WithLabelValues("check_in", "accepted"))
	m.RecordClaim("check_in", 9_000_000, 0, 5*time.Millisecond)
	if got := testutil.ToFloat64(m.claims.WithLabelValues("check_in", "accepted")); got != before+1 {
		t.Fatalf("claims counter %v want %v", got, before+1)
	}
	m.RecordRejection("", "")
	if got := testutil.ToFloat64(m.claims.WithLabelValues("unknown", "unspecified")); got < 1 {
		t.Fatalf("rejection not recorded")
	}
	m.SetProgram(991_000_000, 4)
	if got := testutil.ToFloat64(m.availableTasks); got != 4 {
		t.Fatalf("available tasks gauge %v", got)
	}
	m.SetPause(true)
	if got := testutil.ToFloat64(m.pauseEngaged); got != 1 {
		t.Fatalf("pause gauge %v", got)
	}
	m.SetPause(false)

	var nilMetrics *TaskRewardsMetrics
	nilMetrics.RecordClaim("x", 1, 1, time.Second)
}

func TestEventMetricsNormalisesType(t *testing.T) {
	Events().RecordEvent("  TaskRewards.Reward.Claimed ")
	if got := testutil.ToFloat64(Events().emitted.WithLabelValues("taskrewards.reward.claimed")); got < 1 {
		t.Fatalf("event counter %v", got)
	}
}
