package taskrewards

import (
	"errors"
	"testing"
)

func TestResolveAcceptsNamesKeysAndOrdinals(t *testing.T) {
	cases := []struct {
		input string
		want  ActivityID
	}{
		{"check-in", CheckIn},
		{"  Check-In ", CheckIn},
		{"VOTE IN A POLL", VoteInPoll},
		{"review a smart contract's code", ReviewSmartContract},
		{"review a smart contract’s code", ReviewSmartContract},
		{"review a smart contractâ€™s code", ReviewSmartContract},
		{"stake_sol", StakeSol},
		{"contribute code to an   open-source project", ContributeCode},
		{"0", CheckIn},
		{"17", ContributeCode},
	}
	for _, tc := range cases {
		got, err := Resolve(tc.input)
		if err != nil {
			t.Fatalf("resolve %q: %v", tc.input, err)
		}
		if got != tc.want {
			t.Fatalf("resolve %q: got %v want %v", tc.input, got, tc.want)
		}
	}
}

func TestResolveRejectsUnknownActivities(t *testing.T) {
	for _, input := range []string{"", "   ", "dance", "18", "-1", "check in please"} {
		if _, err := Resolve(input); !errors.Is(err, ErrInvalidActivity) {
			t.Fatalf("resolve %q: expected ErrInvalidActivity, got %v", input, err)
		}
	}
}

func TestCatalogTiersAndRanks(t *testing.T) {
	tiers := map[uint64]int{}
	for i, id := range Activities() {
		if int(id.AvailabilityRank()) != i {
			t.Fatalf("activity %v: rank %d want %d", id, id.AvailabilityRank(), i)
		}
		if id.BaseReward() != id.Tier()*BaseRewardMultiplier {
			t.Fatalf("activity %v: base reward %d", id, id.BaseReward())
		}
		tiers[id.Tier()]++
	}
	if tiers[TierBasic] != 6 || tiers[TierStandard] != 6 || tiers[TierPremium] != 6 {
		t.Fatalf("unexpected tier distribution %v", tiers)
	}
	if CheckIn.BaseReward() != 10_000_000 {
		t.Fatalf("check-in base reward %d", CheckIn.BaseReward())
	}
	if ContributeCode.BaseReward() != 100_000_000 {
		t.Fatalf("contribute code base reward %d", ContributeCode.BaseReward())
	}
}

func TestAvailability(t *testing.T) {
	if !CheckIn.AvailableAt(0) {
		t.Fatalf("check-in must always be available")
	}
	if !VoteInPoll.AvailableAt(2) {
		t.Fatalf("rank 2 should be available with 2 tasks")
	}
	if CastVote.AvailableAt(5) {
		t.Fatalf("rank 6 should not be available with 5 tasks")
	}
	if ActivityID(NumActivities).AvailableAt(255) {
		t.Fatalf("invalid activity must never be available")
	}
}
