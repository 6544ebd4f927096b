package taskrewards

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// ActivityID identifies one of the rewardable activities.
type ActivityID uint8

const (
	CheckIn ActivityID = iota
	ViewAnalytics
	VoteInPoll
	SubscribeContract
	LeaveFeedback
	CompleteProfile
	CastVote
	SendMessage
	ReferUser
	CompleteTutorial
	TestBetaFeature
	ReviewSmartContract
	DeploySmartContract
	StakeSol
	MintNft
	ProvideLiquidity
	RunValidator
	ContributeCode

	// NumActivities is the size of the catalogue.
	NumActivities = 18
)

// Reward tiers in catalogue units; multiply by BaseRewardMultiplier for base
// units.
const (
	TierBasic    uint64 = 10
	TierStandard uint64 = 50
	TierPremium  uint64 = 100
)

type activityInfo struct {
	key  string
	name string
	tier uint64
	// rank is the availability threshold compared against the program's
	// available task count. It is listed explicitly so that reordering the
	// constants above cannot silently change which activities are gated.
	rank uint8
}

var catalog = [NumActivities]activityInfo{
	CheckIn:             {key: "check_in", name: "check-in", tier: TierBasic, rank: 0},
	ViewAnalytics:       {key: "view_analytics", name: "view analytics", tier: TierBasic, rank: 1},
	VoteInPoll:          {key: "vote_in_poll", name: "vote in a poll", tier: TierBasic, rank: 2},
	SubscribeContract:   {key: "subscribe_contract", name: "subscribe to a smart contract", tier: TierBasic, rank: 3},
	LeaveFeedback:       {key: "leave_feedback", name: "leave feedback on a dapp", tier: TierBasic, rank: 4},
	CompleteProfile:     {key: "complete_profile", name: "complete a profile setup", tier: TierBasic, rank: 5},
	CastVote:            {key: "cast_vote", name: "cast a vote", tier: TierStandard, rank: 6},
	SendMessage:         {key: "send_message", name: "send a message", tier: TierStandard, rank: 7},
	ReferUser:           {key: "refer_user", name: "refer a user", tier: TierStandard, rank: 8},
	CompleteTutorial:    {key: "complete_tutorial", name: "complete a tutorial on solana usage", tier: TierStandard, rank: 9},
	TestBetaFeature:     {key: "test_beta_feature", name: "test a beta feature on a dapp", tier: TierStandard, rank: 10},
	ReviewSmartContract: {key: "review_smart_contract", name: "review a smart contract's code", tier: TierStandard, rank: 11},
	DeploySmartContract: {key: "deploy_smart_contract", name: "deploy a sample smart contract", tier: TierPremium, rank: 12},
	StakeSol:            {key: "stake_sol", name: "stake sol for at least 7 days", tier: TierPremium, rank: 13},
	MintNft:             {key: "mint_nft", name: "mint and transfer an nft", tier: TierPremium, rank: 14},
	ProvideLiquidity:    {key: "provide_liquidity", name: "provide liquidity to a protocol", tier: TierPremium, rank: 15},
	RunValidator:        {key: "run_validator", name: "run a validator node for 24 hours", tier: TierPremium, rank: 16},
	ContributeCode:      {key: "contribute_code", name: "contribute code to an open-source project", tier: TierPremium, rank: 17},
}

var activityIndex = buildActivityIndex()

func buildActivityIndex() map[string]ActivityID {
	index := make(map[string]ActivityID, NumActivities*2)
	for i := range catalog {
		id := ActivityID(i)
		index[normalizeActivityName(catalog[i].name)] = id
		index[normalizeActivityName(catalog[i].key)] = id
	}
	return index
}

// apostrophes seen from clients: the UTF-8 right single quote decoded as
// Windows-1252, and the typographic quotes themselves.
var apostropheReplacer = strings.NewReplacer("â€™", "'", "’", "'", "‘", "'")

func normalizeActivityName(raw string) string {
	cleaned := apostropheReplacer.Replace(raw)
	cleaned = norm.NFKC.String(cleaned)
	cleaned = apostropheReplacer.Replace(cleaned)
	cleaned = cases.Fold().String(cleaned)
	return strings.Join(strings.Fields(cleaned), " ")
}

// Resolve maps an external activity reference to its ActivityID. The input may
// be the display name (case-insensitive), the snake_case key, or the decimal
// ordinal.
func Resolve(input string) (ActivityID, error) {
	normalized := normalizeActivityName(input)
	if normalized == "" {
		return 0, ErrInvalidActivity
	}
	if id, ok := activityIndex[normalized]; ok {
		return id, nil
	}
	if ordinal, err := strconv.Atoi(normalized); err == nil {
		return ActivityFromOrdinal(ordinal)
	}
	return 0, ErrInvalidActivity
}

// ActivityFromOrdinal returns the activity at the given catalogue position.
func ActivityFromOrdinal(ordinal int) (ActivityID, error) {
	if ordinal < 0 || ordinal >= NumActivities {
		return 0, ErrInvalidActivity
	}
	return ActivityID(ordinal), nil
}

// Activities lists the catalogue in ordinal order.
func Activities() []ActivityID {
	out := make([]ActivityID, NumActivities)
	for i := range out {
		out[i] = ActivityID(i)
	}
	return out
}

func (a ActivityID) Valid() bool { return int(a) < NumActivities }

// String returns the canonical display name.
func (a ActivityID) String() string {
	if !a.Valid() {
		return "unknown(" + strconv.Itoa(int(a)) + ")"
	}
	return catalog[a].name
}

// Key returns the snake_case identifier used in metrics labels and JSON.
func (a ActivityID) Key() string {
	if !a.Valid() {
		return "unknown"
	}
	return catalog[a].key
}

// Tier returns the catalogue reward tier (10, 50 or 100).
func (a ActivityID) Tier() uint64 {
	if !a.Valid() {
		return 0
	}
	return catalog[a].tier
}

// BaseReward returns the unscaled reward in base units.
func (a ActivityID) BaseReward() uint64 {
	return a.Tier() * BaseRewardMultiplier
}

// AvailabilityRank is the threshold compared against the program's available
// task count; the activity is claimable when rank <= available.
func (a ActivityID) AvailabilityRank() uint8 {
	if !a.Valid() {
		return 0xff
	}
	return catalog[a].rank
}

// AvailableAt reports whether the activity is claimable with the given number
// of available tasks.
func (a ActivityID) AvailableAt(availableTasks uint8) bool {
	return a.Valid() && a.AvailabilityRank() <= availableTasks
}
