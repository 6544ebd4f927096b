package taskrewards

import "math"

// HistoryEntry pairs a claimed activity with the repetition count it
// produced.
type HistoryEntry struct {
	Activity ActivityID
	Count    uint8
	Filled   bool
}

// ClaimHistory is a fixed-capacity ring of the most recent claims. Entries are
// ordered oldest first; the most recent claim always sits at index
// HistoryDepth-1. Activities and counts live in the same entry so the two
// sequences cannot drift apart.
type ClaimHistory struct {
	Entries [HistoryDepth]HistoryEntry
}

// Latest returns the most recent entry, if any.
func (h ClaimHistory) Latest() (HistoryEntry, bool) {
	last := h.Entries[HistoryDepth-1]
	return last, last.Filled
}

// Len reports how many slots are filled.
func (h ClaimHistory) Len() int {
	n := 0
	for _, entry := range h.Entries {
		if entry.Filled {
			n++
		}
	}
	return n
}

// Record rotates the ring left by one, evicting the oldest entry, and writes
// the new claim into the last slot. The returned count is one more than the
// previous entry's count when the previous claim was for the same activity,
// and zero otherwise. Counts saturate at 255.
func (h ClaimHistory) Record(activity ActivityID) (ClaimHistory, uint8) {
	previous, hasPrevious := h.Latest()

	var next ClaimHistory
	copy(next.Entries[:HistoryDepth-1], h.Entries[1:])

	var count uint8
	if hasPrevious && previous.Activity == activity {
		count = previous.Count
		if count < math.MaxUint8 {
			count++
		}
	}
	next.Entries[HistoryDepth-1] = HistoryEntry{Activity: activity, Count: count, Filled: true}
	return next, count
}

// Counts returns the repetition counts oldest first; empty slots report 0.
func (h ClaimHistory) Counts() [HistoryDepth]uint8 {
	var out [HistoryDepth]uint8
	for i, entry := range h.Entries {
		out[i] = entry.Count
	}
	return out
}

// FarmingPenalty returns the reward multiplier for a repetition count:
// 1 - 0.5*count clamped to [0, 1]. A third consecutive identical claim and
// every one after it pays nothing.
func FarmingPenalty(count uint8) float64 {
	penalty := 1.0 - penaltyStep*float64(count)
	if penalty < 0 {
		return 0
	}
	if penalty > 1 {
		return 1
	}
	return penalty
}

// ApplyFarmingPenalty scales reward by the penalty for count, truncating.
func ApplyFarmingPenalty(reward uint64, count uint8) uint64 {
	return uint64(float64(reward) * FarmingPenalty(count))
}

func penaltyBps(count uint8) uint32 {
	return uint32(FarmingPenalty(count) * PenaltyBpsDenominator)
}
