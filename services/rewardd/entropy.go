package rewardd

import (
	"encoding/binary"
	"time"

	"lukechampine.com/blake3"

	rewards "azorion/native/taskrewards"
)

// SlotEntropy derives randomizer entropy from a monotonically increasing slot
// height mixed with the program's refresh timestamp and authority.
type SlotEntropy struct {
	Genesis time.Time
	Slot    time.Duration
}

// Height returns the slot height at now.
func (s SlotEntropy) Height(now time.Time) uint64 {
	slot := s.Slot
	if slot <= 0 {
		slot = time.Second
	}
	elapsed := now.Sub(s.Genesis)
	if elapsed < 0 {
		return 0
	}
	return uint64(elapsed / slot)
}

// Entropy hashes height || last_updated || authority with blake3 and returns the
// first eight bytes of the digest.
func (s SlotEntropy) Entropy(now time.Time, program *rewards.ProgramState) uint64 {
	buf := make([]byte, 16, 16+len(rewards.Identity{}))
	binary.BigEndian.PutUint64(buf[:8], s.Height(now))
	if program != nil {
		binary.BigEndian.PutUint64(buf[8:], uint64(program.TasksLastUpdated))
		buf = append(buf, program.Authority[:]...)
	}
	sum := blake3.Sum256(buf)
	return binary.BigEndian.Uint64(sum[:8])
}
