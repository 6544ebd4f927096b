package taskrewards

import (
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/rlp"

	rewards "azorion/native/taskrewards"
	"azorion/storage"
)

const (
	programKey       = "taskrewards/program"
	userKeyPrefix    = "taskrewards/user/"
	storedVersionOne = 1
)

// Store persists the task-reward program and user records in a key-value
// database using RLP encoding. It implements rewards.State.
type Store struct {
	db storage.Database
	mu sync.RWMutex
}

// NewStore wraps db.
func NewStore(db storage.Database) *Store {
	return &Store{db: db}
}

var _ rewards.State = (*Store)(nil)

type storedProgram struct {
	Version          uint8
	TotalSupply      uint64
	CurrentBalance   uint64
	Authority        []byte
	Custody          []byte
	MinTasks         uint8
	MaxTasks         uint8
	AvailableTasks   uint8
	TasksLastUpdated uint64
}

type storedHistoryEntry struct {
	Activity uint8
	Count    uint8
	Filled   bool
}

type storedUser struct {
	Version       uint8
	RewardTotal   uint64
	LastActivity  uint8
	LastClaimedAt uint64
	History       []storedHistoryEntry
}

func userKey(id rewards.Identity) []byte {
	return []byte(userKeyPrefix + hex.EncodeToString(id[:]))
}

// ProgramState implements rewards.State.
func (s *Store) ProgramState() (*rewards.ProgramState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, err := s.db.Get([]byte(programKey))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, rewards.ErrNotInitialized
	}
	if err != nil {
		return nil, err
	}
	var stored storedProgram
	if err := rlp.DecodeBytes(data, &stored); err != nil {
		return nil, fmt.Errorf("taskrewards store: decode program: %w", err)
	}
	return decodeProgram(stored)
}

// PutProgramState implements rewards.State.
func (s *Store) PutProgramState(program *rewards.ProgramState) error {
	encoded, err := encodeProgram(program)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Put([]byte(programKey), encoded)
}

// UserRecord implements rewards.State.
func (s *Store) UserRecord(id rewards.Identity) (*rewards.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, err := s.db.Get(userKey(id))
	if errors.Is(err, storage.ErrNotFound) {
		return &rewards.UserRecord{}, nil
	}
	if err != nil {
		return nil, err
	}
	var stored storedUser
	if err := rlp.DecodeBytes(data, &stored); err != nil {
		return nil, fmt.Errorf("taskrewards store: decode user: %w", err)
	}
	return decodeUser(stored)
}

// CommitClaim implements rewards.State. Both records land in one batch.
func (s *Store) CommitClaim(program *rewards.ProgramState, id rewards.Identity, user *rewards.UserRecord) error {
	encodedProgram, err := encodeProgram(program)
	if err != nil {
		return err
	}
	encodedUser, err := encodeUser(user)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	batch := s.db.NewBatch()
	batch.Put([]byte(programKey), encodedProgram)
	batch.Put(userKey(id), encodedUser)
	return batch.Write()
}

func encodeProgram(program *rewards.ProgramState) ([]byte, error) {
	if program == nil {
		return nil, errors.New("taskrewards store: nil program")
	}
	if program.TasksLastUpdated < 0 {
		return nil, fmt.Errorf("taskrewards store: negative timestamp %d", program.TasksLastUpdated)
	}
	return rlp.EncodeToBytes(storedProgram{
		Version:          storedVersionOne,
		TotalSupply:      program.TotalSupply,
		CurrentBalance:   program.CurrentBalance,
		Authority:        program.Authority.Bytes(),
		Custody:          program.Custody.Bytes(),
		MinTasks:         program.MinTasks,
		MaxTasks:         program.MaxTasks,
		AvailableTasks:   program.AvailableTasks,
		TasksLastUpdated: uint64(program.TasksLastUpdated),
	})
}

func decodeProgram(stored storedProgram) (*rewards.ProgramState, error) {
	if stored.Version != storedVersionOne {
		return nil, fmt.Errorf("taskrewards store: unsupported program version %d", stored.Version)
	}
	authority, err := rewards.IdentityFromBytes(stored.Authority)
	if err != nil {
		return nil, err
	}
	custody, err := rewards.IdentityFromBytes(stored.Custody)
	if err != nil {
		return nil, err
	}
	return &rewards.ProgramState{
		TotalSupply:      stored.TotalSupply,
		CurrentBalance:   stored.CurrentBalance,
		Authority:        authority,
		Custody:          custody,
		MinTasks:         stored.MinTasks,
		MaxTasks:         stored.MaxTasks,
		AvailableTasks:   stored.AvailableTasks,
		TasksLastUpdated: int64(stored.TasksLastUpdated),
	}, nil
}

func encodeUser(user *rewards.UserRecord) ([]byte, error) {
	if user == nil {
		return nil, errors.New("taskrewards store: nil user")
	}
	if user.LastClaimedAt < 0 {
		return nil, fmt.Errorf("taskrewards store: negative timestamp %d", user.LastClaimedAt)
	}
	history := make([]storedHistoryEntry, len(user.History.Entries))
	for i, entry := range user.History.Entries {
		history[i] = storedHistoryEntry{Activity: uint8(entry.Activity), Count: entry.Count, Filled: entry.Filled}
	}
	return rlp.EncodeToBytes(storedUser{
		Version:       storedVersionOne,
		RewardTotal:   user.RewardTotal,
		LastActivity:  uint8(user.LastActivity),
		LastClaimedAt: uint64(user.LastClaimedAt),
		History:       history,
	})
}

func decodeUser(stored storedUser) (*rewards.UserRecord, error) {
	if stored.Version != storedVersionOne {
		return nil, fmt.Errorf("taskrewards store: unsupported user version %d", stored.Version)
	}
	if len(stored.History) != rewards.HistoryDepth {
		return nil, fmt.Errorf("taskrewards store: history has %d entries, want %d", len(stored.History), rewards.HistoryDepth)
	}
	user := &rewards.UserRecord{
		RewardTotal:   stored.RewardTotal,
		LastActivity:  rewards.ActivityID(stored.LastActivity),
		LastClaimedAt: int64(stored.LastClaimedAt),
	}
	for i, entry := range stored.History {
		user.History.Entries[i] = rewards.HistoryEntry{
			Activity: rewards.ActivityID(entry.Activity),
			Count:    entry.Count,
			Filled:   entry.Filled,
		}
	}
	return user, nil
}
