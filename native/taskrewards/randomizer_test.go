package taskrewards

import (
	"errors"
	"testing"
)

func TestSampleTaskCountStaysInRange(t *testing.T) {
	bounds := [][2]uint8{{0, 0}, {2, 10}, {5, 5}, {0, 255}, {254, 255}}
	for _, b := range bounds {
		for entropy := uint64(0); entropy < 600; entropy++ {
			got := SampleTaskCount(b[0], b[1], entropy*7919)
			if got < b[0] || got > b[1] {
				t.Fatalf("bounds %v entropy %d: sample %d out of range", b, entropy, got)
			}
		}
	}
	if got := SampleTaskCount(0, 255, 255); got != 255 {
		t.Fatalf("full range sample %d want 255", got)
	}
	if got := SampleTaskCount(2, 10, 9); got != 2 {
		t.Fatalf("wrapped sample %d want 2", got)
	}
}

func TestRefreshTasks(t *testing.T) {
	authority := Identity{1}
	program := &ProgramState{Authority: authority, MinTasks: 2, MaxTasks: 10, AvailableTasks: 2, TasksLastUpdated: 100}

	if _, err := RefreshTasks(program, RandomizeRequest{Caller: Identity{2}, Now: 200}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := RefreshTasks(program, RandomizeRequest{Caller: authority, Now: 109}); !errors.Is(err, ErrCooldownRngTasks) {
		t.Fatalf("expected ErrCooldownRngTasks, got %v", err)
	}
	next, err := RefreshTasks(program, RandomizeRequest{Caller: authority, Now: 110, Entropy: 5})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if next.AvailableTasks != 7 || next.TasksLastUpdated != 110 {
		t.Fatalf("unexpected refreshed state %+v", next)
	}
	if program.AvailableTasks != 2 || program.TasksLastUpdated != 100 {
		t.Fatalf("input mutated: %+v", program)
	}
}
