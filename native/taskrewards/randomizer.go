package taskrewards

// RandomizeRequest asks for the available task count to be resampled.
type RandomizeRequest struct {
	Caller Identity
	Now    int64
	// Entropy is an externally supplied, hard to predict value such as a
	// mixed block height.
	Entropy uint64
}

// SampleTaskCount maps entropy onto [minTasks, maxTasks] using
// min + entropy mod (max - min + 1). The range is computed in uint64 so the
// full uint8 span cannot overflow, and min == max always yields min.
func SampleTaskCount(minTasks, maxTasks uint8, entropy uint64) uint8 {
	if minTasks >= maxTasks {
		return minTasks
	}
	span := uint64(maxTasks) - uint64(minTasks) + 1
	return uint8(uint64(minTasks) + entropy%span)
}

// RefreshTasks applies a task-slot refresh to program and returns the updated
// copy. The input is never modified, so a rejected refresh leaves the caller's
// state untouched.
func RefreshTasks(program *ProgramState, req RandomizeRequest) (*ProgramState, error) {
	if program == nil {
		return nil, ErrNotInitialized
	}
	if req.Caller != program.Authority {
		return nil, ErrUnauthorized
	}
	if req.Now-program.TasksLastUpdated < TaskRefreshCooldownSeconds {
		return nil, ErrCooldownRngTasks
	}
	if program.MinTasks > program.MaxTasks {
		return nil, ErrMaxTasksExceeded
	}
	next := program.Clone()
	next.TasksLastUpdated = req.Now
	next.AvailableTasks = SampleTaskCount(program.MinTasks, program.MaxTasks, req.Entropy)
	return next, nil
}
