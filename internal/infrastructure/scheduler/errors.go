package scheduler

import "errors"

var (
	// ErrInvalidTask is returned when a task is registered with a missing
	// name, a non-positive interval, or a nil function
	ErrInvalidTask = errors.New("invalid sweep task")

	// ErrSweeperRunning is returned when registering a task after Start
	ErrSweeperRunning = errors.New("sweeper is already running")
)
