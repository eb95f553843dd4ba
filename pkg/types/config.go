package types

import (
	"errors"
	"runtime"
	"time"
)

// Config holds the tuning parameters of a bridge.
type Config struct {
	// Workers is the number of goroutines running blocking engine calls.
	Workers int `json:"workers" yaml:"workers"`
	// QueueDepth is how many admitted tasks may wait beyond the running ones.
	// Submissions past Workers+QueueDepth fail with ErrSaturated.
	QueueDepth int `json:"queue_depth" yaml:"queue_depth"`
	// LoopBuffer is the capacity of the event loop's inbox.
	LoopBuffer int `json:"loop_buffer" yaml:"loop_buffer"`
	// RowCapacity is the initial row capacity used when materializing a query.
	RowCapacity int `json:"row_capacity" yaml:"row_capacity"`
	// TaskTimeout bounds how long a caller waits for a task. Zero disables it.
	TaskTimeout time.Duration `json:"task_timeout" yaml:"task_timeout"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level" yaml:"log_level"`
}

// Defaults.
const (
	DefaultQueueDepth  = 64
	DefaultLoopBuffer  = 128
	DefaultRowCapacity = 16
	DefaultLogLevel    = "info"
)

// Config validation errors.
var (
	ErrWorkersInvalid     = errors.New("workers must be positive")
	ErrQueueDepthInvalid  = errors.New("queue depth must not be negative")
	ErrLoopBufferInvalid  = errors.New("loop buffer must be positive")
	ErrRowCapacityInvalid = errors.New("row capacity must not be negative")
	ErrTaskTimeoutInvalid = errors.New("task timeout must not be negative")
	ErrLogLevelUnknown    = errors.New("unknown log level")
)

var knownLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// DefaultConfig returns a Config with one worker per CPU.
func DefaultConfig() Config {
	return Config{
		Workers:     runtime.NumCPU(),
		QueueDepth:  DefaultQueueDepth,
		LoopBuffer:  DefaultLoopBuffer,
		RowCapacity: DefaultRowCapacity,
		LogLevel:    DefaultLogLevel,
	}
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Workers <= 0 {
		return ErrWorkersInvalid
	}
	if c.QueueDepth < 0 {
		return ErrQueueDepthInvalid
	}
	if c.LoopBuffer <= 0 {
		return ErrLoopBufferInvalid
	}
	if c.RowCapacity < 0 {
		return ErrRowCapacityInvalid
	}
	if c.TaskTimeout < 0 {
		return ErrTaskTimeoutInvalid
	}
	if c.LogLevel != "" && !knownLogLevels[c.LogLevel] {
		return ErrLogLevelUnknown
	}
	return nil
}

// Capacity is the maximum number of tasks the dispatcher admits at once.
func (c Config) Capacity() int {
	return c.Workers + c.QueueDepth
}
