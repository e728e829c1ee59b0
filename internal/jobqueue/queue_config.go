/*
Package jobqueue configuration - tunables for the River job queue that
delivers license and student-discount emails.

Email jobs are inserted in the same database the ledger uses, so an issued
license and the request to mail it survive restarts together. Failed sends
are retried by River with its default exponential schedule up to
MaxAttempts; jobs are unique by their arguments so a redelivered webhook
does not mail the same code twice.
*/
package jobqueue

import (
	"time"

	"github.com/riverqueue/river"
)

// QueueConfig holds all configurable parameters for the job queue.
type QueueConfig struct {
	MaxWorkers  int           // concurrent email deliveries
	MaxAttempts int           // attempts before a job is discarded
	JobTimeout  time.Duration // per-attempt deadline
	UniqueFor   time.Duration // window in which identical jobs are deduplicated
}

// DefaultQueueConfig returns production defaults.
func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{
		MaxWorkers:  5,
		MaxAttempts: 10,
		JobTimeout:  30 * time.Second,
		UniqueFor:   24 * time.Hour,
	}
}

// RiverQueueConfig converts to River's queue map.
func (c *QueueConfig) RiverQueueConfig() map[string]river.QueueConfig {
	return map[string]river.QueueConfig{
		river.QueueDefault: {MaxWorkers: c.MaxWorkers},
	}
}

func (c *QueueConfig) insertOpts() *river.InsertOpts {
	return &river.InsertOpts{
		MaxAttempts: c.MaxAttempts,
		UniqueOpts: river.UniqueOpts{
			ByArgs:   true,
			ByPeriod: c.UniqueFor,
		},
	}
}
