package delayqueue

import (
	"context"
	"strconv"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/redis/go-redis/v9"
)

const pollInterval = time.Second

// Queue is a durable delay queue on a Redis sorted set: members are job keys,
// scores are fire times. Jobs survive process restarts, unlike an in-memory
// timer. Delivery is at-least-once: a job is removed only after its handler
// succeeds, so a crash in between re-fires it on the next poll.
type Queue struct {
	client *redis.Client
	key    string
}

func New(client *redis.Client, key string) *Queue {
	return &Queue{client: client, key: key}
}

// Schedule adds a job firing at the given time. Scheduling the same job twice
// keeps the original fire time, so redelivered triggers don't push deadlines
// back.
func (q *Queue) Schedule(ctx context.Context, jobID string, at time.Time) error {
	return q.client.ZAddNX(ctx, q.key, redis.Z{
		Score:  float64(at.Unix()),
		Member: jobID,
	}).Err()
}

// Due returns the jobs whose fire time has passed.
func (q *Queue) Due(ctx context.Context, now time.Time) ([]string, error) {
	return q.client.ZRangeByScore(ctx, q.key, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.Unix(), 10),
	}).Result()
}

// Remove acknowledges a fired job.
func (q *Queue) Remove(ctx context.Context, jobID string) error {
	return q.client.ZRem(ctx, q.key, jobID).Err()
}

// Run polls for due jobs until the context is cancelled. A failing handler
// leaves the job in the queue for the next poll.
func (q *Queue) Run(ctx context.Context, handle func(ctx context.Context, jobID string) error) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		due, err := q.Due(ctx, time.Now())
		if err != nil {
			log.FromContext(ctx).WithError(err).Error("could not poll delay queue")
			continue
		}

		for _, jobID := range due {
			if err := handle(ctx, jobID); err != nil {
				log.FromContext(ctx).
					WithField("job_id", jobID).
					WithError(err).
					Error("delayed job failed, will retry")
				continue
			}

			if err := q.Remove(ctx, jobID); err != nil {
				log.FromContext(ctx).
					WithField("job_id", jobID).
					WithError(err).
					Error("could not remove fired job")
			}
		}
	}
}
