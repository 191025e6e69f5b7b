package pubsub

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Broker owns the single connection to the message broker. It is constructed
// explicitly in main and passed to everything that publishes or subscribes;
// there is no package-level connection state.
type Broker struct {
	client *redis.Client
}

// Connect establishes the broker connection and verifies it with a ping.
// A broker that cannot be reached at startup is fatal to the process.
func Connect(ctx context.Context, addr string) (*Broker, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("could not ping broker at %s: %w", addr, err)
	}

	return &Broker{client: client}, nil
}

func (b *Broker) Client() *redis.Client {
	return b.client
}

func (b *Broker) Close() error {
	return b.client.Close()
}
