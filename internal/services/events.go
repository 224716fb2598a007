package services

import (
	"context"
	"encoding/json"
	"log"
	"time"
)

const publishTimeout = 5 * time.Second

// Publisher sends domain events to a broker. *mq.MQ satisfies it.
type Publisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// publishEvent sends event on channel without failing the caller: a nil
// publisher is a no-op and broker errors are only logged.
func publishEvent(ctx context.Context, publisher Publisher, channel string, event any) {
	if publisher == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("events: encode %s: %v", channel, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if _, err := publisher.Publish(ctx, channel, data, map[string]string{"content-type": "application/json"}); err != nil {
		log.Printf("events: publish %s: %v", channel, err)
	}
}
