// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/rookery/internal/metrics"
)

// BusConfig holds configuration for the in-process bus.
type BusConfig struct {
	// OutputChannelBuffer is the per-subscriber buffer size.
	OutputChannelBuffer int64

	// Breaker settings for publish operations. FailureThreshold 0 disables the breaker.
	BreakerTimeout          time.Duration
	BreakerFailureThreshold uint32
}

// DefaultBusConfig returns production defaults.
func DefaultBusConfig() BusConfig {
	return BusConfig{
		OutputChannelBuffer:     256,
		BreakerTimeout:          30 * time.Second,
		BreakerFailureThreshold: 5,
	}
}

// Bus is the Watermill GoChannel pub/sub with circuit breaker protection on
// publish. It is both the publisher and the subscriber handed to the Router.
type Bus struct {
	pubsub         *gochannel.GoChannel
	circuitBreaker *gobreaker.CircuitBreaker[interface{}]
	mu             sync.RWMutex
	closed         bool
	logger         watermill.LoggerAdapter
}

// NewBus creates an in-process bus.
func NewBus(cfg BusConfig, logger watermill.LoggerAdapter) *Bus {
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	b := &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: cfg.OutputChannelBuffer,
		}, logger),
		logger: logger,
	}
	if cfg.BreakerFailureThreshold > 0 {
		b.circuitBreaker = newCircuitBreaker("events-publish", cfg.BreakerTimeout, cfg.BreakerFailureThreshold)
	}
	return b
}

func newCircuitBreaker(name string, timeout time.Duration, threshold uint32) *gobreaker.CircuitBreaker[interface{}] {
	return gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})
}

// Publish sends a message to topic with circuit breaker protection.
func (b *Bus) Publish(ctx context.Context, topic string, msg *message.Message) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return fmt.Errorf("publisher is closed")
	}
	b.mu.RUnlock()

	msg.SetContext(ctx)

	var err error
	if b.circuitBreaker != nil {
		_, err = b.circuitBreaker.Execute(func() (interface{}, error) {
			return nil, b.pubsub.Publish(topic, msg)
		})
	} else {
		err = b.pubsub.Publish(topic, msg)
	}

	result := "success"
	if err != nil {
		result = "error"
	}
	metrics.EventsPublished.WithLabelValues(topic, result).Inc()

	return err
}

// PublishImportCompleted serializes and publishes an import.completed event.
func (b *Bus) PublishImportCompleted(ctx context.Context, event *ImportCompleted) error {
	data, err := event.Marshal()
	if err != nil {
		return fmt.Errorf("serialize event: %w", err)
	}

	msg := message.NewMessage(event.EventID, data)
	msg.Metadata.Set("user_id", event.UserID)
	msg.Metadata.Set("source", string(event.Source))

	return b.Publish(ctx, TopicImportCompleted, msg)
}

// Subscriber returns the bus as a Watermill subscriber for Router handlers.
func (b *Bus) Subscriber() message.Subscriber {
	return b.pubsub
}

// Close shuts the bus down. Subscribers' channels are closed.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	return b.pubsub.Close()
}
