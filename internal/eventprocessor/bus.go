// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

package eventprocessor

import (
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Bus pairs the publisher and subscriber of one transport.
type Bus struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
	Transport  string
}

// Transport names.
const (
	TransportChannel = "gochannel"
	TransportNATS    = "nats"
)

// NewBus returns NATS JetStream pub/sub when enabled and an in-process
// Go channel pub/sub otherwise.
func NewBus(s Settings, logger watermill.LoggerAdapter) (*Bus, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	if !s.Enabled {
		ch := NewChannelPubSub(logger)
		return &Bus{Publisher: ch, Subscriber: ch, Transport: TransportChannel}, nil
	}

	pub, err := NewNATSPublisher(s.Publisher, logger)
	if err != nil {
		return nil, err
	}
	sub, err := NewNATSSubscriber(&s.Subscriber, logger)
	if err != nil {
		_ = pub.Close()
		return nil, err
	}
	return &Bus{Publisher: pub, Subscriber: sub, Transport: TransportNATS}, nil
}

// NewChannelPubSub creates a persistent in-process pub/sub. Messages published
// before the first subscription are replayed to it.
func NewChannelPubSub(logger watermill.LoggerAdapter) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 256,
		Persistent:          true,
	}, logger)
}

// Close closes both sides. A shared gochannel is closed once.
func (b *Bus) Close() error {
	var errs []error
	if err := b.Publisher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close publisher: %w", err))
	}
	if b.Transport != TransportChannel {
		if err := b.Subscriber.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close subscriber: %w", err))
		}
	}
	return errors.Join(errs...)
}
