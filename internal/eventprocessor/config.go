// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

package eventprocessor

import (
	"time"

	"github.com/tomtom215/churnscope/internal/config"
)

// PublisherConfig holds NATS publisher connection settings.
type PublisherConfig struct {
	URL              string
	MaxReconnects    int
	ReconnectWait    time.Duration
	ReconnectBuffer  int
	EnableTrackMsgID bool // nolint:revive // ID is correct per Go conventions
}

// DefaultPublisherConfig returns production defaults for a publisher.
func DefaultPublisherConfig(url string) PublisherConfig {
	return PublisherConfig{
		URL:              url,
		MaxReconnects:    -1, // Unlimited
		ReconnectWait:    2 * time.Second,
		ReconnectBuffer:  8 * 1024 * 1024, // 8MB
		EnableTrackMsgID: true,
	}
}

// SubscriberConfig holds NATS JetStream subscriber settings.
type SubscriberConfig struct {
	URL              string
	DurableName      string
	QueueGroup       string
	SubscribersCount int
	AckWaitTimeout   time.Duration
	MaxDeliver       int
	MaxAckPending    int
	MaxReconnects    int
	ReconnectWait    time.Duration
	CloseTimeout     time.Duration
}

// DefaultSubscriberConfig returns production defaults for a subscriber.
func DefaultSubscriberConfig(url string) SubscriberConfig {
	return SubscriberConfig{
		URL:              url,
		DurableName:      "churnscope-runs",
		QueueGroup:       "churnscope",
		SubscribersCount: 1,
		AckWaitTimeout:   30 * time.Second,
		MaxDeliver:       5,
		MaxAckPending:    100,
		MaxReconnects:    -1,
		ReconnectWait:    2 * time.Second,
		CloseTimeout:     30 * time.Second,
	}
}

// RouterConfig holds configuration for the Watermill Router.
type RouterConfig struct {
	// CloseTimeout is how long to wait for handlers to finish when closing.
	CloseTimeout time.Duration

	// Retry configuration
	RetryMaxRetries      int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
	RetryMultiplier      float64

	// PoisonQueueTopic receives messages that still fail after all retries.
	PoisonQueueTopic string
}

// DefaultRouterConfig returns production defaults for the Router.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		CloseTimeout:         30 * time.Second,
		RetryMaxRetries:      3,
		RetryInitialInterval: 100 * time.Millisecond,
		RetryMaxInterval:     10 * time.Second,
		RetryMultiplier:      2.0,
		PoisonQueueTopic:     "analysis.poison",
	}
}

// Settings is the messaging configuration derived from config.NATSConfig.
type Settings struct {
	Enabled    bool
	Topic      string
	Publisher  PublisherConfig
	Subscriber SubscriberConfig
	Router     RouterConfig
}

// SettingsFromConfig maps the application NATS section onto component settings.
func SettingsFromConfig(cfg *config.NATSConfig) Settings {
	s := Settings{
		Enabled:    cfg.Enabled,
		Topic:      cfg.Topic,
		Publisher:  DefaultPublisherConfig(cfg.URL),
		Subscriber: DefaultSubscriberConfig(cfg.URL),
		Router:     DefaultRouterConfig(),
	}
	if s.Topic == "" {
		s.Topic = TopicAnalysisCompleted
	}
	if cfg.DurableName != "" {
		s.Subscriber.DurableName = cfg.DurableName
	}
	if cfg.QueueGroup != "" {
		s.Subscriber.QueueGroup = cfg.QueueGroup
	}
	if cfg.RouterRetryCount > 0 {
		s.Router.RetryMaxRetries = cfg.RouterRetryCount
	}
	if cfg.RouterRetryInitialInterval > 0 {
		s.Router.RetryInitialInterval = cfg.RouterRetryInitialInterval
	}
	if cfg.RouterPoisonQueueTopic != "" {
		s.Router.PoisonQueueTopic = cfg.RouterPoisonQueueTopic
	}
	if cfg.RouterCloseTimeout > 0 {
		s.Router.CloseTimeout = cfg.RouterCloseTimeout
	}
	return s
}
