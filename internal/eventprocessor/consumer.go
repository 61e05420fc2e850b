// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

package eventprocessor

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/churnscope/internal/logging"
	"github.com/tomtom215/churnscope/internal/metrics"
	"github.com/tomtom215/churnscope/internal/models"
)

// RunRecorder persists analysis runs. SaveAnalysisRun must be idempotent on AnalysisID.
type RunRecorder interface {
	SaveAnalysisRun(ctx context.Context, run *models.AnalysisRun) (bool, error)
}

// RunConsumer stores every analysis.completed message as an analysis run.
type RunConsumer struct {
	recorder RunRecorder
	topic    string
}

// NewRunConsumer creates a consumer writing to recorder.
func NewRunConsumer(recorder RunRecorder, topic string) *RunConsumer {
	if topic == "" {
		topic = TopicAnalysisCompleted
	}
	return &RunConsumer{recorder: recorder, topic: topic}
}

// Handle processes one message. Malformed payloads are acknowledged and
// dropped since redelivery cannot fix them; store errors are returned for retry.
func (c *RunConsumer) Handle(msg *message.Message) error {
	ctx := msg.Context()
	logger := logging.Ctx(ctx).With().Str("message_uuid", msg.UUID).Logger()

	event, err := DeserializeEvent(msg.Payload)
	if err != nil {
		metrics.MessagesConsumed.WithLabelValues(c.topic, "parse_failed").Inc()
		logger.Warn().Err(err).Msg("Dropping malformed analysis event")
		return nil
	}

	run, err := event.ToRun()
	if err != nil {
		metrics.MessagesConsumed.WithLabelValues(c.topic, "parse_failed").Inc()
		logger.Warn().Err(err).Msg("Dropping unconvertible analysis event")
		return nil
	}

	inserted, err := c.recorder.SaveAnalysisRun(ctx, run)
	if err != nil {
		metrics.MessagesConsumed.WithLabelValues(c.topic, "failed").Inc()
		return fmt.Errorf("save analysis run %s: %w", run.AnalysisID, err)
	}

	metrics.MessagesConsumed.WithLabelValues(c.topic, "processed").Inc()
	logger.Debug().
		Str("analysis_id", run.AnalysisID).
		Bool("inserted", inserted).
		Msg("Recorded analysis run")
	return nil
}

// Register adds the consumer to r, reading from sub.
func (c *RunConsumer) Register(r *Router, sub message.Subscriber) {
	r.AddConsumerHandler("analysis_run_recorder", c.topic, sub, c.Handle)
}
