// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

package eventprocessor

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/churnscope/internal/config"
	"github.com/tomtom215/churnscope/internal/models"
)

func testAnalysis(id string) *models.ChurnAnalysis {
	return &models.ChurnAnalysis{
		AnalysisID: id,
		Config: models.AnalysisConfig{
			StartMonth:     "2025-01",
			EndMonth:       "2025-03",
			Dimensions:     []string{"gender"},
			InactivityDays: []int{90},
		},
		Metrics: models.ChurnMetrics{
			ChurnRate:        12.5,
			ActiveUsers:      40,
			ChurnedUsers:     5,
			ReactivatedUsers: 3,
			LongTermInactive: 7,
		},
		GeneratedAt:     time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC),
		ExecutionTimeMs: 42,
	}
}

func TestAnalysisCompletedEventRoundTrip(t *testing.T) {
	t.Parallel()

	event := NewAnalysisCompletedEvent(testAnalysis("a-1"))
	if event.SchemaVersion != SchemaVersion || event.ChurnRate != 12.5 || event.LongTermInactive != 7 {
		t.Fatalf("event = %+v", event)
	}

	data, err := SerializeEvent(event)
	if err != nil {
		t.Fatalf("SerializeEvent() error = %v", err)
	}
	got, err := DeserializeEvent(data)
	if err != nil {
		t.Fatalf("DeserializeEvent() error = %v", err)
	}
	if got.AnalysisID != "a-1" || !got.GeneratedAt.Equal(event.GeneratedAt) || got.Config.EndMonth != "2025-03" {
		t.Errorf("decoded = %+v", got)
	}
}

func TestAnalysisCompletedEventValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*AnalysisCompletedEvent)
	}{
		{"missing id", func(e *AnalysisCompletedEvent) { e.AnalysisID = "" }},
		{"missing range", func(e *AnalysisCompletedEvent) { e.EndMonth = "" }},
		{"future schema", func(e *AnalysisCompletedEvent) { e.SchemaVersion = SchemaVersion + 1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			event := NewAnalysisCompletedEvent(testAnalysis("a-1"))
			tt.mutate(event)
			if _, err := SerializeEvent(event); !errors.Is(err, ErrInvalidEvent) {
				t.Errorf("SerializeEvent() error = %v, want ErrInvalidEvent", err)
			}
		})
	}

	if _, err := DeserializeEvent([]byte("{not json")); err == nil {
		t.Error("DeserializeEvent() accepted malformed JSON")
	}
}

func TestToRun(t *testing.T) {
	t.Parallel()

	run, err := NewAnalysisCompletedEvent(testAnalysis("a-1")).ToRun()
	if err != nil {
		t.Fatalf("ToRun() error = %v", err)
	}
	if run.AnalysisID != "a-1" || run.ChurnedUsers != 5 || run.ExecutionTimeMs != 42 {
		t.Errorf("run = %+v", run)
	}
	if !strings.Contains(run.ConfigJSON, `"inactivity_days":[90]`) {
		t.Errorf("ConfigJSON = %s", run.ConfigJSON)
	}

	noTime := NewAnalysisCompletedEvent(testAnalysis("a-2"))
	noTime.GeneratedAt = time.Time{}
	run, _ = noTime.ToRun()
	if run.CreatedAt.IsZero() {
		t.Error("CreatedAt should default to now")
	}
}

func TestSettingsFromConfig(t *testing.T) {
	t.Parallel()

	s := SettingsFromConfig(&config.NATSConfig{
		Enabled:                true,
		URL:                    "nats://broker:4222",
		QueueGroup:             "workers",
		RouterRetryCount:       7,
		RouterPoisonQueueTopic: "dead",
	})

	if s.Topic != TopicAnalysisCompleted {
		t.Errorf("Topic = %q", s.Topic)
	}
	if s.Publisher.URL != "nats://broker:4222" || s.Subscriber.URL != "nats://broker:4222" {
		t.Errorf("URLs = %q, %q", s.Publisher.URL, s.Subscriber.URL)
	}
	if s.Subscriber.QueueGroup != "workers" || s.Subscriber.DurableName != "churnscope-runs" {
		t.Errorf("subscriber = %+v", s.Subscriber)
	}
	if s.Router.RetryMaxRetries != 7 || s.Router.PoisonQueueTopic != "dead" || s.Router.CloseTimeout != 30*time.Second {
		t.Errorf("router = %+v", s.Router)
	}
}
