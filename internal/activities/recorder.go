// Package activities records what happens to collectives and streams it to
// subscribers.
package activities

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/fundhub/backend/internal/models"
	"github.com/fundhub/backend/internal/store"
	"github.com/fundhub/backend/pkg/events"
)

// Publisher delivers an encoded activity to the event stream.
type Publisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// Recorder persists activities and publishes them when a Publisher is set.
type Recorder struct {
	store     store.Activities
	publisher Publisher
	logger    *zap.Logger
}

// NewRecorder creates a Recorder. publisher may be nil.
func NewRecorder(s store.Activities, publisher Publisher, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{store: s, publisher: publisher, logger: logger}
}

// Record stores a. Publishing is best effort: a failure is logged and the
// activity stays recorded.
func (r *Recorder) Record(ctx context.Context, a *models.Activity) error {
	if err := r.store.CreateActivity(ctx, a); err != nil {
		return fmt.Errorf("create activity: %w", err)
	}
	if r.publisher == nil {
		return nil
	}
	raw, err := json.Marshal(a)
	if err != nil {
		r.logger.Error("marshal activity", zap.Int64("activity_id", a.ID), zap.Error(err))
		return nil
	}
	if err := r.publisher.Publish(ctx, events.KeyFromID(a.CollectiveID), raw); err != nil {
		r.logger.Warn("publish activity failed",
			zap.Int64("activity_id", a.ID),
			zap.String("type", a.Type),
			zap.Error(err))
	}
	return nil
}
