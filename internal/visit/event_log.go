package visit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/reprocare/reprocare/pkg/logging"
)

// LifecycleEvent represents a structured event in the visit lifecycle.
// All events share the same base fields for easy filtering/grep.
type LifecycleEvent struct {
	Time    string         `json:"time"`
	Event   string         `json:"event"`
	VisitID string         `json:"visit_id"`
	Data    map[string]any `json:"data,omitempty"`
}

// EventLogger emits structured JSON events at each decision point in the
// visit flow. Designed for fast grep/filter debugging:
//
//	grep '"event":"intake_finished"' /var/log/app.log
//	grep '"visit_id":"1b4e..."' /var/log/app.log
type EventLogger struct {
	logger *logging.Logger
}

// NewEventLogger creates a new lifecycle event logger.
func NewEventLogger(logger *logging.Logger) *EventLogger {
	return &EventLogger{logger: logger}
}

// Log emits a structured lifecycle event.
func (e *EventLogger) Log(_ context.Context, event, visitID string, data map[string]any) {
	if e == nil || e.logger == nil {
		return
	}
	evt := LifecycleEvent{
		Time:    time.Now().UTC().Format(time.RFC3339Nano),
		Event:   event,
		VisitID: visitID,
		Data:    data,
	}
	b, _ := json.Marshal(evt)
	e.logger.Info(string(b))
}

// Convenience methods for common events:

func (e *EventLogger) VisitCreated(ctx context.Context, visitID string) {
	e.Log(ctx, EventVisitCreated, visitID, nil)
}

func (e *EventLogger) IntakeFinished(ctx context.Context, visitID string, qaCount int, degraded bool) {
	e.Log(ctx, EventIntakeFinished, visitID, map[string]any{
		"qa_count": qaCount,
		"degraded": degraded,
	})
}

func (e *EventLogger) RoomCreated(ctx context.Context, visitID, roomID string, replaced bool) {
	e.Log(ctx, EventVisitStarted, visitID, map[string]any{
		"room_id":  roomID,
		"replaced": replaced,
	})
}

func (e *EventLogger) SummaryReady(ctx context.Context, visitID string, fromTranscript, degraded bool) {
	e.Log(ctx, EventSummaryReady, visitID, map[string]any{
		"from_transcript": fromTranscript,
		"degraded":        degraded,
	})
}

func (e *EventLogger) PharmacyCreated(ctx context.Context, visitID, orderID, plan string) {
	e.Log(ctx, EventPharmacyCreated, visitID, map[string]any{
		"order_id": orderID,
		"plan":     plan,
	})
}
