package visit

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status tracks how far a visit has advanced through the encounter.
// Transitions are driven by completed side effects, not wall-clock time;
// a visit may skip visit_started if its room is created directly after
// intake.
type Status string

const (
	StatusCreated         Status = "created"
	StatusIntakeComplete  Status = "intake_complete"
	StatusVisitStarted    Status = "visit_started"
	StatusSummaryReady    Status = "summary_ready"
	StatusPharmacyCreated Status = "pharmacy_created"
)

// Audit event names, one per state-changing operation.
const (
	EventVisitCreated    = "visit_created"
	EventIntakeFinished  = "intake_finished"
	EventVisitStarted    = "visit_started"
	EventSummaryReady    = "summary_ready"
	EventPharmacyCreated = "pharmacy_created"
)

// QA is a single intake question/answer pair.
type QA struct {
	Q string `json:"q"`
	A string `json:"a"`
}

// PharmacyOrder records the order placed at the end of the encounter.
type PharmacyOrder struct {
	Shipping map[string]string `json:"shipping,omitempty"`
	Plan     string            `json:"plan"`
	OrderID  string            `json:"order_id"`
}

// Visit is the per-patient record tracking one end-to-end
// intake-to-pharmacy encounter. It is mutated in place by the lifecycle
// controller; audit_events is the canonical append-only history.
type Visit struct {
	ID                string            `json:"id"`
	CreatedAt         time.Time         `json:"created_at"`
	Status            Status            `json:"status"`
	PatientProfile    map[string]any    `json:"patient_profile,omitempty"` // reserved, unused by current flows
	IntakeRaw         []QA              `json:"intake_raw,omitempty"`
	IntakeStructured  map[string]any    `json:"intake_structured,omitempty"`
	ProviderNote      string            `json:"provider_note,omitempty"`
	PatientSummary    string            `json:"patient_summary,omitempty"`
	VideoRoomID       string            `json:"video_room_id,omitempty"`
	TranscriptionText string            `json:"transcription_text,omitempty"`
	PharmacyRequest   *PharmacyOrder    `json:"pharmacy_request,omitempty"`
	AuditEvents       []string          `json:"audit_events"`
}

// New returns a freshly created visit in the initial state. The caller is
// responsible for persisting it.
func New() *Visit {
	return &Visit{
		ID:          uuid.NewString(),
		CreatedAt:   time.Now().UTC(),
		Status:      StatusCreated,
		AuditEvents: []string{},
	}
}

// AppendEvent records an audit event as "<name>:<RFC3339 timestamp>".
// Events are append-only and must never be rewritten or reordered.
func (v *Visit) AppendEvent(name string, at time.Time) {
	v.AuditEvents = append(v.AuditEvents, fmt.Sprintf("%s:%s", name, at.UTC().Format(time.RFC3339Nano)))
}
