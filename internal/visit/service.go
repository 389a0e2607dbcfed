package visit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/reprocare/reprocare/internal/llm"
	"github.com/reprocare/reprocare/internal/observability/metrics"
	"github.com/reprocare/reprocare/internal/rooms"
	"github.com/reprocare/reprocare/pkg/logging"
)

// Service is the visit lifecycle controller. Every operation validates
// its input, loads or mutates the visit record, invokes at most one
// external adapter, and appends an audit event. Adapter degradation is
// absorbed here: intake and summary generation always succeed with some
// content.
type Service struct {
	store   Store
	text    llm.Client
	rooms   rooms.Provisioner
	logger  *logging.Logger
	events  *EventLogger
	metrics *metrics.VisitMetrics
	now     func() time.Time
}

// NewService creates the lifecycle controller. Metrics may be nil.
func NewService(store Store, text llm.Client, provisioner rooms.Provisioner, logger *logging.Logger, m *metrics.VisitMetrics) *Service {
	if store == nil {
		panic("visit: store required")
	}
	if text == nil {
		panic("visit: text client required")
	}
	if provisioner == nil {
		panic("visit: room provisioner required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		store:   store,
		text:    text,
		rooms:   provisioner,
		logger:  logger,
		events:  NewEventLogger(logger),
		metrics: m,
		now:     time.Now,
	}
}

// CreateVisit issues a fresh visit in the initial state.
func (s *Service) CreateVisit(ctx context.Context) (*Visit, error) {
	v := New()
	v.AppendEvent(EventVisitCreated, s.now())

	if err := s.store.Create(ctx, v); err != nil {
		s.metrics.ObserveOperation("create_visit", "error")
		return nil, fmt.Errorf("visit: create failed: %w", err)
	}

	s.events.VisitCreated(ctx, v.ID)
	s.metrics.ObserveOperation("create_visit", "ok")
	return v, nil
}

// GetVisit is a pure read of the current visit snapshot.
func (s *Service) GetVisit(ctx context.Context, id string) (*Visit, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrMissingVisitID
	}
	return s.store.Get(ctx, id)
}

// IntakeResult is returned by SubmitIntake. EventsAdded names the audit
// events appended by the operation.
type IntakeResult struct {
	Structured     map[string]any
	ProviderNote   string
	PatientSummary string
	EventsAdded    []string
}

// SubmitIntake converts the patient's answers into structured intake
// data via the text adapter and advances the visit to intake_complete.
// Adapter or parse failure degrades to fixed defaults rather than
// failing the visit.
func (s *Service) SubmitIntake(ctx context.Context, id string, qa []QA) (*IntakeResult, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrMissingVisitID
	}
	if len(qa) == 0 {
		return nil, ErrMissingQA
	}
	// Existence is checked before the adapter call so a bad id never
	// spends a completion.
	if _, err := s.store.Get(ctx, id); err != nil {
		return nil, err
	}

	text := s.complete(ctx, intakeSystemPrompt, intakeUserPrompt(qa))
	outcome := parseIntakeResponse(text)
	if outcome.Degraded {
		s.metrics.ObserveFallback("text")
		s.logger.Warn("intake response unusable, storing degraded defaults", "visit_id", id)
	}

	_, err := s.store.Update(ctx, id, func(v *Visit) error {
		v.IntakeRaw = append([]QA(nil), qa...)
		v.IntakeStructured = outcome.Structured
		v.ProviderNote = outcome.ProviderNote
		v.PatientSummary = outcome.PatientSummary
		v.Status = StatusIntakeComplete
		v.AppendEvent(EventIntakeFinished, s.now())
		return nil
	})
	if err != nil {
		s.metrics.ObserveOperation("submit_intake", "error")
		return nil, err
	}

	s.events.IntakeFinished(ctx, id, len(qa), outcome.Degraded)
	s.metrics.ObserveOperation("submit_intake", "ok")
	return &IntakeResult{
		Structured:     outcome.Structured,
		ProviderNote:   outcome.ProviderNote,
		PatientSummary: outcome.PatientSummary,
		EventsAdded:    []string{EventIntakeFinished},
	}, nil
}

// CreateRoom provisions a video room and advances the visit to
// visit_started. Repeated calls are not deduplicated: the stored room id
// reflects the latest call and each call appends its own audit event.
func (s *Service) CreateRoom(ctx context.Context, id string) (rooms.Room, error) {
	if strings.TrimSpace(id) == "" {
		return rooms.Room{}, ErrMissingVisitID
	}
	if _, err := s.store.Get(ctx, id); err != nil {
		return rooms.Room{}, err
	}

	start := s.now()
	room, err := s.rooms.CreateRoom(ctx)
	s.metrics.ObserveAdapterLatency("rooms", time.Since(start).Seconds())
	if err != nil {
		s.metrics.ObserveOperation("create_room", "error")
		return rooms.Room{}, fmt.Errorf("visit: room provisioning failed: %w", err)
	}

	replaced := false
	_, err = s.store.Update(ctx, id, func(v *Visit) error {
		replaced = v.VideoRoomID != ""
		v.VideoRoomID = room.ID
		v.Status = StatusVisitStarted
		v.AppendEvent(EventVisitStarted, s.now())
		return nil
	})
	if err != nil {
		s.metrics.ObserveOperation("create_room", "error")
		return rooms.Room{}, err
	}

	s.events.RoomCreated(ctx, id, room.ID, replaced)
	s.metrics.ObserveOperation("create_room", "ok")
	return room, nil
}

// SummaryResult is returned by GenerateSummary. Only PlainText is
// persisted on the visit; the structured form is richer but transient.
type SummaryResult struct {
	Structured map[string]any
	PlainText  string
}

// GenerateSummary produces the post-visit patient explanation. A raw
// transcript stored on the visit is preferred as source material;
// otherwise the prompt is built from the provider note and structured
// intake, either of which the request may override.
func (s *Service) GenerateSummary(ctx context.Context, id, providerNote string, intakeStructured map[string]any) (*SummaryResult, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrMissingVisitID
	}
	v, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	note := v.ProviderNote
	if providerNote != "" {
		note = providerNote
	}
	structured := v.IntakeStructured
	if intakeStructured != nil {
		structured = intakeStructured
	}

	var userPrompt string
	fromTranscript := v.TranscriptionText != ""
	if fromTranscript {
		userPrompt = transcriptUserPrompt(v.TranscriptionText)
	} else {
		userPrompt = postVisitUserPrompt(note, structured)
	}

	text := s.complete(ctx, postVisitSystemPrompt, userPrompt)
	outcome := parseSummaryResponse(text)
	if outcome.Degraded {
		s.metrics.ObserveFallback("text")
		s.logger.Warn("summary response unusable, storing degraded defaults", "visit_id", id)
	}

	_, err = s.store.Update(ctx, id, func(v *Visit) error {
		v.PatientSummary = outcome.PlainText
		v.Status = StatusSummaryReady
		v.AppendEvent(EventSummaryReady, s.now())
		return nil
	})
	if err != nil {
		s.metrics.ObserveOperation("post_visit_summary", "error")
		return nil, err
	}

	s.events.SummaryReady(ctx, id, fromTranscript, outcome.Degraded)
	s.metrics.ObserveOperation("post_visit_summary", "ok")
	return &SummaryResult{
		Structured: outcome.Structured,
		PlainText:  outcome.PlainText,
	}, nil
}

// PlacePharmacyOrder records the pharmacy request and moves the visit to
// its terminal state. The order id derives deterministically from the
// visit id; one order per visit is the only supported case.
func (s *Service) PlacePharmacyOrder(ctx context.Context, id string, shipping map[string]string, plan string) (*PharmacyOrder, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrMissingVisitID
	}
	if plan == "" {
		plan = "cash"
	}

	order := &PharmacyOrder{
		Shipping: shipping,
		Plan:     plan,
		OrderID:  orderID(id),
	}

	_, err := s.store.Update(ctx, id, func(v *Visit) error {
		v.PharmacyRequest = order
		v.Status = StatusPharmacyCreated
		v.AppendEvent(EventPharmacyCreated, s.now())
		return nil
	})
	if err != nil {
		s.metrics.ObserveOperation("pharmacy_order", "error")
		return nil, err
	}

	s.events.PharmacyCreated(ctx, id, order.OrderID, plan)
	s.metrics.ObserveOperation("pharmacy_order", "ok")
	return order, nil
}

// complete calls the text adapter and absorbs failure: controller level
// degradation happens in the parse step, which treats an empty response
// as malformed.
func (s *Service) complete(ctx context.Context, systemPrompt, userPrompt string) string {
	start := s.now()
	text, err := s.text.Complete(ctx, systemPrompt, userPrompt)
	s.metrics.ObserveAdapterLatency("text", time.Since(start).Seconds())
	if err != nil {
		s.logger.Warn("text adapter call failed", "error", err.Error())
		return ""
	}
	return text
}

// orderID derives the pharmacy order id from the visit id.
func orderID(visitID string) string {
	short := visitID
	if len(short) > 8 {
		short = short[:8]
	}
	return "stub-" + short
}
