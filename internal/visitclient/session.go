package visitclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/reprocare/reprocare/internal/visit"
	"github.com/reprocare/reprocare/pkg/logging"
)

const (
	defaultPollInterval = 3 * time.Second
	defaultRoomURLBase  = "https://repro-care.whereby.com"

	// Room the client falls back to when the create_room call itself
	// fails, so the patient is never left without a video surface.
	fallbackRoomID = "8d9d69e5-e702-4767-89af-ff6430a8e265"
)

// Step is the local step indicator the session advances as the
// server-recorded status changes. It never moves backwards.
type Step int

const (
	StepIntake Step = iota
	StepVideo
	StepSummary
	StepConfirmation
)

func stepForStatus(status visit.Status) Step {
	switch status {
	case visit.StatusIntakeComplete, visit.StatusVisitStarted:
		return StepVideo
	case visit.StatusSummaryReady:
		return StepSummary
	case visit.StatusPharmacyCreated:
		return StepConfirmation
	default:
		return StepIntake
	}
}

// ProviderMessage is a cross-origin message from the embedded video
// provider. Only messages from the provider's domain are honored.
type ProviderMessage struct {
	Origin string
	Type   string
	Event  string
	Action string
	Raw    string
}

// leaveEvent reports whether the message indicates the patient left the
// call.
func leaveEvent(msg ProviderMessage) bool {
	if !strings.Contains(msg.Origin, "whereby.com") {
		return false
	}
	return msg.Type == "meeting-ended" ||
		msg.Event == "meeting-ended" ||
		msg.Action == "leave" ||
		strings.Contains(msg.Raw, "leave")
}

// Config holds session configuration.
type Config struct {
	API          *API
	VisitID      string // reuse an existing visit when set
	PollInterval time.Duration
	RoomURLBase  string
	Logger       *logging.Logger
}

// Session reconciles local UI state against the server by polling, and
// owns the two client-side at-most-once side effects: room creation and
// end-of-visit summary generation. Both are guarded by gates so that
// concurrent triggers (poll ticks, provider messages, explicit user
// action, teardown) produce exactly one outbound request each.
type Session struct {
	api          *API
	logger       *logging.Logger
	pollInterval time.Duration
	roomURLBase  string

	roomCreation gate
	ended        gate

	mu       sync.Mutex
	visitID  string
	snapshot *Snapshot
	roomURL  string
	step     Step

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewSession creates a session. Call Start to begin polling.
func NewSession(cfg Config) *Session {
	if cfg.API == nil {
		panic("visitclient: API required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	roomURLBase := strings.TrimRight(cfg.RoomURLBase, "/")
	if roomURLBase == "" {
		roomURLBase = defaultRoomURLBase
	}
	return &Session{
		api:          cfg.API,
		logger:       logger,
		pollInterval: pollInterval,
		roomURLBase:  roomURLBase,
		visitID:      cfg.VisitID,
		stop:         make(chan struct{}),
	}
}

// Start resolves the visit id, loads the first snapshot, initiates room
// creation, and begins the poll loop.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	id := s.visitID
	s.mu.Unlock()

	if id == "" {
		created, err := s.api.CreateVisit(ctx)
		if err != nil {
			return fmt.Errorf("visitclient: create visit: %w", err)
		}
		s.mu.Lock()
		s.visitID = created
		s.mu.Unlock()
	}

	// First load is best-effort; polling recovers from a failure here.
	s.refresh(ctx)
	s.initiateRoomCreation(ctx)

	s.wg.Add(1)
	go s.run(ctx)
	return nil
}

// run is the cooperative loop: all periodic work happens on one
// goroutine, resumed by the poll ticker.
func (s *Session) run(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			s.refresh(ctx)
			s.maybeCreateRoom(ctx)
		}
	}
}

// refresh fetches the visit snapshot and reconciles local state. Poll
// errors are logged and retried on the next tick.
func (s *Session) refresh(ctx context.Context) {
	s.mu.Lock()
	id := s.visitID
	s.mu.Unlock()
	if id == "" {
		return
	}

	snap, err := s.api.GetVisit(ctx, id)
	if err != nil {
		s.logger.Warn("failed to load visit", "visit_id", id, "error", err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snap
	if next := stepForStatus(snap.Status); next > s.step {
		s.step = next
	}
	// A room id recorded server-side wins only if we have no URL yet.
	if snap.VideoRoomID != "" && s.roomURL == "" {
		s.roomURL = s.roomURLBase + "/" + snap.VideoRoomID
	}
}

// maybeCreateRoom fires room creation from the poll path when the visit
// is far enough along and no room exists yet.
func (s *Session) maybeCreateRoom(ctx context.Context) {
	s.mu.Lock()
	hasRoom := s.roomURL != ""
	var status visit.Status
	if s.snapshot != nil {
		status = s.snapshot.Status
	}
	s.mu.Unlock()

	if hasRoom || s.roomCreation.Fired() {
		return
	}
	if status == visit.StatusIntakeComplete || status == visit.StatusVisitStarted || status == "" {
		s.initiateRoomCreation(ctx)
	}
}

// initiateRoomCreation performs the create-room side effect at most
// once. The gate is set before the request starts, so a second trigger
// arriving mid-flight does nothing.
func (s *Session) initiateRoomCreation(ctx context.Context) {
	if !s.roomCreation.Begin() {
		return
	}

	s.mu.Lock()
	id := s.visitID
	s.mu.Unlock()

	room, err := s.api.CreateRoom(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.logger.Warn("failed to create room, using fallback", "visit_id", id, "error", err.Error())
		s.roomURL = s.roomURLBase + "/" + fallbackRoomID
	} else if room.JoinURL != "" {
		s.roomURL = room.JoinURL
	} else {
		s.roomURL = s.roomURLBase + "/" + room.RoomID
	}
	s.roomCreation.Done()
}

// HandleProviderMessage reacts to a cross-origin message from the video
// provider; a leave event ends the visit.
func (s *Session) HandleProviderMessage(ctx context.Context, msg ProviderMessage) {
	if !leaveEvent(msg) {
		return
	}
	if err := s.EndVisit(ctx); err != nil {
		s.logger.Warn("failed to end visit from provider message", "error", err.Error())
	}
}

// EndVisit performs the end-of-visit side effect at most once: it asks
// the server for the post-visit summary. Duplicate triggers (provider
// message plus explicit button, for instance) are absorbed by the gate.
func (s *Session) EndVisit(ctx context.Context) error {
	if !s.ended.Begin() {
		return nil
	}

	s.mu.Lock()
	id := s.visitID
	snap := s.snapshot
	s.mu.Unlock()

	if id == "" {
		s.ended.Abort()
		return errors.New("visitclient: visit id not resolved")
	}

	// Summary needs intake material; without it the visit still ends,
	// matching the flow where the patient skipped intake.
	if snap != nil && snap.ProviderNote != "" && snap.IntakeStructured != nil {
		if err := s.api.PostVisitExplain(ctx, id, snap.ProviderNote, snap.IntakeStructured); err != nil {
			s.logger.Warn("failed to generate summary", "visit_id", id, "error", err.Error())
		}
	}

	s.ended.Done()

	s.mu.Lock()
	if s.step < StepSummary {
		s.step = StepSummary
	}
	s.mu.Unlock()
	return nil
}

// Close stops the poll loop. If the end-of-visit side effect has not
// fired, a best-effort, fire-and-forget delivery of the summary request
// is attempted, with loss accepted.
func (s *Session) Close() {
	s.stopOnce.Do(func() {
		close(s.stop)

		if !s.ended.Fired() {
			s.mu.Lock()
			id := s.visitID
			snap := s.snapshot
			s.mu.Unlock()
			if id != "" && snap != nil && snap.ProviderNote != "" && snap.IntakeStructured != nil {
				s.api.Beacon(id, snap.ProviderNote, snap.IntakeStructured)
			}
		}
	})
	s.wg.Wait()
}

// VisitID returns the resolved visit id, empty until Start succeeds.
func (s *Session) VisitID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visitID
}

// Step returns the local step indicator.
func (s *Session) Step() Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// RoomURL returns the join URL once a room is known.
func (s *Session) RoomURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomURL
}
