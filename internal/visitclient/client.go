// Package visitclient drives one patient's browser-session view of a
// visit: it resolves a visit id, polls the server for authoritative
// status, and performs the two client-initiated side effects (room
// creation, end-of-visit summary) at most once each.
package visitclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/reprocare/reprocare/internal/visit"
)

// API is a thin JSON client for the visit endpoints.
type API struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPI creates a client for the given server base URL.
func NewAPI(baseURL string, httpClient *http.Client) *API {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &API{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Snapshot is the server-side visit state a session reconciles against.
type Snapshot struct {
	ID               string         `json:"id"`
	Status           visit.Status   `json:"status"`
	ProviderNote     string         `json:"provider_note"`
	PatientSummary   string         `json:"patient_summary"`
	IntakeStructured map[string]any `json:"intake_structured"`
	VideoRoomID      string         `json:"video_room_id"`
}

// Room mirrors the create_room response.
type Room struct {
	RoomID  string `json:"room_id"`
	JoinURL string `json:"join_url"`
}

// CreateVisit registers a new visit and returns its id.
func (a *API) CreateVisit(ctx context.Context) (string, error) {
	var resp struct {
		VisitID string `json:"visit_id"`
	}
	if err := a.post(ctx, "/visit", nil, &resp); err != nil {
		return "", err
	}
	return resp.VisitID, nil
}

// GetVisit fetches the current visit snapshot.
func (a *API) GetVisit(ctx context.Context, id string) (*Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/visit/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("visitclient: build request: %w", err)
	}
	var snap Snapshot
	if err := a.do(req, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// CreateRoom asks the server to provision a video room for the visit.
func (a *API) CreateRoom(ctx context.Context, id string) (*Room, error) {
	var room Room
	err := a.post(ctx, "/create_room", map[string]string{"visit_id": id}, &room)
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// PostVisitExplain requests the end-of-visit summary.
func (a *API) PostVisitExplain(ctx context.Context, id, providerNote string, intakeStructured map[string]any) error {
	body := map[string]any{
		"visit_id":          id,
		"provider_note":     providerNote,
		"intake_structured": intakeStructured,
	}
	return a.post(ctx, "/post_visit_explain", body, nil)
}

// Beacon delivers the end-of-visit summary request with no acknowledgment
// and no retry, for use during teardown. Loss is accepted.
func (a *API) Beacon(id, providerNote string, intakeStructured map[string]any) {
	body, err := json.Marshal(map[string]any{
		"visit_id":          id,
		"provider_note":     providerNote,
		"intake_structured": intakeStructured,
	})
	if err != nil {
		return
	}
	resp, err := a.httpClient.Post(a.baseURL+"/post_visit_explain", "application/json", bytes.NewReader(body))
	if err != nil {
		return
	}
	_ = resp.Body.Close()
}

func (a *API) post(ctx context.Context, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("visitclient: encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("visitclient: build request: %w", err)
	}
	return a.do(req, out)
}

func (a *API) do(req *http.Request, out any) error {
	req.Header.Set("Content-Type", "application/json")
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("visitclient: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("visitclient: API error: %s", resp.Status)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("visitclient: decode response: %w", err)
	}
	return nil
}
