// Package rooms provisions video rooms for visits. The Whereby client is
// the only implementation; it degrades to a fixed demo room so the flow
// works with no credential configured.
package rooms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/reprocare/reprocare/pkg/logging"
)

const (
	defaultMeetingsURL = "https://api.whereby.com/v1/meetings"

	demoRoomID  = "demo-room"
	demoJoinURL = "https://whereby.com/your-demo"
	roomURLBase = "https://repro-care.whereby.com"
)

// Room is a provisioned video room.
type Room struct {
	ID      string `json:"room_id"`
	JoinURL string `json:"join_url"`
}

// Provisioner allocates a video room and returns a joinable URL.
type Provisioner interface {
	CreateRoom(ctx context.Context) (Room, error)
}

// Config controls how the Whereby client behaves.
type Config struct {
	APIKey         string
	RoomTemplateID string
	MeetingsURL    string
	RoomURLBase    string
	Timeout        time.Duration
	HTTPClient     *http.Client
	Logger         *logging.Logger
}

// WherebyClient creates Whereby meetings. Resolution order: a configured
// template room id is returned directly; otherwise the live API is
// called; on any failure or absent configuration the demo room is
// returned. CreateRoom therefore never returns an error in practice.
type WherebyClient struct {
	apiKey         string
	roomTemplateID string
	meetingsURL    string
	roomURLBase    string
	httpClient     *http.Client
	logger         *logging.Logger
}

// NewWherebyClient creates a configured client with sane defaults.
func NewWherebyClient(cfg Config) *WherebyClient {
	meetingsURL := strings.TrimSpace(cfg.MeetingsURL)
	if meetingsURL == "" {
		meetingsURL = defaultMeetingsURL
	}
	urlBase := strings.TrimRight(strings.TrimSpace(cfg.RoomURLBase), "/")
	if urlBase == "" {
		urlBase = roomURLBase
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &WherebyClient{
		apiKey:         strings.TrimSpace(cfg.APIKey),
		roomTemplateID: strings.TrimSpace(cfg.RoomTemplateID),
		meetingsURL:    meetingsURL,
		roomURLBase:    urlBase,
		httpClient:     httpClient,
		logger:         logger,
	}
}

// CreateRoom resolves a room through the template, the live API, or the
// demo fallback, in that order.
func (c *WherebyClient) CreateRoom(ctx context.Context) (Room, error) {
	if c.roomTemplateID != "" {
		return Room{
			ID:      c.roomTemplateID,
			JoinURL: fmt.Sprintf("%s/%s", c.roomURLBase, c.roomTemplateID),
		}, nil
	}

	if c.apiKey == "" {
		return demoRoom(), nil
	}

	room, err := c.createLiveRoom(ctx)
	if err != nil {
		c.logger.Warn("whereby meeting creation failed, using demo room", "error", err.Error())
		return demoRoom(), nil
	}
	return room, nil
}

func (c *WherebyClient) createLiveRoom(ctx context.Context) (Room, error) {
	payload := map[string]any{
		"isLocked": false,
		"roomMode": "normal",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Room{}, fmt.Errorf("rooms: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.meetingsURL, bytes.NewReader(body))
	if err != nil {
		return Room{}, fmt.Errorf("rooms: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Room{}, fmt.Errorf("rooms: meetings request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Room{}, fmt.Errorf("rooms: meetings request returned %d", resp.StatusCode)
	}

	var meeting struct {
		MeetingID string `json:"meetingId"`
		RoomURL   string `json:"roomUrl"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&meeting); err != nil {
		return Room{}, fmt.Errorf("rooms: decode response: %w", err)
	}

	room := demoRoom()
	if meeting.MeetingID != "" {
		room.ID = meeting.MeetingID
	}
	if meeting.RoomURL != "" {
		room.JoinURL = meeting.RoomURL
	}
	return room, nil
}

func demoRoom() Room {
	return Room{ID: demoRoomID, JoinURL: demoJoinURL}
}
