package rooms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reprocare/reprocare/pkg/logging"
)

func testLogger() *logging.Logger {
	return logging.New("error", "text")
}

func TestCreateRoomWithTemplate(t *testing.T) {
	client := NewWherebyClient(Config{
		RoomTemplateID: "team-room",
		APIKey:         "ignored-when-template-set",
		Logger:         testLogger(),
	})

	room, err := client.CreateRoom(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "team-room", room.ID)
	assert.Equal(t, "https://repro-care.whereby.com/team-room", room.JoinURL)
}

func TestCreateRoomWithoutCredentials(t *testing.T) {
	client := NewWherebyClient(Config{Logger: testLogger()})

	room, err := client.CreateRoom(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "demo-room", room.ID)
	assert.Equal(t, "https://whereby.com/your-demo", room.JoinURL)
}

func TestCreateRoomLive(t *testing.T) {
	var gotAuth string
	var gotPayload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotPayload)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"meetingId": "m-123",
			"roomUrl":   "https://acme.whereby.com/m-123",
		})
	}))
	defer srv.Close()

	client := NewWherebyClient(Config{
		APIKey:      "secret-key",
		MeetingsURL: srv.URL,
		Logger:      testLogger(),
	})

	room, err := client.CreateRoom(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "m-123", room.ID)
	assert.Equal(t, "https://acme.whereby.com/m-123", room.JoinURL)
	assert.Equal(t, "Bearer secret-key", gotAuth)
	assert.Equal(t, false, gotPayload["isLocked"])
	assert.Equal(t, "normal", gotPayload["roomMode"])
}

func TestCreateRoomFallsBackOnAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewWherebyClient(Config{
		APIKey:      "secret-key",
		MeetingsURL: srv.URL,
		Logger:      testLogger(),
	})

	room, err := client.CreateRoom(context.Background())
	require.NoError(t, err)
	assert.Equal(t, demoRoom(), room)
}

func TestCreateRoomFallsBackOnUnreachableAPI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // unreachable on purpose

	client := NewWherebyClient(Config{
		APIKey:      "secret-key",
		MeetingsURL: srv.URL,
		Logger:      testLogger(),
	})

	room, err := client.CreateRoom(context.Background())
	require.NoError(t, err)
	assert.Equal(t, demoRoom(), room)
}

func TestCreateRoomLivePartialResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"meetingId": "m-456"})
	}))
	defer srv.Close()

	client := NewWherebyClient(Config{
		APIKey:      "secret-key",
		MeetingsURL: srv.URL,
		Logger:      testLogger(),
	})

	room, err := client.CreateRoom(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "m-456", room.ID)
	// Missing fields keep the demo value rather than going blank.
	assert.Equal(t, demoJoinURL, room.JoinURL)
}

func TestCustomRoomURLBase(t *testing.T) {
	client := NewWherebyClient(Config{
		RoomTemplateID: "team-room",
		RoomURLBase:    "https://clinic.example.com/",
		Logger:         testLogger(),
	})

	room, err := client.CreateRoom(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://clinic.example.com/team-room", room.JoinURL)
}
