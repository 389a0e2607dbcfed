package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reprocare/reprocare/internal/llm"
	"github.com/reprocare/reprocare/internal/rooms"
	"github.com/reprocare/reprocare/internal/visit"
	"github.com/reprocare/reprocare/pkg/logging"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	logger := logging.New("error", "text")
	store := visit.NewMemoryStore()
	text := llm.NewFallbackClient(nil, logger)
	provisioner := rooms.NewWherebyClient(rooms.Config{Logger: logger})
	svc := visit.NewService(store, text, provisioner, logger, nil)

	return New(&Config{
		Logger:             logger,
		VisitHandler:       visit.NewHandler(svc, logger),
		CORSAllowedOrigins: []string{"*"},
	})
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthEndpoint(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestUnknownRoute(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	h := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/visit", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

// TestVisitLifecycle walks the full encounter the way the patient app
// does: intake, room, summary, then a pharmacy order.
func TestVisitLifecycle(t *testing.T) {
	h := newTestRouter(t)

	created := decode[map[string]string](t, do(t, h, http.MethodPost, "/visit", nil))
	visitID := created["visit_id"]
	require.NotEmpty(t, visitID)

	// Intake with the seven-question demo form.
	qa := []map[string]string{
		{"q": "What brings you in today?", "a": "I want to start birth control"},
		{"q": "How old are you?", "a": "20"},
		{"q": "When was your last period?", "a": "January 15"},
		{"q": "Could you be pregnant right now?", "a": "No"},
		{"q": "Do you smoke?", "a": "No"},
		{"q": "Do you get migraines with aura?", "a": "No"},
		{"q": "Do you have insurance?", "a": "No"},
	}
	rec := do(t, h, http.MethodPost, "/intake_to_json", map[string]any{
		"visit_id": visitID,
		"qa":       qa,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	intake := decode[map[string]any](t, rec)
	assert.NotEmpty(t, intake["provider_note"])
	assert.NotEmpty(t, intake["patient_summary"])
	assert.Equal(t, []any{"intake_finished"}, intake["events_added"])

	snapshot := decode[map[string]any](t, do(t, h, http.MethodGet, "/visit/"+visitID, nil))
	assert.Equal(t, "intake_complete", snapshot["status"])

	// Room provisioning; no credential configured, so the demo room.
	rec = do(t, h, http.MethodPost, "/create_room", map[string]string{"visit_id": visitID})
	require.Equal(t, http.StatusOK, rec.Code)
	room := decode[map[string]string](t, rec)
	assert.Equal(t, "demo-room", room["room_id"])
	assert.Equal(t, "https://whereby.com/your-demo", room["join_url"])

	snapshot = decode[map[string]any](t, do(t, h, http.MethodGet, "/visit/"+visitID, nil))
	assert.Equal(t, "visit_started", snapshot["status"])
	assert.Equal(t, "demo-room", snapshot["video_room_id"])

	// Post-visit summary.
	rec = do(t, h, http.MethodPost, "/post_visit_explain", map[string]any{
		"visit_id":          visitID,
		"provider_note":     snapshot["provider_note"],
		"intake_structured": snapshot["intake_structured"],
	})
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decode[map[string]any](t, rec)
	assert.NotEmpty(t, summary["plain_text"])

	// Pharmacy order closes out the visit.
	rec = do(t, h, http.MethodPost, "/pharmacy_order", map[string]any{
		"visit_id": visitID,
		"shipping": map[string]string{"name": "Jamie", "city": "Austin"},
		"plan":     "insurance",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	order := decode[map[string]string](t, rec)
	assert.Equal(t, "stub-"+visitID[:8], order["order_id"])
	assert.Equal(t, "created", order["status"])

	snapshot = decode[map[string]any](t, do(t, h, http.MethodGet, "/visit/"+visitID, nil))
	assert.Equal(t, "pharmacy_created", snapshot["status"])

	events, ok := snapshot["audit_events"].([]any)
	require.True(t, ok)
	require.Len(t, events, 5)
	names := make([]string, 0, len(events))
	for _, e := range events {
		names = append(names, strings.SplitN(e.(string), ":", 2)[0])
	}
	assert.Equal(t, []string{
		"visit_created", "intake_finished", "visit_started",
		"summary_ready", "pharmacy_created",
	}, names)
}

func TestVisitNotFoundOnLifecycleRoutes(t *testing.T) {
	h := newTestRouter(t)

	cases := []struct {
		path string
		body map[string]any
	}{
		{"/intake_to_json", map[string]any{"visit_id": "missing", "qa": []map[string]string{{"q": "q", "a": "a"}}}},
		{"/create_room", map[string]any{"visit_id": "missing"}},
		{"/post_visit_explain", map[string]any{"visit_id": "missing"}},
		{"/pharmacy_order", map[string]any{"visit_id": "missing"}},
	}
	for _, tc := range cases {
		rec := do(t, h, http.MethodPost, tc.path, tc.body)
		assert.Equal(t, http.StatusNotFound, rec.Code, tc.path)
		assert.JSONEq(t, `{"error":"Visit not found"}`, rec.Body.String(), tc.path)
	}
}
