package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/streako/streako/internal/messaging"
	"github.com/streako/streako/internal/metrics"
	"github.com/streako/streako/internal/models"
	"github.com/streako/streako/internal/scheduler"
	"github.com/streako/streako/internal/store"
)

func newTestServer(t *testing.T) (*Server, *store.InMemoryStore, *scheduler.ReminderScheduler) {
	st := store.NewInMemoryStore()
	sched := scheduler.NewReminderScheduler(messaging.NewMockNotifier(), nil)
	t.Cleanup(sched.Stop)

	registry := prometheus.NewRegistry()
	metrics.NewCollector(registry)

	return NewServer(st, sched, registry), st, sched
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := get(t, srv.Handler(), "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /health status = %d, want %d", rec.Code, http.StatusOK)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q, want ok", body["status"])
	}
}

func TestHabitsEndpoint(t *testing.T) {
	srv, st, _ := newTestServer(t)

	now := time.Now().UTC().Truncate(time.Second)
	h := models.Habit{
		ID:           "h1",
		UserID:       "u1",
		Name:         "Exercise",
		Description:  "Run 5k",
		ReminderTime: "07:30",
		Streak:       3,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := st.AddHabit(h); err != nil {
		t.Fatalf("AddHabit failed: %v", err)
	}

	rec := get(t, srv.Handler(), "/v1/habits?user_id=u1")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /v1/habits status = %d, want %d", rec.Code, http.StatusOK)
	}
	var habits []models.Habit
	if err := json.Unmarshal(rec.Body.Bytes(), &habits); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if len(habits) != 1 || habits[0].ID != "h1" || habits[0].Streak != 3 {
		t.Errorf("habits = %+v", habits)
	}

	// Another user sees an empty list, not an error.
	rec = get(t, srv.Handler(), "/v1/habits?user_id=u2")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /v1/habits for empty user status = %d", rec.Code)
	}
}

func TestHabitsEndpointRequiresUserID(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := get(t, srv.Handler(), "/v1/habits")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("GET /v1/habits without user_id status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestJobsEndpoint(t *testing.T) {
	srv, _, sched := newTestServer(t)

	h := models.Habit{ID: "h1", UserID: "u1", Name: "Exercise", ReminderTime: "07:30"}
	if err := sched.RegisterDaily(models.JobID("h1", "u1"), "07:30", h, "u1"); err != nil {
		t.Fatalf("RegisterDaily failed: %v", err)
	}

	rec := get(t, srv.Handler(), "/v1/jobs")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /v1/jobs status = %d, want %d", rec.Code, http.StatusOK)
	}
	var jobs []string
	if err := json.Unmarshal(rec.Body.Bytes(), &jobs); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if len(jobs) != 1 || jobs[0] != "h1-user-u1" {
		t.Errorf("jobs = %v, want [h1-user-u1]", jobs)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := get(t, srv.Handler(), "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics status = %d, want %d", rec.Code, http.StatusOK)
	}
}
