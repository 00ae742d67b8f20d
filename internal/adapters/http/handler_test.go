package httpadapter_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	httpadapter "github.com/PabloGalante/campfire/internal/adapters/http"
	"github.com/PabloGalante/campfire/internal/adapters/llm"
	"github.com/PabloGalante/campfire/internal/adapters/moderation"
	"github.com/PabloGalante/campfire/internal/adapters/storage/memory"
	"github.com/PabloGalante/campfire/internal/app/chronicle"
	"github.com/PabloGalante/campfire/internal/app/game"
	"github.com/PabloGalante/campfire/internal/domain"
	"github.com/PabloGalante/campfire/internal/observability"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	logStore := memory.NewLogStore()
	stateStore := memory.NewStateStore()
	metrics := observability.NewMetrics()

	gameSvc := game.NewService(game.Deps{
		Log:       logStore,
		States:    stateStore,
		Generator: llm.NewMockGenerator(),
		Moderator: moderation.NewBlocklist([]string{"darnit"}),
		Metrics:   metrics,
		World:     domain.DefaultWorld(),
	})
	chronicleSvc := chronicle.NewService(stateStore, logStore)

	return httpadapter.NewServer(gameSvc, chronicleSvc, metrics)
}

type turnBody struct {
	SessionID string `json:"session_id"`
	Stage     string `json:"stage"`
	Status    string `json:"status"`
	Messages  []struct {
		Role string `json:"role"`
		Text string `json:"text"`
	} `json:"messages"`
	Error string `json:"error"`
}

func do(t *testing.T, srv http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func decodeTurn(t *testing.T, w *httptest.ResponseRecorder) turnBody {
	t.Helper()
	var out turnBody
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatalf("decode turn response: %v", err)
	}
	return out
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	w := do(t, srv, http.MethodGet, "/healthz", "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected a generated X-Request-ID header")
	}
}

func TestCreateSessionAsksFirstQuestion(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv, http.MethodPost, "/sessions", "")
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d, body=%s", w.Code, w.Body.String())
	}

	out := decodeTurn(t, w)
	if out.SessionID == "" {
		t.Fatalf("expected a session id")
	}
	if out.Status != "suspended" || out.Stage != string(domain.StageOnboarding) {
		t.Fatalf("expected suspended onboarding, got %s/%s", out.Status, out.Stage)
	}
	if len(out.Messages) == 0 || out.Messages[len(out.Messages)-1].Text != "What is your character's name?" {
		t.Fatalf("expected the name question, got %+v", out.Messages)
	}
}

func TestPlayThroughOnboarding(t *testing.T) {
	srv := newTestServer(t)
	out := decodeTurn(t, do(t, srv, http.MethodPost, "/sessions", ""))
	base := "/sessions/" + out.SessionID

	for _, answer := range []string{"Rho", "Ranger of the north", "Tall and quiet", "Find her brother"} {
		w := do(t, srv, http.MethodPost, base+"/turns", `{"text":"`+answer+`"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("turn %q: expected 200, got %d, body=%s", answer, w.Code, w.Body.String())
		}
		out = decodeTurn(t, w)
	}

	if out.Status != "completed" || out.Stage != string(domain.StageCamp) {
		t.Fatalf("expected completed onboarding at camp, got %s/%s (%s)", out.Status, out.Stage, out.Error)
	}
	for _, m := range out.Messages {
		if m.Role == string(domain.RoleSystem) {
			t.Fatalf("system message leaked to the player: %q", m.Text)
		}
	}

	w := do(t, srv, http.MethodGet, base, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on timeline, got %d", w.Code)
	}
	var timeline struct {
		Session struct {
			Character map[string]string `json:"character"`
		} `json:"session"`
		Messages []struct {
			Role string `json:"role"`
		} `json:"messages"`
	}
	if err := json.NewDecoder(w.Body).Decode(&timeline); err != nil {
		t.Fatalf("decode timeline: %v", err)
	}
	if timeline.Session.Character["name"] != "Rho" {
		t.Fatalf("expected name Rho, got %v", timeline.Session.Character)
	}
	sawSetup := false
	for _, m := range timeline.Messages {
		if m.Role == string(domain.RoleSystem) {
			sawSetup = true
		}
	}
	if !sawSetup {
		t.Fatalf("expected the timeline to include the setup message")
	}

	w = do(t, srv, http.MethodGet, base+"/window?kind=camp&max_tokens=500", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on window, got %d, body=%s", w.Code, w.Body.String())
	}
	var win struct {
		Indices []int `json:"indices"`
	}
	if err := json.NewDecoder(w.Body).Decode(&win); err != nil {
		t.Fatalf("decode window: %v", err)
	}
	if len(win.Indices) == 0 {
		t.Fatalf("expected the camp window to include at least the setup message")
	}
}

func TestUnknownSessionIs404(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/sessions/nope", "/sessions/nope/quests", "/sessions/nope/inventory"} {
		if w := do(t, srv, http.MethodGet, path, ""); w.Code != http.StatusNotFound {
			t.Errorf("GET %s: expected 404, got %d", path, w.Code)
		}
	}
	if w := do(t, srv, http.MethodPost, "/sessions/nope/clear-error", ""); w.Code != http.StatusNotFound {
		t.Errorf("clear-error: expected 404, got %d", w.Code)
	}
}

func TestBadRequests(t *testing.T) {
	srv := newTestServer(t)
	out := decodeTurn(t, do(t, srv, http.MethodPost, "/sessions", ""))
	base := "/sessions/" + out.SessionID

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"bad json", http.MethodPost, base + "/turns", "{", http.StatusBadRequest},
		{"bad window kind", http.MethodGet, base + "/window?kind=tavern", "", http.StatusBadRequest},
		{"quest window without id", http.MethodGet, base + "/window?kind=quest", "", http.StatusBadRequest},
		{"negative max tokens", http.MethodGet, base + "/window?kind=camp&max_tokens=-1", "", http.StatusBadRequest},
		{"bad limit", http.MethodGet, base + "/quests?limit=x", "", http.StatusBadRequest},
		{"wrong method", http.MethodGet, base + "/turns", "", http.StatusMethodNotAllowed},
		{"list sessions", http.MethodGet, "/sessions", "", http.StatusMethodNotAllowed},
		{"unknown action", http.MethodGet, base + "/tavern", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, srv, tt.method, tt.path, tt.body)
			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d, body=%s", tt.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	do(t, srv, http.MethodPost, "/sessions", "")

	w := do(t, srv, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "campfire_turns_total") {
		t.Fatalf("expected turn counter in metrics output")
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t)
	w := do(t, srv, http.MethodOptions, "/sessions", "")

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("expected CORS header")
	}
}
