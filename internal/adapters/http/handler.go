package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PabloGalante/campfire/internal/app/chronicle"
	"github.com/PabloGalante/campfire/internal/app/game"
	"github.com/PabloGalante/campfire/internal/app/window"
	"github.com/PabloGalante/campfire/internal/domain"
	"github.com/PabloGalante/campfire/internal/observability"
)

type Server struct {
	game      *game.Service
	chronicle *chronicle.Service
}

func NewServer(gameSvc *game.Service, chronicleSvc *chronicle.Service, metrics *observability.Metrics) http.Handler {
	s := &Server{game: gameSvc, chronicle: chronicleSvc}
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("/metrics", metrics.Handler())

	// /sessions → create session (POST)
	mux.HandleFunc("/sessions", s.handleSessions)

	// /sessions/{id}             → GET: state + log
	// /sessions/{id}/turns       → POST: play a turn
	// /sessions/{id}/quests      → GET: chronicle
	// /sessions/{id}/window      → GET: context window inspection
	// /sessions/{id}/inventory   → GET: latest inventory
	// /sessions/{id}/clear-error → POST: operator reset
	mux.HandleFunc("/sessions/", s.handleSessionWithID)

	return chainMiddlewares(mux, withCORS, withLogging, withRequestID)
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type messageResponse struct {
	Index       int       `json:"index"`
	Role        string    `json:"role"`
	Text        string    `json:"text"`
	Attachments []string  `json:"attachments,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type turnRequest struct {
	Text string `json:"text"`
}

type turnResponse struct {
	SessionID string            `json:"session_id"`
	Stage     string            `json:"stage"`
	Status    string            `json:"status"`
	Procedure string            `json:"procedure"`
	Messages  []messageResponse `json:"messages"`
	Error     string            `json:"error,omitempty"`
}

type questResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Archived    bool   `json:"archived"`
	ProblemsRun int    `json:"problems_answered"`
}

type sessionResponse struct {
	ID           string            `json:"id"`
	Version      int64             `json:"version"`
	Stage        string            `json:"stage"`
	Character    map[string]string `json:"character"`
	CurrentQuest string            `json:"current_quest_id,omitempty"`
	TalkingTo    string            `json:"in_conversation_with,omitempty"`
	Quests       []questResponse   `json:"quests"`
	Error        string            `json:"error,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

type getSessionResponse struct {
	Session  sessionResponse   `json:"session"`
	Messages []messageResponse `json:"messages"`
}

type windowEntryResponse struct {
	Index  int    `json:"index"`
	Tier   int    `json:"tier"`
	Tokens int    `json:"tokens"`
	Reason string `json:"reason"`
}

type windowResponse struct {
	Indices     []int                 `json:"indices"`
	Entries     []windowEntryResponse `json:"entries"`
	TotalTokens int                   `json:"total_tokens"`
}

// ─────────────────────────────────────────────
// Basic routing
// ─────────────────────────────────────────────

// /sessions
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateSession(w, r)
	default:
		methodNotAllowed(w)
	}
}

// /sessions/{id}[/action]
func (s *Server) handleSessionWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/sessions/")
	if path == "" {
		http.NotFound(w, r)
		return
	}

	parts := strings.Split(path, "/")
	id := domain.SessionID(parts[0])
	if id == "" || len(parts) > 2 {
		http.NotFound(w, r)
		return
	}

	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}

	type route struct {
		method  string
		handler func(http.ResponseWriter, *http.Request, domain.SessionID)
	}
	routes := map[string]route{
		"":            {http.MethodGet, s.handleGetSession},
		"turns":       {http.MethodPost, s.handleTurn},
		"quests":      {http.MethodGet, s.handleListQuests},
		"window":      {http.MethodGet, s.handleWindow},
		"inventory":   {http.MethodGet, s.handleInventory},
		"clear-error": {http.MethodPost, s.handleClearError},
	}

	rt, ok := routes[action]
	if !ok {
		http.NotFound(w, r)
		return
	}
	if r.Method != rt.method {
		methodNotAllowed(w)
		return
	}
	rt.handler(w, r, id)
}

// ─────────────────────────────────────────────
// Concrete handlers
// ─────────────────────────────────────────────

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	out, err := s.game.StartSession(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTurnResponse(out))
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	out, err := s.game.RunTurn(r.Context(), id, req.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTurnResponse(out))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	state, msgs, err := s.game.Timeline(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, getSessionResponse{
		Session:  toSessionResponse(state),
		Messages: toMessagesResponse(msgs, true),
	})
}

func (s *Server) handleListQuests(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			badRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	entries, err := s.chronicle.ListQuests(r.Context(), id, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quests": entries})
}

func (s *Server) handleWindow(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	q := r.URL.Query()

	kind, err := window.ParseTargetKind(q.Get("kind"))
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	target := window.Target{Kind: kind, ID: q.Get("id")}
	switch {
	case kind == window.TargetCamp:
		target = window.CampTarget()
	case target.ID == "":
		badRequest(w, "id is required for quest and conversation windows")
		return
	}

	maxTokens := 0
	if v := q.Get("max_tokens"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			badRequest(w, "max_tokens must be a non-negative integer")
			return
		}
		maxTokens = n
	}

	win, err := s.game.BuildWindow(r.Context(), id, target, maxTokens)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := windowResponse{Indices: win.Indices, TotalTokens: win.TotalTokens}
	for _, e := range win.Entries {
		resp.Entries = append(resp.Entries, windowEntryResponse{
			Index:  e.Index,
			Tier:   int(e.Tier),
			Tokens: e.Tokens,
			Reason: e.Reason,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleInventory(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	items, err := s.game.LatestInventory(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleClearError(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	state, err := s.game.ClearError(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(state))
}

// ─────────────────────────────────────────────
// Game Helpers
// ─────────────────────────────────────────────

func toTurnResponse(out *game.TurnOutput) turnResponse {
	return turnResponse{
		SessionID: string(out.SessionID),
		Stage:     string(out.Stage),
		Status:    string(out.Status),
		Procedure: out.Procedure,
		Messages:  toMessagesResponse(out.Outgoing, false),
		Error:     out.Error,
	}
}

func toSessionResponse(st *domain.SessionState) sessionResponse {
	resp := sessionResponse{
		ID:           string(st.SessionID),
		Version:      st.Version,
		Stage:        string(st.Stage()),
		Character:    st.Character,
		CurrentQuest: string(st.CurrentQuestID),
		TalkingTo:    string(st.InConversationWith),
		Quests:       []questResponse{},
		CreatedAt:    st.CreatedAt,
		UpdatedAt:    st.UpdatedAt,
	}
	for _, q := range st.Quests {
		resp.Quests = append(resp.Quests, questResponse{
			ID:          string(q.ID),
			Title:       q.Title,
			Archived:    q.Archived,
			ProblemsRun: len(q.ProblemAnswers),
		})
	}
	if st.Error != nil {
		resp.Error = st.Error.Message
	}
	return resp
}

func toMessageResponse(m *domain.Message) messageResponse {
	tags := make([]string, 0, len(m.Tags))
	for _, t := range m.Tags {
		tags = append(tags, domain.TagRef{Kind: t.Kind, Name: t.Name}.String())
	}
	return messageResponse{
		Index:       m.Index,
		Role:        string(m.Role),
		Text:        m.Text,
		Attachments: m.Attachments,
		Tags:        tags,
		CreatedAt:   m.CreatedAt,
	}
}

// toMessagesResponse drops system messages unless withSystem is set; players
// never see instruction text.
func toMessagesResponse(msgs []*domain.Message, withSystem bool) []messageResponse {
	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == domain.RoleSystem && !withSystem {
			continue
		}
		out = append(out, toMessageResponse(m))
	}
	return out
}

// ─────────────────────────────────────────────
// HTTP Helpers
// ─────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error": msg,
	})
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
	case errors.Is(err, domain.ErrVersionConflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "session changed concurrently, retry the turn"})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{
		"error": "method not allowed",
	})
}
