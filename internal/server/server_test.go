package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/TobiSchelling/joseph/internal/chat"
	"github.com/TobiSchelling/joseph/internal/config"
	"github.com/TobiSchelling/joseph/internal/database"
	"github.com/TobiSchelling/joseph/internal/feasibility"
	"github.com/TobiSchelling/joseph/internal/llm"
	"github.com/TobiSchelling/joseph/internal/pipeline"
)

// modeResponder answers narrative requests with markdown and chat
// requests with a fixed line. It never answers the "tax-compliance" module.
type modeResponder struct{}

func (modeResponder) GenerateResponse(_ context.Context, _ []llm.Message, opts llm.Options) (string, bool) {
	if opts.ContextID == "tax-compliance" {
		return "", false
	}
	for _, m := range feasibility.Modes {
		if strings.Contains(opts.System, string(m)+" mode") {
			return "**" + string(m) + "** outlook", true
		}
	}
	return "assistant reply", true
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := config.Default()
	p := pipeline.NewWithResponder(cfg, db, modeResponder{})
	return New(cfg.Server, p)
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealthz(t *testing.T) {
	rec := do(t, newTestServer(t), "GET", "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestAnalyzeAndFetchReport(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, "POST", "/api/feasibility", `{"idea":"A SaaS app for gyms, loan at 9%"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	created := decode[reportView](t, rec)
	if !strings.HasPrefix(created.ID, "idea_") || len(created.Results) != 3 {
		t.Fatalf("unexpected report %+v", created)
	}
	if created.Inputs.InterestRate != 9 {
		t.Errorf("expected derived interest rate 9, got %v", created.Inputs.InterestRate)
	}

	// Narratives arrive asynchronously; poll until all three are attached.
	var got reportView
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec = do(t, srv, "GET", "/api/feasibility/"+created.ID, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		got = decode[reportView](t, rec)
		if len(got.NarrativeHTML) == 3 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if len(got.NarrativeHTML) != 3 {
		t.Fatalf("expected 3 narratives, got %v", got.NarrativeHTML)
	}
	if got.Results[feasibility.Safe].Narrative != "**Safe** outlook" {
		t.Errorf("unexpected narrative %q", got.Results[feasibility.Safe].Narrative)
	}
	if !strings.Contains(got.NarrativeHTML[feasibility.Safe], "<strong>Safe</strong>") {
		t.Errorf("expected rendered markdown, got %q", got.NarrativeHTML[feasibility.Safe])
	}

	list := decode[[]reportView](t, do(t, srv, "GET", "/api/feasibility", ""))
	if len(list) != 1 || list[0].ID != created.ID {
		t.Errorf("unexpected list %+v", list)
	}
}

func TestAnalyzeValidation(t *testing.T) {
	srv := newTestServer(t)
	if rec := do(t, srv, "POST", "/api/feasibility", `{"idea":"   "}`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty idea, got %d", rec.Code)
	}
	if rec := do(t, srv, "POST", "/api/feasibility", `not json`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad body, got %d", rec.Code)
	}
}

func TestReportNotFound(t *testing.T) {
	srv := newTestServer(t)
	for _, tc := range []struct{ method, path string }{
		{"GET", "/api/feasibility/missing"},
		{"DELETE", "/api/feasibility/missing"},
		{"GET", "/api/feasibility/missing/chat"},
	} {
		if rec := do(t, srv, tc.method, tc.path, ""); rec.Code != http.StatusNotFound {
			t.Errorf("%s %s: expected 404, got %d", tc.method, tc.path, rec.Code)
		}
	}
}

func TestDeleteReport(t *testing.T) {
	srv := newTestServer(t)
	created := decode[reportView](t, do(t, srv, "POST", "/api/feasibility", `{"idea":"Hardware shop"}`))

	if rec := do(t, srv, "DELETE", "/api/feasibility/"+created.ID, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec := do(t, srv, "GET", "/api/feasibility/"+created.ID, ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestScoreEndpoint(t *testing.T) {
	srv := newTestServer(t)
	body := `{"mode":"conservative","inputs":{"risk":50,"timeValue":6.5,"roiTime":18,"lengthTimeFactor":12,"interestRate":5}}`

	rec := do(t, srv, "POST", "/api/feasibility/score", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	got := decode[struct {
		Results map[feasibility.Mode]feasibility.ModeResult `json:"results"`
	}](t, rec)

	want := feasibility.ComputeFeasibility(feasibility.Conservative, feasibility.Inputs{
		Risk: 50, TimeValue: 6.5, ROITime: 18, LengthTimeFactor: 12, InterestRate: 5,
	})
	if len(got.Results) != 1 || got.Results[feasibility.Conservative] != want {
		t.Errorf("got %+v, want %+v", got.Results, want)
	}

	all := decode[struct {
		Results map[feasibility.Mode]feasibility.ModeResult `json:"results"`
	}](t, do(t, srv, "POST", "/api/feasibility/score", `{"inputs":{"risk":10}}`))
	if len(all.Results) != 3 {
		t.Errorf("expected all modes, got %d", len(all.Results))
	}

	clamped := decode[struct {
		Results map[feasibility.Mode]feasibility.ModeResult `json:"results"`
	}](t, do(t, srv, "POST", "/api/feasibility/score", `{"mode":"Safe","inputs":{"risk":-300,"timeValue":5,"roiTime":18,"lengthTimeFactor":12,"interestRate":-50}}`))
	if res := clamped.Results[feasibility.Safe]; res.PVFactor > 1 || res.Details.RiskPenalty != 0 || res.CombinedRate != 5 {
		t.Errorf("expected negative inputs clamped, got %+v", res)
	}

	if rec := do(t, srv, "POST", "/api/feasibility/score", `{"mode":"Reckless","inputs":{}}`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown mode, got %d", rec.Code)
	}
}

func TestReportChat(t *testing.T) {
	srv := newTestServer(t)
	created := decode[reportView](t, do(t, srv, "POST", "/api/feasibility", `{"idea":"Food truck"}`))

	rec := do(t, srv, "POST", "/api/feasibility/"+created.ID+"/chat", `{"content":"Biggest risk?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	reply := decode[llm.Message](t, rec)
	if reply.Content != "assistant reply" || reply.Role != llm.RoleAssistant {
		t.Errorf("unexpected reply %+v", reply)
	}

	history := decode[[]llm.Message](t, do(t, srv, "GET", "/api/feasibility/"+created.ID+"/chat", ""))
	if len(history) != 2 {
		t.Errorf("expected 2 messages, got %d", len(history))
	}

	if rec := do(t, srv, "POST", "/api/feasibility/"+created.ID+"/chat", `{"content":""}`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty content, got %d", rec.Code)
	}
}

func TestChatEndpoints(t *testing.T) {
	srv := newTestServer(t)

	contexts := decode[[]chat.ModuleContext](t, do(t, srv, "GET", "/api/chat/contexts", ""))
	if len(contexts) != len(chat.Contexts) {
		t.Errorf("expected %d contexts, got %d", len(chat.Contexts), len(contexts))
	}
	byRoute := decode[[]chat.ModuleContext](t, do(t, srv, "GET", "/api/chat/contexts?route=/business-feasibility/idea_1", ""))
	if len(byRoute) != 1 || byRoute[0].ID != "business-feasibility" {
		t.Errorf("unexpected route lookup %+v", byRoute)
	}

	history := decode[[]llm.Message](t, do(t, srv, "GET", "/api/chat/pricing-strategy", ""))
	if len(history) != 1 || !strings.HasPrefix(history[0].Content, "Welcome to Pricing Strategy") {
		t.Fatalf("expected welcome message, got %+v", history)
	}

	reply := decode[llm.Message](t, do(t, srv, "POST", "/api/chat/pricing-strategy", `{"content":"How should I price?"}`))
	if reply.Content != "assistant reply" {
		t.Errorf("unexpected reply %q", reply.Content)
	}

	fallback := decode[llm.Message](t, do(t, srv, "POST", "/api/chat/tax-compliance", `{"content":"VAT?"}`))
	if fallback.Content != chat.FallbackReply {
		t.Errorf("expected fallback reply, got %q", fallback.Content)
	}

	explained := decode[llm.Message](t, do(t, srv, "POST", "/api/chat/pricing-strategy/explain", `{"description":"Margin chart","data":{"margin":"32%"}}`))
	if explained.Content != "assistant reply" {
		t.Errorf("unexpected explain reply %q", explained.Content)
	}

	greeting := decode[llm.Message](t, do(t, srv, "DELETE", "/api/chat/pricing-strategy", ""))
	if !strings.HasPrefix(greeting.Content, "Hi! I'm Joseph") {
		t.Errorf("unexpected greeting %q", greeting.Content)
	}

	if rec := do(t, srv, "POST", "/api/chat/astrology", `{"content":"hi"}`); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown context, got %d", rec.Code)
	}
	if rec := do(t, srv, "POST", "/api/chat/pricing-strategy", `{"content":"  "}`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty message, got %d", rec.Code)
	}
}

func TestWebSocketChatAndNarratives(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	if err := conn.WriteJSON(wsRequest{Type: "message", Context: "loan-funding", Content: "Rates?"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var resp wsResponse
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read: %v", err)
	}
	if resp.Type != "response" || resp.Content != "assistant reply" || resp.Context != "loan-funding" {
		t.Errorf("unexpected response %+v", resp)
	}

	if err := conn.WriteJSON(wsRequest{Type: "bogus"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := conn.ReadJSON(&resp); err != nil || resp.Type != "error" {
		t.Errorf("expected error frame, got %+v, %v", resp, err)
	}

	// The client is registered now; narratives for a new report are pushed.
	res, err := http.Post(ts.URL+"/api/feasibility", "application/json", strings.NewReader(`{"idea":"Bakery"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	res.Body.Close()

	modes := map[string]bool{}
	for len(modes) < 3 {
		var frame wsResponse
		if err := conn.ReadJSON(&frame); err != nil {
			t.Fatalf("read narrative: %v", err)
		}
		if frame.Type != "narrative" || frame.ReportID == "" {
			t.Fatalf("unexpected frame %+v", frame)
		}
		modes[frame.Mode] = true
	}
}
