package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"vanguardd/internal/manager"
	"vanguardd/internal/orchestrator"
	"vanguardd/internal/retrieval"
	"vanguardd/internal/store"
	"vanguardd/pkg/types"
)

type fakeEngine struct {
	ready    bool
	health   types.HealthResponse
	out      string
	err      error
	calls    int
	lastOpts manager.GenOptions
	lastMsgs []types.ChatMessage
}

func (f *fakeEngine) Ready() bool                  { return f.ready }
func (f *fakeEngine) Health() types.HealthResponse { return f.health }
func (f *fakeEngine) Complete(ctx context.Context, msgs []types.ChatMessage, opts manager.GenOptions) (string, error) {
	f.calls++
	f.lastMsgs = msgs
	f.lastOpts = opts
	return f.out, f.err
}

type fakeSearch struct {
	query string
	k     int
	calls int
	out   retrieval.Context
}

func (f *fakeSearch) Search(ctx context.Context, query string, k int) retrieval.Context {
	f.calls++
	f.query = query
	f.k = k
	return f.out
}

type fakeGen struct {
	profile orchestrator.Profile
	req     orchestrator.Request
	rctx    retrieval.Context
	calls   int
	res     orchestrator.Result
	err     error
}

func (f *fakeGen) Profile() orchestrator.Profile { return f.profile }
func (f *fakeGen) Generate(ctx context.Context, req orchestrator.Request, rctx retrieval.Context) (orchestrator.Result, error) {
	f.calls++
	f.req = req
	f.rctx = rctx
	return f.res, f.err
}

type fixture struct {
	engine *fakeEngine
	store  *store.Store
	search *fakeSearch
	guide  *fakeGen
	expert *fakeGen
	srv    *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	f := &fixture{
		engine: &fakeEngine{ready: true, health: types.HealthResponse{Status: "ok", GPUName: "None"}},
		store:  st,
		search: &fakeSearch{},
		guide:  &fakeGen{profile: orchestrator.GuideProfile(), res: orchestrator.Result{Stage: orchestrator.StageDone, Origin: orchestrator.StagePrimary, Text: "the guide"}},
		expert: &fakeGen{profile: orchestrator.ExpertProfile(), res: orchestrator.Result{Stage: orchestrator.StageDone, Origin: orchestrator.StagePrimary, Text: "the answer"}},
	}
	f.srv = httptest.NewServer(NewMux(&Server{
		Engine: f.engine,
		Store:  f.store,
		Search: f.search,
		Guide:  f.guide,
		Expert: f.expert,
		Log:    zerolog.Nop(),
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fixture) postJSON(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(f.srv.URL+path, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("post %s: %v", path, err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return v
}

func TestHealthEndpoint(t *testing.T) {
	f := newFixture(t)
	f.engine.health = types.HealthResponse{Status: "ok", GPU: true, GPUName: "RTX 3080", ModelLoaded: true}

	resp, err := http.Get(f.srv.URL + "/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	hr := decodeBody[types.HealthResponse](t, resp)
	if !hr.GPU || hr.GPUName != "RTX 3080" || !hr.ModelLoaded {
		t.Fatalf("unexpected health: %+v", hr)
	}
}

func TestReadyz(t *testing.T) {
	f := newFixture(t)
	resp, err := http.Get(f.srv.URL + "/readyz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ready status = %d", resp.StatusCode)
	}

	f.engine.ready = false
	resp, err = http.Get(f.srv.URL + "/readyz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("loading status = %d", resp.StatusCode)
	}
}

func TestChatCompletionsDefaults(t *testing.T) {
	f := newFixture(t)
	f.engine.out = "a haiku"

	resp := f.postJSON(t, "/v1/chat/completions", types.ChatCompletionRequest{
		Messages: []types.ChatMessage{{Role: types.RoleUser, Content: "write a haiku"}},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	out := decodeBody[types.ChatCompletionResponse](t, resp)
	if !strings.HasPrefix(out.ID, "chatcmpl-") || out.Object != "chat.completion" {
		t.Fatalf("unexpected envelope: %+v", out)
	}
	if len(out.Choices) != 1 || out.Choices[0].Message.Content != "a haiku" || out.Choices[0].FinishReason != "stop" {
		t.Fatalf("unexpected choices: %+v", out.Choices)
	}
	if f.engine.lastOpts.Temperature != 0.7 || f.engine.lastOpts.MaxTokens != 1024 {
		t.Fatalf("defaults not applied: %+v", f.engine.lastOpts)
	}
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func TestChatCompletionsPassesOptions(t *testing.T) {
	f := newFixture(t)
	resp := f.postJSON(t, "/v1/chat/completions", types.ChatCompletionRequest{
		Messages:    []types.ChatMessage{{Role: types.RoleUser, Content: "q"}},
		Temperature: floatPtr(0.2),
		MaxTokens:   intPtr(64),
	})
	resp.Body.Close()
	if f.engine.lastOpts.Temperature != 0.2 || f.engine.lastOpts.MaxTokens != 64 {
		t.Fatalf("options not forwarded: %+v", f.engine.lastOpts)
	}
}

func TestChatCompletionsExplicitZeroTemperature(t *testing.T) {
	f := newFixture(t)
	resp := f.postJSON(t, "/v1/chat/completions", types.ChatCompletionRequest{
		Messages:    []types.ChatMessage{{Role: types.RoleUser, Content: "q"}},
		Temperature: floatPtr(0),
	})
	resp.Body.Close()
	if f.engine.lastOpts.Temperature != 0 {
		t.Fatalf("explicit temperature 0 must not default to 0.7, got %v", f.engine.lastOpts.Temperature)
	}
	if f.engine.lastOpts.MaxTokens != 1024 {
		t.Fatalf("omitted max_tokens must default, got %d", f.engine.lastOpts.MaxTokens)
	}
}

func TestChatCompletionsValidation(t *testing.T) {
	f := newFixture(t)

	resp := f.postJSON(t, "/v1/chat/completions", types.ChatCompletionRequest{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty messages: status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	r, err := http.Post(f.srv.URL+"/v1/chat/completions", "text/plain", strings.NewReader("hi"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	r.Body.Close()
	if r.StatusCode != http.StatusUnsupportedMediaType {
		t.Fatalf("wrong content type: status = %d", r.StatusCode)
	}

	r, err = http.Post(f.srv.URL+"/v1/chat/completions", "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	r.Body.Close()
	if r.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid JSON: status = %d", r.StatusCode)
	}
}

func TestChatCompletionsModelUnavailable(t *testing.T) {
	f := newFixture(t)
	f.engine.err = manager.ErrModelUnavailable("model not loaded")

	resp := f.postJSON(t, "/v1/chat/completions", types.ChatCompletionRequest{
		Messages: []types.ChatMessage{{Role: types.RoleUser, Content: "q"}},
	})
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	er := decodeBody[types.ErrorResponse](t, resp)
	if !strings.Contains(er.Error, "Brain is still initializing") {
		t.Fatalf("unexpected error payload: %+v", er)
	}
}

func TestGenerateGuide(t *testing.T) {
	f := newFixture(t)
	f.search.out = retrieval.Context{{Title: "Wiki", Body: "steps"}}

	resp := f.postJSON(t, "/generate_guide", types.GuideRequest{Game: "Elden Ring", Achievement: "Legendary Armaments"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	out := decodeBody[types.GuideResponse](t, resp)
	if out.Guide != "the guide" {
		t.Fatalf("unexpected guide: %q", out.Guide)
	}
	if f.search.query != "Elden Ring Legendary Armaments achievement guide" || f.search.k != 3 {
		t.Fatalf("unexpected search: %q k=%d", f.search.query, f.search.k)
	}
	if f.guide.req.Game != "Elden Ring" || f.guide.req.Input != "Legendary Armaments" {
		t.Fatalf("unexpected generator request: %+v", f.guide.req)
	}
	if len(f.guide.rctx) != 1 {
		t.Fatalf("retrieved context not forwarded")
	}
}

func TestGenerateGuideNotReady(t *testing.T) {
	f := newFixture(t)
	f.engine.ready = false

	resp := f.postJSON(t, "/generate_guide", types.GuideRequest{Game: "g", Achievement: "a"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if f.search.calls != 0 || f.guide.calls != 0 {
		t.Fatalf("no downstream work when the model is not ready")
	}
}

func TestGenerateGuideValidation(t *testing.T) {
	f := newFixture(t)
	resp := f.postJSON(t, "/generate_guide", types.GuideRequest{Game: " ", Achievement: ""})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestGenerateGuideChainFailure(t *testing.T) {
	f := newFixture(t)
	f.guide.res = orchestrator.Result{Stage: orchestrator.StageFailed}
	f.guide.err = orchestrator.ErrChain(
		manager.ErrInference(context.DeadlineExceeded),
		manager.ErrModelUnavailable("gone"),
	)

	resp := f.postJSON(t, "/generate_guide", types.GuideRequest{Game: "g", Achievement: "a"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestAskExpertRequiresSession(t *testing.T) {
	f := newFixture(t)
	resp := f.postJSON(t, "/ask_expert", types.ExpertRequest{Game: "g", Question: "q"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	er := decodeBody[types.ErrorResponse](t, resp)
	if !strings.Contains(er.Error, "session_id") {
		t.Fatalf("unexpected error payload: %+v", er)
	}
	if f.expert.calls != 0 {
		t.Fatalf("generator must not run without a session")
	}
}

func TestAskExpertUnknownSession(t *testing.T) {
	f := newFixture(t)
	resp := f.postJSON(t, "/ask_expert", types.ExpertRequest{Game: "g", Question: "q", SessionID: "ghost"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if f.expert.calls != 0 {
		t.Fatalf("generator must not run for an unknown session")
	}
}

func TestAskExpertFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.store.CreateSession(ctx, "s1", "Elden Ring", "New Session"); err != nil {
		t.Fatalf("create session: %v", err)
	}

	resp := f.postJSON(t, "/ask_expert", types.ExpertRequest{
		Game:      "Elden Ring",
		Question:  "Where is the first boss?",
		SessionID: "s1",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	out := decodeBody[types.ExpertResponse](t, resp)
	if out.Answer != "the answer" {
		t.Fatalf("unexpected answer: %q", out.Answer)
	}
	if f.search.query != "Elden Ring Where is the first boss? guide walkthrough" || f.search.k != 4 {
		t.Fatalf("unexpected search: %q k=%d", f.search.query, f.search.k)
	}

	msgs, err := f.store.ListMessages(ctx, "s1")
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected user+assistant messages, got %d", len(msgs))
	}
	if msgs[0].Role != types.RoleUser || msgs[0].Content != "Where is the first boss?" {
		t.Fatalf("unexpected first message: %+v", msgs[0])
	}
	if msgs[1].Role != types.RoleAssistant || msgs[1].Content != "the answer" {
		t.Fatalf("unexpected second message: %+v", msgs[1])
	}

	sessions, err := f.store.ListSessions(ctx, "Elden Ring")
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if sessions[0].Title != "Where is the first boss?" {
		t.Fatalf("auto-title not applied: %q", sessions[0].Title)
	}
}

func TestAskExpertFailureKeepsUserTurnOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.store.CreateSession(ctx, "s1", "g", "New Session"); err != nil {
		t.Fatalf("create session: %v", err)
	}
	f.expert.res = orchestrator.Result{Stage: orchestrator.StageFailed}
	f.expert.err = orchestrator.ErrChain(context.DeadlineExceeded, manager.ErrModelUnavailable("gone"))

	resp := f.postJSON(t, "/ask_expert", types.ExpertRequest{Game: "g", Question: "q", SessionID: "s1"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	msgs, err := f.store.ListMessages(ctx, "s1")
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Role != types.RoleUser {
		t.Fatalf("failed turn must persist the user message only, got %+v", msgs)
	}
}

func TestSessionEndpoints(t *testing.T) {
	f := newFixture(t)

	resp := f.postJSON(t, "/expert/sessions", types.SessionCreateRequest{ID: "s1", Game: "Hades", Title: "New Chat"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	ok := decodeBody[types.StatusOK](t, resp)
	if ok.Status != "ok" {
		t.Fatalf("unexpected ack: %+v", ok)
	}

	// Duplicate create is tolerated.
	resp = f.postJSON(t, "/expert/sessions", types.SessionCreateRequest{ID: "s1", Game: "Hades", Title: "Other"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("duplicate create status = %d", resp.StatusCode)
	}

	r, err := http.Get(f.srv.URL + "/expert/sessions/Hades")
	if err != nil {
		t.Fatalf("get sessions: %v", err)
	}
	sessions := decodeBody[[]types.Session](t, r)
	if len(sessions) != 1 || sessions[0].ID != "s1" || sessions[0].Title != "New Chat" {
		t.Fatalf("unexpected sessions: %+v", sessions)
	}

	r, err = http.Get(f.srv.URL + "/expert/messages/s1")
	if err != nil {
		t.Fatalf("get messages: %v", err)
	}
	msgs := decodeBody[[]types.Message](t, r)
	if len(msgs) != 0 {
		t.Fatalf("expected empty history, got %+v", msgs)
	}
}

func TestSessionCreateValidation(t *testing.T) {
	f := newFixture(t)
	resp := f.postJSON(t, "/expert/sessions", types.SessionCreateRequest{ID: "", Game: "Hades"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}
