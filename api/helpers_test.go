package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/skillarena/backend/config"
	"github.com/skillarena/backend/database"
	"github.com/skillarena/backend/errs"
	"github.com/skillarena/backend/lifecycle"
	"github.com/skillarena/backend/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testSecret      = "test-secret-that-is-at-least-32-bytes"
	testBackendKey  = "backend-key"
	testAllowOrigin = "https://skillarena.test"
)

type stubProvider struct {
	mu      sync.Mutex
	intents map[string]lifecycle.Intent
	seq     int
}

func (p *stubProvider) CreateIntent(_ context.Context, contestID, userID uuid.UUID, amount decimal.Decimal, currency string) (lifecycle.Intent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	in := lifecycle.Intent{
		Reference:    fmt.Sprintf("pi_%d", p.seq),
		ClientSecret: fmt.Sprintf("pi_%d_secret", p.seq),
		Amount:       amount,
		Currency:     currency,
		ContestID:    contestID,
		UserID:       userID,
		State:        lifecycle.IntentAuthorized,
	}
	p.intents[in.Reference] = in
	return in, nil
}

func (p *stubProvider) Lookup(_ context.Context, ref string) (lifecycle.Intent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	in, ok := p.intents[ref]
	if !ok {
		return lifecycle.Intent{}, errs.NewNotFound("payment intent")
	}
	return in, nil
}

func (p *stubProvider) Capture(_ context.Context, ref string) (lifecycle.Intent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	in := p.intents[ref]
	in.State = lifecycle.IntentCaptured
	p.intents[ref] = in
	return in, nil
}

func (p *stubProvider) Release(_ context.Context, ref string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	in := p.intents[ref]
	in.State = lifecycle.IntentFailed
	p.intents[ref] = in
	return nil
}

type testServer struct {
	t        *testing.T
	handler  http.Handler
	db       database.Database
	manager  *lifecycle.Manager
	provider *stubProvider
	now      time.Time
}

func newTestServer(t *testing.T, opts ...RouterOption) *testServer {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", filepath.Join(t.TempDir(), "api.db"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	db := database.New(gdb)
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	ts := &testServer{
		t:        t,
		db:       db,
		provider: &stubProvider{intents: make(map[string]lifecycle.Intent)},
		now:      time.Now().UTC(),
	}
	ts.manager = lifecycle.NewManager(db.ContestStore(), lifecycle.WithPaymentProvider(ts.provider))

	cfg := config.Config{
		AcceptedOrigins: []string{testAllowOrigin},
		Auth: config.Auth{
			JWTSecret:       testSecret,
			JWTTTL:          time.Hour,
			BackendPassword: testBackendKey,
		},
	}
	opts = append([]RouterOption{withConfig(cfg), withStartupTime(ts.now)}, opts...)
	ts.handler = newRouter(db, ts.manager, opts...)
	return ts
}

type call struct {
	method  string
	path    string
	body    any
	token   string
	headers map[string]string
}

func (ts *testServer) do(c call) *httptest.ResponseRecorder {
	ts.t.Helper()
	var buf bytes.Buffer
	if c.body != nil {
		if err := json.NewEncoder(&buf).Encode(c.body); err != nil {
			ts.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(c.method, c.path, &buf)
	if c.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) expect(rec *httptest.ResponseRecorder, status int, out any) {
	ts.t.Helper()
	if rec.Code != status {
		ts.t.Fatalf("expected status %d, got %d: %s", status, rec.Code, rec.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			ts.t.Fatalf("decode response: %v: %s", err, rec.Body.String())
		}
	}
}

func (ts *testServer) expectKind(rec *httptest.ResponseRecorder, status int, kind string) ErrorResponse {
	ts.t.Helper()
	var resp ErrorResponse
	ts.expect(rec, status, &resp)
	if resp.Kind != kind {
		ts.t.Fatalf("expected kind %s, got %s (%s)", kind, resp.Kind, resp.Error)
	}
	return resp
}

// signUp registers a user, gives it role, and returns it with a token.
func (ts *testServer) signUp(name string, role models.Role) (models.User, string) {
	ts.t.Helper()
	var u models.User
	ts.expect(ts.do(call{method: http.MethodPost, path: "/users", body: registerUserRequest{
		Name:  name,
		Email: name + "@example.com",
	}}), http.StatusCreated, &u)

	if role != models.RoleUser {
		updated, err := ts.db.UserRepo().SetRole(context.Background(), u.ID, role)
		if err != nil {
			ts.t.Fatalf("set role: %v", err)
		}
		u = updated
	}

	var tok tokenResponse
	ts.expect(ts.do(call{
		method:  http.MethodPost,
		path:    "/auth/jwt",
		body:    tokenRequest{Email: u.Email},
		headers: map[string]string{"X-Backend-Key": testBackendKey},
	}), http.StatusOK, &tok)
	return u, tok.Token
}

func (ts *testServer) contestBody(price string) contestRequest {
	return contestRequest{
		Name:            "Poster Jam",
		Description:     "Design a poster for a jazz night",
		TaskInstruction: "Upload a PDF link",
		Image:           "https://img.example.com/poster.png",
		Type:            "Graphic Design",
		Price:           decimal.NewNullDecimal(decimal.RequireFromString(price)),
		PrizeMoney:      decimal.NewNullDecimal(decimal.RequireFromString("250")),
		Deadline:        ts.now.Add(72 * time.Hour).Format(time.RFC3339),
	}
}

// approvedContest creates a contest as creator and approves it as admin.
func (ts *testServer) approvedContest(creatorToken, adminToken, price string) models.Contest {
	ts.t.Helper()
	var c models.Contest
	ts.expect(ts.do(call{method: http.MethodPost, path: "/contests", body: ts.contestBody(price), token: creatorToken}), http.StatusCreated, &c)
	ts.expect(ts.do(call{
		method: http.MethodPatch,
		path:   "/contests/" + c.ID.String() + "/status",
		body:   statusRequest{Status: "approved"},
		token:  adminToken,
	}), http.StatusOK, &c)
	return c
}
