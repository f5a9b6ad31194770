package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"qrpass/entity"
	"qrpass/impl/auth"
	"qrpass/impl/core"
	"qrpass/internal/config"
	"qrpass/internal/database"
	"qrpass/internal/provision"
	"qrpass/internal/redemption"
	"qrpass/lib/api/response"
	"qrpass/lib/clock"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	token        = "0123456789abcdef0123456789abcdef"
	unknownToken = "ffffffffffffffffffffffffffffffff"
	operatorKey  = "door-operator-key-0001"
)

var start = time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)

type fixture struct {
	router http.Handler
	store  *database.Memory
	clock  *clock.Manual
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	return &config.Config{
		Redemption: config.RedemptionConfig{
			IdempotencyWindow: redemption.DefaultIdempotencyWindow,
			RequestTimeout:    time.Second,
		},
	}
}

func newFixture(t *testing.T, operators []entity.Operator) *fixture {
	t.Helper()
	log := discardLogger()
	store := database.NewMemory()
	require.NoError(t, store.CreatePass(context.Background(), entity.NewPass(token, "Ada Lovelace", "", "", start.Add(-time.Hour))))

	clk := clock.NewManual(start)
	rs := redemption.New(store, clk, redemption.DefaultIdempotencyWindow, log)
	handler := core.New(rs, log)
	handler.SetAuthService(auth.New(operators))
	handler.SetHealthChecker(store)

	return &fixture{
		router: NewRouter(testConfig(), log, handler),
		store:  store,
		clock:  clk,
	}
}

func (f *fixture) do(t *testing.T, method, target string, body io.Reader, headers map[string]string) (*httptest.ResponseRecorder, response.Response) {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var resp response.Response
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	}
	return rec, resp
}

func TestPeek(t *testing.T) {
	f := newFixture(t, nil)

	rec, resp := f.do(t, http.MethodGet, "/api/peek?token="+token, nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Ok)
	assert.Equal(t, entity.CodeReady, resp.Code)
	assert.Equal(t, "Ada Lovelace", resp.Name)
	assert.Nil(t, resp.CheckedInAt)
	assert.Contains(t, rec.Header().Get("Cache-Control"), "no-cache")

	rec, resp = f.do(t, http.MethodGet, "/api/peek?token="+unknownToken, nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, resp.Ok)
	assert.Equal(t, entity.CodeNotFound, resp.Code)
	assert.Equal(t, "Invalid pass.", resp.Message)

	pass, err := f.store.GetPass(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusUnused, pass.Status)
}

func TestBadToken(t *testing.T) {
	f := newFixture(t, nil)

	rec, resp := f.do(t, http.MethodGet, "/api/peek", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.Ok)
	assert.Equal(t, "Missing token", resp.Message)

	rec, resp = f.do(t, http.MethodPost, "/api/check-in?token=not-a-token", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.True(t, strings.HasPrefix(resp.Message, "Invalid token"), resp.Message)

	rec, _ = f.do(t, http.MethodPost, "/api/check-in", strings.NewReader("{broken"), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckInFlow(t *testing.T) {
	f := newFixture(t, nil)

	rec, resp := f.do(t, http.MethodPost, "/api/check-in?token="+token, nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Ok)
	assert.Equal(t, entity.CodeCheckedIn, resp.Code)
	assert.Equal(t, "Ada Lovelace", resp.Name)
	require.NotNil(t, resp.CheckedInAt)
	assert.True(t, start.Equal(*resp.CheckedInAt))

	f.clock.Advance(2 * time.Second)
	_, resp = f.do(t, http.MethodPost, "/api/check-in", strings.NewReader(`{"token":"`+token+`"}`), nil)
	assert.True(t, resp.Ok)
	assert.Equal(t, entity.CodeCheckedIn, resp.Code)
	assert.True(t, start.Equal(*resp.CheckedInAt))

	f.clock.Advance(14 * time.Second)
	rec, resp = f.do(t, http.MethodPost, "/api/check-in?token="+token, nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, resp.Ok)
	assert.Equal(t, entity.CodeAlreadyUsed, resp.Code)
	assert.Equal(t, "This pass has already been used.", resp.Message)
	assert.Equal(t, "Ada Lovelace", resp.Name)
	assert.True(t, start.Equal(*resp.CheckedInAt))

	_, resp = f.do(t, http.MethodGet, "/api/peek?token="+token, nil, nil)
	assert.Equal(t, entity.CodeAlreadyUsed, resp.Code)
	assert.True(t, start.Equal(*resp.CheckedInAt))

	_, resp = f.do(t, http.MethodPost, "/api/check-in?token="+unknownToken, nil, nil)
	assert.False(t, resp.Ok)
	assert.Equal(t, entity.CodeNotFound, resp.Code)
}

func TestCheckInRejectsGet(t *testing.T) {
	f := newFixture(t, nil)

	rec, resp := f.do(t, http.MethodGet, "/api/check-in?token="+token, nil, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
	assert.False(t, resp.Ok)
	assert.Equal(t, "Use POST", resp.Message)

	pass, err := f.store.GetPass(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusUnused, pass.Status)
}

func TestInconsistentPass(t *testing.T) {
	f := newFixture(t, nil)
	f.store.Put(&entity.Pass{Token: unknownToken, Name: "Broken", Status: entity.StatusUsed, CreatedAt: start})

	rec, resp := f.do(t, http.MethodPost, "/api/check-in?token="+unknownToken, nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, resp.Ok)
	assert.Empty(t, resp.Code)
	assert.Equal(t, "Unknown state", resp.Message)
}

func TestResetPass(t *testing.T) {
	f := newFixture(t, []entity.Operator{{Name: "door", Key: operatorKey}})

	_, resp := f.do(t, http.MethodPost, "/api/check-in?token="+token, nil, nil)
	require.True(t, resp.Ok)

	rec, resp := f.do(t, http.MethodPost, "/api/reset-pass?token="+token, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, resp.Ok)

	rec, _ = f.do(t, http.MethodPost, "/api/reset-pass?token="+token, nil, map[string]string{"X-Operator-Key": "wrong-key-wrong-key"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, resp = f.do(t, http.MethodPost, "/api/reset-pass?token="+token, nil, map[string]string{"Authorization": "Bearer " + operatorKey})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Ok)
	assert.Equal(t, "Pass reset to unused", resp.Message)
	assert.Equal(t, "door", rec.Header().Get("X-Operator"))

	_, resp = f.do(t, http.MethodGet, "/api/peek?token="+token, nil, nil)
	assert.Equal(t, entity.CodeReady, resp.Code)

	_, resp = f.do(t, http.MethodPost, "/api/reset-pass", strings.NewReader(`{"token":"`+unknownToken+`"}`), map[string]string{"X-Operator-Key": operatorKey})
	assert.False(t, resp.Ok)
	assert.Equal(t, "Pass not found", resp.Message)
}

func TestResetPassOpenWithoutOperators(t *testing.T) {
	f := newFixture(t, nil)

	rec, resp := f.do(t, http.MethodPost, "/api/reset-pass?token="+token, nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Ok)
}

type brokenCore struct{}

func (brokenCore) AuthEnabled() bool { return false }

func (brokenCore) AuthenticateByKey(string) (*entity.Operator, error) {
	return nil, auth.ErrUnknownKey
}

func (brokenCore) Peek(context.Context, string) (*redemption.PeekResult, error) {
	return nil, errors.New("store down")
}

func (brokenCore) CheckIn(context.Context, string) (*redemption.CheckInResult, error) {
	return nil, errors.New("store down")
}

func (brokenCore) ResetPass(context.Context, string) (bool, error) {
	return false, errors.New("store down")
}

func (brokenCore) Health(context.Context) error {
	return errors.New("store down")
}

func TestStoreFailure(t *testing.T) {
	f := &fixture{router: NewRouter(testConfig(), discardLogger(), brokenCore{})}

	for _, tc := range []struct{ method, target string }{
		{http.MethodGet, "/api/peek?token=" + token},
		{http.MethodPost, "/api/check-in?token=" + token},
		{http.MethodPost, "/api/reset-pass?token=" + token},
	} {
		rec, resp := f.do(t, tc.method, tc.target, nil, nil)
		assert.Equal(t, http.StatusInternalServerError, rec.Code, tc.target)
		assert.False(t, resp.Ok)
		assert.Equal(t, "Server error", resp.Message)
	}

	rec, resp := f.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.False(t, resp.Ok)
}

func TestHealthPageAndUnknownRoutes(t *testing.T) {
	f := newFixture(t, nil)

	rec, resp := f.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Ok)

	rec, _ = f.do(t, http.MethodGet, "/p?token="+token, nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "/api/check-in")

	pass, err := f.store.GetPass(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusUnused, pass.Status, "serving the page must not consume the pass")

	rec, resp = f.do(t, http.MethodGet, "/api/unknown", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, resp.Ok)
}

func TestEndToEnd(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	outDir := t.TempDir()

	provisioner := provision.New(f.store, provision.NewQRRenderer(256), provision.Config{
		BaseURL: "http://localhost:3000/p?token=",
		OutDir:  outDir,
	}, discardLogger())
	report, err := provisioner.Run(ctx, []provision.Row{{Line: 2, Name: "Ada Lovelace"}})
	require.NoError(t, err)
	require.True(t, report.Ok())
	require.Len(t, report.Created, 1)

	created := report.Created[0]
	assert.FileExists(t, created.File)
	link, err := url.Parse(created.URL)
	require.NoError(t, err)
	issued := link.Query().Get("token")
	assert.Equal(t, created.Pass.Token, issued)

	_, resp := f.do(t, http.MethodGet, "/api/peek?token="+issued, nil, nil)
	assert.Equal(t, entity.CodeReady, resp.Code)
	assert.Equal(t, "Ada Lovelace", resp.Name)

	_, first := f.do(t, http.MethodPost, "/api/check-in?token="+issued, nil, nil)
	assert.True(t, first.Ok)
	assert.Equal(t, entity.CodeCheckedIn, first.Code)
	assert.Equal(t, "Ada Lovelace", first.Name)

	_, second := f.do(t, http.MethodPost, "/api/check-in?token="+issued, nil, nil)
	assert.True(t, second.Ok)
	assert.Equal(t, entity.CodeCheckedIn, second.Code)
	assert.True(t, first.CheckedInAt.Equal(*second.CheckedInAt))

	_, resp = f.do(t, http.MethodGet, "/api/peek?token="+issued, nil, nil)
	assert.Equal(t, entity.CodeAlreadyUsed, resp.Code)
}
