package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dshills/gatekeep/internal/auth"
	"github.com/dshills/gatekeep/internal/config"
	"github.com/dshills/gatekeep/internal/contacts"
	"github.com/dshills/gatekeep/internal/event"
	"github.com/dshills/gatekeep/internal/event/events"
	"github.com/dshills/gatekeep/internal/logging"
	"github.com/dshills/gatekeep/internal/profile"
	"github.com/dshills/gatekeep/internal/store"
)

func TestMain(m *testing.M) {
	logging.InitLogOutput(io.Discard)
	os.Exit(m.Run())
}

type fixture struct {
	t   *testing.T
	srv *httptest.Server
	bus *event.Bus

	mu     sync.Mutex
	events []event.Event
}

func (f *fixture) published() []event.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]event.Event(nil), f.events...)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := config.Default()
	cfg.Auth.TokenSecret = "0123456789abcdef0123"
	cfg.Auth.BcryptCost = bcrypt.MinCost
	cfg.Avatar.Size = 16

	b := event.NewBus()
	t.Cleanup(func() { _ = b.Close(context.Background()) })

	f := &fixture{t: t, bus: b}
	_, err := b.OnAny(event.WildcardFunc(func(_ context.Context, _ string, evt event.Event) error {
		f.mu.Lock()
		f.events = append(f.events, evt)
		f.mu.Unlock()
		return nil
	}))
	require.NoError(t, err)

	st := store.NewMemoryStore()
	s, err := NewServer(Deps{
		Bus:      b,
		Auth:     auth.NewService(st, b, cfg.Auth),
		Contacts: contacts.NewService(st, b, nil),
		Profile:  profile.NewService(st, b, cfg.Avatar, nil),
		Registry: prometheus.NewRegistry(),
	})
	require.NoError(t, err)

	f.srv = httptest.NewServer(s)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fixture) do(method, path, token string, body any) *http.Response {
	f.t.Helper()

	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		rd = bytes.NewReader(b)
	default:
		buf, err := json.Marshal(b)
		require.NoError(f.t, err)
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequest(method, f.srv.URL+path, rd)
	require.NoError(f.t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := f.srv.Client().Do(req)
	require.NoError(f.t, err)
	f.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (f *fixture) signup(email string) (userResponse, string) {
	f.t.Helper()

	resp := f.do(http.MethodPost, "/v1/register", "", credentialsRequest{Email: email, Password: "correct horse"})
	require.Equal(f.t, http.StatusCreated, resp.StatusCode)
	u := decode[userResponse](f.t, resp)

	resp = f.do(http.MethodPost, "/v1/login", "", credentialsRequest{Email: email, Password: "correct horse"})
	require.Equal(f.t, http.StatusOK, resp.StatusCode)
	return u, decode[loginResponse](f.t, resp).Token
}

func TestAPI_RegisterLogin(t *testing.T) {
	f := newFixture(t)

	u, token := f.signup("ada@example.com")
	assert.Equal(t, "ada@example.com", u.Email)
	assert.NotEmpty(t, token)

	resp := f.do(http.MethodPost, "/v1/register", "", credentialsRequest{Email: "ada@example.com", Password: "correct horse"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = f.do(http.MethodPost, "/v1/login", "", credentialsRequest{Email: "ada@example.com", Password: "nope nope"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = f.do(http.MethodPost, "/v1/register", "", []byte(`{"email": 1}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Events carry the request origin.
	published := f.published()
	require.NotEmpty(t, published)
	assert.NotEmpty(t, published[0].Metadata.SourceAddr)
	assert.NotEmpty(t, published[0].Metadata.CorrelationID)
}

func TestAPI_Authentication(t *testing.T) {
	f := newFixture(t)
	_, token := f.signup("ada@example.com")

	resp := f.do(http.MethodGet, "/v1/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("WWW-Authenticate"), "Bearer")

	resp = f.do(http.MethodGet, "/v1/profile", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = f.do(http.MethodGet, "/v1/profile", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ada@example.com", decode[userResponse](t, resp).Email)

	resp = f.do(http.MethodPost, "/v1/logout", token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.do(http.MethodGet, "/v1/profile", token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_Profile(t *testing.T) {
	f := newFixture(t)
	_, token := f.signup("ada@example.com")

	resp := f.do(http.MethodPut, "/v1/profile", token, profileRequest{DisplayName: "Ada", Bio: "Analyst"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Analyst", decode[userResponse](t, resp).Bio)

	resp = f.do(http.MethodGet, "/v1/profile/avatar", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 40, 20))))
	resp = f.do(http.MethodPut, "/v1/profile/avatar", token, buf.Bytes())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "png", decode[avatarResponse](t, resp).SourceFormat)

	resp = f.do(http.MethodGet, "/v1/profile/avatar", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	img, _, err := image.Decode(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, 16, img.Bounds().Dx())

	resp = f.do(http.MethodPut, "/v1/profile/avatar", token, []byte("not an image"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_Contacts(t *testing.T) {
	f := newFixture(t)
	_, token := f.signup("ada@example.com")
	bob, _ := f.signup("bob@example.com")

	resp := f.do(http.MethodPost, "/v1/contacts", token, contactRequest{ContactID: bob.ID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = f.do(http.MethodPost, "/v1/contacts", token, contactRequest{ContactID: bob.ID})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = f.do(http.MethodPost, "/v1/contacts/"+bob.ID+"/block", token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.do(http.MethodGet, "/v1/contacts", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[contactsResponse](t, resp)
	require.Len(t, list.Contacts, 1)
	assert.True(t, list.Contacts[0].Blocked)

	resp = f.do(http.MethodPost, "/v1/contacts/"+bob.ID+"/unblock", token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.do(http.MethodDelete, "/v1/contacts/"+bob.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.do(http.MethodDelete, "/v1/contacts/"+bob.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_PasswordReset(t *testing.T) {
	f := newFixture(t)
	f.signup("ada@example.com")

	resp := f.do(http.MethodPost, "/v1/password/reset-request", "", resetRequest{Email: "nobody@example.com"})
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp = f.do(http.MethodPost, "/v1/password/reset-request", "", resetRequest{Email: "ada@example.com"})
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	var token string
	for _, evt := range f.published() {
		if p, ok := events.Decode[events.UserPasswordResetRequested](evt); ok {
			token = p.Token
		}
	}
	require.NotEmpty(t, token)

	resp = f.do(http.MethodPost, "/v1/password/reset", "", resetRequest{Token: token, Password: "battery staple"})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.do(http.MethodPost, "/v1/login", "", credentialsRequest{Email: "ada@example.com", Password: "battery staple"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPI_ChangePasswordAndDelete(t *testing.T) {
	f := newFixture(t)
	_, token := f.signup("ada@example.com")

	resp := f.do(http.MethodPost, "/v1/password", token, changePasswordRequest{Current: "correct horse", New: "battery staple"})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.do(http.MethodDelete, "/v1/account", token, deleteAccountRequest{Password: "correct horse"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = f.do(http.MethodDelete, "/v1/account", token, deleteAccountRequest{Password: "battery staple"})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.do(http.MethodGet, "/v1/profile", token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_StatsAndMetrics(t *testing.T) {
	f := newFixture(t)
	f.signup("ada@example.com")

	resp := f.do(http.MethodGet, "/v1/stats", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats := decode[statsResponse](t, resp)
	assert.Equal(t, uint64(1), stats.PublishedByName["user:registered"])
	assert.Equal(t, 1, stats.WildcardCount)

	resp = f.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `gatekeep_rest_ops_total{code="201",route="Register"} 1`), string(body))
}

func TestRateLimiterMiddleware(t *testing.T) {
	h := rateLimiterMiddleware(0.001, 1)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer  abc ", "abc", true},
		{"Basic abc", "", false},
		{"Bearer", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", tt.header)
		got, ok := bearerToken(r)
		assert.Equal(t, tt.ok, ok, tt.header)
		assert.Equal(t, tt.want, got, tt.header)
	}
}
