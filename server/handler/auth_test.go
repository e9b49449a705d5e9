package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/authflow/auth/flow"
	"github.com/kbukum/authflow/auth/oidc"
	"github.com/kbukum/authflow/auth/oidc/oidctest"
	"github.com/kbukum/authflow/auth/session"
	"github.com/kbukum/authflow/errors"
	"github.com/kbukum/authflow/httpclient"
	"github.com/kbukum/authflow/logger"
	"github.com/kbukum/authflow/server/handler"
)

const frontURL = "http://localhost:5173"

type env struct {
	provider *oidctest.Provider
	engine   *gin.Engine
}

func newEnv(t *testing.T, opts ...handler.Option) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	p := oidctest.New(t)
	reg, err := oidc.NewRegistry(map[string]oidc.ProviderConfig{"google": p.Config("google")})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	client, err := httpclient.New(httpclient.Config{Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("httpclient: %v", err)
	}
	keys := oidc.NewKeyResolver(reg, client, oidc.KeyResolverConfig{}, oidc.WithResolverLogger(logger.NewNop()))
	codec, err := session.NewCodec(session.Config{Secret: "0123456789abcdef0123456789abcdef"})
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	orch := flow.New(reg, oidc.NewVerifier(reg, keys, oidc.VerifierConfig{}), codec, flow.Config{},
		flow.WithLogger(logger.NewNop()),
		flow.WithExchanger(flow.OAuth2Exchanger{Client: client.Unwrap()}),
	)

	engine := gin.New()
	handler.NewAuthHandler(orch, handler.CookieConfig{}, frontURL+"/", logger.NewNop(), opts...).Register(engine)
	return &env{provider: p, engine: engine}
}

func (e *env) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.engine.ServeHTTP(rr, req)
	return rr
}

func findCookie(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func callbackRequest(form url.Values, cookies ...*http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/auth/google/callback", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func errorCodeOf(t *testing.T, rr *httptest.ResponseRecorder) errors.ErrorCode {
	t.Helper()
	var body errors.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not an error envelope: %v (%s)", err, rr.Body.String())
	}
	return body.Error.Code
}

func (e *env) login(t *testing.T) (state string, stateCookie *http.Cookie) {
	t.Helper()
	rr := e.do(httptest.NewRequest(http.MethodGet, "/auth/google", http.NoBody))
	if rr.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d: %s", rr.Code, rr.Body.String())
	}
	loc, err := url.Parse(rr.Header().Get("Location"))
	if err != nil {
		t.Fatalf("bad location: %v", err)
	}
	if !strings.HasPrefix(loc.String(), e.provider.URL()+"/authorize") {
		t.Errorf("expected redirect to provider, got %s", loc)
	}
	stateCookie = findCookie(rr, "authstate")
	if stateCookie == nil {
		t.Fatal("expected authstate cookie")
	}
	return loc.Query().Get("state"), stateCookie
}

func TestLoginSetsStateCookie(t *testing.T) {
	e := newEnv(t)
	state, c := e.login(t)

	if state == "" {
		t.Fatal("expected state in authorization url")
	}
	if !strings.HasPrefix(c.Value, state+".") {
		t.Errorf("expected cookie to carry the state, got %q", c.Value)
	}
	if !c.HttpOnly || !c.Secure || c.SameSite != http.SameSiteNoneMode {
		t.Errorf("unexpected cookie attributes %+v", c)
	}
	if c.Path != "/auth/google" {
		t.Errorf("expected path /auth/google, got %q", c.Path)
	}
	if c.MaxAge <= 0 || c.MaxAge > 600 {
		t.Errorf("expected max-age within the state ttl, got %d", c.MaxAge)
	}
}

func TestLoginUnknownProvider(t *testing.T) {
	e := newEnv(t)
	rr := e.do(httptest.NewRequest(http.MethodGet, "/auth/github", http.NoBody))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if code := errorCodeOf(t, rr); code != errors.ErrCodeNotFound {
		t.Errorf("expected NOT_FOUND, got %s", code)
	}
}

func TestCallbackCompletesLogin(t *testing.T) {
	e := newEnv(t)
	state, stateCookie := e.login(t)
	e.provider.SetCodeToken("code-1", e.provider.Sign(e.provider.Claims("user-1", "user-1@example.com")))

	rr := e.do(callbackRequest(url.Values{"code": {"code-1"}, "state": {state}}, stateCookie))
	if rr.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d: %s", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("Location"); got != frontURL+"/me" {
		t.Errorf("expected redirect to %s/me, got %s", frontURL, got)
	}
	if c := findCookie(rr, "authstate"); c == nil || c.MaxAge >= 0 {
		t.Errorf("expected state cookie to be deleted, got %+v", c)
	}

	session := findCookie(rr, "access_token")
	if session == nil || session.Value == "" {
		t.Fatal("expected access_token cookie")
	}
	if !session.HttpOnly || !session.Secure || session.Path != "/" {
		t.Errorf("unexpected session cookie %+v", session)
	}

	req := httptest.NewRequest(http.MethodGet, "/users/me", http.NoBody)
	req.AddCookie(session)
	me := e.do(req)
	if me.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", me.Code, me.Body.String())
	}
	var body map[string]string
	if err := json.Unmarshal(me.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["sub"] != "user-1" || body["email"] != "user-1@example.com" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestCallbackAcceptsQuery(t *testing.T) {
	e := newEnv(t)
	state, stateCookie := e.login(t)
	e.provider.SetCodeToken("code-q", e.provider.Sign(e.provider.Claims("user-2", "")))

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=code-q&state="+url.QueryEscape(state), http.NoBody)
	req.AddCookie(stateCookie)
	rr := e.do(req)
	if rr.Code != http.StatusFound || findCookie(rr, "access_token") == nil {
		t.Fatalf("expected completed login, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestCallbackWithoutStateCookie(t *testing.T) {
	e := newEnv(t)
	state, _ := e.login(t)
	e.provider.SetCodeToken("code-1", e.provider.Sign(e.provider.Claims("user-1", "")))

	rr := e.do(callbackRequest(url.Values{"code": {"code-1"}, "state": {state}}))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if code := errorCodeOf(t, rr); code != errors.ErrCodeStateMismatch {
		t.Errorf("expected STATE_MISMATCH, got %s", code)
	}
	if e.provider.TokenHits() != 0 {
		t.Errorf("expected no token exchange, got %d hits", e.provider.TokenHits())
	}
	if findCookie(rr, "access_token") != nil {
		t.Error("expected no session cookie")
	}
}

func TestCallbackCancelled(t *testing.T) {
	e := newEnv(t)
	state, stateCookie := e.login(t)

	rr := e.do(callbackRequest(url.Values{"state": {state}, "error": {"user_cancelled_authorize"}}, stateCookie))
	if rr.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rr.Code)
	}
	if got := rr.Header().Get("Location"); got != frontURL+"/" {
		t.Errorf("expected redirect to front root, got %s", got)
	}
	if e.provider.TokenHits() != 0 || e.provider.DiscoveryHits() != 0 {
		t.Error("expected no provider calls on cancel")
	}
}

func TestCallbackExchangeFailure(t *testing.T) {
	e := newEnv(t)
	state, stateCookie := e.login(t)
	e.provider.SetTokenStatus(http.StatusInternalServerError)

	rr := e.do(callbackRequest(url.Values{"code": {"code-1"}, "state": {state}}, stateCookie))
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rr.Code)
	}
	if code := errorCodeOf(t, rr); code != errors.ErrCodeTokenExchangeFailed {
		t.Errorf("expected TOKEN_EXCHANGE_FAILED, got %s", code)
	}
}

func TestMeRequiresSession(t *testing.T) {
	e := newEnv(t)

	rr := e.do(httptest.NewRequest(http.MethodGet, "/users/me", http.NoBody))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if code := errorCodeOf(t, rr); code != errors.ErrCodeUnauthorized {
		t.Errorf("expected UNAUTHORIZED, got %s", code)
	}

	req := httptest.NewRequest(http.MethodGet, "/users/me", http.NoBody)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: "not.a.jwt"})
	rr = e.do(req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a bad token, got %d", rr.Code)
	}
}

func TestLogout(t *testing.T) {
	e := newEnv(t)
	rr := e.do(httptest.NewRequest(http.MethodPost, "/logout", http.NoBody))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if strings.TrimSpace(rr.Body.String()) != `{"message":"Logout Success"}` {
		t.Errorf("unexpected body %s", rr.Body.String())
	}
	c := findCookie(rr, "access_token")
	if c == nil || c.MaxAge >= 0 || c.Value != "" {
		t.Errorf("expected session cookie to be cleared, got %+v", c)
	}
}

func TestInsecureCookies(t *testing.T) {
	gin.SetMode(gin.TestMode)
	stub := stubFlow{auth: &flow.Authorization{AttemptID: "a1", State: "s1", URL: "https://idp/authorize", ExpiresAt: time.Now().Add(time.Minute)}}
	engine := gin.New()
	handler.NewAuthHandler(stub, handler.CookieConfig{Insecure: true, StateName: "st"}, frontURL, logger.NewNop()).Register(engine)

	rr := httptest.NewRecorder()
	engine.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/auth/any", http.NoBody))
	c := findCookie(rr, "st")
	if c == nil {
		t.Fatal("expected custom state cookie name")
	}
	if c.Secure || c.SameSite != http.SameSiteLaxMode {
		t.Errorf("expected lax insecure cookie, got %+v", c)
	}
	if c.Value != "s1.a1" {
		t.Errorf("unexpected cookie value %q", c.Value)
	}
}
