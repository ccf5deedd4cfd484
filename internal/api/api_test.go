package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/lupy1233/cozyhomeV1/internal/auth"
	"github.com/lupy1233/cozyhomeV1/internal/database"
	"github.com/lupy1233/cozyhomeV1/internal/models"
)

type testServer struct {
	e     *echo.Echo
	firms *database.FirmRepo
}

func newTestServer(t *testing.T, limiter *auth.RateLimiter) *testServer {
	t.Helper()
	db, err := database.Open(database.Config{Driver: "sqlite", URL: filepath.Join(t.TempDir(), "api.db")})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	firms := database.NewFirmRepo(db)
	auditRepo := database.NewAuditRepo(db)
	svc := auth.NewService(database.NewFirmUserRepo(db), firms, database.NewSessionRepo(db),
		auth.NewHasher(4), zap.NewNop(), auth.WithAudit(auditRepo))

	if limiter == nil {
		limiter = auth.NewRateLimiter(600, 100)
	}
	e := echo.New()
	RegisterRoutes(e, NewHandlers(svc, auditRepo, auth.Cookies{}, zap.NewNop()), limiter)
	return &testServer{e: e, firms: firms}
}

func (s *testServer) do(t *testing.T, method, path string, body any, session *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		raw, ok := body.(string)
		if !ok {
			b, err := json.Marshal(body)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			raw = string(b)
		}
		req = httptest.NewRequest(method, path, strings.NewReader(raw))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if session != nil {
		req.AddCookie(&http.Cookie{Name: session.Name, Value: session.Value})
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) activate(t *testing.T, taxID string) {
	t.Helper()
	ctx := context.Background()
	firm, err := s.firms.GetByTaxID(ctx, taxID)
	if err != nil || firm == nil {
		t.Fatalf("GetByTaxID: %v %v", firm, err)
	}
	if err := s.firms.SetStatus(ctx, firm.ID, true, true, time.Now().UTC()); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return body
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookieName {
			return c
		}
	}
	return nil
}

var acmeRegistration = map[string]any{
	"firm": map[string]any{
		"company_name":  "Acme SRL",
		"company_email": "office@acme.ro",
		"tax_id":        "RO111",
		"county":        "Cluj",
		"city":          "Cluj-Napoca",
		"specialties":   []string{"kitchen", "wardrobe"},
	},
	"ceo": map[string]any{
		"email":      "a@acme.ro",
		"password":   "Passw0rd!",
		"first_name": "Ana",
		"last_name":  "Pop",
	},
}

func TestFirmPortalFlow(t *testing.T) {
	s := newTestServer(t, nil)
	ceoCreds := map[string]string{"email": "a@acme.ro", "password": "Passw0rd!"}

	rec := s.do(t, http.MethodPost, "/firm/register", acmeRegistration, nil)
	if rec.Code != http.StatusOK || decode(t, rec)["success"] != true {
		t.Fatalf("register: %d %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, http.MethodPost, "/firm/auth/login", ceoCreds, nil)
	if rec.Code != http.StatusUnauthorized || decode(t, rec)["error"] != auth.ErrFirmInactive.Error() {
		t.Fatalf("login before activation: %d %s", rec.Code, rec.Body.String())
	}
	if sessionCookie(rec) != nil {
		t.Fatalf("failed login set a session cookie")
	}

	s.activate(t, "RO111")

	rec = s.do(t, http.MethodPost, "/firm/auth/login", ceoCreds, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if user, _ := body["user"].(map[string]any); user["role"] != "ceo" {
		t.Fatalf("unexpected login body: %s", rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "password") || strings.Contains(rec.Body.String(), "tax_id") {
		t.Fatalf("login body leaked private fields: %s", rec.Body.String())
	}
	ceo := sessionCookie(rec)
	if ceo == nil || ceo.Value == "" || ceo.Path != "/firm" || !ceo.HttpOnly || ceo.SameSite != http.SameSiteLaxMode {
		t.Fatalf("unexpected session cookie: %+v", ceo)
	}

	rec = s.do(t, http.MethodGet, "/firm/auth/session", nil, ceo)
	if rec.Code != http.StatusOK {
		t.Fatalf("session: %d %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, http.MethodPost, "/firm/users", map[string]string{
		"email": "ion@acme.ro", "password": "Secret123", "first_name": "Ion", "last_name": "Ionescu",
	}, ceo)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create user: %d %s", rec.Code, rec.Body.String())
	}
	rec = s.do(t, http.MethodPost, "/firm/users", map[string]string{
		"email": "ion@acme.ro", "password": "Secret123", "first_name": "Ion", "last_name": "Ionescu",
	}, ceo)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate user: %d %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, http.MethodPost, "/firm/auth/login", map[string]string{"email": "ion@acme.ro", "password": "Secret123"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("employee login: %d %s", rec.Code, rec.Body.String())
	}
	employee := sessionCookie(rec)

	rec = s.do(t, http.MethodPost, "/firm/users", map[string]string{
		"email": "x@acme.ro", "password": "Secret123", "first_name": "X", "last_name": "Y",
	}, employee)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("employee creating users: %d", rec.Code)
	}
	if rec = s.do(t, http.MethodGet, "/firm/audit", nil, employee); rec.Code != http.StatusForbidden {
		t.Fatalf("employee reading audit: %d", rec.Code)
	}

	rec = s.do(t, http.MethodGet, "/firm/users", nil, employee)
	if rec.Code != http.StatusOK {
		t.Fatalf("list users: %d %s", rec.Code, rec.Body.String())
	}
	if users, _ := decode(t, rec)["users"].([]any); len(users) != 2 {
		t.Fatalf("expected 2 users, got %s", rec.Body.String())
	}

	rec = s.do(t, http.MethodGet, "/firm/audit?action="+models.ActionLogin, nil, ceo)
	if rec.Code != http.StatusOK {
		t.Fatalf("audit: %d %s", rec.Code, rec.Body.String())
	}
	if total, _ := decode(t, rec)["total"].(float64); total != 2 {
		t.Fatalf("expected 2 login entries, got %s", rec.Body.String())
	}

	rec = s.do(t, http.MethodPost, "/firm/auth/logout", nil, ceo)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout: %d %s", rec.Code, rec.Body.String())
	}
	if cleared := sessionCookie(rec); cleared == nil || cleared.MaxAge >= 0 {
		t.Fatalf("logout did not clear the cookie: %+v", cleared)
	}

	rec = s.do(t, http.MethodGet, "/firm/auth/session", nil, ceo)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("session after logout: %d", rec.Code)
	}
	if cleared := sessionCookie(rec); cleared == nil || cleared.MaxAge >= 0 {
		t.Fatalf("stale cookie not cleared: %+v", cleared)
	}

	if rec = s.do(t, http.MethodPost, "/firm/auth/logout", nil, ceo); rec.Code != http.StatusOK {
		t.Fatalf("second logout: %d", rec.Code)
	}

	rec = s.do(t, http.MethodPost, "/firm/auth/login", ceoCreds, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("second login: %d %s", rec.Code, rec.Body.String())
	}
	ceo = sessionCookie(rec)

	rec = s.do(t, http.MethodGet, "/firm/audit?action="+models.ActionLogout, nil, ceo)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout audit: %d %s", rec.Code, rec.Body.String())
	}
	body = decode(t, rec)
	logs, _ := body["logs"].([]any)
	if total, _ := body["total"].(float64); total != 1 || len(logs) != 1 {
		t.Fatalf("expected 1 logout entry, got %s", rec.Body.String())
	}
	if entry, _ := logs[0].(map[string]any); entry["firm_user_id"] == nil || entry["firm_id"] == nil {
		t.Fatalf("logout entry missing owner: %s", rec.Body.String())
	}

	rec = s.do(t, http.MethodGet, "/firm/audit?action="+models.ActionUserCreate, nil, ceo)
	logs, _ = decode(t, rec)["logs"].([]any)
	if len(logs) != 1 {
		t.Fatalf("expected 1 user create entry, got %s", rec.Body.String())
	}
	if entry, _ := logs[0].(map[string]any); entry["ip_address"] != "192.0.2.1" {
		t.Fatalf("user create entry ip: %s", rec.Body.String())
	}
}

func TestLoginBadRequests(t *testing.T) {
	s := newTestServer(t, nil)

	cases := []struct {
		name string
		body any
		code int
	}{
		{"malformed json", `{"email":`, http.StatusBadRequest},
		{"missing password", map[string]string{"email": "a@acme.ro"}, http.StatusBadRequest},
		{"blank email", map[string]string{"email": "  ", "password": "x"}, http.StatusBadRequest},
		{"unknown user", map[string]string{"email": "nobody@acme.ro", "password": "Passw0rd!"}, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/firm/auth/login", tc.body, nil)
			if rec.Code != tc.code {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tc.code, rec.Body.String())
			}
			if decode(t, rec)["success"] != false {
				t.Fatalf("failure body must carry success=false")
			}
		})
	}
}

func TestRegisterRejections(t *testing.T) {
	s := newTestServer(t, nil)

	noSpecialties := map[string]any{
		"firm": map[string]any{
			"company_name": "Beta SRL", "company_email": "office@beta.ro", "tax_id": "RO222",
			"county": "Iasi", "city": "Iasi", "specialties": []string{},
		},
		"ceo": acmeRegistration["ceo"],
	}
	rec := s.do(t, http.MethodPost, "/firm/register", noSpecialties, nil)
	if rec.Code != http.StatusBadRequest || decode(t, rec)["error"] != "select at least one specialty" {
		t.Fatalf("no specialties: %d %s", rec.Code, rec.Body.String())
	}

	if rec = s.do(t, http.MethodPost, "/firm/register", acmeRegistration, nil); rec.Code != http.StatusOK {
		t.Fatalf("register: %d %s", rec.Code, rec.Body.String())
	}
	rec = s.do(t, http.MethodPost, "/firm/register", acmeRegistration, nil)
	if rec.Code != http.StatusBadRequest || decode(t, rec)["error"] != auth.ErrTaxIDTaken.Error() {
		t.Fatalf("duplicate tax id: %d %s", rec.Code, rec.Body.String())
	}
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	s := newTestServer(t, nil)
	for _, path := range []string{"/firm/users", "/firm/audit", "/firm/auth/session"} {
		if rec := s.do(t, http.MethodGet, path, nil, nil); rec.Code != http.StatusUnauthorized {
			t.Fatalf("GET %s without session: %d", path, rec.Code)
		}
	}
}

func TestLoginRateLimited(t *testing.T) {
	s := newTestServer(t, auth.NewRateLimiter(1, 1))
	creds := map[string]string{"email": "nobody@acme.ro", "password": "x"}

	if rec := s.do(t, http.MethodPost, "/firm/auth/login", creds, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("first attempt: %d", rec.Code)
	}
	rec := s.do(t, http.MethodPost, "/firm/auth/login", creds, nil)
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") == "" {
		t.Fatalf("second attempt: %d %v", rec.Code, rec.Header())
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(t, http.MethodGet, "/health", nil, nil)
	if rec.Code != http.StatusOK || decode(t, rec)["status"] != "ok" {
		t.Fatalf("health: %d %s", rec.Code, rec.Body.String())
	}
}
