package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/lupy1233/cozyhomeV1/internal/database"
	"github.com/lupy1233/cozyhomeV1/internal/models"
)

var errStoreDown = errors.New("store unavailable")

// memDirectory implements FirmUserStore and FirmStore over maps.
type memDirectory struct {
	mu    sync.Mutex
	firms map[string]*models.Firm
	users map[string]*models.FirmUser

	failLastLogin bool
	failLookup    bool
	creates       int
}

func newMemDirectory() *memDirectory {
	return &memDirectory{
		firms: make(map[string]*models.Firm),
		users: make(map[string]*models.FirmUser),
	}
}

func (m *memDirectory) GetActiveByEmail(_ context.Context, email string) (*models.FirmUser, *models.Firm, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failLookup {
		return nil, nil, errStoreDown
	}
	for _, u := range m.users {
		if u.Email == email && u.IsActive {
			return clone(u), cloneFirm(m.firms[u.FirmID]), nil
		}
	}
	return nil, nil, nil
}

func (m *memDirectory) GetWithFirm(_ context.Context, userID string) (*models.FirmUser, *models.Firm, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, nil, nil
	}
	return clone(u), cloneFirm(m.firms[u.FirmID]), nil
}

func (m *memDirectory) EmailExists(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *memDirectory) Create(_ context.Context, user *models.FirmUser) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	for _, u := range m.users {
		if u.Email == user.Email {
			return &database.DuplicateError{Field: "email"}
		}
	}
	m.users[user.ID] = clone(user)
	return nil
}

func (m *memDirectory) UpdateLastLogin(_ context.Context, userID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failLastLogin {
		return errStoreDown
	}
	if u, ok := m.users[userID]; ok {
		u.LastLogin = &at
	}
	return nil
}

func (m *memDirectory) ListByFirm(_ context.Context, firmID string) ([]*models.FirmUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.FirmUser
	for _, u := range m.users {
		if u.FirmID == firmID {
			out = append(out, clone(u))
		}
	}
	return out, nil
}

func (m *memDirectory) TaxIDExists(_ context.Context, taxID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.firms {
		if f.TaxID == taxID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memDirectory) CreateWithCEO(_ context.Context, firm *models.Firm, ceo *models.FirmUser) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.firms {
		if f.TaxID == firm.TaxID {
			return &database.DuplicateError{Field: "tax_id"}
		}
	}
	for _, u := range m.users {
		if u.Email == ceo.Email {
			return &database.DuplicateError{Field: "email"}
		}
	}
	m.firms[firm.ID] = cloneFirm(firm)
	m.users[ceo.ID] = clone(ceo)
	return nil
}

func (m *memDirectory) setFirmActive(firmID string, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.firms[firmID].IsActive = active
}

func (m *memDirectory) setUserActive(userID string, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[userID].IsActive = active
}

func (m *memDirectory) userCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

func (m *memDirectory) userByEmail(email string) *models.FirmUser {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return clone(u)
		}
	}
	return nil
}

func clone(u *models.FirmUser) *models.FirmUser {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

func cloneFirm(f *models.Firm) *models.Firm {
	if f == nil {
		return nil
	}
	c := *f
	c.Specialties = append([]string(nil), f.Specialties...)
	return &c
}

// memSessions implements SessionStore over a map keyed by token hash.
type memSessions struct {
	mu       sync.Mutex
	byHash   map[string]*models.Session
	failNext bool
	failGet  bool
	creates  int
}

func newMemSessions() *memSessions {
	return &memSessions{byHash: make(map[string]*models.Session)}
}

func (m *memSessions) Create(_ context.Context, session *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	if m.failNext {
		return errStoreDown
	}
	if _, ok := m.byHash[session.TokenHash]; ok {
		return &database.DuplicateError{Field: "session_token_hash"}
	}
	c := *session
	m.byHash[session.TokenHash] = &c
	return nil
}

func (m *memSessions) GetByTokenHash(_ context.Context, tokenHash string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet {
		return nil, errStoreDown
	}
	s, ok := m.byHash[tokenHash]
	if !ok {
		return nil, nil
	}
	c := *s
	return &c, nil
}

func (m *memSessions) Touch(_ context.Context, tokenHash string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.byHash[tokenHash]; ok {
		s.LastAccessed = at
	}
	return nil
}

func (m *memSessions) DeleteByTokenHash(_ context.Context, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byHash, tokenHash)
	return nil
}

func (m *memSessions) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for h, s := range m.byHash {
		if s.Expired(now) {
			delete(m.byHash, h)
			n++
		}
	}
	return n, nil
}

func (m *memSessions) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byHash)
}

func (m *memSessions) get(token string) *models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byHash[HashSessionToken(token)]
	if !ok {
		return nil
	}
	c := *s
	return &c
}

type auditCall struct {
	firmID, userID, action, target, ip string
}

type memAudit struct {
	mu    sync.Mutex
	calls []auditCall
}

func (a *memAudit) Log(_ context.Context, firmID, firmUserID, action, target string, _ any, ip string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, auditCall{firmID, firmUserID, action, target, ip})
	return nil
}

func (a *memAudit) last(action string) *auditCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := len(a.calls) - 1; i >= 0; i-- {
		if a.calls[i].action == action {
			c := a.calls[i]
			return &c
		}
	}
	return nil
}

func (a *memAudit) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.calls))
	for i, c := range a.calls {
		out[i] = c.action
	}
	return out
}

type memNotifier struct {
	mu    sync.Mutex
	firms []string
	err   error
}

func (n *memNotifier) FirmRegistered(_ context.Context, firm *models.Firm, _ *models.FirmUser) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.firms = append(n.firms, firm.ID)
	return n.err
}

// fakeClock is a settable clock for expiry tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
