package auth

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lupy1233/cozyhomeV1/internal/metrics"
	"github.com/lupy1233/cozyhomeV1/internal/models"
)

// DefaultSessionTTL is how long a session lives from issuance.
const DefaultSessionTTL = 8 * time.Hour

// FirmUserStore is the credential store as seen by the authenticator.
// Lookups return nils when nothing matches.
type FirmUserStore interface {
	GetActiveByEmail(ctx context.Context, email string) (*models.FirmUser, *models.Firm, error)
	GetWithFirm(ctx context.Context, userID string) (*models.FirmUser, *models.Firm, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, user *models.FirmUser) error
	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error
	ListByFirm(ctx context.Context, firmID string) ([]*models.FirmUser, error)
}

// FirmStore persists firms.
type FirmStore interface {
	TaxIDExists(ctx context.Context, taxID string) (bool, error)
	CreateWithCEO(ctx context.Context, firm *models.Firm, ceo *models.FirmUser) error
}

// SessionStore persists sessions keyed by token hash. GetByTokenHash
// returns nil when nothing matches; deleting a missing session is not an
// error.
type SessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error)
	Touch(ctx context.Context, tokenHash string, at time.Time) error
	DeleteByTokenHash(ctx context.Context, tokenHash string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// AuditLogger records authentication events. Failures never fail the
// operation being audited.
type AuditLogger interface {
	Log(ctx context.Context, firmID, firmUserID, action, target string, details any, ipAddress string) error
}

// RegistrationNotifier is told about every new firm so the back office can
// review it.
type RegistrationNotifier interface {
	FirmRegistered(ctx context.Context, firm *models.Firm, ceo *models.FirmUser) error
}

// ClientInfo describes where a request came from.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

// LoginResult is a fresh session: the bearer token for the cookie and the
// descriptor for the response body.
type LoginResult struct {
	Token   string
	Session *models.FirmSession
}

// Service authenticates firm users and manages their sessions. It holds no
// per-request state and is safe for concurrent use.
type Service struct {
	users    FirmUserStore
	firms    FirmStore
	sessions SessionStore
	hasher   *Hasher
	log      *zap.Logger
	audit    AuditLogger
	notifier RegistrationNotifier

	// dummyHash is compared against when the email is unknown so that
	// response time does not reveal which accounts exist.
	dummyHash string

	ttl                time.Duration
	uniformLoginErrors bool
	minPasswordLength  int
	now                func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithSessionTTL overrides the 8h session lifetime.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithUniformLoginErrors reports an inactive firm as invalid credentials.
func WithUniformLoginErrors(enabled bool) Option {
	return func(s *Service) { s.uniformLoginErrors = enabled }
}

// WithMinPasswordLength overrides the minimum of 8 characters.
func WithMinPasswordLength(n int) Option {
	return func(s *Service) {
		if n > 0 && n <= maxPasswordBytes {
			s.minPasswordLength = n
		}
	}
}

// WithAudit records events through a.
func WithAudit(a AuditLogger) Option {
	return func(s *Service) {
		if a != nil {
			s.audit = a
		}
	}
}

// WithNotifier announces registrations through n.
func WithNotifier(n RegistrationNotifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new auth service
func NewService(users FirmUserStore, firms FirmStore, sessions SessionStore, hasher *Hasher, log *zap.Logger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if hasher == nil {
		hasher = NewHasher(0)
	}
	s := &Service{
		users:             users,
		firms:             firms,
		sessions:          sessions,
		hasher:            hasher,
		log:               log,
		audit:             nopAudit{},
		notifier:          nopNotifier{},
		ttl:               DefaultSessionTTL,
		minPasswordLength: 8,
		now:               func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	dummy, err := hasher.Hash(uuid.NewString())
	if err != nil {
		log.Warn("dummy password hash failed", zap.Error(err))
	}
	s.dummyHash = dummy
	return s
}

// Login verifies credentials and issues a session.
func (s *Service) Login(ctx context.Context, email, password string, client ClientInfo) (*LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		metrics.LoginAttempts.WithLabelValues(metrics.OutcomeInvalidCredentials).Inc()
		return nil, ErrInvalidCredentials
	}

	user, firm, err := s.users.GetActiveByEmail(ctx, email)
	if err != nil {
		s.log.Error("login lookup failed", zap.String("email", email), zap.Error(err))
		metrics.LoginAttempts.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, ErrServerError
	}
	if user == nil {
		s.hasher.Verify(password, s.dummyHash)
		s.loginFailed(ctx, "", "", email, "unknown_email", client)
		metrics.LoginAttempts.WithLabelValues(metrics.OutcomeInvalidCredentials).Inc()
		return nil, ErrInvalidCredentials
	}

	if !firm.IsActive {
		s.loginFailed(ctx, firm.ID, user.ID, email, "firm_inactive", client)
		metrics.LoginAttempts.WithLabelValues(metrics.OutcomeFirmInactive).Inc()
		if s.uniformLoginErrors {
			return nil, ErrInvalidCredentials
		}
		return nil, ErrFirmInactive
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		s.loginFailed(ctx, firm.ID, user.ID, email, "bad_password", client)
		metrics.LoginAttempts.WithLabelValues(metrics.OutcomeInvalidCredentials).Inc()
		return nil, ErrInvalidCredentials
	}

	token, err := GenerateSessionToken()
	if err != nil {
		s.log.Error("session token generation failed", zap.Error(err))
		metrics.LoginAttempts.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, ErrSessionCreationFailed
	}

	now := s.now()
	session := &models.Session{
		ID:           uuid.NewString(),
		FirmUserID:   user.ID,
		TokenHash:    HashSessionToken(token),
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.ttl),
		LastAccessed: now,
		IPAddress:    client.IPAddress,
		UserAgent:    client.UserAgent,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		s.log.Error("session persist failed", zap.String("firm_user_id", user.ID), zap.Error(err))
		metrics.LoginAttempts.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, ErrSessionCreationFailed
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.log.Warn("last login update failed", zap.String("firm_user_id", user.ID), zap.Error(err))
	}

	s.record(ctx, firm.ID, user.ID, models.ActionLogin, email, nil, client.IPAddress)
	metrics.LoginAttempts.WithLabelValues(metrics.OutcomeSuccess).Inc()
	s.log.Info("firm user logged in", zap.String("firm_user_id", user.ID), zap.String("firm_id", firm.ID))

	return &LoginResult{
		Token:   token,
		Session: describe(user, firm, session.ExpiresAt),
	}, nil
}

func (s *Service) loginFailed(ctx context.Context, firmID, userID, email, reason string, client ClientInfo) {
	s.record(ctx, firmID, userID, models.ActionLoginFailed, email, map[string]string{"reason": reason}, client.IPAddress)
}

// CurrentSession resolves a bearer token to its identity. Any token that is
// not valid right now yields (nil, nil), and a stored session that is no
// longer valid is deleted on the way out.
func (s *Service) CurrentSession(ctx context.Context, token string) (*models.FirmSession, error) {
	if token == "" {
		return nil, nil
	}
	tokenHash := HashSessionToken(token)

	session, err := s.sessions.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		s.log.Error("session lookup failed", zap.Error(err))
		return nil, ErrServerError
	}
	if session == nil {
		return nil, nil
	}

	now := s.now()
	if session.Expired(now) {
		s.reap(ctx, tokenHash, metrics.ReasonExpired)
		return nil, nil
	}

	user, firm, err := s.users.GetWithFirm(ctx, session.FirmUserID)
	if err != nil {
		s.log.Error("session owner lookup failed", zap.String("firm_user_id", session.FirmUserID), zap.Error(err))
		return nil, ErrServerError
	}
	switch {
	case user == nil || !user.IsActive:
		s.reap(ctx, tokenHash, metrics.ReasonUserInactive)
		return nil, nil
	case firm == nil || !firm.IsActive:
		s.reap(ctx, tokenHash, metrics.ReasonFirmInactive)
		return nil, nil
	}

	if err := s.sessions.Touch(ctx, tokenHash, now); err != nil {
		s.log.Warn("session touch failed", zap.String("session_id", session.ID), zap.Error(err))
	}

	return describe(user, firm, session.ExpiresAt), nil
}

func (s *Service) reap(ctx context.Context, tokenHash, reason string) {
	if err := s.sessions.DeleteByTokenHash(ctx, tokenHash); err != nil {
		s.log.Warn("session reap failed", zap.String("reason", reason), zap.Error(err))
		return
	}
	metrics.SessionsReaped.WithLabelValues(reason).Inc()
}

// Logout deletes the session behind token. Unknown and empty tokens are a
// no-op.
func (s *Service) Logout(ctx context.Context, token string, client ClientInfo) error {
	if token == "" {
		return nil
	}
	tokenHash := HashSessionToken(token)

	session, err := s.sessions.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		s.log.Warn("logout lookup failed", zap.Error(err))
	}
	if err := s.sessions.DeleteByTokenHash(ctx, tokenHash); err != nil {
		s.log.Error("logout delete failed", zap.Error(err))
		return ErrServerError
	}
	if session != nil {
		firmID := ""
		user, firm, err := s.users.GetWithFirm(ctx, session.FirmUserID)
		switch {
		case err != nil:
			s.log.Warn("logout owner lookup failed", zap.String("firm_user_id", session.FirmUserID), zap.Error(err))
		case firm != nil:
			firmID = firm.ID
		case user != nil:
			firmID = user.FirmID
		}
		s.record(ctx, firmID, session.FirmUserID, models.ActionLogout, "", nil, client.IPAddress)
	}
	return nil
}

// RequireRole checks that session exists and its role covers role.
func (s *Service) RequireRole(session *models.FirmSession, role models.Role) (*models.FirmSession, error) {
	if session == nil {
		return nil, ErrNotAuthenticated
	}
	if !session.User.Role.Covers(role) {
		return nil, ErrForbidden
	}
	return session, nil
}

// SweepExpired deletes every expired session.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.SessionsReaped.WithLabelValues(metrics.ReasonSweep).Add(float64(n))
	}
	return n, nil
}

// RunSweeper calls SweepExpired every interval until ctx is done.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.SweepExpired(ctx)
			if err != nil {
				s.log.Warn("expired session sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				s.log.Info("expired sessions swept", zap.Int64("count", n))
			}
		}
	}
}

func (s *Service) record(ctx context.Context, firmID, userID, action, target string, details any, ip string) {
	if err := s.audit.Log(ctx, firmID, userID, action, target, details, ip); err != nil {
		s.log.Warn("audit log failed", zap.String("action", action), zap.Error(err))
	}
}

func describe(user *models.FirmUser, firm *models.Firm, expiresAt time.Time) *models.FirmSession {
	return &models.FirmSession{
		User:      user.Public(),
		Firm:      firm.Public(),
		ExpiresAt: expiresAt,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type nopAudit struct{}

func (nopAudit) Log(context.Context, string, string, string, string, any, string) error { return nil }

type nopNotifier struct{}

func (nopNotifier) FirmRegistered(context.Context, *models.Firm, *models.FirmUser) error { return nil }
