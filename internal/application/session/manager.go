// Package session owns login sessions. Handlers receive a *Manager explicitly
// instead of reading authentication state from a global.
package session

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/samber/lo"

	"github.com/sangkips/receipt-api/internal/domain/entity"
	"github.com/sangkips/receipt-api/internal/domain/repository"
	"github.com/sangkips/receipt-api/internal/logger"
	"github.com/sangkips/receipt-api/pkg/apperror"
	"github.com/sangkips/receipt-api/pkg/utils"
)

// Principal is the authenticated caller of a request
type Principal struct {
	UserID    uuid.UUID `json:"user_id"`
	SessionID uuid.UUID `json:"session_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Tokens is the pair handed to a client after login or refresh
type Tokens struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int64     `json:"expires_in"`
	SessionID    uuid.UUID `json:"session_id"`
}

// Meta describes the client opening a session
type Meta struct {
	UserAgent string
	ClientIP  string
}

type Manager struct {
	sessions repository.SessionRepository
	jwt      *utils.JWTManager
	cache    *cache.Cache
	log      *logger.Logger
	now      func() time.Time
}

// NewManager creates a session manager. cacheTTL bounds how long a session row
// is served from memory before it is reloaded.
func NewManager(sessions repository.SessionRepository, jwt *utils.JWTManager, cacheTTL time.Duration, log *logger.Logger) *Manager {
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &Manager{
		sessions: sessions,
		jwt:      jwt,
		cache:    cache.New(cacheTTL, 2*cacheTTL),
		log:      log,
		now:      time.Now,
	}
}

// Login opens a new session for user and issues its first token pair
func (m *Manager) Login(ctx context.Context, user *entity.User, meta Meta) (*Tokens, error) {
	s := &entity.Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		UserAgent: truncate(meta.UserAgent, 512),
		ClientIP:  truncate(meta.ClientIP, 64),
		ExpiresAt: m.now().Add(m.jwt.RefreshTokenExpiry()),
	}

	tokens, jti, err := m.issue(s, user.Email)
	if err != nil {
		return nil, err
	}
	s.RefreshTokenID = jti

	if err := m.sessions.Create(ctx, s); err != nil {
		return nil, errors.Wrap(err, "failed to create session")
	}
	m.cache.SetDefault(s.ID.String(), s)
	m.log.Infow("session opened", "user_id", user.ID, "session_id", s.ID)

	return tokens, nil
}

// Refresh rotates the token pair of an active session. A refresh token can be
// used once; presenting an already rotated one revokes the whole session.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	claims, err := m.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperror.ErrInvalidToken
	}

	s, err := m.load(ctx, claims.SessionID, true)
	if err != nil {
		return nil, err
	}
	if s == nil || s.UserID != claims.UserID || !s.IsActive(m.now()) {
		return nil, apperror.ErrSessionRevoked
	}
	if s.RefreshTokenID != claims.ID {
		m.log.Warnw("refresh token reuse, revoking session", "user_id", s.UserID, "session_id", s.ID)
		if err := m.revoke(ctx, s); err != nil {
			return nil, err
		}
		return nil, apperror.ErrSessionRevoked
	}

	tokens, jti, err := m.issue(s, "")
	if err != nil {
		return nil, err
	}
	s.RefreshTokenID = jti
	s.ExpiresAt = m.now().Add(m.jwt.RefreshTokenExpiry())
	if err := m.sessions.Update(ctx, s); err != nil {
		return nil, errors.Wrap(err, "failed to update session")
	}
	m.cache.SetDefault(s.ID.String(), s)

	return tokens, nil
}

// Logout revokes the session. Tokens issued for it stop working immediately.
func (m *Manager) Logout(ctx context.Context, sessionID uuid.UUID) error {
	s, err := m.load(ctx, sessionID, true)
	if err != nil {
		return err
	}
	if s == nil || s.RevokedAt != nil {
		m.cache.Delete(sessionID.String())
		return nil
	}
	if err := m.revoke(ctx, s); err != nil {
		return err
	}
	m.log.Infow("session closed", "user_id", s.UserID, "session_id", s.ID)
	return nil
}

// RevokeOthers closes every other session of the user, e.g. after a password change
func (m *Manager) RevokeOthers(ctx context.Context, userID, keep uuid.UUID) error {
	ids, err := m.sessions.RevokeAllForUser(ctx, userID, keep)
	if err != nil {
		return errors.Wrap(err, "failed to revoke sessions")
	}
	for _, id := range ids {
		m.cache.Delete(id.String())
	}
	return nil
}

// Current resolves an access token to its principal. The token must be valid and
// its session still active.
func (m *Manager) Current(ctx context.Context, accessToken string) (*Principal, error) {
	claims, err := m.jwt.ValidateAccessToken(accessToken)
	if err != nil {
		return nil, apperror.ErrInvalidToken
	}

	s, err := m.load(ctx, claims.SessionID, false)
	if err != nil {
		return nil, err
	}
	if s == nil || s.UserID != claims.UserID || !s.IsActive(m.now()) {
		return nil, apperror.ErrSessionRevoked
	}

	return &Principal{
		UserID:    s.UserID,
		SessionID: s.ID,
		Email:     claims.Email,
		ExpiresAt: s.ExpiresAt,
	}, nil
}

// Sweep deletes sessions whose refresh window has passed
func (m *Manager) Sweep(ctx context.Context) (int64, error) {
	return m.sessions.DeleteExpired(ctx)
}

func (m *Manager) issue(s *entity.Session, email string) (*Tokens, string, error) {
	access, err := m.jwt.GenerateAccessToken(s.UserID, s.ID, email)
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to sign access token")
	}
	refresh, err := m.jwt.GenerateRefreshToken(s.UserID, s.ID)
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to sign refresh token")
	}
	claims, err := m.jwt.ValidateRefreshToken(refresh)
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to read refresh token")
	}

	return &Tokens{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(m.jwt.AccessTokenExpiry().Seconds()),
		SessionID:    s.ID,
	}, claims.ID, nil
}

func (m *Manager) revoke(ctx context.Context, s *entity.Session) error {
	now := m.now()
	s.RevokedAt = &now
	if err := m.sessions.Update(ctx, s); err != nil {
		return errors.Wrap(err, "failed to revoke session")
	}
	m.cache.Delete(s.ID.String())
	return nil
}

// load returns the session, from cache unless fresh is set. The cached value is
// copied so callers can mutate it freely.
func (m *Manager) load(ctx context.Context, id uuid.UUID, fresh bool) (*entity.Session, error) {
	if !fresh {
		if v, ok := m.cache.Get(id.String()); ok {
			cp := *v.(*entity.Session)
			return &cp, nil
		}
	}
	s, err := m.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load session")
	}
	if s != nil {
		cp := *s
		m.cache.SetDefault(id.String(), &cp)
	}
	return s, nil
}

// truncate keeps at most n characters, matching the varchar column sizes.
// It never splits a multibyte character.
func truncate(s string, n int) string {
	return lo.Substring(s, 0, uint(n))
}
