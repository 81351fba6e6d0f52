package auth

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Session is an authenticated login.
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
}

// TokenIssuer signs HS256 session tokens and tracks which sessions are live.
// A token is accepted only while its session is registered, so revoking a
// session invalidates its token before expiry.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	mu     sync.Mutex
	byID   map[string]Session
	byUser map[string]map[string]struct{}
}

// NewTokenIssuer creates a TokenIssuer signing with secret.
func NewTokenIssuer(secret []byte, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret: secret,
		ttl:    ttl,
		now:    time.Now,
		byID:   make(map[string]Session),
		byUser: make(map[string]map[string]struct{}),
	}
}

// Issue starts a session for userID and returns its signed token.
func (t *TokenIssuer) Issue(userID string) (string, Session, error) {
	now := t.now()
	sess := Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		ExpiresAt: now.Add(t.ttl).Truncate(time.Second),
	}

	claims := jwt.RegisteredClaims{
		ID:        sess.ID,
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", Session{}, errors.Wrap(err, "signing token")
	}

	t.mu.Lock()
	t.byID[sess.ID] = sess
	if t.byUser[userID] == nil {
		t.byUser[userID] = make(map[string]struct{})
	}
	t.byUser[userID][sess.ID] = struct{}{}
	t.mu.Unlock()

	return signed, sess, nil
}

// Verify parses token and returns its session if the signature, expiry and
// session are all valid.
func (t *TokenIssuer) Verify(token string) (Session, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return Session{}, errors.Wrap(ErrInvalidToken, err.Error())
	}

	t.mu.Lock()
	sess, ok := t.byID[claims.ID]
	t.mu.Unlock()
	if !ok || sess.UserID != claims.Subject {
		return Session{}, errors.Wrap(ErrInvalidToken, "session revoked")
	}
	return sess, nil
}

// Revoke ends one session. It reports false if the session was not live.
func (t *TokenIssuer) Revoke(sessionID string) (Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.revokeLocked(sessionID)
}

// RevokeUser ends every session of userID except keep and returns them.
func (t *TokenIssuer) RevokeUser(userID, keep string) []Session {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []Session
	for id := range t.byUser[userID] {
		if id == keep {
			continue
		}
		if sess, ok := t.revokeLocked(id); ok {
			out = append(out, sess)
		}
	}
	return out
}

// Sessions returns the number of live sessions.
func (t *TokenIssuer) Sessions() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byID)
}

func (t *TokenIssuer) revokeLocked(id string) (Session, bool) {
	sess, ok := t.byID[id]
	if !ok {
		return Session{}, false
	}
	delete(t.byID, id)
	if ids := t.byUser[sess.UserID]; ids != nil {
		delete(ids, id)
		if len(ids) == 0 {
			delete(t.byUser, sess.UserID)
		}
	}
	return sess, true
}
