// Package auth registers accounts, authenticates sessions and manages
// password changes, publishing an event for every state change.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/dshills/gatekeep/internal/config"
	"github.com/dshills/gatekeep/internal/event"
	"github.com/dshills/gatekeep/internal/event/events"
	"github.com/dshills/gatekeep/internal/store"
)

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *log.Entry) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
		s.tokens.now = now
		s.limiter.now = now
	}
}

// Service implements account and session operations.
type Service struct {
	store    store.Store
	emitter  events.Emitter
	tokens   *TokenIssuer
	limiter  *Limiter
	cost     int
	resetTTL time.Duration
	logger   *log.Entry
	now      func() time.Time
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	Token   string
	Session Session
	User    *store.User
}

// NewService creates a Service. Events go to the emitter carried by the
// request context when present and to emitter otherwise.
func NewService(st store.Store, emitter events.Emitter, cfg config.AuthConfig, opts ...Option) *Service {
	s := &Service{
		store:    st,
		emitter:  emitter,
		tokens:   NewTokenIssuer([]byte(cfg.TokenSecret), cfg.TokenTTL.D()),
		limiter:  NewLimiter(cfg.LoginRate, cfg.LoginBurst),
		cost:     cfg.BcryptCost,
		resetTTL: cfg.ResetTTL.D(),
		logger:   log.WithField("component", "auth"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tokens returns the session token issuer.
func (s *Service) Tokens() *TokenIssuer {
	return s.tokens
}

// Limiter returns the login rate limiter.
func (s *Service) Limiter() *Limiter {
	return s.limiter
}

// Register creates an account. The registration event is delivered to every
// subscriber before Register returns.
func (s *Service) Register(ctx context.Context, email, password, displayName string) (*store.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	hash, err := s.hash(password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	u := &store.User{
		ID:           uuid.NewString(),
		Email:        email,
		DisplayName:  strings.TrimSpace(displayName),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, errors.Wrap(err, "registering user")
	}

	s.logger.WithFields(log.Fields{"userID": u.ID, "email": email}).Info("User registered.")
	s.publish(ctx, events.UserRegistered{
		UserID:      u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		CreatedAt:   u.CreatedAt,
	}, event.Async(false))
	return u, nil
}

// Login checks credentials and starts a session. Attempts are rate limited
// per email address.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if !s.limiter.Allow(email) {
		em := s.emitterFor(ctx)
		s.publishTo(ctx, em, events.SecurityRateLimited{Scope: "login", Key: email, SourceAddr: sourceAddr(em)})
		s.publishTo(ctx, em, events.UserLoginFailed{Email: email, Reason: events.LoginRateLimited})
		return nil, ErrRateLimited
	}

	u, err := s.store.UserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		s.publish(ctx, events.UserLoginFailed{Email: email, Reason: events.LoginUnknownEmail})
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, errors.Wrap(err, "looking up user")
	}

	if bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)) != nil {
		s.publish(ctx, events.UserLoginFailed{Email: email, UserID: u.ID, Reason: events.LoginBadPassword})
		return nil, ErrInvalidCredentials
	}

	token, sess, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(log.Fields{"userID": u.ID, "sessionID": sess.ID}).Debug("Session created.")
	s.publish(ctx, events.SessionCreated{SessionID: sess.ID, UserID: u.ID, ExpiresAt: sess.ExpiresAt})
	s.publish(ctx, events.UserLogin{UserID: u.ID, SessionID: sess.ID, ExpiresAt: sess.ExpiresAt})
	return &LoginResult{Token: token, Session: sess, User: u}, nil
}

// Authenticate returns the live session for token.
func (s *Service) Authenticate(_ context.Context, token string) (Session, error) {
	return s.tokens.Verify(token)
}

// Logout ends the session identified by token.
func (s *Service) Logout(ctx context.Context, token string) error {
	sess, err := s.tokens.Verify(token)
	if err != nil {
		return err
	}
	if _, ok := s.tokens.Revoke(sess.ID); !ok {
		return ErrInvalidToken
	}

	s.publish(ctx, events.SessionRevoked{SessionID: sess.ID, UserID: sess.UserID, Reason: events.RevokeLogout})
	s.publish(ctx, events.UserLogout{UserID: sess.UserID, SessionID: sess.ID})
	return nil
}

// ChangePassword replaces the password of userID after checking the current
// one. Every other session of the user is revoked; keepSession survives.
func (s *Service) ChangePassword(ctx context.Context, userID, keepSession, current, next string) error {
	u, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "loading user")
	}
	if bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(current)) != nil {
		return ErrInvalidCredentials
	}
	if err := s.setPassword(ctx, u, next); err != nil {
		return err
	}

	revoked := s.revokeSessions(ctx, userID, keepSession, events.RevokePasswordChanged)
	s.publish(ctx, events.UserPasswordChanged{UserID: userID, RevokedSessions: revoked})
	return nil
}

// RequestPasswordReset issues a reset token for the account registered
// under email and publishes it for delivery. An unknown email is not an
// error and yields an empty token.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return "", err
	}

	u, err := s.store.UserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		s.logger.WithField("email", email).Debug("Password reset requested for unknown email.")
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "looking up user")
	}

	token, err := newResetToken()
	if err != nil {
		return "", err
	}
	rt := &store.ResetToken{Token: token, UserID: u.ID, ExpiresAt: s.now().Add(s.resetTTL).UTC()}
	if err := s.store.SaveResetToken(ctx, rt); err != nil {
		return "", errors.Wrap(err, "saving reset token")
	}

	s.publish(ctx, events.UserPasswordResetRequested{
		UserID:    u.ID,
		Email:     u.Email,
		Token:     token,
		ExpiresAt: rt.ExpiresAt,
	}, event.Async(false))
	return token, nil
}

// ResetPassword sets a new password using a reset token and revokes every
// session of the account.
func (s *Service) ResetPassword(ctx context.Context, token, next string) error {
	if len(next) < MinPasswordLen {
		return ErrWeakPassword
	}

	rt, err := s.store.TakeResetToken(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		return ErrInvalidResetToken
	}
	if err != nil {
		return errors.Wrap(err, "taking reset token")
	}
	if rt.Expired(s.now()) {
		return ErrInvalidResetToken
	}

	u, err := s.store.UserByID(ctx, rt.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrInvalidResetToken
	}
	if err != nil {
		return errors.Wrap(err, "loading user")
	}
	if err := s.setPassword(ctx, u, next); err != nil {
		return err
	}

	s.revokeSessions(ctx, u.ID, "", events.RevokePasswordReset)
	s.limiter.Reset(u.Email)
	s.publish(ctx, events.UserPasswordReset{UserID: u.ID}, event.Async(false))
	return nil
}

// DeleteAccount removes userID after checking its password.
func (s *Service) DeleteAccount(ctx context.Context, userID, password string) error {
	u, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "loading user")
	}
	if bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)) != nil {
		return ErrInvalidCredentials
	}
	if err := s.store.DeleteUser(ctx, userID); err != nil {
		return errors.Wrap(err, "deleting user")
	}

	s.revokeSessions(ctx, userID, "", events.RevokeAccountDeleted)
	s.limiter.Reset(u.Email)
	s.logger.WithField("userID", userID).Info("Account deleted.")
	s.publish(ctx, events.UserDeleted{UserID: userID, Email: u.Email})
	return nil
}

func (s *Service) setPassword(ctx context.Context, u *store.User, password string) error {
	hash, err := s.hash(password)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	u.UpdatedAt = s.now().UTC()
	return errors.Wrap(s.store.UpdateUser(ctx, u), "saving password")
}

func (s *Service) hash(password string) ([]byte, error) {
	if len(password) < MinPasswordLen {
		return nil, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, errors.Wrap(err, "hashing password")
	}
	return hash, nil
}

func (s *Service) revokeSessions(ctx context.Context, userID, keep string, reason events.SessionRevokeReason) int {
	revoked := s.tokens.RevokeUser(userID, keep)
	for _, sess := range revoked {
		s.publish(ctx, events.SessionRevoked{SessionID: sess.ID, UserID: userID, Reason: reason})
	}
	return len(revoked)
}

func (s *Service) emitterFor(ctx context.Context) events.Emitter {
	return events.EmitterFrom(ctx, s.emitter)
}

func (s *Service) publish(ctx context.Context, p events.Payload, opts ...event.PublishOption) {
	s.publishTo(ctx, s.emitterFor(ctx), p, opts...)
}

// publishTo logs publish failures instead of returning them: the state
// change has already been committed.
func (s *Service) publishTo(ctx context.Context, em events.Emitter, p events.Payload, opts ...event.PublishOption) {
	if em == nil {
		return
	}
	if _, err := events.Publish(ctx, em, p, opts...); err != nil {
		s.logger.WithError(err).WithField("event", p.EventName()).Warn("Could not publish event.")
	}
}

func sourceAddr(em events.Emitter) string {
	if p, ok := em.(*event.Publisher); ok {
		return p.Metadata().SourceAddr
	}
	return ""
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func newResetToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "generating reset token")
	}
	return hex.EncodeToString(buf), nil
}
