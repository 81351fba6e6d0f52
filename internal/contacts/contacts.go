// Package contacts manages each user's contact list.
package contacts

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/dshills/gatekeep/internal/event/events"
	"github.com/dshills/gatekeep/internal/store"
)

// Errors returned by Service.
var (
	ErrSelfContact    = errors.New("cannot add yourself as a contact")
	ErrUnknownUser    = errors.New("no such user")
	ErrAlreadyContact = errors.New("already a contact")
	ErrNotContact     = errors.New("not a contact")
)

// Service implements contact list operations.
type Service struct {
	store   store.Store
	emitter events.Emitter
	logger  *log.Entry
	now     func() time.Time
}

// NewService creates a Service.
func NewService(st store.Store, emitter events.Emitter, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "contacts")
	}
	return &Service{store: st, emitter: emitter, logger: logger, now: time.Now}
}

// Add puts contactID on owner's list.
func (s *Service) Add(ctx context.Context, owner, contactID string) (*store.Contact, error) {
	if err := s.checkTarget(ctx, owner, contactID); err != nil {
		return nil, err
	}

	_, err := s.store.Contact(ctx, owner, contactID)
	if err == nil {
		return nil, ErrAlreadyContact
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, pkgerrors.Wrap(err, "loading contact")
	}

	c := &store.Contact{OwnerID: owner, ContactID: contactID, CreatedAt: s.now().UTC()}
	if err := s.store.UpsertContact(ctx, c); err != nil {
		return nil, pkgerrors.Wrap(err, "adding contact")
	}
	s.publish(ctx, events.ContactAdded{OwnerID: owner, ContactID: contactID})
	return c, nil
}

// Remove takes contactID off owner's list.
func (s *Service) Remove(ctx context.Context, owner, contactID string) error {
	err := s.store.DeleteContact(ctx, owner, contactID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotContact
	}
	if err != nil {
		return pkgerrors.Wrap(err, "removing contact")
	}
	s.publish(ctx, events.ContactRemoved{OwnerID: owner, ContactID: contactID})
	return nil
}

// Block marks contactID as blocked, adding it to the list if needed.
// Blocking an already blocked contact does nothing.
func (s *Service) Block(ctx context.Context, owner, contactID string) error {
	if err := s.checkTarget(ctx, owner, contactID); err != nil {
		return err
	}

	c, err := s.store.Contact(ctx, owner, contactID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		c = &store.Contact{OwnerID: owner, ContactID: contactID, CreatedAt: s.now().UTC()}
	case err != nil:
		return pkgerrors.Wrap(err, "loading contact")
	case c.Blocked:
		return nil
	}

	c.Blocked = true
	if err := s.store.UpsertContact(ctx, c); err != nil {
		return pkgerrors.Wrap(err, "blocking contact")
	}
	s.publish(ctx, events.ContactBlocked{OwnerID: owner, ContactID: contactID})
	return nil
}

// Unblock clears the blocked flag. The contact stays on the list.
func (s *Service) Unblock(ctx context.Context, owner, contactID string) error {
	c, err := s.store.Contact(ctx, owner, contactID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotContact
	}
	if err != nil {
		return pkgerrors.Wrap(err, "loading contact")
	}
	if !c.Blocked {
		return nil
	}

	c.Blocked = false
	if err := s.store.UpsertContact(ctx, c); err != nil {
		return pkgerrors.Wrap(err, "unblocking contact")
	}
	s.publish(ctx, events.ContactUnblocked{OwnerID: owner, ContactID: contactID})
	return nil
}

// List returns owner's contacts, blocked ones included, oldest first.
func (s *Service) List(ctx context.Context, owner string) ([]store.Contact, error) {
	cs, err := s.store.Contacts(ctx, owner)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "listing contacts")
	}
	return cs, nil
}

func (s *Service) checkTarget(ctx context.Context, owner, contactID string) error {
	if owner == contactID {
		return ErrSelfContact
	}
	_, err := s.store.UserByID(ctx, contactID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrUnknownUser
	}
	return pkgerrors.Wrap(err, "loading user")
}

func (s *Service) publish(ctx context.Context, p events.Payload) {
	em := events.EmitterFrom(ctx, s.emitter)
	if em == nil {
		return
	}
	if _, err := events.Publish(ctx, em, p); err != nil {
		s.logger.WithError(err).WithField("event", p.EventName()).Warn("Could not publish event.")
	}
}
