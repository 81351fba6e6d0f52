package store

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

type contactKey struct {
	owner, contact string
}

// MemoryStore is a Store held in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]*User
	byEmail  map[string]string
	contacts map[contactKey]Contact
	tokens   map[string]ResetToken
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]*User),
		byEmail:  make(map[string]string),
		contacts: make(map[contactKey]Contact),
		tokens:   make(map[string]ResetToken),
	}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) CreateUser(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[u.ID]; ok {
		return errors.Wrapf(ErrConflict, "user id %s", u.ID)
	}
	if _, ok := s.byEmail[u.Email]; ok {
		return errors.Wrapf(ErrConflict, "email %s", u.Email)
	}
	s.users[u.ID] = cloneUser(u)
	s.byEmail[u.Email] = u.ID
	return nil
}

func (s *MemoryStore) UserByID(_ context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "user %s", id)
	}
	return cloneUser(u), nil
}

func (s *MemoryStore) UserByEmail(_ context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "email %s", email)
	}
	return cloneUser(s.users[id]), nil
}

func (s *MemoryStore) UpdateUser(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.users[u.ID]
	if !ok {
		return errors.Wrapf(ErrNotFound, "user %s", u.ID)
	}
	if u.Email != old.Email {
		if _, taken := s.byEmail[u.Email]; taken {
			return errors.Wrapf(ErrConflict, "email %s", u.Email)
		}
		delete(s.byEmail, old.Email)
		s.byEmail[u.Email] = u.ID
	}
	s.users[u.ID] = cloneUser(u)
	return nil
}

func (s *MemoryStore) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return errors.Wrapf(ErrNotFound, "user %s", id)
	}
	delete(s.users, id)
	delete(s.byEmail, u.Email)

	for k := range s.contacts {
		if k.owner == id || k.contact == id {
			delete(s.contacts, k)
		}
	}
	for tok, t := range s.tokens {
		if t.UserID == id {
			delete(s.tokens, tok)
		}
	}
	return nil
}

func (s *MemoryStore) UpsertContact(_ context.Context, c *Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := contactKey{c.OwnerID, c.ContactID}
	if existing, ok := s.contacts[k]; ok {
		existing.Blocked = c.Blocked
		s.contacts[k] = existing
		return nil
	}
	s.contacts[k] = *c
	return nil
}

func (s *MemoryStore) DeleteContact(_ context.Context, ownerID, contactID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := contactKey{ownerID, contactID}
	if _, ok := s.contacts[k]; !ok {
		return errors.Wrapf(ErrNotFound, "contact %s of %s", contactID, ownerID)
	}
	delete(s.contacts, k)
	return nil
}

func (s *MemoryStore) Contact(_ context.Context, ownerID, contactID string) (*Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.contacts[contactKey{ownerID, contactID}]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "contact %s of %s", contactID, ownerID)
	}
	return &c, nil
}

func (s *MemoryStore) Contacts(_ context.Context, ownerID string) ([]Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Contact
	for k, c := range s.contacts {
		if k.owner == ownerID {
			out = append(out, c)
		}
	}
	sortContacts(out)
	return out, nil
}

func (s *MemoryStore) SaveResetToken(_ context.Context, t *ResetToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tokens[t.Token]; ok {
		return errors.Wrap(ErrConflict, "reset token")
	}
	s.tokens[t.Token] = *t
	return nil
}

func (s *MemoryStore) TakeResetToken(_ context.Context, token string) (*ResetToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokens[token]
	if !ok {
		return nil, errors.Wrap(ErrNotFound, "reset token")
	}
	delete(s.tokens, token)
	return &t, nil
}

// Close implements Store. It does nothing.
func (s *MemoryStore) Close() error {
	return nil
}
