// Package store persists gatekeep accounts, contacts and reset tokens.
package store

//go:generate mockgen -destination=../mocks/mock_store/mock_store.go github.com/dshills/gatekeep/internal/store Store

import (
	"context"
	"fmt"
	"sort"

	"github.com/pkg/errors"
)

// Errors returned by every Store implementation. Returned errors wrap these
// with context; match them with errors.Is.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// Store is the persistence boundary used by the application services.
type Store interface {
	// CreateUser inserts u. It fails with ErrConflict if the ID or email is taken.
	CreateUser(ctx context.Context, u *User) error
	UserByID(ctx context.Context, id string) (*User, error)
	UserByEmail(ctx context.Context, email string) (*User, error)
	// UpdateUser replaces every field of the stored user with u's.
	UpdateUser(ctx context.Context, u *User) error
	// DeleteUser removes the user with its contacts in both directions and
	// its reset tokens.
	DeleteUser(ctx context.Context, id string) error

	// UpsertContact creates the contact or updates its Blocked flag.
	UpsertContact(ctx context.Context, c *Contact) error
	DeleteContact(ctx context.Context, ownerID, contactID string) error
	Contact(ctx context.Context, ownerID, contactID string) (*Contact, error)
	// Contacts lists an owner's contacts, oldest first.
	Contacts(ctx context.Context, ownerID string) ([]Contact, error)

	SaveResetToken(ctx context.Context, t *ResetToken) error
	// TakeResetToken returns and deletes the token.
	TakeResetToken(ctx context.Context, token string) (*ResetToken, error)

	Close() error
}

// Opener creates a Store from a data source name.
type Opener func(dsn string) (Store, error)

// Factory maps driver names to openers.
var Factory = map[string]Opener{
	"memory": func(string) (Store, error) { return NewMemoryStore(), nil },
	"sqlite": OpenSQLite,
}

// Open creates a Store for the named driver.
func Open(driver, dsn string) (Store, error) {
	open, ok := Factory[driver]
	if !ok {
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
	s, err := open(dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s store", driver)
	}
	return s, nil
}

func sortContacts(cs []Contact) {
	sort.SliceStable(cs, func(i, j int) bool {
		if !cs[i].CreatedAt.Equal(cs[j].CreatedAt) {
			return cs[i].CreatedAt.Before(cs[j].CreatedAt)
		}
		return cs[i].ContactID < cs[j].ContactID
	})
}
