package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStores(t *testing.T) map[string]Store {
	t.Helper()

	sqlite, err := Open("sqlite", filepath.Join(t.TempDir(), "gatekeep.db"))
	require.NoError(t, err)

	stores := map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
	t.Cleanup(func() {
		for _, s := range stores {
			_ = s.Close()
		}
	})
	return stores
}

func newUser(id, email string) *User {
	now := time.Now().UTC().Truncate(time.Second)
	return &User{
		ID:           id,
		Email:        email,
		DisplayName:  "User " + id,
		PasswordHash: []byte("hash-" + id),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestStore_Users(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, s.CreateUser(ctx, newUser("u1", "a@example.com")))
			err := s.CreateUser(ctx, newUser("u2", "a@example.com"))
			assert.True(t, errors.Is(err, ErrConflict), "duplicate email: %v", err)

			u, err := s.UserByEmail(ctx, "a@example.com")
			require.NoError(t, err)
			assert.Equal(t, "u1", u.ID)
			assert.Equal(t, []byte("hash-u1"), u.PasswordHash)

			u.Bio = "hello"
			u.AvatarPNG = []byte{0x89, 'P', 'N', 'G'}
			require.NoError(t, s.UpdateUser(ctx, u))

			got, err := s.UserByID(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, "hello", got.Bio)
			assert.Equal(t, u.AvatarPNG, got.AvatarPNG)

			_, err = s.UserByID(ctx, "missing")
			assert.True(t, errors.Is(err, ErrNotFound))
			assert.True(t, errors.Is(s.UpdateUser(ctx, newUser("missing", "m@example.com")), ErrNotFound))
		})
	}
}

func TestStore_Contacts(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Now().UTC().Truncate(time.Second)

			for i, id := range []string{"b", "c"} {
				require.NoError(t, s.UpsertContact(ctx, &Contact{
					OwnerID:   "a",
					ContactID: id,
					CreatedAt: base.Add(time.Duration(i) * time.Second),
				}))
			}
			require.NoError(t, s.UpsertContact(ctx, &Contact{OwnerID: "a", ContactID: "b", Blocked: true}))

			c, err := s.Contact(ctx, "a", "b")
			require.NoError(t, err)
			assert.True(t, c.Blocked)

			list, err := s.Contacts(ctx, "a")
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, "b", list[0].ContactID)
			assert.Equal(t, "c", list[1].ContactID)

			require.NoError(t, s.DeleteContact(ctx, "a", "c"))
			assert.True(t, errors.Is(s.DeleteContact(ctx, "a", "c"), ErrNotFound))

			_, err = s.Contact(ctx, "a", "c")
			assert.True(t, errors.Is(err, ErrNotFound))

			empty, err := s.Contacts(ctx, "nobody")
			require.NoError(t, err)
			assert.Empty(t, empty)
		})
	}
}

func TestStore_ResetTokens(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			exp := time.Now().Add(time.Hour).UTC().Truncate(time.Second)

			require.NoError(t, s.SaveResetToken(ctx, &ResetToken{Token: "tok", UserID: "u1", ExpiresAt: exp}))

			tok, err := s.TakeResetToken(ctx, "tok")
			require.NoError(t, err)
			assert.Equal(t, "u1", tok.UserID)
			assert.False(t, tok.Expired(time.Now()))
			assert.True(t, tok.Expired(exp))

			_, err = s.TakeResetToken(ctx, "tok")
			assert.True(t, errors.Is(err, ErrNotFound))
		})
	}
}

func TestStore_DeleteUserCascades(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, s.CreateUser(ctx, newUser("u1", "a@example.com")))
			require.NoError(t, s.CreateUser(ctx, newUser("u2", "b@example.com")))
			require.NoError(t, s.UpsertContact(ctx, &Contact{OwnerID: "u1", ContactID: "u2"}))
			require.NoError(t, s.UpsertContact(ctx, &Contact{OwnerID: "u2", ContactID: "u1"}))
			require.NoError(t, s.SaveResetToken(ctx, &ResetToken{Token: "t1", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)}))

			require.NoError(t, s.DeleteUser(ctx, "u1"))
			assert.True(t, errors.Is(s.DeleteUser(ctx, "u1"), ErrNotFound))

			_, err := s.UserByEmail(ctx, "a@example.com")
			assert.True(t, errors.Is(err, ErrNotFound))

			list, err := s.Contacts(ctx, "u2")
			require.NoError(t, err)
			assert.Empty(t, list)

			_, err = s.TakeResetToken(ctx, "t1")
			assert.True(t, errors.Is(err, ErrNotFound))

			// The email is free again.
			require.NoError(t, s.CreateUser(ctx, newUser("u3", "a@example.com")))
		})
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.CreateUser(ctx, newUser("u1", "a@example.com")))

	u, err := s.UserByID(ctx, "u1")
	require.NoError(t, err)
	u.PasswordHash[0] = 'X'
	u.DisplayName = "changed"

	again, err := s.UserByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []byte("hash-u1"), again.PasswordHash)
	assert.Equal(t, "User u1", again.DisplayName)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open("postgres", "")
	assert.ErrorContains(t, err, "unknown store driver")
}
