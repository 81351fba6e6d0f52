package store

import (
	"context"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// GormStore is a Store backed by a gorm database.
type GormStore struct {
	db *gorm.DB
}

var _ Store = (*GormStore)(nil)

// OpenSQLite opens (creating if needed) a pure-Go sqlite database at dsn and
// migrates the schema.
func OpenSQLite(dsn string) (Store, error) {
	return OpenGorm(sqlite.Open(dsn))
}

// OpenGorm opens a GormStore on any gorm dialector and migrates the schema.
func OpenGorm(dialector gorm.Dialector) (*GormStore, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err := db.AutoMigrate(&User{}, &Contact{}, &ResetToken{}); err != nil {
		return nil, errors.Wrap(err, "migrating schema")
	}
	return &GormStore{db: db}, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errors.Wrapf(ErrNotFound, format, args...)
	}
	return errors.Wrapf(err, format, args...)
}

func (s *GormStore) CreateUser(ctx context.Context, u *User) error {
	err := s.db.WithContext(ctx).Create(u).Error
	if isUniqueViolation(err) {
		return errors.Wrapf(ErrConflict, "user %s", u.Email)
	}
	return errors.Wrap(err, "creating user")
}

func (s *GormStore) UserByID(ctx context.Context, id string) (*User, error) {
	var u User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "user %s", id)
	}
	return &u, nil
}

func (s *GormStore) UserByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	if err := s.db.WithContext(ctx).First(&u, "email = ?", email).Error; err != nil {
		return nil, notFound(err, "email %s", email)
	}
	return &u, nil
}

func (s *GormStore) UpdateUser(ctx context.Context, u *User) error {
	res := s.db.WithContext(ctx).Model(u).Select("*").Omit("created_at").Updates(u)
	if isUniqueViolation(res.Error) {
		return errors.Wrapf(ErrConflict, "email %s", u.Email)
	}
	if res.Error != nil {
		return errors.Wrapf(res.Error, "updating user %s", u.ID)
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(ErrNotFound, "user %s", u.ID)
	}
	return nil
}

func (s *GormStore) DeleteUser(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&User{}, "id = ?", id)
		if res.Error != nil {
			return errors.Wrapf(res.Error, "deleting user %s", id)
		}
		if res.RowsAffected == 0 {
			return errors.Wrapf(ErrNotFound, "user %s", id)
		}
		if err := tx.Delete(&Contact{}, "owner_id = ? OR contact_id = ?", id, id).Error; err != nil {
			return errors.Wrap(err, "deleting contacts")
		}
		if err := tx.Delete(&ResetToken{}, "user_id = ?", id).Error; err != nil {
			return errors.Wrap(err, "deleting reset tokens")
		}
		return nil
	})
}

func (s *GormStore) UpsertContact(ctx context.Context, c *Contact) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner_id"}, {Name: "contact_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"blocked"}),
	}).Create(c).Error
	return errors.Wrap(err, "saving contact")
}

func (s *GormStore) DeleteContact(ctx context.Context, ownerID, contactID string) error {
	res := s.db.WithContext(ctx).Delete(&Contact{}, "owner_id = ? AND contact_id = ?", ownerID, contactID)
	if res.Error != nil {
		return errors.Wrap(res.Error, "deleting contact")
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(ErrNotFound, "contact %s of %s", contactID, ownerID)
	}
	return nil
}

func (s *GormStore) Contact(ctx context.Context, ownerID, contactID string) (*Contact, error) {
	var c Contact
	err := s.db.WithContext(ctx).First(&c, "owner_id = ? AND contact_id = ?", ownerID, contactID).Error
	if err != nil {
		return nil, notFound(err, "contact %s of %s", contactID, ownerID)
	}
	return &c, nil
}

func (s *GormStore) Contacts(ctx context.Context, ownerID string) ([]Contact, error) {
	var cs []Contact
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at, contact_id").
		Find(&cs).Error
	if err != nil {
		return nil, errors.Wrapf(err, "listing contacts of %s", ownerID)
	}
	return cs, nil
}

func (s *GormStore) SaveResetToken(ctx context.Context, t *ResetToken) error {
	err := s.db.WithContext(ctx).Create(t).Error
	if isUniqueViolation(err) {
		return errors.Wrap(ErrConflict, "reset token")
	}
	return errors.Wrap(err, "saving reset token")
}

func (s *GormStore) TakeResetToken(ctx context.Context, token string) (*ResetToken, error) {
	var t ResetToken
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&t, "token = ?", token).Error; err != nil {
			return notFound(err, "reset token")
		}
		return tx.Delete(&ResetToken{}, "token = ?", token).Error
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Close closes the underlying database handle.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
