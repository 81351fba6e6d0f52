// Package profile edits user display names, bios and avatars.
package profile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	pkgerrors "github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/dshills/gatekeep/internal/config"
	"github.com/dshills/gatekeep/internal/event/events"
	"github.com/dshills/gatekeep/internal/store"
)

// Field length limits in runes.
const (
	MaxDisplayNameLen = 100
	MaxBioLen         = 1000
)

// Errors returned by Service.
var (
	ErrDisplayNameTooLong = fmt.Errorf("display name exceeds %d characters", MaxDisplayNameLen)
	ErrBioTooLong         = fmt.Errorf("bio exceeds %d characters", MaxBioLen)
	ErrAvatarTooLarge     = errors.New("avatar image too large")
	ErrUnsupportedImage   = errors.New("unsupported image format")
	ErrNoAvatar           = errors.New("no avatar set")
)

// Service implements profile operations.
type Service struct {
	store    store.Store
	emitter  events.Emitter
	size     int
	maxBytes int64
	logger   *log.Entry
	now      func() time.Time
}

// NewService creates a Service producing avatars per cfg.
func NewService(st store.Store, emitter events.Emitter, cfg config.AvatarConfig, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "profile")
	}
	return &Service{
		store:    st,
		emitter:  emitter,
		size:     cfg.Size,
		maxBytes: cfg.MaxBytes,
		logger:   logger,
		now:      time.Now,
	}
}

// Get returns the user's profile.
func (s *Service) Get(ctx context.Context, userID string) (*store.User, error) {
	u, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "loading profile")
	}
	return u, nil
}

// Update sets the display name and bio. The published event lists the
// fields that actually changed; nothing is published when none did.
func (s *Service) Update(ctx context.Context, userID, displayName, bio string) (*store.User, error) {
	displayName = strings.TrimSpace(displayName)
	if utf8.RuneCountInString(displayName) > MaxDisplayNameLen {
		return nil, ErrDisplayNameTooLong
	}
	if utf8.RuneCountInString(bio) > MaxBioLen {
		return nil, ErrBioTooLong
	}

	u, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "loading profile")
	}

	var fields []string
	if u.DisplayName != displayName {
		u.DisplayName = displayName
		fields = append(fields, "display_name")
	}
	if u.Bio != bio {
		u.Bio = bio
		fields = append(fields, "bio")
	}
	if len(fields) == 0 {
		return u, nil
	}

	u.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateUser(ctx, u); err != nil {
		return nil, pkgerrors.Wrap(err, "saving profile")
	}
	s.publish(ctx, events.ProfileUpdated{UserID: userID, Fields: fields})
	return u, nil
}

// SetAvatar decodes an image, crops it to a centered square, scales it to
// the configured size and stores it as PNG.
func (s *Service) SetAvatar(ctx context.Context, userID string, r io.Reader) (*events.ProfileAvatarUpdated, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return nil, pkgerrors.Wrap(err, "reading avatar")
	}
	if int64(len(data)) > s.maxBytes {
		return nil, ErrAvatarTooLarge
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, ErrUnsupportedImage
	}

	encoded, err := encodeAvatar(src, s.size)
	if err != nil {
		return nil, err
	}

	u, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "loading profile")
	}
	u.AvatarPNG = encoded
	u.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateUser(ctx, u); err != nil {
		return nil, pkgerrors.Wrap(err, "saving avatar")
	}

	s.logger.WithFields(log.Fields{
		"userID": userID,
		"format": format,
		"input":  humanize.Bytes(uint64(len(data))),
		"output": humanize.Bytes(uint64(len(encoded))),
	}).Debug("Avatar updated.")

	evt := events.ProfileAvatarUpdated{
		UserID:       userID,
		SourceFormat: format,
		Size:         s.size,
		Bytes:        len(encoded),
	}
	s.publish(ctx, evt)
	return &evt, nil
}

// Avatar returns the stored PNG avatar.
func (s *Service) Avatar(ctx context.Context, userID string) ([]byte, error) {
	u, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "loading profile")
	}
	if len(u.AvatarPNG) == 0 {
		return nil, ErrNoAvatar
	}
	return u.AvatarPNG, nil
}

func encodeAvatar(src image.Image, size int) ([]byte, error) {
	b := src.Bounds()
	side := min(b.Dx(), b.Dy())
	if side == 0 {
		return nil, ErrUnsupportedImage
	}
	x0 := b.Min.X + (b.Dx()-side)/2
	y0 := b.Min.Y + (b.Dy()-side)/2
	crop := image.Rect(x0, y0, x0+side, y0+side)

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, crop, draw.Src, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, pkgerrors.Wrap(err, "encoding avatar")
	}
	return buf.Bytes(), nil
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
