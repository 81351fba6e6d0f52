package profile

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/gatekeep/internal/config"
	"github.com/dshills/gatekeep/internal/event"
	"github.com/dshills/gatekeep/internal/event/events"
	"github.com/dshills/gatekeep/internal/store"
)

func setup(t *testing.T) (*Service, *[]event.Event) {
	t.Helper()

	b := event.NewBus()
	t.Cleanup(func() { _ = b.Close(context.Background()) })

	var got []event.Event
	_, err := b.OnAny(event.WildcardFunc(func(_ context.Context, _ string, evt event.Event) error {
		got = append(got, evt)
		return nil
	}))
	require.NoError(t, err)

	st := store.NewMemoryStore()
	require.NoError(t, st.CreateUser(context.Background(), &store.User{ID: "u1", Email: "a@example.com", DisplayName: "Ada"}))

	cfg := config.AvatarConfig{Size: 32, MaxBytes: 64 << 10}
	return NewService(st, b, cfg, nil), &got
}

func TestService_Update(t *testing.T) {
	svc, got := setup(t)
	ctx := context.Background()

	u, err := svc.Update(ctx, "u1", "Ada", "Mathematician")
	require.NoError(t, err)
	assert.Equal(t, "Mathematician", u.Bio)

	require.Len(t, *got, 1)
	p, ok := events.Decode[events.ProfileUpdated]((*got)[0])
	require.True(t, ok)
	assert.Equal(t, []string{"bio"}, p.Fields)

	_, err = svc.Update(ctx, "u1", " Ada ", "Mathematician")
	require.NoError(t, err)
	assert.Len(t, *got, 1, "no change, no event")

	_, err = svc.Update(ctx, "u1", strings.Repeat("x", MaxDisplayNameLen+1), "")
	assert.ErrorIs(t, err, ErrDisplayNameTooLong)
	_, err = svc.Update(ctx, "u1", "Ada", strings.Repeat("é", MaxBioLen+1))
	assert.ErrorIs(t, err, ErrBioTooLong)

	_, err = svc.Update(ctx, "missing", "x", "")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

func TestService_SetAvatar(t *testing.T) {
	tests := []struct {
		name   string
		encode func(*bytes.Buffer, image.Image) error
		format string
	}{
		{"png", func(b *bytes.Buffer, img image.Image) error { return png.Encode(b, img) }, "png"},
		{"jpeg", func(b *bytes.Buffer, img image.Image) error { return jpeg.Encode(b, img, nil) }, "jpeg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, got := setup(t)
			ctx := context.Background()

			var buf bytes.Buffer
			require.NoError(t, tt.encode(&buf, testImage(120, 80)))

			evt, err := svc.SetAvatar(ctx, "u1", &buf)
			require.NoError(t, err)
			assert.Equal(t, tt.format, evt.SourceFormat)
			assert.Equal(t, 32, evt.Size)

			stored, err := svc.Avatar(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, evt.Bytes, len(stored))

			img, format, err := image.Decode(bytes.NewReader(stored))
			require.NoError(t, err)
			assert.Equal(t, "png", format)
			assert.Equal(t, image.Rect(0, 0, 32, 32), img.Bounds())

			require.Len(t, *got, 1)
			assert.Equal(t, events.TopicProfileAvatarUpdated.String(), (*got)[0].Name)
		})
	}
}

func TestService_SetAvatarRejects(t *testing.T) {
	svc, got := setup(t)
	ctx := context.Background()

	_, err := svc.SetAvatar(ctx, "u1", strings.NewReader("definitely not an image"))
	assert.ErrorIs(t, err, ErrUnsupportedImage)

	_, err = svc.SetAvatar(ctx, "u1", bytes.NewReader(make([]byte, 64<<10+1)))
	assert.ErrorIs(t, err, ErrAvatarTooLarge)

	_, err = svc.Avatar(ctx, "u1")
	assert.ErrorIs(t, err, ErrNoAvatar)
	assert.Empty(t, *got)
}
