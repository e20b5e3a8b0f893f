package images

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"security-hub/internal/models"
)

func TestSave_SanitisesPath(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	body := []byte{0xFF, 0xD8, 0xFF, 0xE0, 1, 2, 3}
	img, err := s.Save("../../etc/motion_20261017_101500.jpg", "motion", body)
	require.NoError(t, err)

	assert.Equal(t, "motion_20261017_101500.jpg", img.Filename)
	assert.Equal(t, "motion", img.Channel)
	assert.Equal(t, int64(len(body)), img.Size)

	got, err := os.ReadFile(filepath.Join(dir, img.Filename))
	require.NoError(t, err)
	assert.Equal(t, body, got)

	leftovers, err := filepath.Glob(filepath.Join(dir, ".upload-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestSave_FallbackName(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2026, 10, 17, 8, 30, 0, 0, time.Local) }

	img, err := s.Save("", "door", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "door_20261017_083000.jpg", img.Filename)

	img, err = s.Save("payload.sh", "../x", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "capture_20261017_083000.jpg", img.Filename)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "a.jpg", SanitizeFilename(`C:\tmp\a.jpg`))
	assert.Equal(t, "", SanitizeFilename(".."))
	assert.Equal(t, "", SanitizeFilename(".hidden.jpg"))
	assert.Equal(t, "", SanitizeFilename("notes.txt"))
	assert.Equal(t, "b.PNG", SanitizeFilename("/x/y/b.PNG"))
}

func TestListAndForAlert(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = s.Save("door_20261017_100000.jpg", "door", []byte("a"))
	require.NoError(t, err)
	_, err = s.Save("door_20261017_120000.jpg", "door", []byte("b"))
	require.NoError(t, err)
	_, err = s.Save("motion_20261017_100010.jpg", "motion", []byte("c"))
	require.NoError(t, err)

	list, err := s.List()
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "door_20261017_120000.jpg", list[0].Filename)

	alert := models.Alert{
		Channel:   "door",
		CreatedAt: time.Date(2026, 10, 17, 10, 0, 5, 0, time.Local),
	}
	matched, err := s.ForAlert(alert, time.Minute)
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "door_20261017_100000.jpg", matched[0].Filename)
}

func TestUnderscoreChannel(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	at := time.Date(2026, 10, 17, 1, 2, 3, 0, time.Local)
	s.now = func() time.Time { return at }

	assert.Equal(t, "front_door_20261017_010203.jpg", FallbackFilename("front_door", at))

	img, err := s.Save("", "front_door", []byte("a"))
	require.NoError(t, err)
	assert.Equal(t, "front_door", img.Channel)

	matched, err := s.ForAlert(models.Alert{Channel: "front_door", CreatedAt: at.Add(10 * time.Second)}, time.Minute)
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "front_door_20261017_010203.jpg", matched[0].Filename)
}

func TestPurge(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	old, err := s.Save("window_20260901_000000.jpg", "window", []byte("old"))
	require.NoError(t, err)
	_, err = s.Save("window_20261017_000000.jpg", "window", []byte("new"))
	require.NoError(t, err)

	past := time.Now().Add(-20 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, old.Filename), past, past))

	removed, err := s.Purge(14 * 24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	list, err := s.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "window_20261017_000000.jpg", list[0].Filename)
}
