package images

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"security-hub/internal/models"
)

// TimestampLayout is the time part of a capture filename.
const TimestampLayout = "20060102_150405"

var (
	capturePattern = regexp.MustCompile(`^([A-Za-z0-9_-]+)_(\d{8}_\d{6})`)
	channelPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	allowedExt     = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}
)

// Store persists captures under a root directory. Nothing is indexed in
// memory; List reads the directory every time.
type Store struct {
	root string
	now  func() time.Time
}

func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image storage %s: %w", root, err)
	}
	return &Store{root: root, now: time.Now}, nil
}

func (s *Store) Root() string {
	return s.root
}

// Save writes body under a sanitised form of filename. When filename is
// unusable the name falls back to {trigger}_{YYYYMMDD_HHMMSS}.jpg.
func (s *Store) Save(filename, trigger string, body []byte) (models.Image, error) {
	name := SanitizeFilename(filename)
	if name == "" {
		name = FallbackFilename(trigger, s.now())
	}

	tmp, err := os.CreateTemp(s.root, ".upload-*")
	if err != nil {
		return models.Image{}, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return models.Image{}, fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return models.Image{}, fmt.Errorf("failed to close %s: %w", name, err)
	}

	dst := filepath.Join(s.root, name)
	if err := os.Rename(tmpName, dst); err != nil {
		return models.Image{}, fmt.Errorf("failed to store %s: %w", name, err)
	}

	info, err := os.Stat(dst)
	if err != nil {
		return models.Image{}, fmt.Errorf("failed to stat %s: %w", name, err)
	}
	return describe(name, info), nil
}

// List returns stored images, newest first.
func (s *Store) List() ([]models.Image, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.root, err)
	}

	out := make([]models.Image, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if !allowedExt[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, describe(e.Name(), info))
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CapturedAt.Equal(out[j].CapturedAt) {
			return out[i].CapturedAt.After(out[j].CapturedAt)
		}
		return out[i].Filename > out[j].Filename
	})
	return out, nil
}

// ForAlert returns images whose channel prefix matches the alert and whose
// capture time lies within window of it.
func (s *Store) ForAlert(a models.Alert, window time.Duration) ([]models.Image, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}
	var out []models.Image
	for _, img := range all {
		if img.Channel != a.Channel {
			continue
		}
		d := img.CapturedAt.Sub(a.CreatedAt)
		if d < 0 {
			d = -d
		}
		if d <= window {
			out = append(out, img)
		}
	}
	return out, nil
}

// Purge removes images last modified before now-olderThan and returns how
// many were deleted.
func (s *Store) Purge(olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", s.root, err)
	}

	cutoff := s.now().Add(-olderThan)
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !allowedExt[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.root, e.Name())); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", e.Name(), err)
		}
		removed++
	}
	return removed, nil
}

// SanitizeFilename strips every directory component and returns "" for names
// that cannot be stored as an image.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == "/" || name == ".." || strings.HasPrefix(name, ".") {
		return ""
	}
	if !allowedExt[strings.ToLower(filepath.Ext(name))] {
		return ""
	}
	return name
}

func FallbackFilename(trigger string, at time.Time) string {
	if !channelPattern.MatchString(trigger) {
		trigger = "capture"
	}
	return fmt.Sprintf("%s_%s.jpg", trigger, at.Format(TimestampLayout))
}

func describe(name string, info os.FileInfo) models.Image {
	img := models.Image{Filename: name, CapturedAt: info.ModTime(), Size: info.Size()}
	m := capturePattern.FindStringSubmatch(name)
	if m == nil {
		return img
	}
	img.Channel = m[1]
	if at, err := time.ParseInLocation(TimestampLayout, m[2], time.Local); err == nil {
		img.CapturedAt = at
	}
	return img
}
