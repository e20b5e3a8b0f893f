package store

import (
	"errors"
	"sort"
	"sync"
	"time"

	"security-hub/internal/models"
)

var ErrNotFound = errors.New("not found")

// Registry maps device ids to their last-known address and name.
type Registry struct {
	mu      sync.RWMutex
	devices map[string]models.Device
}

func NewRegistry() *Registry {
	return &Registry{devices: make(map[string]models.Device)}
}

// Upsert creates or refreshes a device. An empty name keeps the stored one.
// The returned bool is true when the device was not known before.
func (r *Registry) Upsert(id, name, address string, seen time.Time) (models.Device, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.upsertLocked(id, name, address, seen)
}

func (r *Registry) upsertLocked(id, name, address string, seen time.Time) (models.Device, bool) {
	d, ok := r.devices[id]
	if !ok {
		d = models.Device{ID: id}
	}
	if name != "" {
		d.Name = name
	}
	if address != "" {
		d.Address = address
	}
	if seen.After(d.LastSeen) {
		d.LastSeen = seen
	}
	r.devices[id] = d
	return d, !ok
}

// ensure registers id if absent and returns the stored device.
func (r *Registry) ensure(id string, seen time.Time) models.Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.devices[id]; ok {
		return d
	}
	d, _ := r.upsertLocked(id, "", "", seen)
	return d
}

func (r *Registry) Get(id string) (models.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.devices[id]
	if !ok {
		return models.Device{}, ErrNotFound
	}
	return d, nil
}

// FindByAddress returns the most recently seen device at address.
func (r *Registry) FindByAddress(address string) (models.Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var (
		found models.Device
		ok    bool
	)
	for _, d := range r.devices {
		if d.Address != address {
			continue
		}
		if !ok || d.LastSeen.After(found.LastSeen) {
			found, ok = d, true
		}
	}
	return found, ok
}

// List returns all devices ordered by name, then id.
func (r *Registry) List() []models.Device {
	r.mu.RLock()
	out := make([]models.Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, d)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Remove deletes a device on operator request.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.devices[id]; !ok {
		return ErrNotFound
	}
	delete(r.devices, id)
	return nil
}
