package store

import (
	"sort"
	"sync"
	"time"

	"security-hub/internal/models"
)

type statusKey struct {
	deviceID string
	channel  string
}

// StatusStore keeps the latest value per (device, channel).
type StatusStore struct {
	mu       sync.RWMutex
	registry *Registry
	entries  map[statusKey]models.SensorStatus
}

func NewStatusStore(registry *Registry) *StatusStore {
	return &StatusStore{
		registry: registry,
		entries:  make(map[statusKey]models.SensorStatus),
	}
}

// Set overwrites the status. Unknown devices are registered first so that a
// status never exists without its device.
func (s *StatusStore) Set(deviceID, channel, value string, at time.Time) models.SensorStatus {
	s.registry.ensure(deviceID, at)

	st := models.SensorStatus{DeviceID: deviceID, Channel: channel, Value: value, UpdatedAt: at}
	s.mu.Lock()
	s.entries[statusKey{deviceID, channel}] = st
	s.mu.Unlock()
	return st
}

func (s *StatusStore) Get(deviceID, channel string) (models.SensorStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.entries[statusKey{deviceID, channel}]
	return st, ok
}

// ForDevice returns the channels of one device keyed by channel name.
func (s *StatusStore) ForDevice(deviceID string) map[string]models.SensorStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]models.SensorStatus)
	for k, st := range s.entries {
		if k.deviceID == deviceID {
			out[k.channel] = st
		}
	}
	return out
}

// All returns every entry ordered by device then channel.
func (s *StatusStore) All() []models.SensorStatus {
	s.mu.RLock()
	out := make([]models.SensorStatus, 0, len(s.entries))
	for _, st := range s.entries {
		out = append(out, st)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].DeviceID != out[j].DeviceID {
			return out[i].DeviceID < out[j].DeviceID
		}
		return out[i].Channel < out[j].Channel
	})
	return out
}

// RemoveDevice drops every channel of a removed device.
func (s *StatusStore) RemoveDevice(deviceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.entries {
		if k.deviceID == deviceID {
			delete(s.entries, k)
		}
	}
}
