package store

import (
	"fmt"
	"strings"
)

// AlarmPolicy lists the (channel, value) pairs that raise an alert.
type AlarmPolicy struct {
	triggers map[string]map[string]bool
}

// DefaultPolicy is motion→DETECTED, door→OPEN, window→OPEN.
func DefaultPolicy() AlarmPolicy {
	p, _ := ParsePolicy("motion=DETECTED,door=OPEN,window=OPEN")
	return p
}

// ParsePolicy reads "channel=VALUE,channel=VALUE". A channel may appear
// more than once to accept several values.
func ParsePolicy(triggers string) (AlarmPolicy, error) {
	p := AlarmPolicy{triggers: make(map[string]map[string]bool)}
	for _, item := range strings.Split(triggers, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		channel, value, ok := strings.Cut(item, "=")
		channel, value = strings.TrimSpace(channel), strings.TrimSpace(value)
		if !ok || channel == "" || value == "" {
			return AlarmPolicy{}, fmt.Errorf("invalid alarm trigger %q", item)
		}
		if p.triggers[channel] == nil {
			p.triggers[channel] = make(map[string]bool)
		}
		p.triggers[channel][value] = true
	}
	if len(p.triggers) == 0 {
		return AlarmPolicy{}, fmt.Errorf("alarm policy is empty")
	}
	return p, nil
}

// Qualifies reports whether value on channel is alarm-worthy.
func (p AlarmPolicy) Qualifies(channel, value string) bool {
	return p.triggers[channel][value]
}
