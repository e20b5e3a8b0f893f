package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"security-hub/internal/models"
)

// Publisher is the publish half of an MQTT client.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// Bridge mirrors hub events onto MQTT topics under a prefix:
//
//	{prefix}/devices/{id}/{channel}  latest sensor value (retained)
//	{prefix}/armed                   "true" or "false" (retained)
//	{prefix}/alerts                  alert JSON
//	{prefix}/grace                   countdown JSON
//	{prefix}/alarm                   escalated alert JSON
//	{prefix}/images                  stored image JSON
type Bridge struct {
	pub    Publisher
	prefix string
}

func NewBridge(pub Publisher, prefix string) *Bridge {
	return &Bridge{pub: pub, prefix: prefix}
}

func (b *Bridge) Name() string { return "mqtt" }

func (b *Bridge) Handle(_ context.Context, ev models.Event) error {
	switch ev.Kind {
	case models.EventStatusChanged:
		if ev.Status == nil {
			return nil
		}
		topic := fmt.Sprintf("%s/devices/%s/%s", b.prefix, ev.Status.DeviceID, ev.Status.Channel)
		return b.pub.Publish(topic, 1, true, []byte(ev.Status.Value))
	case models.EventArmedChanged:
		if ev.Armed == nil {
			return nil
		}
		return b.pub.Publish(b.prefix+"/armed", 1, true, []byte(strconv.FormatBool(*ev.Armed)))
	case models.EventAlertRaised:
		return b.publishJSON("alerts", ev.Alert)
	case models.EventGraceStarted, models.EventGraceCancelled:
		return b.publishJSON("grace", ev)
	case models.EventAlarmEscalated:
		return b.publishJSON("alarm", ev.Alert)
	case models.EventImageStored:
		return b.publishJSON("images", ev.Image)
	}
	return nil
}

func (b *Bridge) publishJSON(suffix string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", suffix, err)
	}
	return b.pub.Publish(b.prefix+"/"+suffix, 1, false, payload)
}
