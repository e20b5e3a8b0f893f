package network

import (
	"errors"
	"time"

	"security-hub/internal/grace"
	"security-hub/internal/images"
	"security-hub/internal/logging"
	"security-hub/internal/models"
	"security-hub/internal/protocol"
	"security-hub/internal/store"
)

// Publisher receives hub events without blocking.
type Publisher interface {
	Publish(ev models.Event)
}

// Countdown is the part of the grace coordinator the listeners drive.
type Countdown interface {
	Start(alert models.Alert, d time.Duration) error
}

// Processor applies parsed messages to the stores. Listeners only decode.
type Processor struct {
	Registry    *store.Registry
	Status      *store.StatusStore
	Alerts      *store.AlertLog
	Policy      store.AlarmPolicy
	Grace       Countdown
	GracePeriod time.Duration
	Images      *images.Store
	Publisher   Publisher
	Logger      *logging.Logger

	now func() time.Time
}

func (p *Processor) clock() time.Time {
	if p.now != nil {
		return p.now()
	}
	return time.Now()
}

func (p *Processor) publish(ev models.Event) {
	if p.Publisher == nil {
		return
	}
	p.Publisher.Publish(ev)
}

// Announce registers a device seen on the discovery port.
func (p *Processor) Announce(id, name, ip string) models.Device {
	at := p.clock()
	d, created := p.Registry.Upsert(id, name, ip, at)
	if created {
		p.Logger.Infof("New device discovered: id=%s name=%s address=%s", id, name, ip)
	}
	p.publish(models.Event{Kind: models.EventDeviceSeen, At: at, Device: &d})
	return d
}

// SensorUpdate records a status report and raises an alert for qualifying
// transitions. The alert is kept whether or not the system is armed; the
// countdown only starts while armed.
func (p *Processor) SensorUpdate(msg protocol.Message, ip string) *models.Alert {
	at := p.clock()

	d, created := p.Registry.Upsert(msg.DeviceID, msg.DeviceName, ip, at)
	if created {
		p.Logger.Infof("New device registered from status update: id=%s name=%s", d.ID, d.Name)
		p.publish(models.Event{Kind: models.EventDeviceSeen, At: at, Device: &d})
	}

	st := p.Status.Set(msg.DeviceID, msg.Channel, msg.Value, at)
	p.publish(models.Event{Kind: models.EventStatusChanged, At: at, Device: &d, Status: &st})

	if !p.Policy.Qualifies(msg.Channel, msg.Value) {
		return nil
	}

	alert := p.Alerts.Append(models.Alert{
		DeviceID:   d.ID,
		DeviceName: d.Name,
		Channel:    msg.Channel,
		Value:      msg.Value,
		CreatedAt:  at,
	})
	p.Logger.Warnf("Alert raised: id=%d device=%s channel=%s value=%s", alert.ID, d.ID, alert.Channel, alert.Value)
	p.publish(models.Event{Kind: models.EventAlertRaised, At: at, Device: &d, Alert: &alert})

	if p.Grace != nil {
		err := p.Grace.Start(alert, p.GracePeriod)
		switch {
		case errors.Is(err, grace.ErrDisarmed):
			p.Logger.Debugf("System disarmed, alert %d recorded without countdown", alert.ID)
		case err != nil:
			p.Logger.Errorf("Failed to start grace period for alert %d: %v", alert.ID, err)
		}
	}
	return &alert
}

// ConfigUpdated records that a device applied new GPIO settings and must restart.
func (p *Processor) ConfigUpdated(deviceID, ip string) {
	at := p.clock()
	d, _ := p.Registry.Upsert(deviceID, "", ip, at)
	p.Logger.Infof("Device %s applied GPIO config, restart required", deviceID)
	p.publish(models.Event{Kind: models.EventDeviceRestart, At: at, Device: &d})
}

// Image persists a received capture and correlates it with a device. An
// explicit device id in the header wins over the sender address.
func (p *Processor) Image(hdr protocol.ImageHeader, body []byte, ip string) (models.Image, error) {
	img, err := p.Images.Save(hdr.Filename, hdr.Trigger, body)
	if err != nil {
		return models.Image{}, err
	}
	at := p.clock()
	p.Logger.Infof("Image stored: file=%s size=%d from=%s", img.Filename, img.Size, ip)
	p.publish(models.Event{Kind: models.EventImageStored, At: at, Image: &img})

	d, ok := p.correlate(hdr.DeviceID, ip)
	if !ok || !models.IsSensorChannel(hdr.Trigger) {
		return img, nil
	}
	st := p.Status.Set(d.ID, hdr.Trigger, models.DerivedImageStatus(hdr.Trigger), at)
	p.publish(models.Event{Kind: models.EventStatusChanged, At: at, Device: &d, Status: &st, Image: &img})
	return img, nil
}

func (p *Processor) correlate(deviceID, ip string) (models.Device, bool) {
	if deviceID != "" {
		if d, err := p.Registry.Get(deviceID); err == nil {
			return d, true
		}
	}
	return p.Registry.FindByAddress(ip)
}
