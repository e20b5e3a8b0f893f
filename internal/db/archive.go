package db

import (
	"context"
	"fmt"
	"time"

	"security-hub/internal/models"
)

func (d *DB) UpsertDevice(ctx context.Context, dev models.Device) error {
	query := `
        INSERT INTO devices (id, name, address, last_seen)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (id) DO UPDATE
        SET name = EXCLUDED.name, address = EXCLUDED.address, last_seen = EXCLUDED.last_seen`
	if _, err := d.Pool.Exec(ctx, query, dev.ID, dev.Name, dev.Address, dev.LastSeen); err != nil {
		return fmt.Errorf("failed to upsert device %s: %w", dev.ID, err)
	}
	return nil
}

func (d *DB) UpsertStatus(ctx context.Context, st models.SensorStatus) error {
	query := `
        INSERT INTO sensor_status (device_id, channel, value, updated_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (device_id, channel) DO UPDATE
        SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
	if _, err := d.Pool.Exec(ctx, query, st.DeviceID, st.Channel, st.Value, st.UpdatedAt); err != nil {
		return fmt.Errorf("failed to upsert status %s/%s: %w", st.DeviceID, st.Channel, err)
	}
	return nil
}

func (d *DB) InsertAlert(ctx context.Context, a models.Alert) error {
	query := `
        INSERT INTO alerts (id, device_id, device_name, channel, value, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (id) DO NOTHING`
	if _, err := d.Pool.Exec(ctx, query, a.ID, a.DeviceID, a.DeviceName, a.Channel, a.Value, a.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert alert %d: %w", a.ID, err)
	}
	return nil
}

// RecordGraceOutcome stores started, cancelled or escalated for an alert.
func (d *DB) RecordGraceOutcome(ctx context.Context, alertID int64, outcome string, at time.Time) error {
	query := `INSERT INTO grace_events (alert_id, outcome, created_at) VALUES ($1, $2, $3)`
	if _, err := d.Pool.Exec(ctx, query, alertID, outcome, at); err != nil {
		return fmt.Errorf("failed to record grace outcome for alert %d: %w", alertID, err)
	}
	return nil
}

// DeleteAlertsBefore applies the alert retention window to the archive.
func (d *DB) DeleteAlertsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := d.Pool.Exec(ctx, `DELETE FROM alerts WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune alerts: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (d *DB) Name() string { return "postgres" }

// Handle archives one hub event.
func (d *DB) Handle(ctx context.Context, ev models.Event) error {
	switch ev.Kind {
	case models.EventDeviceSeen, models.EventDeviceRestart:
		if ev.Device != nil {
			return d.UpsertDevice(ctx, *ev.Device)
		}
	case models.EventStatusChanged:
		if ev.Device != nil {
			if err := d.UpsertDevice(ctx, *ev.Device); err != nil {
				return err
			}
		}
		if ev.Status != nil {
			return d.UpsertStatus(ctx, *ev.Status)
		}
	case models.EventAlertRaised:
		if ev.Alert != nil {
			return d.InsertAlert(ctx, *ev.Alert)
		}
	case models.EventGraceStarted, models.EventGraceCancelled:
		if ev.Grace != nil && ev.Grace.Alert != nil {
			return d.RecordGraceOutcome(ctx, ev.Grace.Alert.ID, graceOutcome(ev.Kind), ev.At)
		}
	case models.EventAlarmEscalated:
		if ev.Alert != nil {
			return d.RecordGraceOutcome(ctx, ev.Alert.ID, "escalated", ev.At)
		}
	}
	return nil
}

func graceOutcome(kind models.EventKind) string {
	if kind == models.EventGraceCancelled {
		return "cancelled"
	}
	return "started"
}
