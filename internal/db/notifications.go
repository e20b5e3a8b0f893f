package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"security-hub/internal/models"
)

func (d *DB) CreateNotification(ctx context.Context, n models.Notification) error {
	query := `
        INSERT INTO notifications (id, created_at, updated_at, alert_id, subject, body, status, last_error)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := d.Pool.Exec(ctx, query,
		n.ID, n.CreatedAt, n.UpdatedAt, n.Alert.ID, n.Subject, n.Body, n.Status, n.Error)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (d *DB) UpdateNotificationStatus(ctx context.Context, id uuid.UUID, status, lastError string) error {
	query := `
        UPDATE notifications
        SET status = $1, last_error = $2, updated_at = $3
        WHERE id = $4`
	result, err := d.Pool.Exec(ctx, query, status, lastError, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update notification status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("no notification updated for id %s", id)
	}
	return nil
}

// ListNotifications returns the newest escalation records first.
func (d *DB) ListNotifications(ctx context.Context, limit int) ([]models.Notification, error) {
	rows, err := d.Pool.Query(ctx, `
        SELECT n.id, n.created_at, n.updated_at, n.subject, n.body, n.status, n.last_error,
               n.alert_id, COALESCE(a.device_id, ''), COALESCE(a.device_name, ''),
               COALESCE(a.channel, ''), COALESCE(a.value, ''), COALESCE(a.created_at, n.created_at)
        FROM notifications n
        LEFT JOIN alerts a ON a.id = n.alert_id
        ORDER BY n.created_at DESC
        LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		err := rows.Scan(
			&n.ID, &n.CreatedAt, &n.UpdatedAt, &n.Subject, &n.Body, &n.Status, &n.Error,
			&n.Alert.ID, &n.Alert.DeviceID, &n.Alert.DeviceName,
			&n.Alert.Channel, &n.Alert.Value, &n.Alert.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read notifications: %w", err)
	}
	return notifications, nil
}
