package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"security-hub/internal/config"
	"security-hub/internal/logging"
	"security-hub/internal/models"
)

func TestNewTelegram_Disabled(t *testing.T) {
	tg, err := NewTelegram(config.Config{}, logging.NewNop())
	require.NoError(t, err)
	assert.Nil(t, tg)
}

func TestNewTelegram_MissingChat(t *testing.T) {
	var cfg config.Config
	cfg.Telegram.BotToken = "123:abc"
	_, err := NewTelegram(cfg, logging.NewNop())
	assert.Error(t, err)
}

func TestFormatTelegram(t *testing.T) {
	text := FormatTelegram(models.Notification{
		Subject: "ALARM: door OPEN at FrontDoor",
		Body:    "Security alarm triggered.",
		Alert:   models.Alert{ID: 5, DeviceID: "abc123", DeviceName: "FrontDoor", Channel: "door", Value: "OPEN"},
	})
	assert.Contains(t, text, "*ALARM: door OPEN at FrontDoor*")
	assert.Contains(t, text, "*Device:* FrontDoor (abc123)")
	assert.Contains(t, text, "*Alert ID:* 5")
}
