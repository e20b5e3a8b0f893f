package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{
		"NETWORK_TCP_PORT", "NETWORK_UDP_PORT", "NETWORK_DISCOVERY_PORT",
		"SECURITY_PIN", "GRACE_PERIOD_SECONDS", "ALARM_TRIGGERS", "API_PORT",
	} {
		t.Setenv(key, "")
	}

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port(PortImage))
	assert.Equal(t, 8081, cfg.Port(PortStatus))
	assert.Equal(t, 8082, cfg.Port(PortDiscovery))
	assert.Equal(t, "0.0.0.0", cfg.Network.BindHost)
	assert.Equal(t, 30*time.Second, cfg.GracePeriod())
	assert.Equal(t, 30*24*time.Hour, cfg.AlertRetention())
	assert.Equal(t, "1234", cfg.Security.PIN)
	assert.Equal(t, "motion=DETECTED,door=OPEN,window=OPEN", cfg.Alerts.Triggers)
	assert.Equal(t, ":9191", cfg.API.Port)
	assert.Equal(t, "/api/v0", cfg.API.BasePath)
	assert.Equal(t, 60*time.Second, cfg.Notification.Cooldown)
	assert.False(t, cfg.Security.Armed)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("NETWORK_UDP_PORT", "9001")
	t.Setenv("SYSTEM_ARMED", "true")
	t.Setenv("GRACE_PERIOD_SECONDS", "10")
	t.Setenv("IMAGE_READ_TIMEOUT", "5s")
	t.Setenv("SECURITY_PIN", "987654")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, 9001, cfg.Port(PortStatus))
	assert.True(t, cfg.Security.Armed)
	assert.Equal(t, 10*time.Second, cfg.GracePeriod())
	assert.Equal(t, 5*time.Second, cfg.Images.ReadTimeout)
	assert.Equal(t, "987654", cfg.Security.PIN)
}

func TestFromEnv_InvalidValues(t *testing.T) {
	t.Setenv("NETWORK_TCP_PORT", "eighty")
	t.Setenv("NOTIFY_COOLDOWN", "soon")
	t.Setenv("SECURITY_PIN", "12")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NETWORK_TCP_PORT")
	assert.Contains(t, err.Error(), "NOTIFY_COOLDOWN")
	assert.Contains(t, err.Error(), "SECURITY_PIN")
}

func TestPort_UnknownKind(t *testing.T) {
	var cfg Config
	assert.Equal(t, 0, cfg.Port(PortKind("serial")))
}
