package session

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/belltown/termrelay/logger"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg, err := NewConfig("127.0.0.1", 8085)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Host())
	assert.Equal(t, 8085, cfg.Port())
	assert.Equal(t, 3*time.Second, cfg.connectTimeout)
	assert.Equal(t, 3*time.Second, cfg.closeTimeout)
	assert.Equal(t, 5*time.Second, cfg.displayLockTimeout)
	assert.Equal(t, 4096, cfg.readChunkSize)
	assert.Equal(t, 256, cfg.inputChunkSize)
	assert.Equal(t, os.Stdout, cfg.displayWriter)
	assert.Nil(t, cfg.trafficWriter)
	assert.Equal(t, logger.GetLogger(), cfg.logger)
}

func TestNewConfig_HostValidation(t *testing.T) {
	tests := []struct {
		name    string
		host    string
		wantErr bool
	}{
		{name: "IPv4 address", host: "192.168.0.6", wantErr: false},
		{name: "IPv6 address", host: "::1", wantErr: false},
		{name: "resolvable name", host: "localhost", wantErr: false},
		{name: "unresolvable name", host: "no-such-host.invalid", wantErr: true},
		{name: "empty host", host: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConfig(tt.host, 8085)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewConfig_PortValidation(t *testing.T) {
	_, err := NewConfig("127.0.0.1", 0)
	assert.Error(t, err)

	_, err = NewConfig("127.0.0.1", 65536)
	assert.Error(t, err)

	_, err = NewConfig("127.0.0.1", 65535)
	assert.NoError(t, err)
}

func TestConfigOptions(t *testing.T) {
	var display, traffic bytes.Buffer
	mockLogger := logger.NewMockLogger()

	cfg, err := NewConfig("127.0.0.1", 8085,
		WithConnectTimeout(500*time.Millisecond),
		WithCloseTimeout(5*time.Second),
		WithDisplayLockTimeout(2*time.Second),
		WithReadChunkSize(8192),
		WithInputChunkSize(128),
		WithDisplayWriter(&display),
		WithTrafficWriter(&traffic),
		WithLogger(mockLogger),
	)
	require.NoError(t, err)

	assert.Equal(t, 500*time.Millisecond, cfg.connectTimeout)
	assert.Equal(t, 5*time.Second, cfg.closeTimeout)
	assert.Equal(t, 2*time.Second, cfg.displayLockTimeout)
	assert.Equal(t, 8192, cfg.readChunkSize)
	assert.Equal(t, 128, cfg.inputChunkSize)
	assert.Equal(t, &display, cfg.displayWriter)
	assert.Equal(t, &traffic, cfg.trafficWriter)
	assert.Equal(t, mockLogger, cfg.logger)
}

func TestConfigOptions_Validation(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{name: "connect timeout too small", opt: WithConnectTimeout(50 * time.Millisecond)},
		{name: "connect timeout too large", opt: WithConnectTimeout(31 * time.Second)},
		{name: "close timeout too small", opt: WithCloseTimeout(500 * time.Millisecond)},
		{name: "close timeout too large", opt: WithCloseTimeout(time.Minute)},
		{name: "display lock timeout too small", opt: WithDisplayLockTimeout(100 * time.Millisecond)},
		{name: "display lock timeout too large", opt: WithDisplayLockTimeout(time.Minute)},
		{name: "read chunk size too small", opt: WithReadChunkSize(128)},
		{name: "read chunk size too large", opt: WithReadChunkSize(1 << 20)},
		{name: "input chunk size too small", opt: WithInputChunkSize(32)},
		{name: "input chunk size too large", opt: WithInputChunkSize(65536)},
		{name: "nil display writer", opt: WithDisplayWriter(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConfig("127.0.0.1", 8085, tt.opt)
			assert.Error(t, err)
		})
	}
}
