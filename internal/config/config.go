// Package config loads process configuration with viper, a dependency
// the protocol module declares but never previously wired anywhere.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// DeviceConfig configures cmd/device-agent.
type DeviceConfig struct {
	ProductID       uint16 `mapstructure:"product_id"`
	FirmwareVersion uint16 `mapstructure:"firmware_version"`
	PlatformID      uint16 `mapstructure:"platform_id"`
	DeviceID        string `mapstructure:"device_id"`
	CloudAddr       string `mapstructure:"cloud_addr"`
	PingIntervalMs  int64  `mapstructure:"ping_interval_ms"`
	RequireHello    bool   `mapstructure:"require_hello_response"`
	DeviceInitiated bool   `mapstructure:"device_initiated_describe"`
}

// GatewayConfig configures cmd/cloud-gateway.
type GatewayConfig struct {
	ListenAddr  string `mapstructure:"listen_addr"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
	SessionKey  string `mapstructure:"session_key"`
}

// LoadDeviceConfig reads path (any format viper supports — yaml, toml,
// json) plus DEVICEPROTO_-prefixed environment overrides.
func LoadDeviceConfig(path string) (DeviceConfig, error) {
	v := newViper(path)
	var cfg DeviceConfig
	if err := v.ReadInConfig(); err != nil {
		return DeviceConfig{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return DeviceConfig{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if cfg.PingIntervalMs == 0 {
		cfg.PingIntervalMs = 30000
	}
	if strings.TrimSpace(cfg.CloudAddr) == "" {
		return DeviceConfig{}, fmt.Errorf("device config missing cloud_addr")
	}
	return cfg, nil
}

// LoadGatewayConfig reads path plus DEVICEPROTO_-prefixed environment
// overrides.
func LoadGatewayConfig(path string) (GatewayConfig, error) {
	v := newViper(path)
	var cfg GatewayConfig
	if err := v.ReadInConfig(); err != nil {
		return GatewayConfig{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return GatewayConfig{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		cfg.ListenAddr = ":8443"
	}
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return GatewayConfig{}, fmt.Errorf("gateway config missing postgres_dsn")
	}
	return cfg, nil
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("deviceproto")
	v.AutomaticEnv()
	return v
}
