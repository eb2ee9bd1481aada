package config

import (
	"errors"
	"fmt"
)

type MetricsConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

func (cfg *MetricsConfig) Validate() error {
	if cfg.Host == "" {
		return errors.New("metrics host must be set")
	}
	if cfg.Port < 1024 || cfg.Port > 65535 {
		return fmt.Errorf("metrics port must be within 1024-65535, got %d", cfg.Port)
	}
	return nil
}

func (cfg *MetricsConfig) GetMetricsPort() int {
	return cfg.Port
}

type APIConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

func (cfg *APIConfig) Validate() error {
	if cfg.Host == "" {
		return errors.New("api host must be set")
	}
	if cfg.Port < 1024 || cfg.Port > 65535 {
		return fmt.Errorf("api port must be within 1024-65535, got %d", cfg.Port)
	}
	return nil
}
