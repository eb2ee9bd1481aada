package config

import (
	"errors"
	"time"
)

type QueueConfig struct {
	QueueUser           string        `mapstructure:"queue-user"`
	QueuePassword       string        `mapstructure:"queue-password"`
	Url                 string        `mapstructure:"url"`
	QueueName           string        `mapstructure:"queue-name"`
	QueueType           string        `mapstructure:"queue-type"`
	PublishTimeout      time.Duration `mapstructure:"publish-timeout"`
	MsgMaxRetryAttempts uint          `mapstructure:"msg-max-retry-attempts"`
}

func (cfg *QueueConfig) Validate() error {
	if cfg.Url == "" {
		return errors.New("queue url must be set")
	}
	if cfg.QueueName == "" {
		return errors.New("queue-name must be set")
	}
	if cfg.PublishTimeout <= 0 {
		return errors.New("publish-timeout must be positive")
	}
	if cfg.MsgMaxRetryAttempts == 0 {
		return errors.New("msg-max-retry-attempts must be positive")
	}
	return nil
}
