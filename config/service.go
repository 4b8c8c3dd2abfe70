package config

import (
	"github.com/kbukum/resourcekit/errors"
	"github.com/kbukum/resourcekit/logger"
	"github.com/kbukum/resourcekit/validation"
)

// ServiceConfig contains the fields that identify the application using the
// client. ClientConfig embeds it.
type ServiceConfig struct {
	Name        string        `yaml:"name" mapstructure:"name" validate:"required"`
	Environment string        `yaml:"environment" mapstructure:"environment" validate:"oneof=development staging production"`
	Version     string        `yaml:"version" mapstructure:"version"`
	Debug       bool          `yaml:"debug" mapstructure:"debug"`
	Logging     logger.Config `yaml:"logging" mapstructure:"logging"`
}

// ApplyDefaults defaults to development, which turns on debug logging.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
		if c.Logging.Level == "" {
			c.Logging.Level = "debug"
		}
	}
	c.Logging.ApplyDefaults()
}

// Validate checks the service fields and the nested logging section.
func (c *ServiceConfig) Validate() error {
	if err := validation.New().Merge(validation.Validate(c)).Validate(); err != nil {
		return errors.InvalidConfig("config: " + err.Message).WithDetails(err.Details)
	}
	return nil
}
