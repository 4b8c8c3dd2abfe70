package logger

import "github.com/kbukum/resourcekit/validation"

// Config configures a Logger.
type Config struct {
	// Level is a zerolog level name. Default info.
	Level string `yaml:"level" mapstructure:"level" validate:"oneof=trace debug info warn error fatal disabled"`
	// Format is json, console or pretty. Default console.
	Format string `yaml:"format" mapstructure:"format" validate:"oneof=json console pretty"`
	// Output is stdout or stderr. Default stdout.
	Output    string `yaml:"output" mapstructure:"output" validate:"omitempty,oneof=stdout stderr"`
	NoColor   bool   `yaml:"no_color" mapstructure:"no_color"`
	Timestamp bool   `yaml:"timestamp" mapstructure:"timestamp"`
	Caller    bool   `yaml:"caller" mapstructure:"caller"`
}

// ApplyDefaults fills empty fields and turns timestamps on.
func (c *Config) ApplyDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "console"
	}
	if c.Output == "" {
		c.Output = "stdout"
	}
	c.Timestamp = true
}

// Validate rejects unknown levels, formats and outputs.
func (c *Config) Validate() error {
	return validation.Validate(c)
}
