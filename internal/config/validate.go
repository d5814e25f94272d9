package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateOptimize(); err != nil {
		return err
	}
	if err := c.validateHistory(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateOptimize() error {
	if c.Optimize.Concurrency <= 0 {
		return errors.New("optimize.concurrency must be positive")
	}
	if c.Optimize.JPEGQuality < 1 || c.Optimize.JPEGQuality > 100 {
		return errors.New("optimize.jpeg_quality must be between 1 and 100")
	}
	if c.Optimize.PNGLevel < 0 || c.Optimize.PNGLevel > 6 {
		return errors.New("optimize.png_level must be between 0 and 6")
	}
	switch c.Optimize.TargetFormat {
	case "", "png", "jpg", "jpeg":
	default:
		return fmt.Errorf("optimize.target_format: unsupported value %q", c.Optimize.TargetFormat)
	}
	if len(c.Optimize.Extensions) == 0 {
		return errors.New("optimize.extensions must include at least one extension")
	}
	return nil
}

func (c *Config) validateHistory() error {
	if c.History.Enabled && c.History.RetentionDays < 0 {
		return errors.New("history.retention_days must be >= 0")
	}
	return nil
}
