package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeOptimize()
	c.normalizeHistory()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeOptimize() {
	if c.Optimize.Concurrency <= 0 {
		c.Optimize.Concurrency = defaultConcurrency
	}
	if c.Optimize.JPEGQuality == 0 {
		c.Optimize.JPEGQuality = defaultJPEGQuality
	}
	c.Optimize.TargetFormat = strings.ToLower(strings.TrimSpace(c.Optimize.TargetFormat))
	c.Optimize.OxipngBinary = strings.TrimSpace(c.Optimize.OxipngBinary)
	if c.Optimize.OxipngBinary == "" {
		c.Optimize.OxipngBinary = defaultOxipngBinary
	}
	c.Optimize.JpegoptimBinary = strings.TrimSpace(c.Optimize.JpegoptimBinary)
	if c.Optimize.JpegoptimBinary == "" {
		c.Optimize.JpegoptimBinary = defaultJpegoptimBinary
	}

	if len(c.Optimize.Extensions) == 0 {
		c.Optimize.Extensions = defaultExtensions()
		return
	}
	exts := make([]string, 0, len(c.Optimize.Extensions))
	seen := make(map[string]struct{}, len(c.Optimize.Extensions))
	for _, ext := range c.Optimize.Extensions {
		normalized := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		exts = append(exts, normalized)
	}
	if len(exts) == 0 {
		exts = defaultExtensions()
	}
	c.Optimize.Extensions = exts
}

func (c *Config) normalizeHistory() {
	if c.History.RetentionDays < 0 {
		c.History.RetentionDays = 0
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
