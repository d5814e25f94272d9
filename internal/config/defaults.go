package config

const (
	defaultWorkDir              = "~/.local/share/pixpress/work"
	defaultLogDir               = "~/.local/share/pixpress/logs"
	defaultConcurrency          = 4
	defaultJPEGQuality          = 80
	defaultPNGLevel             = 2
	defaultOxipngBinary         = "oxipng"
	defaultJpegoptimBinary      = "jpegoptim"
	defaultHistoryRetentionDays = 60
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

func defaultExtensions() []string {
	return []string{"png", "jpg", "jpeg"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir: defaultWorkDir,
			LogDir:  defaultLogDir,
		},
		Optimize: Optimize{
			Concurrency:     defaultConcurrency,
			JPEGQuality:     defaultJPEGQuality,
			PNGLevel:        defaultPNGLevel,
			Extensions:      defaultExtensions(),
			OxipngBinary:    defaultOxipngBinary,
			JpegoptimBinary: defaultJpegoptimBinary,
		},
		History: History{
			Enabled:       true,
			RetentionDays: defaultHistoryRetentionDays,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
