package log

// LoggerConfig describes how the process-wide logger should be constructed.
// mwctl's root command builds it with DefaultLoggerConfig; there is no
// user-facing INI section for logging (the spec's config options are
// limited to mtu/fragment_timeout/congestion_algorithm/echo_config_path).
type LoggerConfig struct {
	Level   string
	Pattern string
	Time    string

	// FilePath, when non-empty, additionally writes logs to a rotated file
	// via lumberjack alongside stdout.
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// DefaultLoggerConfig returns the logger configuration used when the caller
// doesn't need anything fancier than console output.
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{
		Level:   "info",
		Pattern: "%time [%level] %caller: %msg%n",
		Time:    "2006-01-02 15:04:05",
	}
}
