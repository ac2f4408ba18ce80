// internal/logger/config.go
package logger

// Config controls where and how verbosely the process logs.
type Config struct {
	Level      string
	LogFile    string
	MaxSize    int  // megabytes
	MaxAge     int  // days
	MaxBackups int  // files
	Compress   bool // gzip rotated files
	// Pretty switches the console to the short colored format.
	Pretty bool
}

// DefaultConfig returns the defaults used when no config is supplied.
func DefaultConfig() *Config {
	return &Config{
		Level:      "info",
		LogFile:    "logs/migrator.log",
		MaxSize:    100,
		MaxAge:     7,
		MaxBackups: 3,
		Compress:   true,
	}
}
