package session

import (
	"errors"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/belltown/termrelay/logger"
	"github.com/belltown/termrelay/relay"
)

// Config represents the configuration parameters for a relay session.
type Config struct {
	// host specifies the host of the remote device.
	host string

	// port specifies the TCP port number of the remote device.
	port int

	// connectTimeout defines the timeout for establishing the remote
	// connection. It should be between 0.1 and 30 seconds.
	// Defaults to 3 seconds.
	connectTimeout time.Duration

	// closeTimeout defines the timeout for closing the whole session.
	// It should be between 1 and 30 seconds.
	// Defaults to 3 seconds.
	closeTimeout time.Duration

	// displayLockTimeout bounds how long a worker waits for the display
	// guard before writing unguarded. It should be between 1 and 30 seconds.
	// Defaults to 5 seconds.
	displayLockTimeout time.Duration

	// readChunkSize defines the receive buffer size for the remote reader.
	// It should be between 256 and 65536 bytes.
	// Defaults to 4096.
	readChunkSize int

	// inputChunkSize defines the receive buffer size for the side-channel
	// input worker. Operator command lines tend to be very short.
	// It should be between 64 and 4096 bytes.
	// Defaults to 256.
	inputChunkSize int

	// displayWriter is the surface rendered device output is written to.
	// Defaults to os.Stdout.
	displayWriter io.Writer

	// trafficWriter receives a byte-for-byte copy of both directions of
	// traffic. A nil writer disables traffic logging.
	trafficWriter io.Writer

	// logger provides a logger instance for session events and errors.
	logger logger.Logger
}

// NewConfig creates a new session configuration with the given remote host,
// port number, and optional functional options.
//
// It initializes a Config with default values and then applies the provided
// options to customize the configuration.
//
// Returns a pointer to the initialized Config and an error if any occurred
// during the configuration process.
func NewConfig(host string, port int, opts ...Option) (*Config, error) {
	cfg := &Config{
		connectTimeout:     3 * time.Second,
		closeTimeout:       3 * time.Second,
		displayLockTimeout: relay.DefaultDisplayLockTimeout,
		readChunkSize:      4096,
		inputChunkSize:     256,
		displayWriter:      os.Stdout,
		logger:             logger.GetLogger(),
	}

	if err := withRemoteHost(host).apply(cfg); err != nil {
		return cfg, err
	}

	if err := withPort(port).apply(cfg); err != nil {
		return cfg, err
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return cfg, err
		}
	}

	return cfg, nil
}

// Host returns the configured remote host.
func (cfg *Config) Host() string { return cfg.host }

// Port returns the configured remote port.
func (cfg *Config) Port() int { return cfg.port }

// Option represents a functional option for configuring a Config.
type Option interface {
	apply(*Config) error
}

type optFunc struct {
	name      string
	applyFunc func(*Config) error
}

func (o *optFunc) apply(cfg *Config) error { return o.applyFunc(cfg) }

func newOptFunc(name string, f func(*Config) error) *optFunc {
	return &optFunc{name: name, applyFunc: f}
}

// withRemoteHost sets the host of the remote device.
// It returns an Option that validates the host and updates the configuration.
// An error is returned if the configuration is nil.
func withRemoteHost(host string) Option {
	return newOptFunc("withRemoteHost", func(cfg *Config) error {
		if cfg == nil {
			return relay.ErrConfigNil
		}

		// Check if it's a valid IP address
		if ip := net.ParseIP(host); ip != nil {
			cfg.host = host
			return nil
		}

		// If not an IP, check if it's a valid domain name
		host = strings.TrimPrefix(host, ".")
		host = strings.TrimSuffix(host, ".")
		if _, err := net.LookupHost(host); err == nil {
			cfg.host = host
			return nil
		}

		return errors.New("invalid host")
	})
}

// withPort sets the TCP port number of the remote device.
// It returns an Option that validates the port number and updates the
// configuration. An error is returned if the port number is out of the valid
// range (1-65535) or if the configuration is nil.
func withPort(port int) Option {
	return newOptFunc("withPort", func(cfg *Config) error {
		if cfg == nil {
			return relay.ErrConfigNil
		}

		if port < 1 || port > 65535 {
			return errors.New("port is out of range [1, 65535]")
		}
		cfg.port = port

		return nil
	})
}

// WithConnectTimeout sets the timeout for establishing the remote connection.
// It returns an Option that validates the timeout value and updates the
// configuration. An error is returned if the timeout is outside the valid
// range (0.1-30 seconds) or if the configuration is nil.
//
// The default value is 3 seconds.
func WithConnectTimeout(val time.Duration) Option {
	return newOptFunc("WithConnectTimeout", func(cfg *Config) error {
		if cfg == nil {
			return relay.ErrConfigNil
		}

		if val < 100*time.Millisecond || val > 30*time.Second {
			return errors.New("connect timeout out of range [0.1, 30]")
		}
		cfg.connectTimeout = val

		return nil
	})
}

// WithCloseTimeout sets the timeout for closing the whole session.
// It returns an Option that validates the timeout value and updates the
// configuration. An error is returned if the timeout is outside the valid
// range (1-30 seconds) or if the configuration is nil.
//
// The default value is 3 seconds.
func WithCloseTimeout(val time.Duration) Option {
	return newOptFunc("WithCloseTimeout", func(cfg *Config) error {
		if cfg == nil {
			return relay.ErrConfigNil
		}

		if val < 1*time.Second || val > 30*time.Second {
			return errors.New("close timeout out of range [1, 30]")
		}
		cfg.closeTimeout = val

		return nil
	})
}

// WithDisplayLockTimeout sets the bound on waiting for the display guard
// before a worker writes unguarded.
// An error is returned if the timeout is outside the valid range
// (1-30 seconds) or if the configuration is nil.
//
// The default value is 5 seconds.
func WithDisplayLockTimeout(val time.Duration) Option {
	return newOptFunc("WithDisplayLockTimeout", func(cfg *Config) error {
		if cfg == nil {
			return relay.ErrConfigNil
		}

		if val < 1*time.Second || val > 30*time.Second {
			return errors.New("display lock timeout out of range [1, 30]")
		}
		cfg.displayLockTimeout = val

		return nil
	})
}

// WithReadChunkSize sets the receive buffer size for the remote reader.
// An error is returned if the size is outside the valid range (256-65536
// bytes) or if the configuration is nil.
//
// The default value is 4096.
func WithReadChunkSize(size int) Option {
	return newOptFunc("WithReadChunkSize", func(cfg *Config) error {
		if cfg == nil {
			return relay.ErrConfigNil
		}

		if size < 256 || size > 65536 {
			return errors.New("read chunk size out of range [256, 65536]")
		}
		cfg.readChunkSize = size

		return nil
	})
}

// WithInputChunkSize sets the receive buffer size for the side-channel input
// worker.
// An error is returned if the size is outside the valid range (64-4096
// bytes) or if the configuration is nil.
//
// The default value is 256.
func WithInputChunkSize(size int) Option {
	return newOptFunc("WithInputChunkSize", func(cfg *Config) error {
		if cfg == nil {
			return relay.ErrConfigNil
		}

		if size < 64 || size > 4096 {
			return errors.New("input chunk size out of range [64, 4096]")
		}
		cfg.inputChunkSize = size

		return nil
	})
}

// WithDisplayWriter sets the surface rendered device output is written to.
// An error is returned if the writer or the configuration is nil.
//
// The default writer is os.Stdout.
func WithDisplayWriter(w io.Writer) Option {
	return newOptFunc("WithDisplayWriter", func(cfg *Config) error {
		if cfg == nil {
			return relay.ErrConfigNil
		}
		if w == nil {
			return errors.New("display writer is nil")
		}

		cfg.displayWriter = w

		return nil
	})
}

// WithTrafficWriter sets the writer receiving the byte-for-byte traffic log.
// A nil writer disables traffic logging, which is the default.
func WithTrafficWriter(w io.Writer) Option {
	return newOptFunc("WithTrafficWriter", func(cfg *Config) error {
		if cfg == nil {
			return relay.ErrConfigNil
		}

		cfg.trafficWriter = w

		return nil
	})
}

// WithLogger sets the logger for the session.
// It returns an Option that updates the configuration with the provided
// logger. An error is returned if the configuration is nil.
//
// The default logger is the global logger instance.
func WithLogger(l logger.Logger) Option {
	return newOptFunc("WithLogger", func(cfg *Config) error {
		if cfg == nil {
			return relay.ErrConfigNil
		}

		cfg.logger = l

		return nil
	})
}
