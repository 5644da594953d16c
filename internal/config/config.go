// Package config loads fetchbin's settings from environment variables.
//
// Every key has a default, so an empty environment yields a working local
// setup: HTTP on :8080, raw TCP ingestion on 0.0.0.0:9999 and a SQLite file
// store. A key that is set but cannot be parsed is an error rather than a
// silent fallback, and Load reports every problem it finds at once.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store drivers accepted in DB_DRIVER.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// CORSConfig lists browser origins allowed to call the API. Empty allows all.
type CORSConfig struct {
	AllowedOrigins []string // CORS_ALLOWED_ORIGINS, comma separated
}

// SecurityConfig controls HSTS.
type SecurityConfig struct {
	EnableHSTS bool          // ENABLE_HSTS
	HSTSMaxAge time.Duration // HSTS_MAX_AGE
}

// OTELConfig configures trace export.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT, host:port
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG, 0..1
}

// DBConfig selects and locates the store.
type DBConfig struct {
	Driver string // DB_DRIVER: sqlite|postgres
	Path   string // DB_PATH: SQLite file
	URL    string // DATABASE_URL: PostgreSQL DSN
}

// DSN returns the data source for the configured driver.
func (d DBConfig) DSN() string {
	if d.Driver == DriverPostgres {
		return d.URL
	}
	return d.Path
}

func (d DBConfig) validate() error {
	switch d.Driver {
	case DriverSQLite:
		if strings.TrimSpace(d.Path) == "" {
			return errors.New("DB_PATH must not be empty")
		}
	case DriverPostgres:
		if strings.TrimSpace(d.URL) == "" {
			return errors.New("DATABASE_URL must be set when DB_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("DB_DRIVER %q must be one of: sqlite, postgres", d.Driver)
	}
	return nil
}

// TCPConfig configures the raw text ingestion listener.
type TCPConfig struct {
	Enabled     bool          // TCP_ENABLED
	Host        string        // TCP_HOST
	Port        string        // TCP_PORT
	IdleTimeout time.Duration // TCP_IDLE_TIMEOUT: client silence that ends input
	MaxConns    int           // TCP_MAX_CONNS: concurrent connections
}

// Addr returns host:port.
func (t TCPConfig) Addr() string { return net.JoinHostPort(t.Host, t.Port) }

// validate checks the listener settings; a disabled listener is not checked.
func (t TCPConfig) validate() error {
	if !t.Enabled {
		return nil
	}
	var errs []error
	if p, err := strconv.Atoi(t.Port); err != nil || p < 0 || p > 65535 {
		errs = append(errs, fmt.Errorf("TCP_PORT %q must be a port number", t.Port))
	}
	if t.IdleTimeout <= 0 {
		errs = append(errs, errors.New("TCP_IDLE_TIMEOUT must be > 0"))
	}
	if t.MaxConns < 1 {
		errs = append(errs, errors.New("TCP_MAX_CONNS must be >= 1"))
	}
	return errors.Join(errs...)
}

// Config is the complete process configuration.
type Config struct {
	// HTTP server
	Port              string        // PORT
	ReadTimeout       time.Duration // READ_TIMEOUT
	ReadHeaderTimeout time.Duration // READ_HEADER_TIMEOUT
	WriteTimeout      time.Duration // WRITE_TIMEOUT
	IdleTimeout       time.Duration // IDLE_TIMEOUT
	ShutdownTimeout   time.Duration // SHUTDOWN_TIMEOUT: drain budget on SIGTERM
	MaxHeaderBytes    int           // MAX_HEADER_BYTES
	GinMode           string        // GIN_MODE: debug|release|test

	LogLevel       string // LOG_LEVEL
	LogPretty      bool   // LOG_PRETTY: console writer instead of JSON
	SwaggerEnabled bool   // SWAGGER_ENABLED
	APIBasePath    string // API_BASE_PATH

	// PublicURL prefixes the view and delete URLs handed to clients.
	PublicURL string // PUBLIC_URL
	DB        DBConfig
	TCP       TCPConfig

	// Shared by HTTP write routes and TCP connections, per client IP.
	RateRPS   float64 // RATE_RPS
	RateBurst int     // RATE_BURST

	CORS     CORSConfig
	Security SecurityConfig

	IdempotencyTTL time.Duration // IDEMPOTENCY_TTL

	OTEL OTELConfig
}

// HTTPAddr is the listen address of the HTTP server.
func (c Config) HTTPAddr() string { return ":" + c.Port }

// MustLoad is Load for callers that cannot continue without a config.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads the environment, applies defaults and normalization, and
// validates the result.
func Load() (Config, error) {
	var e env
	cfg := Config{
		Port:              e.str("PORT", "8080"),
		ReadTimeout:       e.dur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: e.dur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      e.dur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       e.dur("IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout:   e.dur("SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxHeaderBytes:    e.int("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(e.str("GIN_MODE", "release")),

		LogLevel:       strings.ToLower(e.str("LOG_LEVEL", "info")),
		LogPretty:      e.bool("LOG_PRETTY", false),
		SwaggerEnabled: e.bool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(e.str("API_BASE_PATH", "/api")),

		PublicURL: strings.TrimRight(e.str("PUBLIC_URL", "http://localhost:8080"), "/"),
		DB: DBConfig{
			Driver: strings.ToLower(e.str("DB_DRIVER", DriverSQLite)),
			Path:   e.str("DB_PATH", "fetchbin.db"),
			URL:    e.str("DATABASE_URL", ""),
		},
		TCP: TCPConfig{
			Enabled:     e.bool("TCP_ENABLED", true),
			Host:        e.str("TCP_HOST", "0.0.0.0"),
			Port:        e.str("TCP_PORT", "9999"),
			IdleTimeout: e.dur("TCP_IDLE_TIMEOUT", 5*time.Second),
			MaxConns:    e.int("TCP_MAX_CONNS", 256),
		},

		RateRPS:   e.float("RATE_RPS", 5),
		RateBurst: e.int("RATE_BURST", 10),

		CORS: CORSConfig{AllowedOrigins: splitCSV(e.str("CORS_ALLOWED_ORIGINS", ""))},
		Security: SecurityConfig{
			EnableHSTS: e.bool("ENABLE_HSTS", false),
			HSTSMaxAge: e.dur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		IdempotencyTTL: e.dur("IDEMPOTENCY_TTL", 24*time.Hour),

		OTEL: OTELConfig{
			Enabled:     e.bool("OTEL_ENABLED", false),
			Endpoint:    e.str("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    e.bool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: e.str("OTEL_SERVICE_NAME", "fetchbin"),
			SampleRatio: e.float("OTEL_TRACES_SAMPLER_ARG", 1),
		},
	}

	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	if err := errors.Join(errors.Join(e.errs...), cfg.Validate()); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate reports every invalid setting, joined.
func (c Config) Validate() error {
	var errs []error
	add := func(ok bool, msg string) {
		if !ok {
			errs = append(errs, errors.New(msg))
		}
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL %q must be one of: debug, info, warn, error, fatal, panic", c.LogLevel))
	}
	add(strings.TrimSpace(c.Port) != "", "PORT must not be empty")
	add(c.ReadTimeout > 0 && c.ReadHeaderTimeout > 0 && c.WriteTimeout > 0 &&
		c.IdleTimeout > 0 && c.ShutdownTimeout > 0, "timeouts must be positive durations")
	add(c.MaxHeaderBytes > 0, "MAX_HEADER_BYTES must be > 0")
	// /output/:public_id already lives at the root.
	add(c.APIBasePath != "/", "API_BASE_PATH must not be the root path")

	u, err := url.Parse(c.PublicURL)
	add(err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "",
		"PUBLIC_URL must be an absolute http(s) URL")

	if err := c.DB.validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.TCP.validate(); err != nil {
		errs = append(errs, err)
	}

	add(c.RateRPS >= 0, "RATE_RPS must be >= 0")
	add(c.RateBurst >= 1, "RATE_BURST must be >= 1")
	add(c.Security.HSTSMaxAge >= 0, "HSTS_MAX_AGE must be >= 0")
	add(c.IdempotencyTTL > 0, "IDEMPOTENCY_TTL must be > 0")
	add(c.OTEL.SampleRatio >= 0 && c.OTEL.SampleRatio <= 1, "OTEL_TRACES_SAMPLER_ARG must be in [0,1]")

	return errors.Join(errs...)
}

// env reads typed variables and remembers the ones it could not parse.
// Unset and empty variables take the default.
type env struct {
	errs []error
}

func (e *env) lookup(k string) (string, bool) {
	v, ok := os.LookupEnv(k)
	return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
}

func (e *env) bad(k, v, kind string) {
	e.errs = append(e.errs, fmt.Errorf("%s: %q is not a valid %s", k, v, kind))
}

func (e *env) str(k, def string) string {
	if v, ok := e.lookup(k); ok {
		return v
	}
	return def
}

func (e *env) int(k string, def int) int {
	v, ok := e.lookup(k)
	if !ok {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		e.bad(k, v, "integer")
		return def
	}
	return i
}

func (e *env) float(k string, def float64) float64 {
	v, ok := e.lookup(k)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.bad(k, v, "number")
		return def
	}
	return f
}

func (e *env) dur(k string, def time.Duration) time.Duration {
	v, ok := e.lookup(k)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.bad(k, v, "duration")
		return def
	}
	return d
}

func (e *env) bool(k string, def bool) bool {
	v, ok := e.lookup(k)
	if !ok {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	}
	e.bad(k, v, "boolean")
	return def
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// normalizeBasePath returns p with one leading slash and no trailing slash;
// blank means root.
func normalizeBasePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	return "/" + p
}
