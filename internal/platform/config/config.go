package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	pkgstrings "qidscan/pkg/platform/strings"
)

// Config is the full runtime configuration. Every key can be set in the YAML
// file or overridden with QIDSCAN_<SECTION>_<KEY>, e.g. QIDSCAN_SERVER_ADDR.
type Config struct {
	Server    Server    `mapstructure:"server"`
	Log       Log       `mapstructure:"log"`
	OCR       OCR       `mapstructure:"ocr"`
	Capture   Capture   `mapstructure:"capture"`
	Audit     Audit     `mapstructure:"audit"`
	Redis     Redis     `mapstructure:"redis"`
	Database  Database  `mapstructure:"database"`
	RateLimit RateLimit `mapstructure:"rate_limit"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr           string        `mapstructure:"addr"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
	// TrustedProxies lists IPs or CIDRs whose X-Forwarded-For is believed.
	// Empty means clients are keyed by their socket address.
	TrustedProxies []string      `mapstructure:"trusted_proxies"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// OCR selects and tunes the recognition backend. When RemoteURL is set the
// server forwards scans to that QID scanner instead of running Tesseract.
type OCR struct {
	Languages      []string      `mapstructure:"languages"`
	TessdataPrefix string        `mapstructure:"tessdata_prefix"`
	MaxImageWidth  int           `mapstructure:"max_image_width"`
	RemoteURL      string        `mapstructure:"remote_url"`
	RemoteTimeout  time.Duration `mapstructure:"remote_timeout"`
	RemoteFallback bool          `mapstructure:"remote_fallback"`
}

// Capture configures desktop-to-mobile handoff sessions.
type Capture struct {
	SessionTTL    time.Duration `mapstructure:"session_ttl"`
	PublicBaseURL string        `mapstructure:"public_base_url"`
	QRSize        int           `mapstructure:"qr_size"`
}

// Audit configures the scan audit trail. HashKey keys the BLAKE2b digest that
// stands in for the QID in stored events. AdminToken guards the audit listing.
type Audit struct {
	HashKey    string `mapstructure:"hash_key"`
	BufferSize int    `mapstructure:"buffer_size"`
	AdminToken string `mapstructure:"admin_token"`
}

// Redis backs capture sessions when URL is set; otherwise they live in memory.
type Redis struct {
	URL          string        `mapstructure:"url"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Database backs the audit trail when URL is set; otherwise it lives in memory.
type Database struct {
	URL             string        `mapstructure:"url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RateLimit caps OCR requests per client IP. The window is shared across
// replicas when Redis is configured.
type RateLimit struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// Load reads configuration from path (optional) and the environment. An empty
// path searches ./qidscan.yaml and /etc/qidscan/qidscan.yaml; a missing file
// is not an error.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("qidscan")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/qidscan/")
	}

	v.SetEnvPrefix("QIDSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.OCR.Languages = pkgstrings.NormalizeList(cfg.OCR.Languages)
	cfg.Server.TrustedProxies = pkgstrings.NormalizeList(cfg.Server.TrustedProxies)
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.request_timeout", "60s")
	v.SetDefault("server.max_body_bytes", 10<<20)
	v.SetDefault("server.trusted_proxies", []string{})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("ocr.languages", []string{"eng", "ara"})
	v.SetDefault("ocr.tessdata_prefix", "")
	v.SetDefault("ocr.max_image_width", 1200)
	v.SetDefault("ocr.remote_url", "")
	v.SetDefault("ocr.remote_timeout", "30s")
	v.SetDefault("ocr.remote_fallback", false)

	v.SetDefault("capture.session_ttl", "10m")
	v.SetDefault("capture.public_base_url", "http://localhost:8080")
	v.SetDefault("capture.qr_size", 256)

	// Development default; production deployments must override it.
	v.SetDefault("audit.hash_key", "dev-audit-key-change-in-production")
	v.SetDefault("audit.buffer_size", 256)
	v.SetDefault("audit.admin_token", "")

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.conn_max_lifetime", "1h")

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 30)
	v.SetDefault("rate_limit.window", "1m")
}

func (c Config) validate() error {
	if c.OCR.MaxImageWidth <= 0 {
		return fmt.Errorf("ocr.max_image_width must be positive, got %d", c.OCR.MaxImageWidth)
	}
	if c.Capture.SessionTTL <= 0 {
		return fmt.Errorf("capture.session_ttl must be positive, got %s", c.Capture.SessionTTL)
	}
	if c.Capture.QRSize < 64 {
		return fmt.Errorf("capture.qr_size must be at least 64, got %d", c.Capture.QRSize)
	}
	if c.Audit.BufferSize <= 0 {
		return fmt.Errorf("audit.buffer_size must be positive, got %d", c.Audit.BufferSize)
	}
	if c.RateLimit.Enabled && (c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0) {
		return fmt.Errorf("rate_limit needs positive requests and window, got %d per %s", c.RateLimit.Requests, c.RateLimit.Window)
	}
	if len(c.OCR.Languages) == 0 {
		return errors.New("ocr.languages must not be empty")
	}
	return nil
}
