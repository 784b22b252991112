// Package config loads service settings from flags, environment variables
// and an optional config.yaml through viper. Keys are dotted
// (e.g. "mongodb.uri"); the matching environment variable upper-cases the key
// and replaces dots with underscores (MONGODB_URI).
package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
)

const (
	BackendMongo  = "mongo"
	BackendMemory = "memory"
)

// Config is the fully resolved service configuration.
type Config struct {
	Store struct {
		Backend string
	}
	Mongo struct {
		URI      string
		Database string
	}
	JWT struct {
		Secret    string
		Keys      map[string]string
		ActiveKid string
		TTL       time.Duration
	}
	GRPC struct {
		Port string
	}
	HTTP struct {
		Port string
	}
	RateLimit struct {
		RPM   int
		Burst int
	}
	TLS struct {
		Cert    string
		Key     string
		Require bool
	}
	AMQP struct {
		URL      string
		Exchange string
	}
	Media struct {
		BaseURL  string
		MaxBytes int64
	}
	Sync struct {
		LegacySenderUpdate bool
	}
	Log struct {
		Level log.Level
	}
	OTel struct {
		Endpoint string
		Insecure bool
	}
}

// New returns a viper instance with defaults and environment binding set up.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("store.backend", BackendMongo)
	v.SetDefault("mongodb.database", "chatsync")
	v.SetDefault("jwt.ttl", 24*time.Hour)
	v.SetDefault("grpc.port", "50051")
	v.SetDefault("http.port", "8080")
	v.SetDefault("rate_limit.rpm", 10)
	v.SetDefault("rate_limit.burst", 3)
	v.SetDefault("amqp.exchange", "chatsync.events")
	v.SetDefault("media.base_url", "http://localhost:8080")
	v.SetDefault("media.max_bytes", 16<<20)
	v.SetDefault("sync.legacy_sender_update", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("otel.insecure", true)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// ReadFile merges config.yaml from the working directory when present.
func ReadFile(v *viper.Viper, paths ...string) (string, error) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return "", nil
		}
		return "", err
	}
	return v.ConfigFileUsed(), nil
}

// Load resolves and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var c Config
	c.Store.Backend = strings.ToLower(v.GetString("store.backend"))
	c.Mongo.URI = v.GetString("mongodb.uri")
	c.Mongo.Database = v.GetString("mongodb.database")

	c.JWT.Secret = v.GetString("jwt.secret")
	c.JWT.ActiveKid = v.GetString("jwt.active_kid")
	c.JWT.TTL = v.GetDuration("jwt.ttl")
	keys, err := ParseKeys(v.GetString("jwt.keys"))
	if err != nil {
		return nil, err
	}
	c.JWT.Keys = keys

	c.GRPC.Port = v.GetString("grpc.port")
	c.HTTP.Port = v.GetString("http.port")
	c.RateLimit.RPM = v.GetInt("rate_limit.rpm")
	c.RateLimit.Burst = v.GetInt("rate_limit.burst")
	c.TLS.Cert = v.GetString("tls.cert")
	c.TLS.Key = v.GetString("tls.key")
	c.TLS.Require = v.GetBool("tls.require")
	c.AMQP.URL = v.GetString("amqp.url")
	c.AMQP.Exchange = v.GetString("amqp.exchange")
	c.Media.BaseURL = v.GetString("media.base_url")
	c.Media.MaxBytes = v.GetInt64("media.max_bytes")
	c.Sync.LegacySenderUpdate = v.GetBool("sync.legacy_sender_update")
	c.OTel.Endpoint = v.GetString("otel.endpoint")
	c.OTel.Insecure = v.GetBool("otel.insecure")

	level, err := log.ParseLevel(v.GetString("log.level"))
	if err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}
	c.Log.Level = level

	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// ParseKeys parses "kid:secret,kid2:secret2".
func ParseKeys(s string) (map[string]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	keys := map[string]string{}
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		kid, secret, ok := strings.Cut(pair, ":")
		if !ok || kid == "" || secret == "" {
			return nil, fmt.Errorf("invalid jwt.keys entry %q", pair)
		}
		keys[kid] = secret
	}
	return keys, nil
}

func (c *Config) validate() error {
	var errs []error

	switch c.Store.Backend {
	case BackendMongo:
		if c.Mongo.URI == "" {
			errs = append(errs, errors.New("mongodb.uri must be set for the mongo backend"))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("store.backend must be %q or %q, got %q", BackendMongo, BackendMemory, c.Store.Backend))
	}

	if len(c.JWT.Keys) == 0 && c.JWT.Secret == "" {
		errs = append(errs, errors.New("either jwt.secret or jwt.keys must be set"))
	}
	if len(c.JWT.Keys) > 0 {
		if c.JWT.ActiveKid == "" && len(c.JWT.Keys) == 1 {
			for kid := range c.JWT.Keys {
				c.JWT.ActiveKid = kid
			}
		}
		if _, ok := c.JWT.Keys[c.JWT.ActiveKid]; !ok {
			kids := make([]string, 0, len(c.JWT.Keys))
			for kid := range c.JWT.Keys {
				kids = append(kids, kid)
			}
			sort.Strings(kids)
			errs = append(errs, fmt.Errorf("jwt.active_kid %q is not one of %v", c.JWT.ActiveKid, kids))
		}
	}
	if c.JWT.TTL <= 0 {
		errs = append(errs, errors.New("jwt.ttl must be positive"))
	}

	if (c.TLS.Cert == "") != (c.TLS.Key == "") {
		errs = append(errs, errors.New("tls.cert and tls.key must be set together"))
	}
	if c.TLS.Require && c.TLS.Cert == "" {
		errs = append(errs, errors.New("tls.require is set but tls.cert/tls.key are not configured"))
	}
	if c.Media.MaxBytes <= 0 {
		errs = append(errs, errors.New("media.max_bytes must be positive"))
	}
	return errors.Join(errs...)
}
