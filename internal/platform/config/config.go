// Package config loads the server configuration from a YAML file and applies
// development defaults so a bare `server -config config.yaml` works against a
// local stack.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"hvn/internal/name/models"
)

// Duration decodes "90s" / "5m" style YAML strings, which yaml.v3 does not
// do for time.Duration on its own.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type ServerConfig struct {
	Host            string   `yaml:"host"`
	Port            int      `yaml:"port"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	// DSN is empty for the in-memory store; set it to run on postgres.
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type ChainConfig struct {
	RPCURL        string   `yaml:"rpc_url"`
	RegistrarAddr string   `yaml:"registrar_addr"`
	CallTimeout   Duration `yaml:"call_timeout"`
}

type DNSConfig struct {
	Zone         string   `yaml:"zone"`
	TTLPositive  Duration `yaml:"ttl_positive"`
	TTLNegative  Duration `yaml:"ttl_negative"`
	GatewayIPs   []string `yaml:"gateway_ips"`
	BearerSecret string   `yaml:"bearer_secret"`
}

type RegistrarConfig struct {
	Tlds        []models.TldConfig `yaml:"tlds"`
	OnchainTlds []string           `yaml:"onchain_tlds"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	Buffer  int      `yaml:"buffer"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "text"
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Chain     ChainConfig     `yaml:"chain"`
	DNS       DNSConfig       `yaml:"dns"`
	Registrar RegistrarConfig `yaml:"registrar"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Log       LogConfig       `yaml:"log"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = Duration(10 * time.Second)
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Chain.CallTimeout == 0 {
		c.Chain.CallTimeout = Duration(3 * time.Second)
	}
	if c.DNS.Zone == "" {
		c.DNS.Zone = "hl"
	}
	if c.DNS.TTLPositive == 0 {
		c.DNS.TTLPositive = Duration(5 * time.Minute)
	}
	if c.DNS.TTLNegative == 0 {
		c.DNS.TTLNegative = Duration(time.Minute)
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "hvn.registrar.audit"
	}
	if c.Kafka.Buffer == 0 {
		c.Kafka.Buffer = 1024
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

func (c *Config) validate() error {
	if len(c.Registrar.Tlds) == 0 && len(c.Registrar.OnchainTlds) == 0 {
		return fmt.Errorf("registrar: at least one tld must be configured")
	}
	seen := map[string]bool{}
	for i, tld := range c.Registrar.Tlds {
		if tld.Name == "" {
			return fmt.Errorf("registrar.tlds[%d]: name is required", i)
		}
		if seen[tld.Name] {
			return fmt.Errorf("registrar.tlds[%d]: duplicate tld %q", i, tld.Name)
		}
		seen[tld.Name] = true
		if tld.PricePerYear < 0 {
			return fmt.Errorf("registrar.tlds[%d]: price_per_year must not be negative", i)
		}
	}
	for _, name := range c.Registrar.OnchainTlds {
		if seen[name] {
			return fmt.Errorf("registrar: tld %q configured both off-chain and on-chain", name)
		}
	}
	if len(c.Registrar.OnchainTlds) > 0 && c.Chain.RPCURL == "" {
		return fmt.Errorf("chain.rpc_url is required when on-chain tlds are configured")
	}
	return nil
}

// Addr is the listen address in host:port form.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Catalog splits the TLD configuration into the shape the registrar service
// consumes.
func (c *Config) Catalog() (map[string]models.TldConfig, []string) {
	offchain := make(map[string]models.TldConfig, len(c.Registrar.Tlds))
	for _, tld := range c.Registrar.Tlds {
		tld.Backend = models.BackendOffchain
		offchain[tld.Name] = tld
	}
	return offchain, c.Registrar.OnchainTlds
}
