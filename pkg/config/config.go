package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/smartmeeting/gateway/pkg/logger"
)

// EnvPrefix is the prefix for environment variables
const EnvPrefix = "GATEWAY_"

var log = logger.New("config")

// Duration wraps time.Duration so YAML values can be written as "30s", "1m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
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

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Service describes one logical backend service: the instances serving it and
// the first path segments that route to it.
type Service struct {
	Endpoints []string `yaml:"endpoints"`
	Routes    []string `yaml:"routes"`
}

// Config holds all configuration parameters for the gateway
type Config struct {
	ListenAddr          string             `yaml:"listenAddr"`
	LogLevel            string             `yaml:"logLevel"`
	HealthCheckPath     string             `yaml:"healthCheckPath"`
	HealthCheckInterval Duration           `yaml:"healthCheckInterval"`
	ProbeTimeout        Duration           `yaml:"probeTimeout"`
	ProxyTimeout        Duration           `yaml:"proxyTimeout"`
	Services            map[string]Service `yaml:"services"`

	// Internal field, not loaded from yaml/env
	ConfigFile string `yaml:"-"`
}

// Default returns a configuration with default values, mirroring a local
// deployment of the four meeting-room services.
func Default() *Config {
	return &Config{
		ListenAddr:          ":8000",
		LogLevel:            "info",
		HealthCheckPath:     "/health",
		HealthCheckInterval: Duration(30 * time.Second),
		ProbeTimeout:        Duration(5 * time.Second),
		ProxyTimeout:        Duration(30 * time.Second),
		Services: map[string]Service{
			"users": {
				Endpoints: []string{"http://localhost:8001"},
				Routes:    []string{"users", "register", "login"},
			},
			"rooms": {
				Endpoints: []string{"http://localhost:8002"},
				Routes:    []string{"rooms"},
			},
			"bookings": {
				Endpoints: []string{"http://localhost:8003"},
				Routes:    []string{"bookings"},
			},
			"reviews": {
				Endpoints: []string{"http://localhost:8004"},
				Routes:    []string{"reviews"},
			},
		},
	}
}

// Load applies configuration layers: Defaults -> File -> Env -> Flags
func Load(args []string) (*Config, error) {
	cfg := Default()

	fs := pflag.NewFlagSet("gateway", pflag.ContinueOnError)
	flagConfigFile := fs.String("config", "", "Path to YAML configuration file (Env: "+EnvPrefix+"CONFIG)")
	flagListenAddr := fs.String("addr", cfg.ListenAddr, "Listen address for the gateway (Env: "+EnvPrefix+"ADDR)")
	flagLogLevel := fs.String("log-level", cfg.LogLevel, "Log level: trace, debug, info, warn, error, fatal (Env: "+EnvPrefix+"LOG_LEVEL)")
	flagHealthPath := fs.String("health-path", cfg.HealthCheckPath, "Path probed on each backend for health (Env: "+EnvPrefix+"HEALTH_PATH)")
	flagHealthInterval := fs.Duration("health-interval", time.Duration(cfg.HealthCheckInterval), "Interval between health sweeps (Env: "+EnvPrefix+"HEALTH_INTERVAL)")
	flagProbeTimeout := fs.Duration("probe-timeout", time.Duration(cfg.ProbeTimeout), "Timeout for a single health probe (Env: "+EnvPrefix+"PROBE_TIMEOUT)")
	flagProxyTimeout := fs.Duration("proxy-timeout", time.Duration(cfg.ProxyTimeout), "Timeout for a forwarded backend request (Env: "+EnvPrefix+"PROXY_TIMEOUT)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	configFile := *flagConfigFile
	if configFile == "" {
		configFile = os.Getenv(EnvPrefix + "CONFIG")
	}
	if configFile != "" {
		log.Info().Msgf("Loading configuration from file: %s", configFile)
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, err
		}
		cfg.ConfigFile = configFile
	}

	loadFromEnv(cfg)

	// Flags win over every other layer, but only those explicitly set.
	applyFlags(cfg, fs, flagListenAddr, flagLogLevel, flagHealthPath, flagHealthInterval, flagProbeTimeout, flagProxyTimeout)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile reads and parses the YAML file into the Config struct
func loadFromFile(filePath string, cfg *Config) error {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("could not read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("could not parse config YAML: %w", err)
	}
	return nil
}

// loadFromEnv loads configuration from environment variables, overwriting existing values
func loadFromEnv(cfg *Config) {
	if addr := os.Getenv(EnvPrefix + "ADDR"); addr != "" {
		cfg.ListenAddr = addr
	}
	if level := os.Getenv(EnvPrefix + "LOG_LEVEL"); level != "" {
		cfg.LogLevel = strings.ToLower(level)
	}
	if path := os.Getenv(EnvPrefix + "HEALTH_PATH"); path != "" {
		cfg.HealthCheckPath = path
	}
	setDurationFromEnv(&cfg.HealthCheckInterval, EnvPrefix+"HEALTH_INTERVAL")
	setDurationFromEnv(&cfg.ProbeTimeout, EnvPrefix+"PROBE_TIMEOUT")
	setDurationFromEnv(&cfg.ProxyTimeout, EnvPrefix+"PROXY_TIMEOUT")
}

func setDurationFromEnv(dst *Duration, key string) {
	raw := os.Getenv(key)
	if raw == "" {
		return
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Warn().Err(err).Msgf("Invalid duration in env var %s, keeping previous value", key)
		return
	}
	*dst = Duration(d)
}

// applyFlags overwrites cfg fields for flags that were explicitly set on the command line
func applyFlags(cfg *Config, fs *pflag.FlagSet, listenAddr, logLevel, healthPath *string, healthInterval, probeTimeout, proxyTimeout *time.Duration) {
	if fs.Changed("addr") {
		cfg.ListenAddr = *listenAddr
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = strings.ToLower(*logLevel)
	}
	if fs.Changed("health-path") {
		cfg.HealthCheckPath = *healthPath
	}
	if fs.Changed("health-interval") {
		cfg.HealthCheckInterval = Duration(*healthInterval)
	}
	if fs.Changed("probe-timeout") {
		cfg.ProbeTimeout = Duration(*probeTimeout)
	}
	if fs.Changed("proxy-timeout") {
		cfg.ProxyTimeout = Duration(*proxyTimeout)
	}
}

// Validate checks the assembled configuration and reports every problem found,
// not just the first one.
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.ListenAddr == "" {
		result = multierror.Append(result, fmt.Errorf("listenAddr must not be empty"))
	}
	if c.HealthCheckInterval <= 0 {
		result = multierror.Append(result, fmt.Errorf("healthCheckInterval must be positive"))
	}
	if c.ProbeTimeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("probeTimeout must be positive"))
	}
	if c.ProxyTimeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("proxyTimeout must be positive"))
	}
	if !strings.HasPrefix(c.HealthCheckPath, "/") {
		result = multierror.Append(result, fmt.Errorf("healthCheckPath must start with '/'"))
	}
	if len(c.Services) == 0 {
		result = multierror.Append(result, fmt.Errorf("at least one service must be configured"))
	}

	seenRoutes := map[string]string{}
	for name, svc := range c.Services {
		if len(svc.Endpoints) == 0 {
			result = multierror.Append(result, fmt.Errorf("service %q has no endpoints", name))
		}
		for _, raw := range svc.Endpoints {
			u, err := url.Parse(raw)
			if err != nil || !u.IsAbs() || u.Host == "" {
				result = multierror.Append(result, fmt.Errorf("service %q has invalid endpoint URL %q", name, raw))
			}
		}
		if len(svc.Routes) == 0 {
			result = multierror.Append(result, fmt.Errorf("service %q has no route segments", name))
		}
		for _, seg := range svc.Routes {
			if seg == "" || strings.Contains(seg, "/") {
				result = multierror.Append(result, fmt.Errorf("service %q has invalid route segment %q", name, seg))
				continue
			}
			if owner, dup := seenRoutes[seg]; dup {
				result = multierror.Append(result, fmt.Errorf("route segment %q claimed by both %q and %q", seg, owner, name))
				continue
			}
			seenRoutes[seg] = name
		}
	}

	return result.ErrorOrNil()
}

// RouteTable flattens the per-service route segments into the lookup table
// used by the service router.
func (c *Config) RouteTable() map[string]string {
	table := make(map[string]string)
	for name, svc := range c.Services {
		for _, seg := range svc.Routes {
			table[seg] = name
		}
	}
	return table
}
