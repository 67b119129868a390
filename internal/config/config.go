package config

import (
	"bytes"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/keepalive-app/keepalive/internal/pkg/liveness"
)

type AppCfg struct {
	Name string
	Env  string
	Host string
	Port int
}

type RootCfg struct {
	// ApiBearerToken guards the dashboard API; the external session system
	// is expected to hold it and forward the owner identity per request.
	ApiBearerToken string
}

type LogCfg struct {
	Level string
}

type DBCfg struct {
	DSN         string
	MaxOpen     int
	MaxIdle     int
	AutoMigrate bool
}

type RedisCfg struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

type PingCfg struct {
	// Window is the liveness window: the maximum tolerated gap since the
	// last accepted ping before a project reads back dead.
	Window time.Duration
	// Cadence is the expected ping interval, used for the next-expected
	// projection label.
	Cadence time.Duration
	// Timeout bounds the ingestion endpoint's own work per request.
	Timeout time.Duration
	// RateMax/RatePer configure the fixed-window per-token ping limiter.
	// The limiter is active only when a Redis address is configured.
	RateMax int
	RatePer time.Duration
}

// Policy returns the liveness policy shared by the write path and the
// read-time projection.
func (p PingCfg) Policy() liveness.Policy {
	return liveness.Policy{Cadence: p.Cadence, Window: p.Window}
}

type TelemetryCfg struct {
	Enabled      bool
	OtlpEndpoint string
	SampleRatio  float64
}

type Config struct {
	App       AppCfg
	Root      RootCfg
	Log       LogCfg
	Database  DBCfg
	Redis     RedisCfg
	Ping      PingCfg
	Telemetry TelemetryCfg
}

func Load() (*Config, error) {
	base := viper.New()
	base.SetConfigName("config")
	base.SetConfigType("yaml")
	base.AddConfigPath("./configs")
	base.AddConfigPath(".")
	base.AutomaticEnv()
	base.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	base.SetEnvPrefix("APP") // e.g. APP_APP_PORT -> app.port

	// First assign a default value (effective regardless of whether there is a file or not)
	setDefaults(base)

	// Read the file (if any)
	if err := base.ReadInConfig(); err == nil {
		// After finding the file, manually perform one expansion of ${ENV}, and then parse it.
		path := base.ConfigFileUsed()
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		expanded := os.ExpandEnv(string(raw))

		// Load the expanded content with a new viper and copy the env settings.
		v := viper.New()
		v.SetConfigType("yaml")
		if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
			return nil, err
		}
		v.AutomaticEnv()
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.SetEnvPrefix("APP")
		setDefaults(v)

		cfg := new(Config)
		if err := v.Unmarshal(&cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	// No files are also allowed, using only env + default values
	cfg := new(Config)
	if err := base.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "keepalive")
	v.SetDefault("app.env", "debug")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)
	v.SetDefault("root.apiBearerToken", "keepalive")
	v.SetDefault("log.level", "info")
	v.SetDefault("database.maxOpen", 20)
	v.SetDefault("database.maxIdle", 5)
	v.SetDefault("database.autoMigrate", true)
	v.SetDefault("redis.poolSize", 10)
	// Twice-weekly cadence plus a half-day grace margin.
	v.SetDefault("ping.window", "96h")
	v.SetDefault("ping.cadence", "84h")
	v.SetDefault("ping.timeout", "5s")
	v.SetDefault("ping.rateMax", 60)
	v.SetDefault("ping.ratePer", "1m")
	v.SetDefault("telemetry.sampleRatio", 1.0)
}
