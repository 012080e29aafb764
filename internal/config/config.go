package config

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/Alturino/pos/internal/log"
)

type Application struct {
	Env          string `mapstructure:"env"            json:"env"`
	Host         string `mapstructure:"host"           json:"host"`
	SecretKey    string `mapstructure:"secret_key"     json:"-"`
	CountryCode  string `mapstructure:"country_code"   json:"country_code"`
	TaxTablePath string `mapstructure:"tax_table_path" json:"tax_table_path"`
	Port         int    `mapstructure:"port"           json:"port"`
}

type Database struct {
	Name           string `mapstructure:"name"            json:"name"`
	Host           string `mapstructure:"host"            json:"host"`
	MigrationPath  string `mapstructure:"migration_path"  json:"migration_path"`
	Password       string `mapstructure:"password"        json:"-"`
	TimeZone       string `mapstructure:"timezone"        json:"timezone"`
	Username       string `mapstructure:"username"        json:"username"`
	MaxConnections int32  `mapstructure:"max_connections" json:"max_connections"`
	MinConnections int32  `mapstructure:"min_connections" json:"min_connections"`
	Port           uint16 `mapstructure:"port"            json:"port"`
}

type Cache struct {
	Host       string        `mapstructure:"host"        json:"host"`
	Password   string        `mapstructure:"password"    json:"-"`
	Database   int           `mapstructure:"database"    json:"database"`
	Port       uint16        `mapstructure:"port"        json:"port"`
	ProductTTL time.Duration `mapstructure:"product_ttl" json:"product_ttl"`
}

type Otel struct {
	Host string `mapstructure:"host" json:"host"`
	Port int    `mapstructure:"port" json:"port"`
}

type Broker struct {
	URL      string `mapstructure:"url"      json:"-"`
	Exchange string `mapstructure:"exchange" json:"exchange"`
}

type Checkout struct {
	MaxAttempts    uint64        `mapstructure:"max_attempts"    json:"max_attempts"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff" json:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"     json:"max_backoff"`
	SessionTTL     time.Duration `mapstructure:"session_ttl"     json:"session_ttl"`
}

type OpenFoodFacts struct {
	BaseURL string        `mapstructure:"base_url" json:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"  json:"timeout"`
}

type Config struct {
	Database      `mapstructure:"db"            json:"db"`
	Cache         `mapstructure:"cache"         json:"cache"`
	Application   `mapstructure:"application"   json:"application"`
	Otel          `mapstructure:"otel"          json:"otel"`
	Broker        `mapstructure:"broker"        json:"broker"`
	Checkout      `mapstructure:"checkout"      json:"checkout"`
	OpenFoodFacts `mapstructure:"openfoodfacts" json:"openfoodfacts"`
}

var (
	once   sync.Once
	config *Config
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("application.env", "production")
	v.SetDefault("application.host", "0.0.0.0")
	v.SetDefault("application.port", 8080)
	v.SetDefault("application.country_code", "CL")
	v.SetDefault("db.migration_path", "file://migrations")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("db.max_connections", 10)
	v.SetDefault("db.min_connections", 2)
	v.SetDefault("cache.product_ttl", 5*time.Minute)
	v.SetDefault("otel.host", "otel-collector")
	v.SetDefault("otel.port", 4317)
	v.SetDefault("broker.exchange", "pos.events")
	v.SetDefault("checkout.max_attempts", 3)
	v.SetDefault("checkout.initial_backoff", 200*time.Millisecond)
	v.SetDefault("checkout.max_backoff", 2*time.Second)
	v.SetDefault("checkout.session_ttl", 2*time.Hour)
	v.SetDefault("openfoodfacts.base_url", "https://world.openfoodfacts.org")
	v.SetDefault("openfoodfacts.timeout", 5*time.Second)
}

func Load(c context.Context, path string, filename string) (Config, error) {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "config Load").
		Str("filename", filename).
		Logger()

	v := viper.New()
	setDefaults(v)
	v.SetConfigName(filename)
	v.AddConfigPath(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("POS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	logger = logger.With().Str(log.KeyProcess, "reading config").Logger()
	logger.Info().Msg("reading config")
	if err := v.ReadInConfig(); err != nil {
		err = fmt.Errorf("error when reading config with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return Config{}, err
	}
	logger.Info().Msg("read config")

	logger = logger.With().Str(log.KeyProcess, "unmarshaling config").Logger()
	logger.Info().Msg("unmarshaling config")
	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		err = fmt.Errorf("error unmarshaling config with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return Config{}, err
	}
	logger.Info().Any(log.KeyConfig, cfg).Msg("unmarshaled config")

	return cfg, nil
}

func InitConfig(c context.Context, filename string) *Config {
	once.Do(func() {
		logger := zerolog.Ctx(c).
			With().
			Str(log.KeyTag, "main InitConfig").
			Str(log.KeyProcess, "init config").
			Logger()

		cfg, err := Load(c, "./env", filename)
		if err != nil {
			logger.Fatal().Err(err).Msg(err.Error())
		}
		config = &cfg
	})
	return config
}
