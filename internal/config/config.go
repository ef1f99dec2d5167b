package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/annel0/radzone/internal/floodfill"
	"github.com/annel0/radzone/internal/logging"
)

// Config корневая структура конфигурации сервиса.
// Порядок применения: Default() -> YAML -> переменные окружения -> Validate().
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	World     WorldConfig     `yaml:"world"`
	Region    RegionConfig    `yaml:"region"`
	Registry  RegistryConfig  `yaml:"registry"`
	Cache     CacheConfig     `yaml:"cache"`
	EventBus  EventBusConfig  `yaml:"eventbus"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	RESTPort    int `yaml:"rest_port" env:"RADZONE_REST_PORT"`
	MetricsPort int `yaml:"metrics_port" env:"RADZONE_METRICS_PORT"`
	// ShutdownSeconds время на корректное завершение HTTP сервера
	ShutdownSeconds int `yaml:"shutdown_seconds"`
}

type WorldConfig struct {
	ID       string `yaml:"id" env:"RADZONE_WORLD_ID"`
	Seed     int64  `yaml:"seed" env:"RADZONE_WORLD_SEED"`
	SeaLevel int    `yaml:"sea_level"`
	MinY     int    `yaml:"min_y"`
	MaxY     int    `yaml:"max_y"`
	DataDir  string `yaml:"data_dir" env:"RADZONE_WORLD_DIR"`
}

type RegionConfig struct {
	// MaxRange потолок радиуса заливки
	MaxRange     int     `yaml:"max_range" env:"RADZONE_MAX_RANGE"`
	NamePrefix   string  `yaml:"name_prefix"`
	DefaultLevel float64 `yaml:"default_level"`
}

// Поддерживаемые хранилища регионов
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
	BackendMaria  = "maria"
	BackendMongo  = "mongo"
)

type RegistryConfig struct {
	Backend       string `yaml:"backend" env:"RADZONE_REGISTRY_BACKEND"`
	BadgerDir     string `yaml:"badger_dir"`
	SQLitePath    string `yaml:"sqlite_path" env:"RADZONE_SQLITE_PATH"`
	MariaDSN      string `yaml:"maria_dsn" env:"RADZONE_MARIA_DSN"`
	MongoURI      string `yaml:"mongo_uri" env:"RADZONE_MONGO_URI"`
	MongoDatabase string `yaml:"mongo_database"`
}

type CacheConfig struct {
	// RedisAddr пустой адрес отключает кэш
	RedisAddr  string `yaml:"redis_addr" env:"RADZONE_REDIS_ADDR"`
	RedisDB    int    `yaml:"redis_db"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

type EventBusConfig struct {
	// URL пустой адрес включает шину в памяти
	URL       string `yaml:"url" env:"RADZONE_NATS_URL"`
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled" env:"RADZONE_TELEMETRY"`
	ServiceName string `yaml:"service_name"`
	Endpoint    string `yaml:"endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

type AuthConfig struct {
	// JWTSecret пустой секрет отключает проверку токена
	JWTSecret string `yaml:"jwt_secret" env:"RADZONE_JWT_SECRET"`
}

type LoggingConfig struct {
	Level      string `yaml:"level" env:"RADZONE_LOG_LEVEL"`
	Console    bool   `yaml:"console"`
	File       string `yaml:"file" env:"RADZONE_LOG_FILE"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			RESTPort:        8088,
			MetricsPort:     2112,
			ShutdownSeconds: 10,
		},
		World: WorldConfig{
			ID:       "world",
			Seed:     1337,
			SeaLevel: 62,
			MinY:     0,
			MaxY:     256,
			DataDir:  filepath.Join("data", "world"),
		},
		Region: RegionConfig{
			MaxRange:     64,
			NamePrefix:   "radiation",
			DefaultLevel: 1,
		},
		Registry: RegistryConfig{
			Backend:       BackendMemory,
			BadgerDir:     filepath.Join("data", "regions"),
			SQLitePath:    filepath.Join("data", "regions.db"),
			MongoDatabase: "radzone",
		},
		Cache: CacheConfig{
			TTLSeconds: 300,
		},
		EventBus: EventBusConfig{
			Stream:    "RADZONE_EVENTS",
			Retention: 24,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "radzone",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Console:    true,
			File:       filepath.Join("logs", "radzone.log"),
			MaxSizeMB:  50,
			MaxBackups: 3,
		},
	}
}

// Load читает YAML файл конфигурации поверх значений по умолчанию и
// применяет переменные окружения.
// Если path == "", берётся RADZONE_CONFIG; без файла используются дефолты.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("RADZONE_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("чтение конфигурации %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("разбор конфигурации %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("переменные окружения: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ErrInvalidConfig возвращается Validate
var ErrInvalidConfig = errors.New("некорректная конфигурация")

// Validate проверяет согласованность значений
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...interface{}) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(validPort(c.Server.RESTPort), "server.rest_port вне диапазона: %d", c.Server.RESTPort)
	check(c.Server.MetricsPort == 0 || validPort(c.Server.MetricsPort), "server.metrics_port вне диапазона: %d", c.Server.MetricsPort)
	check(c.World.ID != "", "world.id не задан")
	check(c.World.MinY < c.World.MaxY, "world.min_y (%d) должен быть меньше world.max_y (%d)", c.World.MinY, c.World.MaxY)
	check(c.Region.MaxRange >= 1 && c.Region.MaxRange <= floodfill.HardMaxRange,
		"region.max_range должен быть в диапазоне [1..%d]: %d", floodfill.HardMaxRange, c.Region.MaxRange)
	check(c.Region.NamePrefix != "", "region.name_prefix не задан")

	switch c.Registry.Backend {
	case BackendMemory:
	case BackendBadger:
		check(c.Registry.BadgerDir != "", "registry.badger_dir не задан")
	case BackendSQLite:
		check(c.Registry.SQLitePath != "", "registry.sqlite_path не задан")
	case BackendMaria:
		check(c.Registry.MariaDSN != "", "registry.maria_dsn не задан")
	case BackendMongo:
		check(c.Registry.MongoURI != "", "registry.mongo_uri не задан")
	default:
		check(false, "неизвестный registry.backend: %q", c.Registry.Backend)
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

func validPort(p int) bool { return p > 0 && p < 65536 }

// LoggingOptions переводит секцию logging в параметры логгера
func (c *Config) LoggingOptions() logging.Options {
	opts := logging.Options{
		ConsoleLevel: logging.ParseLevel(c.Logging.Level),
		FileLevel:    logging.DEBUG,
		Console:      c.Logging.Console,
	}
	if c.Logging.File != "" {
		opts.File = logging.DefaultFileConfig(c.Logging.File)
		if c.Logging.MaxSizeMB > 0 {
			opts.File.MaxSizeMB = c.Logging.MaxSizeMB
		}
		if c.Logging.MaxBackups > 0 {
			opts.File.MaxBackups = c.Logging.MaxBackups
		}
	}
	return opts
}
