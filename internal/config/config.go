package config

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string           `yaml:"env" env-default:"development"` // environment
	HTTPServer HTTPServerConfig `yaml:"http_server"`
	Database   DatabaseConfig   `yaml:"database"`
	JWT        JWTConfig        `yaml:"jwt"`
	Migrations MigrationsConfig `yaml:"migrations"`
	Redis      RedisConfig      `yaml:"redis"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Payment    PaymentConfig    `yaml:"payment"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
}

// HTTPServerConfig структура http сервера
type HTTPServerConfig struct {
	Address     string        `yaml:"address" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// DatabaseConfig структура по работе с БД
type DatabaseConfig struct {
	Host     string `yaml:"host" env-default:"localhost"`
	Port     int    `yaml:"port" env-default:"5432"`
	User     string `yaml:"user" env-required:"true"`
	Password string `yaml:"-" env:"DB_PASSWORD" env-required:"true"`
	Name     string `yaml:"name" env-required:"true"`
}

// JWTConfig настройка jwt
type JWTConfig struct {
	Secret   string `yaml:"-" env:"JWT_SECRET" env-required:"true"`
	TokenTTL int    `yaml:"token_ttl" env-default:"60"`
}

type MigrationsConfig struct {
	Path string `yaml:"path" env-default:"./migrations"`
}

// RedisConfig – кэш корзины и лимитер запросов
type RedisConfig struct {
	Addr     string        `yaml:"addr" env-default:"localhost:6379"`
	Password string        `yaml:"-" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db" env-default:"0"`
	CartTTL  time.Duration `yaml:"cart_ttl" env-default:"15m"`
}

// KafkaConfig – публикация событий заказов из outbox
type KafkaConfig struct {
	Enabled       bool          `yaml:"enabled" env-default:"false"`
	Brokers       []string      `yaml:"brokers" env-separator:","`
	Topic         string        `yaml:"topic" env-default:"order-events"`
	RelayInterval time.Duration `yaml:"relay_interval" env-default:"2s"`
	BatchSize     int           `yaml:"batch_size" env-default:"100"`
}

// PaymentConfig – настройки платёжного шлюза (Midtrans Snap)
type PaymentConfig struct {
	ServerKey       string        `yaml:"-" env:"MIDTRANS_SERVER_KEY" env-required:"true"`
	Environment     string        `yaml:"environment" env-default:"sandbox"` // sandbox | production
	DefaultMethod   string        `yaml:"default_method" env-default:"qris"`
	SkipSignature   bool          `yaml:"skip_signature_check"` // только для локальной отладки
	BreakerFailures uint32        `yaml:"breaker_failures" env-default:"5"`
	BreakerTimeout  time.Duration `yaml:"breaker_timeout" env-default:"30s"`
	// должен быть меньше http_server.timeout, иначе ответ об ошибке шлюза не успеет уйти клиенту
	Timeout time.Duration `yaml:"timeout" env-default:"5s"`
}

// RateLimitConfig – ограничение запросов на /api/auth
type RateLimitConfig struct {
	Requests int           `yaml:"requests" env-default:"100"`
	Window   time.Duration `yaml:"window" env-default:"5m"`
}

// MustLoad - если не загружаем - паникуем
func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		log.Fatal("CONFIG_PATH not exists")
	}
	return MustLoadByPath(configPath)
}

func fetchConfigPath() string {
	var path string

	flag.StringVar(&path, "config", "", "path to config file")
	flag.Parse()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	return path
}

func MustLoadByPath(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file not found: " + configPath)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("can't read config file %s: %v", configPath, err)
	}

	return &cfg
}
