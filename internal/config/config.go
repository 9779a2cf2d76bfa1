package config

import (
	"log"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type key string

const (
	KeyUUID    = key("uuid")
	KeyLogger  = key("logger")
	KeyMetrics = key("metrics")
)

type Config struct {
	Service    Service
	Postgres   Postgres
	Cache      Cache
	Kafka      Kafka
	Metrics    Metrics
	Logger     Logger
	Platform   Platform
	Centrifuge Centrifuge
	UserHub    UserHub
	Auth       Auth
}

type Service struct {
	Port string `env:"MESSAGING_SERVICE_PORT" env-default:"8080"`
	Name string `env:"MESSAGING_SERVICE_NAME" env-default:"messaging-service"`
}

type Postgres struct {
	User     string `env:"MESSAGING_SERVICE_POSTGRES_USER"`
	Password string `env:"MESSAGING_SERVICE_POSTGRES_PASSWORD"`
	Database string `env:"MESSAGING_SERVICE_POSTGRES_DB"`
	Host     string `env:"MESSAGING_SERVICE_POSTGRES_HOST"`
	Port     string `env:"MESSAGING_SERVICE_POSTGRES_PORT" env-default:"5432"`
}

type Cache struct {
	Path      string        `env:"MESSAGING_SERVICE_CACHE_PATH" env-default:"messaging-cache.db"`
	TTL       time.Duration `env:"MESSAGING_SERVICE_CACHE_TTL" env-default:"2m"`
	Retention time.Duration `env:"MESSAGING_SERVICE_CACHE_RETENTION" env-default:"24h"`
}

type Kafka struct {
	Host         string `env:"KAFKA_HOST"`
	Port         string `env:"KAFKA_PORT"`
	MessageTopic string `env:"MESSAGING_SERVICE_MESSAGE_TOPIC" env-default:"messaging.message.new"`
	UserTopic    string `env:"MESSAGING_SERVICE_USER_TOPIC" env-default:"user.profile.updated"`
}

type Metrics struct {
	Host string `env:"GRAFANA_HOST"`
	Port int    `env:"GRAFANA_PORT"`
}

type Logger struct {
	Host string `env:"LOGGER_HOST"`
	Port string `env:"LOGGER_PORT"`
}

type Platform struct {
	Env string `env:"ENV" env-default:"dev"`
}

type Centrifuge struct {
	BaseURL   string        `env:"CENTRIFUGO_BASE_URL"`
	APIKey    string        `env:"CENTRIFUGO_API_KEY"`
	JWTSecret string        `env:"CENTRIFUGO_JWT_SECRET"`
	Timeout   time.Duration `env:"CENTRIFUGO_TIMEOUT" env-default:"5s"`
}

type UserHub struct {
	BaseURL string        `env:"USERHUB_BASE_URL"`
	Timeout time.Duration `env:"USERHUB_TIMEOUT" env-default:"5s"`
}

type Auth struct {
	JWTSecret string `env:"MESSAGING_SERVICE_JWT_SECRET"`
}

func MustLoad() *Config {
	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		log.Fatalf("failed to read env config: %v", err)
	}
	return cfg
}
