// Package config предоставляет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек всех бинарников сервиса.
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string `yaml:"migrations_path" env-default:"./migrations"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	RabbitMQ                `yaml:"rabbitmq"`
	SMTP                    `yaml:"smtp"`
	CMS                     CMS               `yaml:"cms"`
	PaymentProvider         PaymentProvider   `yaml:"payment_provider"`
	Scheduling              Scheduling        `yaml:"scheduling"`
	Completion              Completion        `yaml:"completion"`
	AppointmentAccess       AppointmentAccess `yaml:"appointment_access"`
	Scheduler               Scheduler         `yaml:"scheduler"`
	RateLimit               RateLimit         `yaml:"rate_limit"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env-default:"localhost:6379"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env-default:"3s"`
	CacheTTL     time.Duration `yaml:"cache_ttl" env-default:"10m"`
}

// JWTToken структура для проверки jwt-токенов, выпущенных провайдером аутентификации.
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// RabbitMQ структура для подключения к брокеру уведомлений.
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url" env:"RABBITMQ_URL"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env-default:"2s"`
}

// SMTP структура для отправки писем.
type SMTP struct {
	SMTPHost string `yaml:"host"`
	SMTPPort string `yaml:"port" env-default:"587"`
	SMTPUser string `yaml:"user" env:"SMTP_USER"`
	SMTPPass string `yaml:"pass" env:"SMTP_PASS"`
	From     string `yaml:"from" env:"SMTP_FROM"`
}

// CMS настройки headless CMS с каталогом товаров и тарифов.
type CMS struct {
	BaseURL    string        `yaml:"base_url"`
	Dataset    string        `yaml:"dataset" env-default:"production"`
	APIVersion string        `yaml:"api_version" env-default:"2024-01-01"`
	Token      string        `yaml:"token" env:"CMS_TOKEN"`
	Timeout    time.Duration `yaml:"timeout" env-default:"5s"`
}

// PaymentProvider настройки платёжного провайдера.
type PaymentProvider struct {
	APIURL        string `yaml:"api_url"`
	ShopID        string `yaml:"shop_id" env:"PAYMENT_SHOP_ID"`
	SecretKey     string `yaml:"secret_key" env:"PAYMENT_SECRET_KEY"`
	WebhookSecret string `yaml:"webhook_secret" env:"PAYMENT_WEBHOOK_SECRET"`
	Currency      string `yaml:"currency" env-default:"USD"`
}

// Scheduling настройки внешнего API записи на приём.
type Scheduling struct {
	APIURL      string        `yaml:"api_url"`
	APIKey      string        `yaml:"api_key" env:"SCHEDULING_API_KEY"`
	EventTypeID int           `yaml:"event_type_id"`
	Timeout     time.Duration `yaml:"timeout" env-default:"10s"`
}

// Completion настройки AI API, переписывающего пояснения к рекомендациям.
// Пустой APIKey отключает вызов.
type Completion struct {
	APIURL  string        `yaml:"api_url" env-default:"https://api.openai.com/v1"`
	APIKey  string        `yaml:"api_key" env:"COMPLETION_API_KEY"`
	Model   string        `yaml:"model" env-default:"gpt-4o-mini"`
	Timeout time.Duration `yaml:"timeout" env-default:"8s"`
}

// AppointmentAccess окно доступа к ссылке на телемедицинскую сессию.
type AppointmentAccess struct {
	DefaultDuration time.Duration `yaml:"default_duration" env-default:"72h"`
}

// Scheduler расписания cron для фоновых задач.
type Scheduler struct {
	PriceSyncSpec     string        `yaml:"price_sync_spec" env-default:"0 */6 * * *"`
	AccessSweepSpec   string        `yaml:"access_sweep_spec" env-default:"@every 1h"`
	ReminderSpec      string        `yaml:"reminder_spec" env-default:"@every 30m"`
	ReminderLookahead time.Duration `yaml:"reminder_lookahead" env-default:"24h"`
}

// RateLimit ограничение частоты запросов к публичным маршрутам на одного клиента.
type RateLimit struct {
	RPS   float64 `yaml:"rps" env-default:"2"`
	Burst int     `yaml:"burst" env-default:"5"`
}

// MustLoad функция для загрузки конфига по пути из CONFIG_PATH.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}

// String печатает конфиг без секретов.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"  CacheTTL: %s\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"CMS:\n"+
			"  BaseURL: %s\n"+
			"  Dataset: %s\n"+
			"PaymentProvider:\n"+
			"  APIURL: %s\n"+
			"  Currency: %s\n"+
			"Scheduling:\n"+
			"  APIURL: %s\n"+
			"AppointmentAccess:\n"+
			"  DefaultDuration: %s\n",
		c.Env,
		c.AddressRedis,
		c.DB,
		c.CacheTTL,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.CMS.BaseURL,
		c.CMS.Dataset,
		c.PaymentProvider.APIURL,
		c.PaymentProvider.Currency,
		c.Scheduling.APIURL,
		c.AppointmentAccess.DefaultDuration,
	)
}
