package config

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/viper"
)

// Config хранит все настройки приложения
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Twilio   TwilioConfig
	Resend   ResendConfig
	AI       AIConfig
}

// ServerConfig содержит настройки HTTP сервера и приложения
type ServerConfig struct {
	Port         string
	ReadTimeout  int
	WriteTimeout int

	// AppName используется в текстах OTP-сообщений WhatsApp
	AppName string `mapstructure:"app_name"`

	// BaseURL публичный адрес фронтенда, используется в ссылках писем
	BaseURL string `mapstructure:"base_url"`

	// CookieSecure включает флаг Secure у access-token cookie (выключать только локально)
	CookieSecure bool `mapstructure:"cookie_secure"`

	// AllowedOrigins: список разрешенных Origin для CORS и WebSocket
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig содержит настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig содержит унифицированные настройки подключения к Redis
// Поддерживает режимы: single, sentinel, cluster
type RedisConfig struct {
	// Mode: Режим работы Redis ("single", "sentinel", "cluster"). По умолчанию "single".
	Mode string `mapstructure:"mode"`

	// Addrs: Список адресов Redis (хост:порт). Используется для всех режимов.
	// Для 'single', если не пуст, используется первый адрес из списка.
	Addrs []string `mapstructure:"addrs"`

	// Addr: Альтернативный адрес для режима 'single' (для обратной совместимости).
	// Используется, если Mode="single" и Addrs пустой.
	Addr string `mapstructure:"addr"`

	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// MasterName: Имя мастер-сервера Redis (только для режима "sentinel")
	MasterName string `mapstructure:"master_name"`

	// MaxRetries: Максимальное количество попыток переподключения (-1 - бесконечно). По умолчанию 0 (без ретраев).
	MaxRetries int `mapstructure:"max_retries"`

	// MinRetryBackoff: Минимальный интервал между попытками (в миллисекундах). По умолчанию 8ms.
	MinRetryBackoff int `mapstructure:"min_retry_backoff"`

	// MaxRetryBackoff: Максимальный интервал между попытками (в миллисекундах). По умолчанию 512ms.
	MaxRetryBackoff int `mapstructure:"max_retry_backoff"`
}

// JWTConfig содержит настройки JWT и refresh-сессий
type JWTConfig struct {
	Secret        string `mapstructure:"secret"`
	ExpirationHrs int    `mapstructure:"expirationHrs"`

	// RefreshLifetimeHrs: время жизни refresh-токена в часах. По умолчанию 720 (30 дней).
	RefreshLifetimeHrs int `mapstructure:"refresh_lifetime_hrs"`
}

// TwilioConfig содержит настройки отправки WhatsApp через Twilio.
// Если AccountSID пуст, приложение работает в dummy-режиме доставки OTP.
type TwilioConfig struct {
	AccountSID   string `mapstructure:"account_sid"`
	AuthToken    string `mapstructure:"auth_token"`
	WhatsAppFrom string `mapstructure:"whatsapp_from"`
}

// ResendConfig содержит настройки отправки email через Resend.
// Если APIKey пуст, email-каналы (сброс пароля по email, квитанции) отключены.
type ResendConfig struct {
	APIKey string `mapstructure:"api_key"`
	From   string `mapstructure:"from"`
}

// AIConfig содержит настройки OpenAI-совместимого провайдера генерации текстов.
// Если APIKey пуст, используется заглушка.
type AIConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
}

// PostgresConnectionString формирует строку подключения к PostgreSQL
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// Load загружает конфигурацию из файла
func Load(configPath string) (*Config, error) {
	vip := viper.New() // Используем новый экземпляр Viper, чтобы избежать глобального состояния

	// 1. Значения по умолчанию
	vip.SetDefault("server.port", "8080")
	vip.SetDefault("server.app_name", "CarMarket")
	vip.SetDefault("jwt.expirationHrs", 24)
	vip.SetDefault("jwt.refresh_lifetime_hrs", 720)
	vip.SetDefault("ai.base_url", "https://api.openai.com/v1")
	vip.SetDefault("ai.model", "gpt-4o-mini")

	// 2. Привязываем переменные окружения ЯВНО
	// Привязка для секции Database
	vip.BindEnv("database.host", "DATABASE_HOST")
	vip.BindEnv("database.port", "DATABASE_PORT")
	vip.BindEnv("database.user", "DATABASE_USER")
	vip.BindEnv("database.password", "DATABASE_PASSWORD")
	vip.BindEnv("database.dbname", "DATABASE_DBNAME")
	vip.BindEnv("database.sslmode", "DATABASE_SSLMODE")

	// Привязка для секции Redis
	vip.BindEnv("redis.mode", "REDIS_MODE")
	vip.BindEnv("redis.addrs", "REDIS_ADDRS") // Для массива строк
	vip.BindEnv("redis.addr", "REDIS_ADDR")   // Для одиночной строки
	vip.BindEnv("redis.password", "REDIS_PASSWORD")
	vip.BindEnv("redis.db", "REDIS_DB")
	vip.BindEnv("redis.master_name", "REDIS_MASTER_NAME")

	// Привязка для секции JWT
	vip.BindEnv("jwt.secret", "JWT_SECRET")
	vip.BindEnv("jwt.expirationHrs", "JWT_EXPIRATIONHRS")
	vip.BindEnv("jwt.refresh_lifetime_hrs", "JWT_REFRESH_LIFETIME_HRS")

	// Привязка для Server
	vip.BindEnv("server.port", "SERVER_PORT")
	vip.BindEnv("server.app_name", "APP_NAME")
	vip.BindEnv("server.base_url", "BASE_URL")
	vip.BindEnv("server.cookie_secure", "COOKIE_SECURE")
	vip.BindEnv("server.allowed_origins", "ALLOWED_ORIGINS")

	// Привязка для внешних сервисов
	vip.BindEnv("twilio.account_sid", "TWILIO_ACCOUNT_SID")
	vip.BindEnv("twilio.auth_token", "TWILIO_AUTH_TOKEN")
	vip.BindEnv("twilio.whatsapp_from", "TWILIO_WHATSAPP_FROM")
	vip.BindEnv("resend.api_key", "RESEND_API_KEY")
	vip.BindEnv("resend.from", "RESEND_FROM")
	vip.BindEnv("ai.base_url", "AI_BASE_URL")
	vip.BindEnv("ai.api_key", "AI_API_KEY")
	vip.BindEnv("ai.model", "AI_MODEL")

	// 3. Устанавливаем путь к файлу конфигурации
	if configPath != "" {
		vip.SetConfigFile(configPath)
		// 4. Пытаемся прочитать файл конфигурации (не страшно, если его нет, т.к. есть BindEnv)
		if err := vip.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				log.Printf("Файл конфигурации '%s' не найден, используются переменные окружения/умолчания.", configPath)
			} else {
				log.Printf("Предупреждение: не удалось прочитать файл конфигурации '%s': %v", configPath, err)
			}
		}
	}

	// 5. Анмаршалим конфигурацию (Viper объединит значения из файла и привязанных env vars)
	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 6. Логирование конфигурации (только в debug режиме, без секретов)
	if os.Getenv("GIN_MODE") != "release" {
		log.Printf("--- Загруженные значения конфигурации ---")
		log.Printf("Database Host: %s", cfg.Database.Host)
		log.Printf("Database Port: %s", cfg.Database.Port)
		log.Printf("Database User: %s", cfg.Database.User)
		log.Printf("Database Name: %s", cfg.Database.DBName)
		log.Printf("Database SSLMode: %s", cfg.Database.SSLMode)
		log.Printf("Redis Addr: %s", cfg.Redis.Addr)
		log.Printf("Redis Mode: %s", cfg.Redis.Mode)
		log.Printf("JWT Expiration Hours: %d", cfg.JWT.ExpirationHrs)
		log.Printf("Server Port: %s", cfg.Server.Port)
		log.Printf("Twilio Configured: %t", cfg.Twilio.AccountSID != "")
		log.Printf("Resend Configured: %t", cfg.Resend.APIKey != "")
		log.Printf("AI Configured: %t", cfg.AI.APIKey != "")
		log.Printf("-----------------------------------------")
	}

	// 7. Проверка обязательных параметров
	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT secret is required in config (check JWT_SECRET env var)")
	}
	if cfg.Database.Host == "" || cfg.Database.DBName == "" || cfg.Database.User == "" {
		return nil, fmt.Errorf("database configuration (host, dbname, user) is incomplete in config (check DATABASE_HOST, DATABASE_DBNAME, DATABASE_USER env vars)")
	}
	// Пароль БД обязателен вне debug-режима
	if os.Getenv("GIN_MODE") == "release" && cfg.Database.Password == "" {
		return nil, fmt.Errorf("database password is required in release mode (check DATABASE_PASSWORD env var)")
	}

	return &cfg, nil
}
