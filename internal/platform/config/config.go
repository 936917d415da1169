// Pacote config centraliza o carregamento das variáveis de ambiente usadas pelos binários.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config agrega todos os parâmetros necessários para API e worker de notificações.
type Config struct {
	HTTPAddress string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	FilaKeyPrefix      string
	ProtocoloKeyPrefix string

	// Janela recursal contada a partir da última decisão proferida.
	JanelaRecursoDias int

	RateLimitEnabled       bool
	RateLimitMaxActions    int
	RateLimitWindowSeconds int
	RateLimitKeyPrefix     string

	AutoMigrate bool

	WorkerMetricsAddress string
	NotificacaoWebhook   string
}

func Load() (Config, error) {
	// Defaults priorizam execução local; variáveis permitem sobrescrever em Docker/K8s.
	cfg := Config{
		HTTPAddress:            getEnv("HTTP_ADDRESS", ":8080"),
		PostgresHost:           getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:           getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:           getEnv("POSTGRES_USER", "eleitoral"),
		PostgresPassword:       getEnv("POSTGRES_PASSWORD", "eleitoral"),
		PostgresDB:             getEnv("POSTGRES_DB", "impugnacoes"),
		PostgresSSLMode:        getEnv("POSTGRES_SSLMODE", "disable"),
		RedisAddr:              getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:          os.Getenv("REDIS_PASSWORD"),
		FilaKeyPrefix:          getEnv("REDIS_QUEUE_PREFIX", "fila:notificacoes"),
		ProtocoloKeyPrefix:     getEnv("REDIS_PROTOCOLO_PREFIX", "protocolo"),
		JanelaRecursoDias:      getEnvAsInt("RECURSO_JANELA_DIAS", 3),
		RateLimitEnabled:       getEnv("ANTIABUSO_RATE_LIMIT_ENABLED", "true") == "true",
		RateLimitMaxActions:    getEnvAsInt("ANTIABUSO_RATE_LIMIT_MAX", 10),
		RateLimitWindowSeconds: getEnvAsInt("ANTIABUSO_RATE_LIMIT_WINDOW", 3600),
		RateLimitKeyPrefix:     getEnv("ANTIABUSO_RATE_LIMIT_PREFIX", "ratelimit"),
		AutoMigrate:            getEnvAsBool("DB_AUTO_MIGRATE", true),
		WorkerMetricsAddress:   getEnv("WORKER_METRICS_ADDRESS", ":9090"),
		NotificacaoWebhook:     os.Getenv("NOTIFICACAO_WEBHOOK_URL"),
	}

	dbStr := getEnv("REDIS_DB", "0")
	dbInt, err := strconv.Atoi(dbStr)
	if err != nil {
		return Config{}, fmt.Errorf("config: REDIS_DB invalido: %w", err)
	}
	cfg.RedisDB = dbInt

	if cfg.JanelaRecursoDias <= 0 {
		return Config{}, fmt.Errorf("config: RECURSO_JANELA_DIAS deve ser positivo")
	}

	return cfg, nil
}

func (c Config) PostgresDSN() string {
	// Mantemos o formato DSN compatível com GORM e ferramentas de migração.
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.PostgresUser,
		c.PostgresPassword,
		c.PostgresHost,
		c.PostgresPort,
		c.PostgresDB,
		c.PostgresSSLMode,
	)
}

func (c Config) JanelaRecurso() time.Duration {
	return time.Duration(c.JanelaRecursoDias) * 24 * time.Hour
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getEnvAsInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return i
}

func getEnvAsBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	switch value {
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return true
	}
}
