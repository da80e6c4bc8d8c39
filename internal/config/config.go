package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config centraliza a configuração carregada do ambiente.
type Config struct {
	Port         int
	DBDSN        string
	RedisURL     string
	AllowOrigins []string

	SessionTTL time.Duration

	AdminEmail    string
	AdminPassword string

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	MailFrom     string

	// GestoraEmail é o destino de último recurso quando nenhuma gestora
	// ativa existe para receber documentos.
	GestoraEmail    string
	GestoraWhatsapp string

	EvoURL    string
	EvoSecret string

	// AppURL é a base pública usada em links de email e URLs de áudio.
	AppURL string

	StorageDir     string
	StartupLogPath string

	RateLimitPublic    RateLimitConfig
	RateLimitDashboard RateLimitConfig
}

// RateLimitConfig representa limites simples para throttling.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// Load carrega variáveis de ambiente e aplica defaults seguros.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	portStr := getEnv("PORT", "3000")
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		return nil, errors.New("PORT inválida")
	}
	cfg.Port = port

	cfg.DBDSN = getEnv("DB_DSN", "")
	if cfg.DBDSN == "" {
		return nil, errors.New("DB_DSN obrigatório")
	}

	cfg.RedisURL = getEnv("REDIS_URL", "")
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL obrigatório")
	}

	sessionDays, err := parseIntEnv("SESSION_MAX_AGE_DAYS", 60)
	if err != nil {
		return nil, err
	}
	cfg.SessionTTL = time.Duration(sessionDays) * 24 * time.Hour

	cfg.AdminEmail = strings.ToLower(strings.TrimSpace(getEnv("ADMIN_EMAIL", "")))
	cfg.AdminPassword = getEnv("ADMIN_PASSWORD", "")

	cfg.SMTPHost = strings.TrimSpace(getEnv("SMTP_HOST", ""))
	smtpPort, err := parseIntEnv("SMTP_PORT", 587)
	if err != nil {
		return nil, err
	}
	cfg.SMTPPort = smtpPort
	cfg.SMTPUser = getEnv("SMTP_USER", "")
	cfg.SMTPPassword = getEnv("SMTP_PASSWORD", "")
	cfg.MailFrom = strings.TrimSpace(getEnv("MAIL_FROM", ""))

	cfg.GestoraEmail = strings.TrimSpace(getEnv("GESTORA_EMAIL", ""))
	cfg.GestoraWhatsapp = strings.TrimSpace(getEnv("GESTORA_WHATSAPP", ""))

	cfg.EvoURL = strings.TrimRight(strings.TrimSpace(getEnv("EVO_URL", "")), "/")
	cfg.EvoSecret = strings.TrimSpace(getEnv("EVO_INTERNAL_SECRET", ""))

	cfg.AppURL = strings.TrimRight(strings.TrimSpace(getEnv("APP_URL", "")), "/")

	cfg.StorageDir = getEnv("STORAGE_DIR", "storage")
	cfg.StartupLogPath = getEnv("STARTUP_LOG", "startup.log")

	allowOrigins := strings.Split(getEnv("ALLOW_ORIGINS", ""), ",")
	cfg.AllowOrigins = nil
	for _, origin := range allowOrigins {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			cfg.AllowOrigins = append(cfg.AllowOrigins, origin)
		}
	}

	cfg.RateLimitPublic = RateLimitConfig{RequestsPerSecond: 10, Burst: 20}
	cfg.RateLimitDashboard = RateLimitConfig{RequestsPerSecond: 30, Burst: 60}

	return cfg, nil
}

// MailConfigured indica se há credenciais suficientes para envio SMTP.
func (c *Config) MailConfigured() bool {
	return c.SMTPHost != "" && c.MailFrom != "" && strings.Contains(c.MailFrom, "@")
}

func getEnv(key, def string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return def
}

func parseIntEnv(key string, def int) (int, error) {
	val := getEnv(key, "")
	if val == "" {
		return def, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		return 0, errors.New(key + " inválido")
	}
	return n, nil
}
