package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/joho/godotenv"
)

// DefaultSessionSecret is only used when SESSION_SECRET is unset. Tokens signed with it
// can be forged by anyone who has read this file.
const DefaultSessionSecret = "not-so-secret"

type Config struct {
	HTTP     HTTPConfig
	GRPC     GRPCConfig
	Database DatabaseConfig
	Session  SessionConfig
	Tokens   TokenConfig
	Cookie   CookieConfig
	Password PasswordConfig
	Mail     MailConfig
	CORS     CORSConfig
	Log      LogConfig

	// InsecureSecret is set when the session secret fell back to DefaultSessionSecret.
	InsecureSecret bool
}

type HTTPConfig struct {
	Host string
	Port string
}

type GRPCConfig struct {
	Enabled bool
	Host    string
	Port    string
}

type DatabaseConfig struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

type SessionConfig struct {
	Secret          string
	Lifetime        time.Duration
	AutoRenew       bool
	RenewalThrottle time.Duration
	RevocationGrace time.Duration
	SweepInterval   time.Duration
}

type TokenConfig struct {
	ActivationTTL time.Duration
	ResetTTL      time.Duration
}

type CookieConfig struct {
	Name     string
	HTTPOnly bool
	Secure   bool
	SameSite http.SameSite
}

type PasswordConfig struct {
	Policy PasswordPolicy
}

type MailConfig struct {
	Driver       string
	From         string
	FromName     string
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FrontendURL  string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// MaxPasswordBytes is the longest input bcrypt will hash.
const MaxPasswordBytes = 72

type PasswordPolicy struct {
	MinLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireNumber    bool
	RequireSpecial   bool
}

func (p PasswordPolicy) Validate(password string) error {
	if len(password) < p.MinLength {
		return fmt.Errorf("password must be at least %d characters long", p.MinLength)
	}
	if len(password) > MaxPasswordBytes {
		return fmt.Errorf("password must be at most %d bytes long", MaxPasswordBytes)
	}

	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, ch := range password {
		switch {
		case unicode.IsUpper(ch):
			hasUpper = true
		case unicode.IsLower(ch):
			hasLower = true
		case unicode.IsDigit(ch):
			hasNumber = true
		case unicode.IsPunct(ch) || unicode.IsSymbol(ch):
			hasSpecial = true
		}
	}

	var missing []string
	if p.RequireUppercase && !hasUpper {
		missing = append(missing, "uppercase letter")
	}
	if p.RequireLowercase && !hasLower {
		missing = append(missing, "lowercase letter")
	}
	if p.RequireNumber && !hasNumber {
		missing = append(missing, "number")
	}
	if p.RequireSpecial && !hasSpecial {
		missing = append(missing, "special character")
	}

	if len(missing) > 0 {
		return fmt.Errorf("password must contain at least one: %s", strings.Join(missing, ", "))
	}

	return nil
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignores error if not found)
	_ = godotenv.Load()

	secret := os.Getenv("SESSION_SECRET")
	insecure := secret == ""
	if insecure {
		secret = DefaultSessionSecret
	}

	driver := strings.ToLower(getEnv("DB_DRIVER", "mysql"))
	dsn := os.Getenv("DB_DSN")
	switch driver {
	case "mysql":
		if dsn == "" {
			return nil, errors.New("DB_DSN environment variable is required for the mysql driver")
		}
	case "sqlite":
		if dsn == "" {
			dsn = "file:./data/todo.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
		}
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}

	sameSite, err := parseSameSite(getEnv("COOKIE_SAME_SITE", "lax"))
	if err != nil {
		return nil, err
	}

	frontendURL := getEnv("FRONTEND_URL", "http://localhost:4200")

	cfg := &Config{
		HTTP: HTTPConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		GRPC: GRPCConfig{
			Enabled: getBoolEnv("GRPC_ENABLED", true),
			Host:    getEnv("GRPC_HOST", "0.0.0.0"),
			Port:    getEnv("GRPC_PORT", "9090"),
		},
		Database: DatabaseConfig{
			Driver:          driver,
			DSN:             dsn,
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			AutoMigrate:     getBoolEnv("DB_AUTO_MIGRATE", true),
		},
		Session: SessionConfig{
			Secret:          secret,
			Lifetime:        getDurationEnv("SESSION_LIFETIME", 10*24*time.Hour),
			AutoRenew:       getBoolEnv("SESSION_AUTO_RENEW", true),
			RenewalThrottle: getDurationEnv("SESSION_RENEWAL_THROTTLE", time.Hour),
			RevocationGrace: getDurationEnv("SESSION_REVOCATION_GRACE", time.Minute),
			SweepInterval:   getDurationEnv("SESSION_REVOCATION_SWEEP_INTERVAL", time.Minute),
		},
		Tokens: TokenConfig{
			ActivationTTL: getDurationEnv("ACTIVATION_TOKEN_TTL", 3*24*time.Hour),
			ResetTTL:      getDurationEnv("RESET_TOKEN_TTL", 24*time.Hour),
		},
		Cookie: CookieConfig{
			Name:     getEnv("COOKIE_NAME", "token"),
			HTTPOnly: getBoolEnv("COOKIE_HTTP_ONLY", true),
			Secure:   getBoolEnv("COOKIE_SECURE", false),
			SameSite: sameSite,
		},
		Password: PasswordConfig{
			Policy: loadPasswordPolicy(),
		},
		Mail: MailConfig{
			Driver:       strings.ToLower(getEnv("MAIL_DRIVER", "log")),
			From:         getEnv("MAIL_FROM", "no-reply@localhost"),
			FromName:     getEnv("MAIL_FROM_NAME", "Just TODO It"),
			SMTPHost:     getEnv("SMTP_HOST", "127.0.0.1"),
			SMTPPort:     getIntEnv("SMTP_PORT", 587),
			SMTPUsername: os.Getenv("SMTP_USERNAME"),
			SMTPPassword: os.Getenv("SMTP_PASSWORD"),
			FrontendURL:  frontendURL,
		},
		CORS: CORSConfig{
			AllowedOrigins: append(getCSVEnv("CORS_ALLOWED_ORIGINS"), frontendURL),
		},
		Log: LogConfig{
			Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "text")),
		},
		InsecureSecret: insecure,
	}

	if cfg.Session.RenewalThrottle > cfg.Session.Lifetime {
		return nil, errors.New("SESSION_RENEWAL_THROTTLE must not exceed SESSION_LIFETIME")
	}
	if cfg.Session.RevocationGrace < 0 {
		return nil, errors.New("SESSION_REVOCATION_GRACE must not be negative")
	}
	if cfg.Session.SweepInterval <= 0 {
		return nil, errors.New("SESSION_REVOCATION_SWEEP_INTERVAL must be positive")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationEnv accepts Go duration strings ("90s", "240h") or a bare number of minutes.
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getCSVEnv(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseSameSite(value string) (http.SameSite, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	case "default":
		return http.SameSiteDefaultMode, nil
	}
	return 0, fmt.Errorf("unsupported COOKIE_SAME_SITE %q", value)
}

func loadPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:        getIntEnv("PASSWORD_MIN_LENGTH", 8),
		RequireUppercase: getBoolEnv("PASSWORD_REQUIRE_UPPERCASE", false),
		RequireLowercase: getBoolEnv("PASSWORD_REQUIRE_LOWERCASE", false),
		RequireNumber:    getBoolEnv("PASSWORD_REQUIRE_NUMBER", false),
		RequireSpecial:   getBoolEnv("PASSWORD_REQUIRE_SPECIAL", false),
	}
}
