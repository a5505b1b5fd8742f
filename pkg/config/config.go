package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Dashboard  DashboardConfig
	Mail       MailConfig
	Import     ImportConfig
	Employees  EmployeeConfig
	Attendance AttendanceConfig
	Superuser  SuperuserConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	AutoMigrate  bool
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// DashboardConfig governs dashboard cache tuning.
type DashboardConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// MailConfig configures outgoing mail and the links embedded in it.
type MailConfig struct {
	FromName         string
	FromAddress      string
	SendgridAPIKey   string
	FrontendURL      string
	PasswordResetTTL time.Duration
}

// ImportConfig bounds student spreadsheet uploads.
type ImportConfig struct {
	MaxFileSizeBytes int64
	ArchiveDir       string
	ArchiveTTL       time.Duration
}

// EmployeeConfig holds the iq score at which a student becomes an employee.
type EmployeeConfig struct {
	IQThreshold int
}

// AttendanceConfig holds the check-in cutoff after which a student is late.
type AttendanceConfig struct {
	LateAfter string
}

// SuperuserConfig seeds the protected superuser account.
type SuperuserConfig struct {
	Name     string
	Email    string
	Password string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Dashboard = DashboardConfig{
		CacheEnabled: v.GetBool("ENABLE_DASHBOARD_CACHE"),
		CacheTTL:     parseDuration(v.GetString("DASHBOARD_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Mail = MailConfig{
		FromName:         v.GetString("MAIL_FROM_NAME"),
		FromAddress:      v.GetString("MAIL_FROM_ADDRESS"),
		SendgridAPIKey:   v.GetString("SENDGRID_API_KEY"),
		FrontendURL:      strings.TrimRight(v.GetString("FRONTEND_URL"), "/"),
		PasswordResetTTL: parseDuration(v.GetString("PASSWORD_RESET_TTL"), time.Hour),
	}

	maxImportSize := v.GetInt64("IMPORT_MAX_FILE_SIZE")
	if maxImportSize <= 0 {
		maxImportSize = 10 * 1024 * 1024
	}
	cfg.Import = ImportConfig{
		MaxFileSizeBytes: maxImportSize,
		ArchiveDir:       v.GetString("IMPORT_ARCHIVE_DIR"),
		ArchiveTTL:       parseDuration(v.GetString("IMPORT_ARCHIVE_TTL"), 30*24*time.Hour),
	}

	cfg.Employees = EmployeeConfig{IQThreshold: v.GetInt("EMPLOYEE_IQ_THRESHOLD")}
	cfg.Attendance = AttendanceConfig{LateAfter: v.GetString("ATTENDANCE_LATE_AFTER")}

	cfg.Superuser = SuperuserConfig{
		Name:     v.GetString("SUPERUSER_NAME"),
		Email:    v.GetString("SUPERUSER_EMAIL"),
		Password: v.GetString("SUPERUSER_PASSWORD"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "intern_tracker")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", false)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_DASHBOARD_CACHE", false)
	v.SetDefault("DASHBOARD_CACHE_TTL", "5m")

	v.SetDefault("MAIL_FROM_NAME", "Intern Tracker")
	v.SetDefault("MAIL_FROM_ADDRESS", "no-reply@intern-tracker.local")
	v.SetDefault("SENDGRID_API_KEY", "")
	v.SetDefault("FRONTEND_URL", "http://localhost:5173")
	v.SetDefault("PASSWORD_RESET_TTL", "60m")

	v.SetDefault("IMPORT_MAX_FILE_SIZE", 10*1024*1024)
	v.SetDefault("IMPORT_ARCHIVE_DIR", "./imports")
	v.SetDefault("IMPORT_ARCHIVE_TTL", "720h")

	v.SetDefault("EMPLOYEE_IQ_THRESHOLD", 60)
	v.SetDefault("ATTENDANCE_LATE_AFTER", "08:00")

	v.SetDefault("SUPERUSER_NAME", "Super User")
	v.SetDefault("SUPERUSER_EMAIL", "superuser@example.com")
	v.SetDefault("SUPERUSER_PASSWORD", "")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
