package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"salescadence/models"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	DB        *gorm.DB
	AppConfig Config
)

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

type SMTPConfig struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Username string `json:"username"`
	Password string `json:"-"`
}

type Config struct {
	Environment   string `json:"environment"`
	ServerPort    string `json:"server_port"`
	EncryptionKey string `json:"-"`

	DBHost         string `json:"db_host"`
	DBPort         string `json:"db_port"`
	DBUser         string `json:"db_user"`
	DBPassword     string `json:"-"`
	DBName         string `json:"db_name"`
	DBSSLMode      string `json:"db_ssl_mode"`
	DBMaxIdleConns int    `json:"db_max_idle_conns"`
	DBMaxOpenConns int    `json:"db_max_open_conns"`

	Redis RedisConfig `json:"redis"`

	SMTP         SMTPConfig `json:"smtp"`
	SMTPFallback SMTPConfig `json:"smtp_fallback"`
	FromName     string     `json:"from_name"`
	FromEmail    string     `json:"from_email"`

	SentryDSN string `json:"-"`

	// Minutes between sequence sweep passes
	SweepInterval int `json:"sweep_interval"`

	// Requests per minute on the enroll/sweep endpoints
	RateLimitEngine int `json:"rate_limit_engine"`
}

func init() {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()
}

func LoadConfig() error {
	AppConfig = Config{
		Environment:    getEnv("ENVIRONMENT", "development"),
		ServerPort:     getEnv("SERVER_PORT", "5000"),
		EncryptionKey:  getEnv("ENCRYPTION_KEY", ""),
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "postgres"),
		DBPassword:     getEnv("DB_PASSWORD", ""),
		DBName:         getEnv("DB_NAME", "salescadence"),
		DBSSLMode:      getEnv("DB_SSL_MODE", "disable"),
		DBMaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
		DBMaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 100),

		Redis: RedisConfig{
			Enabled:  getEnv("REDIS_ADDRESS", "") != "",
			Address:  getEnv("REDIS_ADDRESS", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},

		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnv("SMTP_PORT", "587"),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
		},
		SMTPFallback: SMTPConfig{
			Host:     getEnv("SMTP_FALLBACK_HOST", ""),
			Port:     getEnv("SMTP_FALLBACK_PORT", "587"),
			Username: getEnv("SMTP_FALLBACK_USERNAME", ""),
			Password: getEnv("SMTP_FALLBACK_PASSWORD", ""),
		},
		FromName:  getEnv("FROM_NAME", "Salescadence"),
		FromEmail: getEnv("FROM_EMAIL", "outreach@salescadence.io"),

		SentryDSN: getEnv("SENTRY_DSN", ""),

		SweepInterval:   getEnvAsInt("SWEEP_INTERVAL_MINUTES", 60),
		RateLimitEngine: getEnvAsInt("RATE_LIMIT_ENGINE", 30),
	}

	// Validate required configurations
	if AppConfig.DBPassword == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if AppConfig.EncryptionKey == "" {
		return fmt.Errorf("ENCRYPTION_KEY is required")
	}
	if AppConfig.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL_MINUTES must be positive")
	}

	logConfig()
	return nil
}

func ConnectDB() error {
	logrus.Info("Attempting to connect to database...")

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		AppConfig.DBHost,
		AppConfig.DBPort,
		AppConfig.DBUser,
		AppConfig.DBPassword,
		AppConfig.DBName,
		AppConfig.DBSSLMode,
	)
	logrus.Infof("Using connection string: %s", maskPassword(dsn))

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get DB instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(AppConfig.DBMaxIdleConns)
	sqlDB.SetMaxOpenConns(AppConfig.DBMaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	logrus.Info("Successfully connected to the database")
	logrus.Info("Starting database migration...")
	if err := migrateDB(DB); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	logrus.Info("Database migration completed")
	return nil
}

// Helper functions
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	var value int
	_, err := fmt.Sscanf(valueStr, "%d", &value)
	if err != nil {
		return fallback
	}
	return value
}

func maskPassword(dsn string) string {
	const passwordMarker = "password="
	startIdx := strings.Index(dsn, passwordMarker)
	if startIdx == -1 {
		return dsn
	}

	startIdx += len(passwordMarker)
	endIdx := strings.IndexAny(dsn[startIdx:], " ")
	if endIdx == -1 {
		return dsn[:startIdx] + "*****"
	}
	return dsn[:startIdx] + "*****" + dsn[startIdx+endIdx:]
}

func logConfig() {
	logrus.Info("Loaded configuration:")
	logrus.Infof("Environment: %s", AppConfig.Environment)
	logrus.Infof("Server Port: %s", AppConfig.ServerPort)
	logrus.Infof("Database: %s@%s:%s/%s",
		AppConfig.DBUser,
		AppConfig.DBHost,
		AppConfig.DBPort,
		AppConfig.DBName)
	logrus.Infof("Sweep interval: %d minutes", AppConfig.SweepInterval)
	logrus.Infof("SMTP: primary(%t), fallback(%t)",
		AppConfig.SMTP.Host != "",
		AppConfig.SMTPFallback.Host != "")
}

func migrateDB(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Prospect{},
		&models.Sequence{},
		&models.SequenceStep{},
		&models.SequenceEnrollment{},
		&models.EmailDraft{},
		&models.OutreachTask{},
	)
}
