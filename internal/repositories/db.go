// Package repositories provides data access layer implementations.
// It persists the operation journal and the API clients allowed to call the
// gateway API.
package repositories

import (
	"fmt"
	"time"

	"gatepay/internal/config"
	"gatepay/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DBConfig holds connection and pool settings.
type DBConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DBConfigFromEnv reads DB_* variables. Enabled is false when DB_HOST is
// unset, in which case the service runs without a journal.
func DBConfigFromEnv() (cfg DBConfig, enabled bool) {
	cfg = DBConfig{
		Host:            config.GetEnv("DB_HOST", ""),
		Port:            config.GetIntEnv("DB_PORT", 5432),
		User:            config.GetEnv("DB_USER", "postgres"),
		Password:        config.GetEnv("DB_PASSWORD", "postgres"),
		Name:            config.GetEnv("DB_NAME", "gatepay"),
		SSLMode:         config.GetEnv("DB_SSLMODE", "disable"),
		MaxIdleConns:    config.GetIntEnv("DB_MAX_IDLE_CONNS", 10),
		MaxOpenConns:    config.GetIntEnv("DB_MAX_OPEN_CONNS", 100),
		ConnMaxLifetime: config.GetDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour),
		ConnMaxIdleTime: config.GetDurationEnv("DB_CONN_MAX_IDLE_TIME", 30*time.Minute),
	}
	return cfg, cfg.Host != ""
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// Open connects to postgres, applies the pool settings and migrates the
// schema.
func Open(cfg DBConfig, log *zap.Logger) (*gorm.DB, error) {
	if log == nil {
		log = zap.NewNop()
	}
	gormLogger := logger.New(
		zap.NewStdLog(log.Named("gorm")),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := Migrate(db); err != nil {
		return nil, err
	}
	log.Info("postgres connected", zap.String("host", cfg.Host), zap.String("database", cfg.Name))
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.OperationRecord{}, &models.APIClient{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
