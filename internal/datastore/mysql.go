package datastore

import (
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/tphakala/securitas/internal/conf"
	"github.com/tphakala/securitas/internal/errors"
	"github.com/tphakala/securitas/internal/logger"
)

const (
	mysqlMaxOpenConns    = 25
	mysqlMaxIdleConns    = 5
	mysqlConnMaxLifetime = 30 * time.Minute
)

// mysqlDSN builds the connection string. Times are stored and read as UTC.
func mysqlDSN(settings *conf.MySQLSettings) string {
	cfg := mysqldriver.NewConfig()
	cfg.User = settings.Username
	cfg.Passwd = settings.Password
	cfg.Net = "tcp"
	cfg.Addr = settings.Host + ":" + settings.Port
	cfg.DBName = settings.Database
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

func openMySQL(settings *conf.DatabaseSettings, log logger.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(mysqlDSN(&settings.MySQL)), gormConfig(settings, log))
	if err != nil {
		log.Error("failed to open MySQL database",
			logger.String("host", settings.MySQL.Host),
			logger.String("port", settings.MySQL.Port),
			logger.String("database", settings.MySQL.Database),
			logger.Error(err))
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "open_mysql").
			Context("host", settings.MySQL.Host).
			Build()
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(mysqlMaxOpenConns)
	sqlDB.SetMaxIdleConns(mysqlMaxIdleConns)
	sqlDB.SetConnMaxLifetime(mysqlConnMaxLifetime)

	log.Info("opened MySQL database",
		logger.String("host", settings.MySQL.Host),
		logger.String("database", settings.MySQL.Database))
	return db, nil
}
