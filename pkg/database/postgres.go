package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// PoolOptions 连接池参数
type PoolOptions struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// DefaultPoolOptions 默认连接池
func DefaultPoolOptions() PoolOptions {
	return PoolOptions{
		MaxIdleConns:    10,
		MaxOpenConns:    100,
		ConnMaxLifetime: time.Hour,
	}
}

// InitDB 初始化 Postgres 连接
// dsn: 数据库连接字符串
// verbose: 是否打印所有 SQL（开发环境）
// models: 需要自动建表/迁移的结构体指针
func InitDB(dsn string, verbose bool, models ...interface{}) (*gorm.DB, error) {
	logLevel := logger.Warn
	if verbose {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}

	if err := Setup(db, DefaultPoolOptions(), models...); err != nil {
		return nil, err
	}

	log.Println("数据库连接成功 (Database Connected Successfully)")
	return db, nil
}

// Setup 设置连接池并执行迁移
func Setup(db *gorm.DB, pool PoolOptions, models ...interface{}) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 SQL DB 失败: %w", err)
	}

	sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)

	if len(models) > 0 {
		if err := db.AutoMigrate(models...); err != nil {
			return fmt.Errorf("自动建表出错: %w", err)
		}
	}
	return nil
}

// Close 关闭连接
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
