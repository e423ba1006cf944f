package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bominventory-backend/config"
	"bominventory-backend/models"
	"bominventory-backend/services"
	"bominventory-backend/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const lockTTL = 30 * time.Second

func main() {
	cfg := config.Load()
	config.SetLogLevel(cfg.LogLevel)
	log := config.GetLogger()

	// Инициализация базы данных
	db, err := models.InitDB(cfg.DatabaseURL, cfg.SQLitePath)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}

	// Автомиграция
	if err := models.AutoMigrate(db); err != nil {
		log.WithError(err).Fatal("failed to migrate database")
	}

	// Первый администратор из ADMIN_EMAIL / ADMIN_PASSWORD
	initDefaultAdmin(db, cfg, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Распределенная блокировка нужна только при нескольких экземплярах
	var locker services.Locker = services.NoopLocker{}
	if cfg.RedisURL != "" {
		rdb, err := services.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.WithError(err).Fatal("invalid REDIS_URL")
		}
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.WithError(err).Fatal("redis is unreachable")
		}
		locker = services.NewRedisLocker(rdb, lockTTL)
		log.Info("redis division locks enabled")
	}

	// Инициализация WebSocket хаба
	hub := services.NewDashboardHub(log)
	go hub.Run(ctx)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	app := buildApp(appDeps{
		DB:        db,
		Config:    cfg,
		Locker:    locker,
		Hub:       hub,
		Registry:  registry,
		Logger:    log,
		AccessLog: true,
	})

	go func() {
		<-ctx.Done()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.WithError(err).Warn("graceful shutdown failed")
		}
	}()

	// Запуск сервера
	log.WithField("port", cfg.Port).Info("server starting")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

// initDefaultAdmin создает администратора, если в системе его еще нет
func initDefaultAdmin(db *gorm.DB, cfg *config.Config, log *logrus.Logger) {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		log.Info("ADMIN_EMAIL or ADMIN_PASSWORD not set, skipping admin bootstrap")
		return
	}

	// Проверяем, есть ли уже администратор в базе
	var count int64
	if err := db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		log.WithError(err).Error("failed to count administrators")
		return
	}
	if count > 0 {
		log.WithField("admins", count).Info("administrator already exists")
		return
	}

	var existing models.User
	err := db.Where("email = ?", cfg.AdminEmail).First(&existing).Error
	if err == nil {
		existing.Role = models.RoleAdmin
		if err := db.Save(&existing).Error; err != nil {
			log.WithError(err).Error("failed to promote user to admin")
			return
		}
		log.WithField("email", existing.Email).Info("existing user promoted to admin")
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.WithError(err).Error("failed to look up admin user")
		return
	}

	hash, err := utils.HashPassword(cfg.AdminPassword)
	if err != nil {
		log.WithError(err).Error("failed to hash admin password")
		return
	}
	admin := models.User{
		Name:         cfg.AdminName,
		Email:        cfg.AdminEmail,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		IsActive:     true,
	}
	if err := db.Create(&admin).Error; err != nil {
		log.WithError(err).Error("failed to create admin user")
		return
	}
	log.WithField("email", admin.Email).Info("default admin created")
}
