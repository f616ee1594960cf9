package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"peakhive/internal/config"
	"peakhive/internal/database"
	"peakhive/internal/handlers"
	"peakhive/internal/logging"
	"peakhive/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	bootLog := logging.New("info", "json")

	cfg, err := config.Load(bootLog)
	if err != nil {
		bootLog.WithError(err).Fatal("config load failed")
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()
	client, err := database.Connect(ctx, cfg.MongoURI, cfg.DBTimeout)
	if err != nil {
		logger.WithError(err).Fatal("mongo connection failed")
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logger.WithError(err).Warn("mongo disconnect failed")
		}
	}()

	db := client.Database(cfg.DBName)
	logger.WithField("database", db.Name()).Info("MongoDB connected")

	if err := database.EnsureIndexes(ctx, db, logger); err != nil {
		logger.WithError(err).Warn("index setup incomplete")
	}

	st := store.New(db)
	deps := handlers.NewDeps(st, cfg, logger)

	adminCtx, cancel := context.WithTimeout(ctx, cfg.DBTimeout)
	if err := handlers.EnsureAdmin(adminCtx, st.Users, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword, logger); err != nil {
		logger.WithError(err).Warn("admin bootstrap failed")
	}
	cancel()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handlers.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithFields(logrus.Fields{"port": cfg.Port, "env": cfg.AppEnv}).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
}
