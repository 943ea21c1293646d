package main

import (
	"context"
	"log"
	"net/http"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/Audricteel/client-voice-tracker/internal/api"
	"github.com/Audricteel/client-voice-tracker/internal/auth"
	"github.com/Audricteel/client-voice-tracker/internal/config"
	"github.com/Audricteel/client-voice-tracker/internal/db"
	"github.com/Audricteel/client-voice-tracker/internal/service"
	"github.com/Audricteel/client-voice-tracker/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	sqdb, err := db.OpenSQLite(cfg.DBPath, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer sqdb.Close()
	if err := db.ApplyMigrationFile(sqdb, filepath.Join(cfg.MigrationsDir, "001_init.sql")); err != nil {
		log.Fatalf("migration: %v", err)
	}

	st := store.New(sqdb)
	if cfg.SeedUsers {
		hash, err := auth.HashPassword("password")
		if err != nil {
			log.Fatalf("seed hash: %v", err)
		}
		if err := st.SeedDefaultUsers(context.Background(), hash); err != nil {
			log.Fatalf("seed users: %v", err)
		}
	}

	svc := service.New(cfg, st)
	r := api.NewRouter(cfg, svc)

	hsrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadTimeout:       time.Duration(cfg.HTTPReadTimeoutSec) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.HTTPReadHeaderTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTPWriteTimeoutSec) * time.Second,
		IdleTimeout:       time.Duration(cfg.HTTPIdleTimeoutSec) * time.Second,
	}

	log.Printf("listening on %s", cfg.ListenAddr)
	if err := hsrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server: %v", err)
	}
}
