// Command loader seeds the catalog from a JSON dataset. Entries whose
// identifier already exists are skipped, so re-running the loader over
// the same file is safe.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/fresh-tomatoes/catalog-api/internal/config"
	"github.com/fresh-tomatoes/catalog-api/internal/logging"
	"github.com/fresh-tomatoes/catalog-api/internal/repository"
	"github.com/fresh-tomatoes/catalog-api/internal/store"
)

func main() {
	var file string
	flag.StringVar(&file, "file", "movies.json", "path to the JSON movie dataset")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	data, err := os.ReadFile(file)
	if err != nil {
		logger.Fatal("read dataset", zap.String("file", file), zap.Error(err))
	}
	var entries []repository.MovieImport
	if err := json.Unmarshal(data, &entries); err != nil {
		logger.Fatal("parse dataset", zap.String("file", file), zap.Error(err))
	}

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	st, err := store.New(dbCtx, cfg.DBURL, store.Options{
		MaxConns: int32(cfg.DBMaxConns),
		MinConns: int32(cfg.DBMinConns),
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal("connect database", zap.Error(err))
	}
	defer st.Close()

	repo := repository.New(st)

	var created, skipped int
	for _, entry := range entries {
		ok, err := repo.Movies.Import(ctx, entry)
		if err != nil {
			logger.Fatal("import movie",
				zap.Int64("id", entry.ID),
				zap.String("title", entry.Title),
				zap.Error(err))
		}
		if ok {
			created++
		} else {
			skipped++
		}
	}
	logger.Info("dataset loaded",
		zap.String("file", file),
		zap.Int("created", created),
		zap.Int("skipped", skipped))
}
