package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/markdave123-py/wordbook/internal/config"
	"github.com/markdave123-py/wordbook/internal/core"
	db "github.com/markdave123-py/wordbook/internal/core/database"
	objectclient "github.com/markdave123-py/wordbook/internal/core/object-client"
	"github.com/markdave123-py/wordbook/internal/services"
)

type App struct {
	Cfg          *config.Config
	Log          *slog.Logger
	DBClient     core.DbClient
	ObjectClient core.ObjectClient // nil unless storage.bucket_name is set
	Server       *Server
}

func NewApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	dbClient, err := db.NewDatabaseClient(appCtx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	log.Info("database ready", slog.String("driver", cfg.Database.Driver))

	a := &App{Cfg: cfg, Log: log, DBClient: dbClient}

	if cfg.Storage.BucketName != "" {
		objClient, err := objectclient.NewS3Client(appCtx, cfg.Storage, log)
		if err != nil {
			_ = dbClient.Close()
			return nil, fmt.Errorf("object storage: %w", err)
		}
		a.ObjectClient = objClient
	}

	vocab := services.NewVocabularyService(a.DBClient, a.ObjectClient, cfg.Storage.BucketName, cfg.Storage.Prefix)
	a.Server = NewServer(cfg.Server, vocab, log)
	return a, nil
}

func (a *App) Close() {
	if a.DBClient != nil {
		_ = a.DBClient.Close()
	}
}
