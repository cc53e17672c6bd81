package main

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"ragchat/internal/config"
	"ragchat/internal/domain"
	"ragchat/internal/embedding/hashing"
	embopenai "ragchat/internal/embedding/openai"
	llmopenai "ragchat/internal/llm/openai"
	"ragchat/internal/logging"
	"ragchat/internal/service"
	"ragchat/internal/vectorstore"
	"ragchat/internal/vectorstore/gobfile"
	"ragchat/internal/vectorstore/sqlite"
)

// app holds what every subcommand needs: the loaded config and a logger.
type app struct {
	cfg     *config.AppConfig
	cfgPath string
	log     *log.Logger
}

func loadApp(cmd *cobra.Command) (*app, error) {
	cfgPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("could not get config flag: %w", err)
	}
	debug, err := cmd.Flags().GetBool("debug")
	if err != nil {
		return nil, fmt.Errorf("could not get debug flag: %w", err)
	}

	var cfg *config.AppConfig
	if cfgPath == "" {
		cfg, cfgPath, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger := logging.New(cmd.ErrOrStderr(), cfg.Log.Level, debug)
	logger.Debug("loaded config", "path", cfgPath)
	return &app{cfg: cfg, cfgPath: cfgPath, log: logger}, nil
}

func (a *app) embedder() (domain.Embedder, error) {
	switch a.cfg.Embedder.Type {
	case "hashing":
		return hashing.NewEmbedder(a.cfg.Embedder.Dimension), nil
	case "openai":
		oc := a.cfg.Embedder.OpenAI
		return embopenai.NewClient(embopenai.Config{
			BaseURL:           oc.BaseURL,
			APIKeyEnv:         oc.APIKeyEnv,
			Model:             oc.Model,
			Dimension:         a.cfg.Embedder.Dimension,
			RequestDimensions: oc.RequestDimensions,
			Timeout:           time.Duration(oc.TimeoutSecs) * time.Second,
			MaxRetries:        oc.MaxRetries,
		})
	default:
		return nil, fmt.Errorf("%w: unknown embedder %q", domain.ErrInvalidArgument, a.cfg.Embedder.Type)
	}
}

func (a *app) storage() (vectorstore.Storage, error) {
	switch a.cfg.Index.Format {
	case "gob":
		return gobfile.NewStorage(), nil
	case "sqlite":
		return sqlite.NewStorage(), nil
	default:
		return nil, fmt.Errorf("%w: unknown index format %q", domain.ErrInvalidArgument, a.cfg.Index.Format)
	}
}

func (a *app) retrieval(ctx context.Context, rebuild bool) (*service.RetrievalService, error) {
	emb, err := a.embedder()
	if err != nil {
		return nil, err
	}
	st, err := a.storage()
	if err != nil {
		return nil, err
	}
	return service.NewRetrievalService(ctx, service.RetrievalOptions{
		CorpusPath:        a.cfg.Corpus.Path,
		IndexPath:         a.cfg.Index.Path,
		Embedder:          emb,
		Storage:           st,
		BatchSize:         a.cfg.Index.BatchSize,
		VerifyFingerprint: a.cfg.Index.Verify(),
		Rebuild:           rebuild,
		Logger:            a.log,
	})
}

func (a *app) completer() (domain.Completer, error) {
	return llmopenai.NewCompleter(llmopenai.Config{
		BaseURL:   a.cfg.Chat.BaseURL,
		APIKeyEnv: a.cfg.Chat.APIKeyEnv,
		Model:     a.cfg.Chat.Model,
		Mode:      llmopenai.Mode(a.cfg.Chat.Mode),
		Timeout:   time.Duration(a.cfg.Chat.TimeoutSecs) * time.Second,
	})
}
