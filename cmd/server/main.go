package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	"gopkg.in/yaml.v3"

	"github.com/veilmont/colmatch/pkg/api"
	"github.com/veilmont/colmatch/pkg/embed"
	"github.com/veilmont/colmatch/pkg/engine"
	"github.com/veilmont/colmatch/pkg/learning"
	"github.com/veilmont/colmatch/pkg/normalizer"
)

const version = "0.3.0"

type config struct {
	Addr         string `yaml:"addr"`
	DBPath       string `yaml:"db_path"`
	ConceptsFile string `yaml:"concepts_file"`
	Embedding    struct {
		BaseURL  string `yaml:"base_url"`
		Model    string `yaml:"model"`
		Disabled bool   `yaml:"disabled"`
	} `yaml:"embedding"`
	Matching engine.Config `yaml:"matching"`
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		cmdServe(os.Args[2:])
	case "mcp":
		cmdMCP(os.Args[2:])
	case "train":
		cmdTrain(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: colmatch <command>

Commands:
  serve   Start the HTTP server
  mcp     Serve the MCP tools over stdio
  train   Pre-train the learning store from the built-in seed corpus
`)
}

// deps bundles the wired components shared by the serve and mcp commands.
type deps struct {
	store  *learning.Store
	dict   *normalizer.Dictionary
	engine *engine.Engine
}

func build(cfg config, logger *slog.Logger) (*deps, error) {
	store, err := learning.Open(cfg.DBPath, logger)
	if err != nil {
		return nil, err
	}

	dict := normalizer.NewDictionary()
	if cfg.ConceptsFile != "" {
		if err := dict.LoadFile(cfg.ConceptsFile); err != nil {
			store.Close()
			return nil, err
		}
		logger.Info("concepts file loaded", "path", cfg.ConceptsFile)
	}

	var matcher engine.Matcher
	if !cfg.Embedding.Disabled {
		client := embed.NewClient(cfg.Embedding.BaseURL, cfg.Embedding.Model, logger)
		if client.Available(context.Background()) {
			matcher = embed.NewMatcher(client, logger)
			logger.Info("embedding endpoint ready", "model", client.Model())
		} else {
			logger.Warn("embedding endpoint unavailable, matching without it")
		}
	}

	return &deps{
		store:  store,
		dict:   dict,
		engine: engine.New(store, dict, matcher, cfg.Matching, logger),
	}, nil
}

func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	fs.Parse(args)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	cfg := loadConfig(*cfgPath, logger)

	d, err := build(cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer d.store.Close()

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: api.NewRouter(d.engine, d.store, logger),
	}

	// SIGHUP: hot reload the concepts dictionary.
	// SIGINT/SIGTERM: graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sighup := make(chan os.Signal, 1)
	signal.Notify(sighup, syscall.SIGHUP)
	go func() {
		for range sighup {
			logger.Info("SIGHUP received, reloading concepts")
			if err := d.dict.Reload(); err != nil {
				logger.Error("reload failed", "error", err)
			} else {
				logger.Info("concepts reloaded")
			}
		}
	}()

	go func() {
		logger.Info("colmatch listening", "addr", cfg.Addr, "version", version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	srv.Shutdown(context.Background())
}

func cmdMCP(args []string) {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	fs.Parse(args)

	// stdout carries the MCP protocol; everything else goes to stderr.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	cfg := loadConfig(*cfgPath, logger)

	d, err := build(cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer d.store.Close()

	srv := server.NewMCPServer("colmatch", version)
	api.RegisterMCPTools(srv, d.engine, d.store, logger)

	if err := server.ServeStdio(srv); err != nil {
		logger.Error("mcp server error", "error", err)
		os.Exit(1)
	}
}

func loadConfig(path string, logger *slog.Logger) config {
	cfg := config{
		Addr:     ":8430",
		DBPath:   "colmatch.db",
		Matching: engine.DefaultConfig(),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Info("no config file, using defaults", "path", path)
			return cfg
		}
		logger.Error("read config", "error", err)
		os.Exit(1)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		logger.Error("parse config", "error", err)
		os.Exit(1)
	}
	return cfg
}
