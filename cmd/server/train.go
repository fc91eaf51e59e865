package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/veilmont/colmatch/pkg/learning"
)

func cmdTrain(args []string) {
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	template := fs.String("template", "auto-seed", "template label recorded on seeded corrections")
	reset := fs.Bool("reset", false, "wipe previously seeded entries first (manual corrections survive)")
	fs.Parse(args)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := loadConfig(*cfgPath, logger)

	store, err := learning.Open(cfg.DBPath, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Erreur ouverture %s: %v\n", cfg.DBPath, err)
		os.Exit(1)
	}
	defer store.Close()

	if *reset {
		if err := store.ClearTrainingData(); err != nil {
			fmt.Fprintf(os.Stderr, "Erreur reset: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Données de pré-entraînement supprimées.")
	}

	fmt.Println("Pré-entraînement en cours...")
	stats, err := store.Pretrain(nil, *template)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Erreur: %v\n", err)
		os.Exit(1)
	}

	languages := make([]string, 0, len(stats.ByLanguage))
	for lang := range stats.ByLanguage {
		languages = append(languages, lang)
	}
	sort.Strings(languages)
	for _, lang := range languages {
		fmt.Printf("  %-15s %d\n", lang, stats.ByLanguage[lang])
	}
	fmt.Printf("OK: %d paires ajoutées, %d doublons ignorés -> %s\n",
		stats.TotalAdded, stats.DuplicatesSkipped, cfg.DBPath)
}
