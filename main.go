// Package main provides the entry point for the TitanRoof diagram editor.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"time"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"

	"titanroof/internal/app"
	"titanroof/internal/config"
	"titanroof/internal/document"
	"titanroof/internal/project"
	"titanroof/internal/server"
	"titanroof/internal/version"
	"titanroof/ui/mainwindow"
	"titanroof/ui/prefs"
)

func main() {
	configPath := flag.String("config", "", "path to titanroof.toml")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("Starting %s", version.AppName())

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if err := os.MkdirAll(cfg.Storage.Dir, 0o755); err != nil {
		log.Fatalf("Storage: %v", err)
	}

	store, err := project.OpenStore(cfg.DatabasePath())
	if err != nil {
		log.Fatalf("Autosave: %v", err)
	}
	defer store.Close()

	logger := log.Default()
	raster := document.Pdftoppm{Path: cfg.PDF.Pdftoppm, DPI: cfg.PDF.DPI}
	appState := app.NewState(raster, store, logger)

	ctx := context.Background()
	if restored, err := appState.Restore(ctx); err != nil {
		log.Printf("Autosave: restore failed: %v", err)
	} else if restored {
		log.Printf("Autosave: restored %s", cfg.DatabasePath())
	}

	// Handle command line arguments
	if flag.NArg() > 0 {
		projectPath := flag.Arg(0)
		if err := appState.LoadProject(ctx, projectPath); err != nil {
			log.Printf("Failed to load project %s: %v", projectPath, err)
		}
	}

	if cfg.Autosave.Enabled {
		saver := app.NewAutosaver(appState, cfg.Autosave.Interval, logger)
		saver.Start()
		defer saver.Stop()
	}

	if cfg.Server.Addr != "" {
		srv := server.New(cfg.Server.Addr, appState, logger).HTTPServer()
		go func() {
			log.Printf("Server: listening on %s", cfg.Server.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("Server: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	fyneApp := fyneapp.NewWithID("com.titanroof.editor")
	fyneApp.Settings().SetTheme(&app.Theme{})

	win := mainwindow.New(fyneApp, appState, prefs.Load(), mainwindow.Options{
		ResizeDebounce: cfg.View.ResizeDebounce,
		Logger:         logger,
	})
	win.SetOnClosed(func() {
		win.SaveLayout()
		if appState.IsModified() {
			if err := appState.Save(context.Background(), app.SourceAuto); err != nil {
				log.Printf("Autosave: final save failed: %v", err)
			}
		}
	})
	win.Resize(fyne.NewSize(1400, 900))
	win.ShowAndRun()
}
