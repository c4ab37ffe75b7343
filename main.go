package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"transcription-editor/app"
	"transcription-editor/pkg/config"
	"transcription-editor/pkg/db"
	"transcription-editor/pkg/logging"
	"transcription-editor/pkg/tei"
)

// CLI is the command line.
var CLI struct {
	EnvFile   string `name:"env-file" help:"Env file to load before reading the environment" type:"path"`
	DBDriver  string `name:"db-driver" help:"Document store: postgres, sqlite or memory"`
	LogLevel  string `name:"log-level" help:"Log level (debug, info, warn, error)"`
	LogFormat string `name:"log-format" help:"Log format (text, json)"`

	Serve  ServeCmd  `cmd:"" default:"1" help:"Start the editor server"`
	Import ImportCmd `cmd:"" help:"Import a TEI file as a new document"`
	Export ExportCmd `cmd:"" help:"Write a stored document as TEI"`
}

// loadConfig applies the global flags on top of the environment.
func loadConfig() *config.Config {
	cfg := config.LoadFile(CLI.EnvFile)
	if CLI.DBDriver != "" {
		cfg.Database.Driver = CLI.DBDriver
	}
	if CLI.LogLevel != "" {
		cfg.Log.Level = CLI.LogLevel
	}
	if CLI.LogFormat != "" {
		cfg.Log.Format = CLI.LogFormat
	}
	return cfg
}

func setupLogging(cfg *config.Config) error {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(cfg.Log.Format)
	if err != nil {
		return err
	}
	logging.Init(level, format)
	return nil
}

type ServeCmd struct {
	Addr string `help:"Listen address, overrides SERVER_HOST and SERVER_PORT"`
}

func (c *ServeCmd) Run() error {
	cfg := loadConfig()
	if err := setupLogging(cfg); err != nil {
		return err
	}
	logger := logging.Component(nil, "main")

	server, err := app.NewServer(cfg, nil)
	if err != nil {
		return err
	}
	defer server.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- server.Start(c.Addr) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

type ImportCmd struct {
	Path  string `arg:"" help:"TEI file to import" type:"existingfile"`
	Title string `help:"Title, overrides the one in the TEI header"`
}

func (c *ImportCmd) Run() error {
	cfg := loadConfig()
	if err := setupLogging(cfg); err != nil {
		return err
	}
	data, err := os.ReadFile(c.Path)
	if err != nil {
		return err
	}
	meta, variants, err := tei.Decode(data)
	if err != nil {
		return fmt.Errorf("%s: %w", c.Path, err)
	}
	if c.Title != "" {
		meta.Title = c.Title
	}

	store, err := db.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	doc, err := store.CreateDocument(context.Background(), meta.Title, meta.Language, tei.Snapshots(variants))
	if err != nil {
		return err
	}
	fmt.Printf("imported %s (%d blocks) as %s\n", c.Path, len(doc.Blocks), doc.ID)
	return nil
}

type ExportCmd struct {
	ID  string `arg:"" help:"Document id"`
	Out string `help:"Output file, stdout when empty" type:"path"`
}

func (c *ExportCmd) Run() error {
	cfg := loadConfig()
	if err := setupLogging(cfg); err != nil {
		return err
	}
	store, err := db.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	doc, err := store.GetDocument(context.Background(), c.ID)
	if err != nil {
		return err
	}
	data, err := tei.Encode(tei.Meta{Title: doc.Title, Name: doc.ID, Language: doc.Language}, doc.Blocks)
	if err != nil {
		return err
	}
	if c.Out == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(c.Out, data, 0o644)
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("transcription-editor"),
		kong.Description("Collaborative block editor for manuscript transcriptions"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
