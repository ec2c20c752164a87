package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	editor "github.com/Hamzashehzad1/blogimageeditor"
	"github.com/Hamzashehzad1/blogimageeditor/segment"
)

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := editor.LoadConfig(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.String("log-format") == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	if cmd.Bool("debug") {
		cfg.LogLevel = "debug"
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	app := editor.New(cfg)
	if err := app.Run(ctx); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

// segmentFile prints the sections of an HTML file, the same split the editor
// shows for a post.
func segmentFile(_ context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return cli.Exit("usage: blogimageeditor segment <file.html>", 2)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(segment.Segment(string(data)))
}

func serveFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to config file",
			DefaultText: "config.yaml",
			Value:       "config.yaml",
			Sources:     cli.EnvVars("APP_CONFIG_FILE"),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "Log output: console or json",
			Value:   "console",
			Sources: cli.EnvVars("LOG_FORMAT"),
		},
		&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging", Sources: cli.EnvVars("DEBUG")},
	}
}

func main() {
	cmd := &cli.Command{
		Name:   "blogimageeditor",
		Usage:  "Suggest, shrink and attach stock photos to WordPress posts",
		Action: serve,
		Flags:  serveFlags(),
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the web editor",
				Action: serve,
				Flags:  serveFlags(),
			},
			{
				Name:      "segment",
				Usage:     "Print the H2/H3 sections of an HTML file as JSON",
				ArgsUsage: "<file.html>",
				Action:    segmentFile,
			},
			{
				Name:  "version",
				Usage: "Print the version",
				Action: func(context.Context, *cli.Command) error {
					fmt.Printf("blogimageeditor %s\n", editor.Version)
					return nil
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Error().Err(err).Msg("application error")
		os.Exit(1)
	}
}
