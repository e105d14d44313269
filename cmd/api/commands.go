package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"clinic-agent/internal/auth"
	"clinic-agent/internal/config"
	"clinic-agent/internal/db"
	"clinic-agent/internal/logging"
	"clinic-agent/internal/server"
)

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "clinic-agent",
		Short:         "AI assistant backend for the clinic: agent queries, transcripts, tasks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), migrateCmd(), classifyCmd(), processTranscriptCmd(), tokenCmd())
	return root
}

// loadConfig is the common preamble of every command.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logging.Setup(cfg.LogLevel, cfg.LogPretty)
	return cfg, nil
}

func serveCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if migrate {
				if err := db.Migrate(a.db); err != nil {
					return err
				}
			}

			h := server.Router(server.Deps{
				Agent:       a.agent,
				Transcripts: a.transcripts,
				Todos:       a.store,
				Events:      a.db,
				Auth:        auth.New([]byte(cfg.JWTSecret)),
				Origins:     cfg.Origins(),
				Ping:        a.db.PingContext,
			})
			return server.Run(ctx, cfg.HTTPAddr, h)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply migrations before serving")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			database, err := db.Connect(cfg.ConnString())
			if err != nil {
				return err
			}
			defer database.Close()

			if err := db.Migrate(database); err != nil {
				return err
			}
			log.Info().Msg("migrations applied")
			return nil
		},
	}
}

func classifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <message>",
		Short: "Print the intent the classifier derives for a message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			in := newClassifier(cfg).Classify(cmd.Context(), args[0], nil)
			return printJSON(cmd.OutOrStdout(), in)
		},
	}
}

func processTranscriptCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "process-transcript <meeting-id>",
		Short: "Extract tasks and embeddings from a meeting transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := uuid.Parse(args[0]); err != nil {
				return fmt.Errorf("meeting id must be a uuid: %w", err)
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			var text string
			if file != "" {
				b, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("read transcript: %w", err)
				}
				text = string(b)
			}

			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.transcripts.Process(cmd.Context(), args[0], text)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read the transcript from a file instead of the meeting row")
	return cmd
}

// tokenCmd mints a bearer token for local testing against JWT_SECRET.
func tokenCmd() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a development bearer token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.JWTSecret == "" {
				return fmt.Errorf("JWT_SECRET is not set")
			}
			if subject == "" {
				subject = uuid.NewString()
			}
			tok, err := auth.GenerateToken([]byte(cfg.JWTSecret), subject, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	}
	cmd.Flags().StringVar(&subject, "sub", "", "user id (default: random uuid)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
