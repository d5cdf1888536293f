package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/seclab/promptgate/internal/audit"
	"github.com/seclab/promptgate/internal/config"
	"github.com/seclab/promptgate/internal/firewall"
	"github.com/seclab/promptgate/internal/generate"
	"github.com/seclab/promptgate/internal/history"
	"github.com/seclab/promptgate/internal/pipeline"
	"github.com/seclab/promptgate/internal/rbac"
	"github.com/seclab/promptgate/internal/sanitize"
	"github.com/seclab/promptgate/internal/server"
	"github.com/seclab/promptgate/internal/telemetry"
)

var (
	configFile string
	rulesFile  string
	listenAddr string
	auditFile  string
	auditDB    string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the PromptGate HTTP server",
	Long:  "Start the HTTP server that inspects, scores, and gates chat requests.",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&configFile, "config", "", "Path to config YAML file")
	serveCmd.Flags().StringVar(&rulesFile, "rules", "", "Path to firewall rule catalog (overrides config)")
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Address to listen on (overrides config)")
	serveCmd.Flags().StringVar(&auditFile, "audit-log", "", "Path to JSONL audit log (overrides config)")
	serveCmd.Flags().StringVar(&auditDB, "audit-db", "", "Path to SQLite audit database (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Str("component", "promptgate").Logger()

	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if rulesFile != "" {
		cfg.RulesFile = rulesFile
	}
	if listenAddr != "" {
		cfg.Listen = listenAddr
	}
	if auditFile != "" {
		cfg.AuditLog = auditFile
	}
	if auditDB != "" {
		cfg.AuditDB = auditDB
	}

	engine, catalogName, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	logger.Info().
		Str("catalog", catalogName).
		Int("max_prompt_length", cfg.MaxPromptLength).
		Msg("firewall rules loaded")

	var auditLogger *audit.Logger
	if cfg.AuditLog != "" {
		auditLogger, err = audit.NewFileLogger(cfg.AuditLog)
		if err != nil {
			return fmt.Errorf("creating audit logger: %w", err)
		}
		logger.Info().Str("path", cfg.AuditLog).Msg("audit log enabled")
	} else {
		auditLogger = audit.NewStderrLogger()
	}

	generator, err := generate.New(cfg.Generator)
	if err != nil {
		return err
	}

	pipe, err := pipeline.New(pipeline.Options{
		Engine:          engine,
		Scorer:          rbac.NewScorer(history.New()),
		Sanitizer:       sanitize.NewMasker(),
		Generator:       generator,
		Audit:           auditLogger,
		GenerateTimeout: cfg.GenerateTimeout(),
	})
	if err != nil {
		return err
	}

	if cfg.AuditDB != "" {
		store, err := audit.NewStore(cfg.AuditDB)
		if err != nil {
			return fmt.Errorf("opening audit database: %w", err)
		}
		defer store.Close()
		logger.Info().Str("path", cfg.AuditDB).Msg("audit database enabled")

		pipe.Observe(func(rec *pipeline.Record) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			err := store.Save(ctx, audit.Entry{
				Timestamp: rec.Timestamp,
				RequestID: rec.RequestID,
				Identity:  rec.Identity,
				Role:      rec.Role,
				Outcome:   string(rec.Outcome),
				BlockedAt: rec.BlockedAt,
				Reason:    rec.Reason,
				RiskScore: rec.FinalRiskScore,
				Record:    rec,
			})
			if err != nil {
				logger.Warn().Err(err).Str("request_id", rec.RequestID).Msg("audit database write failed")
			}
		})
	}

	var metrics *telemetry.Metrics
	if cfg.Metrics.Enabled {
		metrics = telemetry.New(cfg.Metrics.Namespace)
	}

	srv := server.New(pipe, metrics, logger)

	// Hot-reload the rule catalog on file change; in-flight requests
	// finish with the engine they started with.
	if cfg.RulesFile != "" {
		go func() {
			err := config.Watch(context.Background(), cfg.RulesFile, 200*time.Millisecond, logger, func() {
				engine, name, err := buildEngine(cfg)
				if err != nil {
					logger.Warn().Err(err).Msg("rule catalog reload failed, keeping previous rules")
					return
				}
				pipe.SwapEngine(engine)
				logger.Info().Str("catalog", name).Msg("rule catalog reloaded")
			})
			if err != nil && err != context.Canceled {
				logger.Warn().Err(err).Msg("rule catalog watcher stopped")
			}
		}()
	}

	logger.Info().
		Str("listen", cfg.Listen).
		Str("provider", cfg.Generator.Provider).
		Msg("starting promptgate")

	fmt.Fprintf(os.Stderr, "\n  PromptGate v%s\n", Version)
	fmt.Fprintf(os.Stderr, "  Listen:    %s\n", cfg.Listen)
	fmt.Fprintf(os.Stderr, "  Provider:  %s\n", cfg.Generator.Provider)
	if cfg.RulesFile != "" {
		fmt.Fprintf(os.Stderr, "  Rules:     %s\n", cfg.RulesFile)
	}
	fmt.Fprintln(os.Stderr)

	return http.ListenAndServe(cfg.Listen, srv.Handler())
}

// buildEngine compiles the firewall engine from the configured catalog
// file, falling back to the built-in defaults when none is set.
func buildEngine(cfg config.Config) (*firewall.Engine, string, error) {
	rules := firewall.DefaultRules()
	name := "built-in defaults"
	if cfg.RulesFile != "" {
		catalog, err := firewall.LoadCatalog(cfg.RulesFile)
		if err != nil {
			return nil, "", err
		}
		rules = catalog.Rules
		name = fmt.Sprintf("%s (%s)", catalog.CatalogName, catalog.Version)
	}
	engine, err := firewall.NewEngine(rules, cfg.MaxPromptLength)
	if err != nil {
		return nil, "", err
	}
	return engine, name, nil
}
