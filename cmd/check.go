package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/seclab/promptgate/internal/audit"
	"github.com/seclab/promptgate/internal/config"
	"github.com/seclab/promptgate/internal/generate"
	"github.com/seclab/promptgate/internal/history"
	"github.com/seclab/promptgate/internal/pipeline"
	"github.com/seclab/promptgate/internal/rbac"
	"github.com/seclab/promptgate/internal/sanitize"
)

var (
	checkConfigFile string
	checkRulesFile  string
	checkRole       string
	checkIdentity   string
)

var checkCmd = &cobra.Command{
	Use:   "check [prompt text]",
	Short: "Run one prompt through the pipeline and show the decision",
	Long:  "Run the full inspection pipeline on the given text with a mock generator and display the stage-by-stage record.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkConfigFile, "config", "", "Path to config YAML file")
	checkCmd.Flags().StringVar(&checkRulesFile, "rules", "", "Path to firewall rule catalog (overrides config)")
	checkCmd.Flags().StringVar(&checkRole, "role", "user", "Role to score the request with")
	checkCmd.Flags().StringVar(&checkIdentity, "identity", "", "Identity for history tracking (optional)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	promptText := strings.Join(args, " ")

	cfg, err := config.Load(checkConfigFile)
	if err != nil {
		return err
	}
	if checkRulesFile != "" {
		cfg.RulesFile = checkRulesFile
	}

	engine, _, err := buildEngine(cfg)
	if err != nil {
		return err
	}

	pipe, err := pipeline.New(pipeline.Options{
		Engine:    engine,
		Scorer:    rbac.NewScorer(history.New()),
		Sanitizer: sanitize.NewMasker(),
		Generator: generate.NewMock(),
		Audit:     audit.NopLogger(),
	})
	if err != nil {
		return err
	}

	rec, runErr := pipe.Run(context.Background(), pipeline.Request{
		Prompt:   promptText,
		Role:     checkRole,
		Identity: checkIdentity,
	})

	fmt.Fprintf(os.Stderr, "\n=== Pipeline Record ===\n\n")
	fmt.Fprintf(os.Stderr, "Prompt: %q\n\n", truncate(promptText, 120))

	recJSON, _ := json.MarshalIndent(rec, "", "  ")
	fmt.Fprintf(os.Stdout, "%s\n", recJSON)

	fmt.Fprintf(os.Stderr, "\n=== Decision ===\n\n")
	fmt.Fprintf(os.Stderr, "  Outcome:     %s\n", rec.Outcome)
	fmt.Fprintf(os.Stderr, "  Risk score:  %d\n", rec.FinalRiskScore)
	if rec.BlockedAt != "" {
		fmt.Fprintf(os.Stderr, "  Stopped at:  %s\n", rec.BlockedAt)
	}
	if rec.Reason != "" {
		fmt.Fprintf(os.Stderr, "  Reason:      %s\n", rec.Reason)
	}
	if rec.StepUp {
		fmt.Fprintf(os.Stderr, "  Step-up:     additional authentication recommended\n")
	}
	fmt.Fprintln(os.Stderr)

	return runErr
}

// truncate shortens s to at most n characters, never splitting a
// multi-byte rune.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}
