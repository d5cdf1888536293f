package cmd

import "github.com/spf13/cobra"

// Version is set at build time.
var Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "promptgate",
	Short: "PromptGate — policy-decision pipeline for LLM requests",
	Long: `PromptGate gates access to a text-generation backend. Every request
passes through a pattern-weighted prompt firewall, input sanitization,
an adaptive risk scorer, and output sanitization, producing an
auditable record of the decision.`,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("promptgate v%s\n", Version)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
