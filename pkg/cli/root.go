package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root dealprobe command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dealprobe",
		Short: "Buyer-bot simulation harness for sales agents",
		Long: `dealprobe drives simulated buyer personas through scripted and
adversarial sales conversations against an agent under test, detects
policy violations mid-conversation, and scores transcripts along eight
rubric dimensions.`,
	}

	// Add subcommands
	rootCmd.AddCommand(NewRunCmd())
	rootCmd.AddCommand(NewSummaryCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}
