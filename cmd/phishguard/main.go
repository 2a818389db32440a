package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	configPath string

	colorRed    = color.New(color.FgRed, color.Bold)
	colorGreen  = color.New(color.FgGreen, color.Bold)
	colorYellow = color.New(color.FgYellow, color.Bold)
	colorCyan   = color.New(color.FgCyan)
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		colorRed.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "phishguard",
	Short: "Phishing risk scoring for pasted text and email files",
	Long: `phishguard scores the phishing risk of an email and classifies it
as Safe, Caution or Dangerous.

Examples:
  # Score pasted text
  phishguard analyze --text "Your account will be suspended, click http://bit.ly/xyz immediately"

  # Score a raw email file
  phishguard analyze --file suspicious.eml

  # Score every message of a mailbox
  phishguard scan-mbox --file inbox.mbox

  # Serve the HTTP API
  phishguard serve --config phishguard.yaml
`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./phishguard.yaml if present)")

	analyzeCmd.Flags().StringVarP(&analyzeFile, "file", "f", "", "email file to analyze (.txt or .eml)")
	analyzeCmd.Flags().StringVarP(&analyzeText, "text", "t", "", "pasted email text to analyze")
	analyzeCmd.Flags().BoolVar(&jsonOutput, "json", false, "print results as JSON")

	scanMboxCmd.Flags().StringVarP(&mboxFile, "file", "f", "", "mbox file to scan")
	scanMboxCmd.Flags().BoolVar(&jsonOutput, "json", false, "print results as JSON")
	_ = scanMboxCmd.MarkFlagRequired("file")

	rulesCmd.AddCommand(rulesInitCmd, rulesListCmd)
	rootCmd.AddCommand(analyzeCmd, scanMboxCmd, serveCmd, rulesCmd)
}
