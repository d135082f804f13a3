package cmd

import (
	"fmt"
	"os"

	"github.com/killallgit/scribe-api/pkg/config"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "scribe-api",
	Short: "Clinical session scribe API server",
	Long: `Scribe API - records mentoring sessions and turns them into clinical notes

A consented recording is captured from the microphone, staged into durable
storage, transcribed with Whisper and summarized into a SOAP note that the
clinician can edit and finalize.

Features:
  • Consent-gated microphone capture with pause and resume
  • Resumable pipeline state per appointment
  • Whisper transcription (hosted API or local whisper.cpp)
  • SOAP note generation (OpenAI compatible API or Vertex AI)
  • Live progress over Server-Sent Events
  • Terminal recorder for in-room use`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// NewRootCmd creates a new root command (exported for testing)
func NewRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	cobra.OnInitialize(loadConfig)

	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("json-logs", false, "enable JSON formatted logs")
}

// loadConfig loads the configuration when a command needs it
func loadConfig() {
	cmd, _, _ := rootCmd.Find(os.Args[1:])
	if cmd != nil && (cmd.Name() == "version" || cmd.Name() == "help") {
		return
	}

	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing config: %v\n", err)
		os.Exit(1)
	}
}
