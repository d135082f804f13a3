package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/killallgit/scribe-api/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeCommand(t *testing.T) {
	tests := []struct {
		name           string
		args           []string
		wantErr        bool
		expectedOutput string
	}{
		{
			name:           "serve command with help",
			args:           []string{"serve", "--help"},
			wantErr:        false,
			expectedOutput: "Start the Scribe API server",
		},
		{
			name:           "serve command with invalid port",
			args:           []string{"serve", "--port", "invalid"},
			wantErr:        true,
			expectedOutput: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewRootCmd()
			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetErr(buf)
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			if (err != nil) != tt.wantErr {
				t.Errorf("Execute() error = %v, wantErr %v", err, tt.wantErr)
			}

			if tt.expectedOutput != "" && !strings.Contains(buf.String(), tt.expectedOutput) {
				t.Errorf("Expected output to contain %q, got %q", tt.expectedOutput, buf.String())
			}
		})
	}
}

func TestServeCommandFlags(t *testing.T) {
	cmd := NewRootCmd()
	serveCmd, _, err := cmd.Find([]string{"serve"})
	if err != nil {
		t.Fatalf("Failed to find serve command: %v", err)
	}

	// Test port flag
	portFlag := serveCmd.Flags().Lookup("port")
	if portFlag == nil {
		t.Error("Expected port flag to be registered")
	}

	// Test host flag
	hostFlag := serveCmd.Flags().Lookup("host")
	if hostFlag == nil {
		t.Error("Expected host flag to be registered")
	}
}

func TestServerOptions(t *testing.T) {
	t.Run("auth disabled", func(t *testing.T) {
		cfg := &config.Config{
			RateLimiting: config.RateLimitConfig{Enabled: true, RPS: 5, Burst: 10},
			Monitoring:   config.MonitoringConfig{MetricsEnabled: true, MetricsPath: "/metrics"},
		}

		opts, err := serverOptions(cfg)
		require.NoError(t, err)
		assert.Nil(t, opts.Auth)
		assert.Equal(t, 5, opts.RateLimiting.RPS)
		assert.True(t, opts.Monitoring.MetricsEnabled)
	})

	t.Run("auth enabled without key set", func(t *testing.T) {
		cfg := &config.Config{Auth: config.AuthConfig{Enabled: true}}

		_, err := serverOptions(cfg)
		assert.Error(t, err)
	})
}
