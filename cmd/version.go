package cmd

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"

	"github.com/killallgit/scribe-api/pkg/config"
)

// Build variables, set with -ldflags at release time
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
	OS        = runtime.GOOS
	Arch      = runtime.GOARCH
)

const modulePath = "github.com/killallgit/scribe-api"

// backends lists the implementations this binary can be configured with
var backends = []struct {
	key     string
	choices []string
}{
	{"storage.backend", []string{config.StorageBackendFilesystem, config.StorageBackendGCS}},
	{"whisper.backend", []string{config.WhisperBackendAPI, config.WhisperBackendCLI}},
	{"notes.provider", []string{config.NotesProviderOpenAI, config.NotesProviderVertex}},
	{"appointments.source", []string{config.AppointmentSourceLocal, config.AppointmentSourcePostgres}},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long: `Display the build of the scribe server: module, version, commit,
build time, Go runtime and the storage, transcription, note and
appointment backends it supports.`,
	Run: runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolP("short", "s", false, "print just the version number")
}

// buildModule reports the main module path and, for go install builds, its
// module version
func buildModule() (path, version string) {
	path = modulePath
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Path == "" {
		return path, ""
	}
	if info.Main.Version != "(devel)" {
		version = info.Main.Version
	}
	return info.Main.Path, version
}

func runVersion(cmd *cobra.Command, args []string) {
	out := cmd.OutOrStdout()
	short, _ := cmd.Flags().GetBool("short")

	path, moduleVersion := buildModule()
	version := Version
	if version == "dev" && moduleVersion != "" {
		version = moduleVersion
	}

	if short {
		fmt.Fprintln(out, version)
		return
	}

	fmt.Fprintln(out, path)
	fmt.Fprintln(out, repeatString("-", 40))
	fmt.Fprintf(out, "Version:      %s\n", version)
	fmt.Fprintf(out, "Git Commit:   %s\n", GitCommit)
	fmt.Fprintf(out, "Build Time:   %s\n", BuildTime)
	fmt.Fprintf(out, "Go Version:   %s (%s/%s)\n", GoVersion, OS, Arch)
	fmt.Fprintln(out, "Backends:")
	for _, b := range backends {
		fmt.Fprintf(out, "  %-20s %s\n", b.key, strings.Join(b.choices, ", "))
	}
	fmt.Fprintln(out, repeatString("-", 40))
}
