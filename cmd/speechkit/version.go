package main

import (
	"encoding/json"
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Set with -ldflags "-X main.version=... -X main.gitCommit=... -X main.buildDate=...".
var (
	version   = "dev"
	gitCommit = ""
	buildDate = ""
)

type buildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildDate string `json:"buildDate,omitempty"`
	GoVersion string `json:"goVersion"`
}

// readBuildInfo fills in what ldflags left empty from the module's embedded
// build information.
func readBuildInfo() buildInfo {
	bi := buildInfo{Version: version, Commit: gitCommit, BuildDate: buildDate, GoVersion: runtime.Version()}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return bi
	}
	if bi.Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		bi.Version = info.Main.Version
	}
	for _, s := range info.Settings {
		switch {
		case s.Key == "vcs.revision" && bi.Commit == "":
			bi.Commit = s.Value
		case s.Key == "vcs.time" && bi.BuildDate == "":
			bi.BuildDate = s.Value
		}
	}
	return bi
}

// GetVersion returns the release version, or "dev" for local builds.
func GetVersion() string {
	return readBuildInfo().Version
}

// GetVersionInfo is the multi-line form printed by --version.
func GetVersionInfo() string {
	bi := readBuildInfo()
	s := "speechkit version " + bi.Version
	if bi.Commit != "" {
		s += "\ncommit: " + bi.Commit
	}
	if bi.BuildDate != "" {
		s += "\nbuilt: " + bi.BuildDate
	}
	return s + "\n" + bi.GoVersion
}

func newVersionCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if !asJSON {
				_, err := fmt.Fprintln(out, GetVersionInfo())
				return err
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(readBuildInfo())
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
}
