// Package commands implements the koans command line: seeding a store with
// the Doctor Who universe and reading it back through its indexes.
package commands

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/dd0wney/koan-graphdb/pkg/config"
	"github.com/dd0wney/koan-graphdb/pkg/logging"
	"github.com/dd0wney/koan-graphdb/pkg/metrics"
	"github.com/dd0wney/koan-graphdb/pkg/storage"
	"github.com/dd0wney/koan-graphdb/pkg/universe"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FF99"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF5555"))
)

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: ")+err.Error())
		os.Exit(1)
	}
}

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "koans",
		Short: "Doctor Who graph koans",
		Long: `koans - an embedded graph store seeded with the Doctor Who universe

Without --data-dir every command works on a fresh in-memory store that is
seeded before the command runs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to a YAML config file")
	root.PersistentFlags().String("data-dir", "", "Data directory (empty for an in-memory store)")
	root.PersistentFlags().Bool("compress", false, "Use the snappy-compressed WAL")
	root.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")

	open := func(cmd *cobra.Command) (*session, error) {
		return openSession(cmd, cfgFile)
	}

	root.AddCommand(
		newSeedCmd(open),
		newGetCmd(open),
		newQueryCmd(open),
		newStatsCmd(open),
		newCheckpointCmd(open),
	)
	return root
}

// session is an opened store plus what was used to open it
type session struct {
	cfg    *config.Config
	logger logging.Logger
	gs     *storage.GraphStorage
}

type opener func(cmd *cobra.Command) (*session, error)

func openSession(cmd *cobra.Command, cfgFile string) (*session, error) {
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger().With(logging.Component("koans"))
	gs, err := storage.NewGraphStorageWithConfig(cfg.StorageConfig(logger, metrics.NewRegistry()))
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, logger: logger, gs: gs}, nil
}

// persistent reports whether the store outlives the process
func (s *session) persistent() bool {
	return s.cfg.Storage.DataDir != ""
}

// ensureSeeded seeds an in-memory store so reads have something to find
func (s *session) ensureSeeded() error {
	if s.persistent() {
		return nil
	}
	_, err := universe.SeedDefault(s.gs)
	return err
}

func (s *session) Close() error {
	return s.gs.Close()
}

func printField(cmd *cobra.Command, label string, value any) {
	fmt.Fprintf(cmd.OutOrStdout(), "  %s %v\n", labelStyle.Render(fmt.Sprintf("%-20s", label)), value)
}
