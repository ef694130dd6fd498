package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dd0wney/koan-graphdb/pkg/logging"
	"github.com/dd0wney/koan-graphdb/pkg/universe"
)

func newSeedCmd(open opener) *cobra.Command {
	var (
		file     string
		snapshot bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the Doctor Who universe into the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := loadDataset(file)
			if err != nil {
				return err
			}

			s, err := open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			u, err := universe.Seed(s.gs, ds)
			if err != nil {
				return err
			}
			s.logger.Info("universe seeded",
				logging.Int("characters", len(u.Characters)),
				logging.Int("species", len(u.Species)),
			)

			if snapshot {
				if !s.persistent() {
					return errors.New("--snapshot needs --data-dir")
				}
				if err := s.gs.Snapshot(); err != nil {
					return err
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), titleStyle.Render("SEEDED"))
			printField(cmd, "planets", len(u.Planets))
			printField(cmd, "species", len(u.Species))
			printField(cmd, "characters", len(u.Characters))
			printField(cmd, "actors", len(u.Actors))
			printField(cmd, "relationships", s.gs.RelationshipCount())
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Universe YAML file (defaults to the built-in dataset)")
	cmd.Flags().BoolVar(&snapshot, "snapshot", false, "Write a snapshot after seeding")
	return cmd
}

func loadDataset(path string) (*universe.Dataset, error) {
	if path == "" {
		return universe.Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read universe: %w", err)
	}
	return universe.Parse(data)
}
