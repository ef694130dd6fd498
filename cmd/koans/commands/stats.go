package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dd0wney/koan-graphdb/pkg/storage"
)

func newStatsCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show store statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.ensureSeeded(); err != nil {
				return err
			}

			stats := s.gs.GetStatistics()
			fmt.Fprintln(cmd.OutOrStdout(), titleStyle.Render("STATISTICS"))
			printField(cmd, "nodes", stats.NodeCount)
			printField(cmd, "relationships", stats.RelationshipCount)
			printField(cmd, "node indexes", strings.Join(s.gs.IndexNames(storage.KindNode), ", "))
			printField(cmd, "relationship indexes", strings.Join(s.gs.IndexNames(storage.KindRelationship), ", "))
			printField(cmd, "last node id", stats.LastNodeID)
			printField(cmd, "last relationship id", stats.LastRelID)
			printField(cmd, "commits", stats.CommitSeq)
			if s.persistent() {
				printField(cmd, "wal lsn", stats.WALLSN)
			}
			return nil
		},
	}
}

func newCheckpointCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "checkpoint",
		Short: "Write a snapshot and truncate the WAL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if !s.persistent() {
				return errors.New("checkpoint needs --data-dir")
			}
			if err := s.gs.Snapshot(); err != nil {
				return err
			}

			stats := s.gs.GetStatistics()
			fmt.Fprintln(cmd.OutOrStdout(), titleStyle.Render("CHECKPOINT"))
			printField(cmd, "data dir", s.cfg.Storage.DataDir)
			printField(cmd, "commits", stats.CommitSeq)
			return nil
		},
	}
}
