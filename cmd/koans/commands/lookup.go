package commands

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dd0wney/koan-graphdb/pkg/storage"
)

// lookupFlags are shared by get and query
type lookupFlags struct {
	relationships bool
}

func (f *lookupFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.relationships, "relationships", false, "Use a relationship index instead of a node index")
}

func (f *lookupFlags) index(gs *storage.GraphStorage, name string) *storage.Index {
	if f.relationships {
		return gs.RelationshipIndex(name)
	}
	return gs.NodeIndex(name)
}

func newGetCmd(open opener) *cobra.Command {
	var (
		flags     lookupFlags
		valueType string
	)

	cmd := &cobra.Command{
		Use:   "get <index> <key> <value>",
		Short: "List the entities indexed under an exact key/value pair",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseValue(valueType, args[2])
			if err != nil {
				return err
			}

			s, err := open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.ensureSeeded(); err != nil {
				return err
			}

			idx := flags.index(s.gs, args[0])
			ids, err := idx.Get(args[1], value)
			if err != nil {
				return err
			}
			return printHits(cmd, s.gs, idx, ids)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&valueType, "type", "string", "Value type (string, int, float, bool)")
	return cmd
}

func newQueryCmd(open opener) *cobra.Command {
	var flags lookupFlags

	cmd := &cobra.Command{
		Use:   "query <index> <key> <pattern>",
		Short: "List the entities whose indexed value matches a wildcard pattern",
		Long: `List the entities whose indexed value matches a wildcard pattern.

'*' matches any run of characters and '?' matches exactly one.`,
		Example: "  koans query species species 'S*n'",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.ensureSeeded(); err != nil {
				return err
			}

			idx := flags.index(s.gs, args[0])
			ids, err := idx.Query(args[1], args[2])
			if err != nil {
				return err
			}
			return printHits(cmd, s.gs, idx, ids)
		},
	}

	flags.register(cmd)
	return cmd
}

func parseValue(valueType, raw string) (storage.Value, error) {
	switch valueType {
	case "string":
		return storage.StringValue(raw), nil
	case "int":
		i, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return storage.Value{}, fmt.Errorf("invalid int %q: %w", raw, err)
		}
		return storage.IntValue(i), nil
	case "float":
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return storage.Value{}, fmt.Errorf("invalid float %q: %w", raw, err)
		}
		return storage.FloatValue(f), nil
	case "bool":
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return storage.Value{}, fmt.Errorf("invalid bool %q: %w", raw, err)
		}
		return storage.BoolValue(b), nil
	default:
		return storage.Value{}, fmt.Errorf("unknown value type %q", valueType)
	}
}

func printHits(cmd *cobra.Command, gs *storage.GraphStorage, idx *storage.Index, ids []uint64) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("%s index %q: %d hit(s)", idx.Kind(), idx.Name(), len(ids))))

	for _, id := range ids {
		var (
			props  map[string]storage.Value
			header string
		)
		if idx.Kind() == storage.KindRelationship {
			r, err := gs.GetRelationship(id)
			if err != nil {
				return err
			}
			props = r.Properties
			header = fmt.Sprintf("relationship %d  (%d)-[%s]->(%d)", r.ID, r.StartNodeID, r.Type, r.EndNodeID)
		} else {
			n, err := gs.GetNode(id)
			if err != nil {
				return err
			}
			props = n.Properties
			header = fmt.Sprintf("node %d", n.ID)
		}

		fmt.Fprintln(out, header)
		keys := make([]string, 0, len(props))
		for k := range props {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			printField(cmd, k, props[k])
		}
	}
	return nil
}
