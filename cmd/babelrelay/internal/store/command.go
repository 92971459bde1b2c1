package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/babelrelay/cmd/babelrelay/internal"
	"github.com/tinyland-inc/babelrelay/pkg/store"
)

func NewStoreCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Inspect the message mapping store",
		Example: `babelrelay store dump --json
babelrelay store lookup C0123:1712345678.000100`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newDumpCommand(), newLookupCommand())

	return cmd
}

func newDumpCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print every recorded mapping",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			return dump(cmd.Context(), st, cmd.OutOrStdout(), asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print mappings as JSON")

	return cmd
}

func newLookupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <source-id>",
		Short: "Print the translated id recorded for a source id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			return lookup(cmd.Context(), st, cmd.OutOrStdout(), args[0])
		},
	}
}

func openStore() (store.Store, error) {
	cfg, err := internal.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	st, err := store.Open(cfg.Store.Driver, cfg.Store.Location())
	if err != nil {
		return nil, fmt.Errorf("error opening store: %w", err)
	}
	return st, nil
}

func dump(ctx context.Context, st store.Store, w io.Writer, asJSON bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	mappings, err := st.Mappings(ctx)
	if err != nil {
		return fmt.Errorf("error reading mappings: %w", err)
	}

	if asJSON {
		if mappings == nil {
			mappings = []store.Mapping{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(mappings)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tTRANSLATED\tCREATED")
	for _, m := range mappings {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", m.SourceID, m.TranslatedID, m.CreatedAt.Format(time.RFC3339))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%d mappings\n", len(mappings))
	return nil
}

func lookup(ctx context.Context, st store.Store, w io.Writer, sourceID string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	id, found, err := st.LookupTranslatedID(ctx, sourceID)
	if err != nil {
		return fmt.Errorf("error looking up %s: %w", sourceID, err)
	}
	if !found {
		return fmt.Errorf("no mapping for %s", sourceID)
	}
	fmt.Fprintln(w, id)
	return nil
}
