package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newCodeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "code [item-id...]",
		Short: "Print the current code of one or more items",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, _, err := a.loadItems()
			if err != nil {
				return err
			}
			ids := args
			if len(ids) == 0 {
				ids = f.IDs()
			}
			if len(ids) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "no items configured; add one with `otpwatch add`")
				return nil
			}

			engine, err := a.engine(nil)
			if err != nil {
				return err
			}
			defer engine.Close()

			// One instant for every row.
			now := a.clock.Now()
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			for _, id := range ids {
				it, err := f.Get(id)
				if err != nil {
					return err
				}
				r, err := it.Resolve(engine.Params)
				if err != nil {
					return err
				}
				w, err := engine.WindowAt(r.Secret, r.Params, now)
				if err != nil {
					return fmt.Errorf("item %s: %w", id, err)
				}
				fmt.Fprintf(tw, "%s\t%s\t%ds\n", r.Label, w.Code, w.Remaining)
			}
			return tw.Flush()
		},
	}
}
