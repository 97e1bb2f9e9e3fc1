package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chazu/kutes/history"
)

func (a *app) historyCmd() *cobra.Command {
	var (
		last   int
		search string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List or search entered expressions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := history.Open(a.config.HistoryPath())
			if err != nil {
				return err
			}
			defer h.Close()

			if cmd.Flags().Changed("search") {
				line, err := h.Search(search)
				if errors.Is(err, history.ErrNotFound) {
					return fmt.Errorf("no history entry starts with %q", search)
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(a.stdout, line)
				return nil
			}

			lines, err := h.Recent(last)
			if err != nil {
				return err
			}
			for _, l := range lines {
				fmt.Fprintln(a.stdout, l)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&last, "last", "n", 20, "number of recent entries to list")
	cmd.Flags().StringVarP(&search, "search", "s", "", "print the first entry starting with this prefix")
	return cmd
}
