package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/chazu/kutes/history"
)

func (a *app) evalCmd() *cobra.Command {
	var (
		docPath string
		record  bool
	)
	cmd := &cobra.Command{
		Use:   "eval EXPR...",
		Short: "Evaluate an expression and print its value",
		Example: `  kt eval -d pods.json 'jval jptr {/items/0/metadata/name}'
  kubectl get pods -o json | kt eval -d - 'jlen {/items}'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			i, err := a.newInterpreter(docPath)
			if err != nil {
				return err
			}
			src := strings.Join(args, " ")
			if record {
				if err := a.record(src); err != nil {
					log.Warningf("history: %v", err)
				}
			}
			if !a.printResult(i.Evaluate(src)) {
				return errSilent
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&docPath, "doc", "d", "", "JSON document to evaluate against (- for stdin)")
	cmd.Flags().BoolVar(&record, "record", false, "add the expression to the history")
	return cmd
}

// record appends src to the configured history store.
func (a *app) record(src string) error {
	h, err := history.Open(a.config.HistoryPath())
	if err != nil {
		return err
	}
	defer h.Close()
	_, err = h.Append(src)
	return err
}
