package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chazu/kutes/table"
)

type tableOptions struct {
	docPath   string
	kind      string
	columns   []string
	time      string
	sort      bool
	cbor      bool
	noHeaders bool
}

func (a *app) tableCmd() *cobra.Command {
	var opts tableOptions
	cmd := &cobra.Command{
		Use:   "table",
		Short: "Render the resources of a document as a table",
		Example: `  kubectl get pods -o json | kt table -d -
  kt table -d pods.json --columns status --time relative --sort`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTable(opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.docPath, "doc", "d", "-", "JSON document (- for stdin)")
	f.StringVar(&opts.kind, "kind", "", "view to use (default: the kind of the document's resources)")
	f.StringSliceVar(&opts.columns, "columns", nil, "columns to show besides frozen ones")
	f.StringVar(&opts.time, "time", "short", "time column style: short, raw or relative")
	f.BoolVar(&opts.sort, "sort", false, "sort rows by the primary column")
	f.BoolVar(&opts.cbor, "cbor", false, "write the table as CBOR")
	f.BoolVar(&opts.noHeaders, "no-headers", false, "omit the header line")
	return cmd
}

func (a *app) runTable(opts tableOptions) error {
	style, err := table.ParseTimeStyle(opts.time)
	if err != nil {
		return err
	}
	doc, err := a.loadDocument(opts.docPath)
	if err != nil {
		return err
	}
	if doc == nil {
		return errors.New("no document given")
	}

	kind := opts.kind
	if kind == "" {
		kind = table.KindOf(doc.Root)
	}
	mv, ok := a.config.ViewFor(kind)
	if !ok {
		return fmt.Errorf("no view for kind %q", kind)
	}

	view, err := table.NewView(a.newVM().NewInterpreter(), mv)
	if err != nil {
		return err
	}
	view.TimeStyle = style
	tbl, err := view.Build(doc.Root)
	if err != nil {
		return err
	}
	if err := tbl.Select(opts.columns...); err != nil {
		return err
	}
	if opts.sort {
		tbl.SortByPrimary()
	}

	if opts.cbor {
		return tbl.WriteCBOR(a.stdout)
	}
	return tbl.WriteText(a.stdout, table.TextOptions{
		Header:    func(s string) string { return headerColor.Sprint(s) },
		NoHeaders: opts.noHeaders,
	})
}
