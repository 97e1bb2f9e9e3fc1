package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/chazu/kutes/history"
	"github.com/chazu/kutes/vm"
)

const (
	promptMain = ">> "
	promptCont = ".. "
)

// lineReader is the part of liner.State the REPL loop needs.
type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

type repl struct {
	a      *app
	interp *vm.Interpreter
	in     lineReader
	hist   *history.Store
}

func (a *app) replCmd() *cobra.Command {
	var docPath string
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Evaluate expressions interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			i, err := a.newInterpreter(docPath)
			if err != nil {
				return err
			}
			hist, err := history.Open(a.config.HistoryPath())
			if err != nil {
				log.Warningf("history disabled: %v", err)
				hist = nil
			} else {
				defer hist.Close()
			}

			ln := liner.NewLiner()
			defer ln.Close()
			ln.SetCtrlCAborts(true)
			r := &repl{a: a, interp: i, in: ln, hist: hist}
			ln.SetWordCompleter(r.complete)
			r.loadHistory()

			fmt.Fprintln(a.stdout, "kutes REPL (type 'exit' to quit, ':help' for commands)")
			r.run()
			return nil
		},
	}
	cmd.Flags().StringVarP(&docPath, "doc", "d", "", "JSON document to evaluate against")
	return cmd
}

// loadHistory seeds the line editor with recent history.
func (r *repl) loadHistory() {
	if r.hist == nil {
		return
	}
	lines, err := r.hist.Recent(500)
	if err != nil {
		log.Warningf("loading history: %v", err)
		return
	}
	for _, l := range lines {
		r.in.AppendHistory(l)
	}
}

// run reads and evaluates input until end of input or exit.
func (r *repl) run() {
	for {
		src, ok := r.read()
		if !ok {
			fmt.Fprintln(r.a.stdout)
			return
		}
		trimmed := strings.TrimSpace(src)
		switch {
		case trimmed == "":
			continue
		case trimmed == "exit" || trimmed == "quit":
			return
		case strings.HasPrefix(trimmed, ":"):
			r.command(trimmed)
			continue
		}

		line := strings.ReplaceAll(src, "\n", " ")
		r.in.AppendHistory(line)
		if r.hist != nil {
			if _, err := r.hist.Append(line); err != nil {
				log.Warningf("history: %v", err)
			}
		}
		r.a.printResult(r.interp.Evaluate(src))
	}
}

// read returns one complete input, prompting for continuation lines
// while a block is left open.
func (r *repl) read() (string, bool) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := r.in.Prompt(prompt)
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			if b.Len() > 0 {
				return "", true
			}
			return "", false
		}
		if err != nil {
			return "", false
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") {
			return src, true
		}
		_, perr := r.interp.VM().Read(src)
		var e *vm.Error
		if errors.As(perr, &e) && e.Incomplete {
			continue
		}
		return src, true
	}
}

// command handles REPL meta-commands.
func (r *repl) command(cmd string) {
	name, arg, _ := strings.Cut(cmd, " ")
	arg = strings.TrimSpace(arg)
	out := r.a.stdout
	switch name {
	case ":help", ":h", ":?":
		fmt.Fprintln(out, "REPL Commands:")
		fmt.Fprintln(out, "  :help, :h, :?     Show this help")
		fmt.Fprintln(out, "  :doc PATH         Evaluate against the JSON document at PATH")
		fmt.Fprintln(out, "  :words            List defined words")
		fmt.Fprintln(out, "  :history PREFIX   Show stored lines starting with PREFIX")
		fmt.Fprintln(out, "  exit, quit        Exit REPL")
	case ":doc":
		doc, err := r.a.loadDocument(arg)
		if err != nil {
			errColor.Fprintln(r.a.stderr, err)
			return
		}
		if doc == nil {
			errColor.Fprintln(r.a.stderr, "usage: :doc PATH")
			return
		}
		r.interp.SetRoot(doc.Root)
		fmt.Fprintf(out, "loaded %s\n", arg)
	case ":words":
		fmt.Fprintln(out, strings.Join(r.words(), " "))
	case ":history":
		if r.hist == nil {
			errColor.Fprintln(r.a.stderr, "history is disabled")
			return
		}
		lines, err := r.hist.Matches(arg, 20)
		if err != nil {
			errColor.Fprintln(r.a.stderr, err)
			return
		}
		for _, l := range lines {
			fmt.Fprintln(out, l)
		}
	default:
		fmt.Fprintf(out, "Unknown command: %s (type :help for commands)\n", name)
	}
}

// words lists the environment words followed by the session's own.
func (r *repl) words() []string {
	words := r.interp.VM().Words()
	ctx := r.interp.Context()
	atoms := r.interp.VM().Atoms()
	var own []string
	for n := 0; n < ctx.Len(); n++ {
		own = append(own, atoms.Name(ctx.AtomAt(n)))
	}
	sort.Strings(own)
	return append(words, own...)
}

// complete is a liner word completer over defined words. History lines
// that start with the whole input are offered too.
func (r *repl) complete(line string, pos int) (head string, completions []string, tail string) {
	start := strings.LastIndexAny(line[:pos], " \t[(") + 1
	head, word, tail := line[:start], line[start:pos], line[pos:]
	if word == "" {
		return head, nil, tail
	}
	seen := make(map[string]bool)
	for _, w := range r.words() {
		if strings.HasPrefix(w, word) && !seen[w] {
			seen[w] = true
			completions = append(completions, w)
		}
	}
	if r.hist != nil && head == "" {
		if match, err := r.hist.Search(line[:pos]); err == nil && !seen[match] {
			completions = append(completions, match)
		}
	}
	return head, completions, tail
}
