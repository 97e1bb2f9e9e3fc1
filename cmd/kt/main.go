// kt evaluates kutes expressions against Kubernetes-style JSON documents.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/kutes/jsondoc"
	"github.com/chazu/kutes/manifest"
	"github.com/chazu/kutes/vm"
)

var log = commonlog.GetLogger("kutes.cli")

// app carries the state shared by all subcommands.
type app struct {
	configPath string
	verbosity  int
	logFile    string

	config *manifest.Manifest

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

var (
	errColor    = color.New(color.FgRed)
	headerColor = color.New(color.Bold)
	valueColor  = color.New(color.FgCyan)
)

// errSilent is returned by commands that already reported their failure.
var errSilent = errors.New("")

func main() {
	a := &app{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	color.NoColor = !isTerminal(os.Stdout)
	if err := a.rootCmd().Execute(); err != nil {
		if err != errSilent {
			errColor.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "kt",
		Short:         "Evaluate expressions against JSON resource documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "path to kutes.toml (default: search upward from the working directory)")
	pf.CountVarP(&a.verbosity, "verbose", "v", "increase log verbosity")
	pf.StringVar(&a.logFile, "log", "", "write logs to this file instead of stderr")

	root.AddCommand(
		a.evalCmd(),
		a.tableCmd(),
		a.replCmd(),
		a.serveCmd(),
		a.historyCmd(),
	)
	return root
}

// setup configures logging and loads the configuration.
func (a *app) setup() error {
	var path *string
	if a.logFile != "" {
		path = &a.logFile
	}
	commonlog.Configure(a.verbosity, path)

	var err error
	switch {
	case a.configPath != "":
		a.config, err = manifest.LoadFile(a.configPath)
	default:
		var wd string
		if wd, err = os.Getwd(); err == nil {
			a.config, err = manifest.FindAndLoad(wd)
		}
	}
	if err != nil {
		return err
	}
	if a.config == nil {
		a.config = manifest.Default()
	} else {
		log.Infof("using configuration in %s", a.config.Dir)
	}
	return nil
}

// newVM creates an environment bounded by the configured limits.
func (a *app) newVM() *vm.VM {
	return vm.NewVM(vm.Config{
		MaxFrames:  a.config.Evaluator.MaxFrames,
		MaxStack:   a.config.Evaluator.MaxStack,
		MaxScripts: a.config.Evaluator.MaxScripts,
	})
}

// loadDocument reads the JSON document at path; "-" reads stdin.
// An empty path yields a nil document.
func (a *app) loadDocument(path string) (*jsondoc.Document, error) {
	switch path {
	case "":
		return nil, nil
	case "-":
		return jsondoc.Read(a.stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	doc, err := jsondoc.Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// newInterpreter creates an interpreter rooted at the document at path.
func (a *app) newInterpreter(path string) (*vm.Interpreter, error) {
	doc, err := a.loadDocument(path)
	if err != nil {
		return nil, err
	}
	i := a.newVM().NewInterpreter()
	if doc != nil {
		i.SetRoot(doc.Root)
	}
	return i, nil
}

// formatResult renders a result for the terminal. Unset renders empty.
func formatResult(r vm.Result) string {
	if r.Kind == vm.KindJSON {
		data, err := r.Node().MarshalJSON()
		if err != nil {
			return err.Error()
		}
		return string(data)
	}
	return r.String()
}

// printResult writes a result, colouring failures. It reports whether
// the evaluation succeeded.
func (a *app) printResult(r vm.Result, err error) bool {
	if err != nil {
		errColor.Fprintln(a.stderr, err)
		return false
	}
	if s := formatResult(r); s != "" {
		valueColor.Fprintln(a.stdout, s)
	}
	return true
}
