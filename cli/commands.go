package cli

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/digitorus/efirma-pdfsign/common"
	"github.com/digitorus/efirma-pdfsign/config"
	"github.com/digitorus/efirma-pdfsign/internal/logger"
)

var osExit = os.Exit

// errUsage reports bad arguments after the usage text has been printed.
var errUsage = errors.New("invalid arguments")

// app carries what every command writes to.
type app struct {
	name   string
	stdout io.Writer
	stderr io.Writer
	log    zerolog.Logger
	now    func() time.Time
}

type command struct {
	name        string
	description string
	run         func(a *app, args []string) error
}

var commands = []command{
	{"sign", "Sign a PDF file with an e.firma or PKCS #12 certificate", signCommand},
	{"validate", "Check the digests of the signatures of a PDF file", validateCommand},
	{"info", "Show the metadata and signatures of a PDF file", infoCommand},
	{"certinfo", "Show an e.firma or PKCS #12 certificate", certinfoCommand},
	{"extract", "Write the signatures and certificates of a PDF file", extractCommand},
}

// Main runs the command line in os.Args and exits.
func Main() {
	osExit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run executes the command named in args[1] and returns the exit code.
func Run(args []string, stdout, stderr io.Writer) int {
	a := &app{
		name:   "efirma-pdfsign",
		stdout: stdout,
		stderr: stderr,
		log:    zerolog.Nop(),
		now:    time.Now,
	}
	if len(args) > 0 {
		a.name = args[0]
	}

	if len(args) < 2 {
		a.usage()
		return 1
	}

	for _, cmd := range commands {
		if cmd.name != args[1] {
			continue
		}
		err := cmd.run(a, args[2:])
		switch {
		case err == nil:
			return 0
		case errors.Is(err, flag.ErrHelp):
			return 0
		case errors.Is(err, errUsage):
			return 1
		}
		fmt.Fprintln(stderr, errorLine(err))
		return 1
	}

	fmt.Fprintf(stderr, "unknown command %q\n\n", args[1])
	a.usage()
	return 1
}

// errorLine renders err as "kind: message".
func errorLine(err error) string {
	kind := "error"
	if k := common.KindOf(err); k != nil {
		kind = k.Error()
	}
	msg := err.Error()
	if strings.HasPrefix(msg, kind+": ") {
		return msg
	}
	return kind + ": " + msg
}

func (a *app) usage() {
	fmt.Fprintf(a.stderr, "Usage: %s <command> [options] <args>\n\n", a.name)
	fmt.Fprintln(a.stderr, "Commands:")
	for _, cmd := range commands {
		fmt.Fprintf(a.stderr, "  %-9s %s\n", cmd.name, cmd.description)
	}
	fmt.Fprintln(a.stderr, "")
	fmt.Fprintf(a.stderr, "Use '%s <command> -h' for command-specific help\n", a.name)
}

// flagSet returns a flag set writing its usage to stderr, with the -config
// flag every command accepts.
func (a *app) flagSet(name, synopsis, description string, examples ...string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	configPath := fs.String("config", "", "Path of a TOML configuration file (default "+config.DefaultLocation+" when present)")

	fs.Usage = func() {
		fmt.Fprintf(a.stderr, "Usage: %s %s %s\n\n", a.name, name, synopsis)
		fmt.Fprintln(a.stderr, description)
		fmt.Fprintln(a.stderr, "\nOptions:")
		fs.PrintDefaults()
		if len(examples) > 0 {
			fmt.Fprintln(a.stderr, "\nExamples:")
			for _, example := range examples {
				fmt.Fprintf(a.stderr, "  %s %s %s\n", a.name, name, example)
			}
		}
	}
	return fs, configPath
}

// parse parses args and checks the number of positional arguments.
func (a *app) parse(fs *flag.FlagSet, args []string, positional int) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return errUsage
	}
	if fs.NArg() != positional {
		fs.Usage()
		return errUsage
	}
	return nil
}

// loadConfig reads the configuration and installs the logger it describes.
func (a *app) loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if _, err := os.Stat(config.DefaultLocation); err == nil {
			path = config.DefaultLocation
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	a.log = logger.New(logger.Config{Env: cfg.Log.Env, Level: cfg.Log.Level, Out: a.stderr})
	return cfg, nil
}

// output writes v to stdout in format.
func (a *app) output(format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(a.stdout)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q, use json or yaml", format)
	}
}

func formatFlag(fs *flag.FlagSet) *string {
	return fs.String("format", "json", "Output format: json or yaml")
}
