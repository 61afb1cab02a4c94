package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/RowanDark/decoder/internal/cipher"
	"github.com/RowanDark/decoder/internal/config"
	"github.com/RowanDark/decoder/internal/logging"
	"github.com/RowanDark/decoder/internal/service"
)

const productName = "decoder"

var version = "dev"

const usage = `decoder hides images in images and runs classical ciphers.

Usage:
  decoder [-v] <command> [flags]

Commands:
  stego merge     -carrier FILE -payload FILE -out FILE
  stego unmerge   -in FILE -out FILE
  caesar encrypt  [-key N] [-seed N] [-in FILE | -text STR] [-out FILE]
  caesar decrypt  -key N [-in FILE | -text STR] [-out FILE]
  caesar auto     [-in FILE | -text STR] [-out FILE]
  vigenere encrypt|decrypt  [-key WORD] ...
  vernam encrypt|decrypt    [-key WORD] ...
  detect          [-in FILE | -text STR]
  version

Text is read from stdin when neither -in nor -text is given.
Generated keys are printed to stderr.
`

// app carries the process streams and the service shared by subcommands.
type app struct {
	stdin         io.Reader
	stdout        io.Writer
	stderr        io.Writer
	svc           *service.Service
	audit         *logging.AuditLogger
	maxImageBytes int64
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet(productName, flag.ContinueOnError)
	fs.SetOutput(stderr)
	verbose := fs.Bool("v", false, "log operations to stderr")
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	if err := fs.Parse(args); err != nil {
		return 2
	}
	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return 2
	}
	if rest[0] == "version" {
		return runVersion(rest[1:], stdout, stderr)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "load config: %v\n", err)
		return 1
	}
	a, err := newApp(cfg, *verbose, stdin, stdout, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer a.audit.Close()

	switch rest[0] {
	case "stego":
		return a.dispatch("stego", rest[1:], map[string]func([]string) int{
			"merge":   a.runMerge,
			"unmerge": a.runUnmerge,
		})
	case "caesar":
		return a.dispatch("caesar", rest[1:], map[string]func([]string) int{
			"encrypt": a.runCaesarEncrypt,
			"decrypt": a.runCaesarDecrypt,
			"auto":    a.runCaesarAuto,
		})
	case "vigenere", "vernam":
		name := rest[0]
		return a.dispatch(name, rest[1:], map[string]func([]string) int{
			"encrypt": func(args []string) int { return a.runEncrypt(name, args) },
			"decrypt": func(args []string) int { return a.runDecrypt(name, args) },
		})
	case "detect":
		return a.runDetect(rest[1:])
	default:
		fmt.Fprintf(stderr, "unknown command: %s\n", rest[0])
		fs.Usage()
		return 2
	}
}

func newApp(cfg config.Config, verbose bool, stdin io.Reader, stdout, stderr io.Writer) (*app, error) {
	logger := logging.NopLogger()
	if verbose {
		logger = logging.NewLogger(stderr, slog.LevelDebug)
	}

	audit := logging.Discard()
	if cfg.AuditLog != "" {
		var err error
		audit, err = logging.NewAuditLogger("cli", logging.WithoutStdout(), logging.WithFile(cfg.AuditLog))
		if err != nil {
			return nil, fmt.Errorf("open audit log: %w", err)
		}
	}

	var src cipher.Source
	if cfg.Seed != 0 {
		src = cipher.NewSeededSource(cfg.Seed)
	}
	return &app{
		stdin:         stdin,
		stdout:        stdout,
		stderr:        stderr,
		audit:         audit,
		maxImageBytes: cfg.MaxImageBytes,
		svc:           service.New(service.Options{Logger: logger, Audit: audit, Source: src}),
	}, nil
}

func (a *app) dispatch(group string, args []string, subs map[string]func([]string) int) int {
	if len(args) == 0 {
		fmt.Fprintf(a.stderr, "%s subcommand required\n", group)
		return 2
	}
	fn, ok := subs[args[0]]
	if !ok {
		fmt.Fprintf(a.stderr, "unknown %s subcommand: %s\n", group, args[0])
		return 2
	}
	return fn(args[1:])
}

func (a *app) fail(err error) int {
	fmt.Fprintf(a.stderr, "error: %v\n", err)
	return 1
}

func runVersion(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("version", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(stderr, "version takes no arguments")
		return 2
	}
	fmt.Fprintf(stdout, "%s %s\n", productName, version)
	return 0
}
