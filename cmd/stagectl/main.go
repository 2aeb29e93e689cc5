// Command stagectl inspects, validates and exports mind-map documents from the shell.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
)

const usage = `usage: stagectl <command> [flags] <document.json>

commands:
  info        summarize a document (-format text|json|yaml)
  validate    check required fields and references
  export-png  render the whole map to PNG (-o, -scale, -attachments)
  export-svg  render the whole map to SVG (-o)
  copy-text   copy every node's text to the system clipboard (-print to write to stdout)
  diff        print the JSON patch turning one document into another
`

var errUsage = errors.New("invalid usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, args := args[0], args[1:]

	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)

	switch cmd {
	case "info":
		format := fs.String("format", "text", "output format: text, json or yaml")
		if err := parse(fs, args, 1); err != nil {
			return err
		}
		return info(stdout, fs.Arg(0), *format)
	case "validate":
		if err := parse(fs, args, 1); err != nil {
			return err
		}
		return validate(stdout, fs.Arg(0))
	case "export-png":
		out := fs.String("o", "", "output file (required)")
		scale := fs.Float64("scale", 1, "output pixels per world unit")
		attachments := fs.String("attachments", "", "attachment directory for image nodes")
		if err := parse(fs, args, 1); err != nil {
			return err
		}
		return exportPNG(ctx, stderr, fs.Arg(0), *out, *scale, *attachments)
	case "export-svg":
		out := fs.String("o", "", "output file (required)")
		if err := parse(fs, args, 1); err != nil {
			return err
		}
		return exportSVG(fs.Arg(0), *out)
	case "copy-text":
		toStdout := fs.Bool("print", false, "write to stdout instead of the clipboard")
		if err := parse(fs, args, 1); err != nil {
			return err
		}
		return copyText(stdout, fs.Arg(0), *toStdout)
	case "diff":
		if err := parse(fs, args, 2); err != nil {
			return err
		}
		return diff(stdout, fs.Arg(0), fs.Arg(1))
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	}
	return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
}

func parse(fs *flag.FlagSet, args []string, positional int) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if fs.NArg() != positional {
		return fmt.Errorf("%s needs %d file argument(s): %w", fs.Name(), positional, errUsage)
	}
	return nil
}
