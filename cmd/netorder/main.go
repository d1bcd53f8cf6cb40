// netorder decodes and encodes binary protocol captures described by a
// YAML schema.
//
//	netorder decode   --schema dns.yaml --record query --hex < query.hex
//	netorder encode   --schema dns.yaml --record query < query.yaml > query.bin
//	netorder describe --schema dns.yaml
package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/rawbytedev/netorder"
	"github.com/rawbytedev/netorder/internal/capture"
	"github.com/rawbytedev/netorder/pkg/schemadef"
	"github.com/rawbytedev/netorder/pkg/transcode"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	schema    string
	record    string
	in        string
	out       string
	format    string
	hex       bool
	zstd      bool
	logLevel  string
	logFormat string
}

func (o *options) addFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&o.schema, "schema", "s", "", "YAML schema description")
	fs.StringVarP(&o.record, "record", "r", "", "record to decode or encode")
	fs.StringVarP(&o.in, "in", "i", "-", "input file, - for stdin")
	fs.StringVarP(&o.out, "out", "o", "-", "output file, - for stdout")
	fs.StringVarP(&o.format, "format", "f", "yaml", "value format: "+strings.Join(transcode.Names(), ", "))
	fs.BoolVar(&o.hex, "hex", false, "wire bytes are hex text")
	fs.BoolVar(&o.zstd, "zstd", false, "compress encoded output with zstd")
	fs.StringVar(&o.logLevel, "log-level", "info", "log level")
	fs.StringVar(&o.logFormat, "log-format", "text", "log format: text or json")
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		printUsage(stderr, nil)
		return errors.New("missing command")
	}
	cmd, args := args[0], args[1:]

	var opts options
	fs := pflag.NewFlagSet(cmd, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	opts.addFlags(fs)
	fs.Usage = func() { printUsage(stderr, fs) }
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}

	logger, err := newLogger(stderr, opts.logLevel, opts.logFormat)
	if err != nil {
		return err
	}
	netorder.SetLogger(logger)
	defer netorder.SetLogger(log.StandardLogger())

	if opts.schema == "" {
		return errors.New("--schema is required")
	}
	schema, err := schemadef.LoadFile(opts.schema)
	if err != nil {
		return err
	}
	logger.WithFields(log.Fields{"schema": opts.schema, "records": len(schema.Names())}).Debug("schema loaded")

	switch cmd {
	case "decode":
		return decode(schema, &opts, logger, stdin, stdout)
	case "encode":
		return encode(schema, &opts, logger, stdin, stdout)
	case "describe":
		return describe(schema, &opts, stdout)
	}
	printUsage(stderr, fs)
	return fmt.Errorf("unknown command %q", cmd)
}

func newLogger(w io.Writer, level, format string) (*log.Logger, error) {
	logger := log.New()
	logger.SetOutput(w)
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(lvl)
	switch format {
	case "text":
		logger.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
	case "json":
		logger.SetFormatter(&log.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	return logger, nil
}

func decode(schema *schemadef.Schema, opts *options, logger log.FieldLogger, stdin io.Reader, stdout io.Writer) error {
	rec, err := schema.Lookup(opts.record)
	if err != nil {
		return err
	}
	format, err := transcode.Lookup(opts.format)
	if err != nil {
		return err
	}
	raw, err := readInput(opts.in, stdin)
	if err != nil {
		return err
	}
	data, err := capture.Read(bytes.NewReader(raw), capture.Options{
		Hex:         opts.hex,
		Compression: capture.Detect(opts.in, raw),
	})
	if err != nil {
		return err
	}

	c := netorder.NewCursor(data)
	v, err := rec.DecodeFrom(c)
	if err != nil {
		return fmt.Errorf("decode %s at offset %d: %w", rec.Name, c.Offset(), err)
	}
	if c.Remaining() > 0 {
		logger.WithFields(log.Fields{"record": rec.Name, "trailing": c.Remaining()}).Warn("input not fully consumed")
	}
	tree, err := transcode.ToTree(v)
	if err != nil {
		return err
	}
	out, err := format.Marshal(tree)
	if err != nil {
		return err
	}
	return writeOutput(opts.out, stdout, func(w io.Writer) error {
		_, err := w.Write(out)
		return err
	})
}

func encode(schema *schemadef.Schema, opts *options, logger log.FieldLogger, stdin io.Reader, stdout io.Writer) error {
	rec, err := schema.Lookup(opts.record)
	if err != nil {
		return err
	}
	format, err := transcode.Lookup(opts.format)
	if err != nil {
		return err
	}
	raw, err := readInput(opts.in, stdin)
	if err != nil {
		return err
	}
	tree, err := format.Unmarshal(raw)
	if err != nil {
		return err
	}
	v := rec.New()
	if err := transcode.FromTree(tree, v); err != nil {
		return err
	}
	data, err := rec.Encode(v)
	if err != nil {
		return err
	}
	logger.WithFields(log.Fields{"record": rec.Name, "bytes": len(data)}).Debug("encoded")

	copts := capture.Options{Hex: opts.hex}
	if opts.zstd {
		copts.Compression = capture.CompZstd
	}
	return writeOutput(opts.out, stdout, func(w io.Writer) error {
		return capture.Write(w, data, copts)
	})
}

func describe(schema *schemadef.Schema, opts *options, stdout io.Writer) error {
	names := schema.Names()
	if opts.record != "" {
		names = []string{opts.record}
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	for i, name := range names {
		rec, err := schema.Lookup(name)
		if err != nil {
			return err
		}
		if i > 0 {
			fmt.Fprintln(tw)
		}
		fmt.Fprintf(tw, "record %s\n", rec.Name)
		layout := rec.Layout()
		for j, f := range rec.Fields {
			directive := ""
			if d := layout.Fields[j].Directive; d.Kind != netorder.DirectiveNone {
				directive = d.String()
			}
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", f.Name, strings.TrimSpace(f.Type), directive)
		}
	}
	return tw.Flush()
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

func writeOutput(path string, stdout io.Writer, write func(io.Writer) error) error {
	if path == "-" {
		return write(stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printUsage(w io.Writer, fs *pflag.FlagSet) {
	fmt.Fprint(w, `netorder decodes and encodes binary protocol captures.

Usage:
  netorder decode   --schema FILE --record NAME [--hex] [--format yaml|cbor|msgpack]
  netorder encode   --schema FILE --record NAME [--hex] [--zstd] [--format ...]
  netorder describe --schema FILE [--record NAME]

Inputs ending in .zst, or starting with the zstd magic, are decompressed.
`)
	if fs != nil {
		fmt.Fprintln(w, "\nFlags:")
		fs.SetOutput(w)
		fs.PrintDefaults()
	}
}
