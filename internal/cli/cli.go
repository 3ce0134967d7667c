// Package cli implements the loadcalc command line tool. Each subcommand
// reads one input document (YAML or JSON), runs the engine and prints the
// result.
package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	kjson "github.com/knadh/koanf/parsers/json"
	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"

	"github.com/stwalsh4118/loadcalc/api/internal/calc"
	"github.com/stwalsh4118/loadcalc/api/internal/logger"
	"github.com/stwalsh4118/loadcalc/api/internal/services"
	"github.com/stwalsh4118/loadcalc/api/internal/tables"
)

// EnvPrefix prefixes environment variables that set flag defaults,
// for example LOADCALC_FORMAT=text.
const EnvPrefix = "LOADCALC_"

// Output formats accepted by --format.
const (
	FormatJSON = "json"
	FormatText = "text"
	FormatPDF  = "pdf"
	FormatXLSX = "xlsx"
)

// options are the persistent flags shared by every subcommand.
type options struct {
	format   string
	output   string
	tables   string
	voltage  float64
	material string
	verbose  bool
}

// app is the state a subcommand runs with once flags are parsed.
type app struct {
	opts    options
	service services.CalculationService
	store   *tables.Store
	stdout  io.Writer
}

// NewRootCommand builds the command tree. Output that is not written to a
// file goes to stdout.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout}

	root := &cobra.Command{
		Use:           "loadcalc",
		Short:         "NEC load calculations and service, feeder and panel sizing",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := applyEnv(cmd); err != nil {
				return err
			}
			return a.init(stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVarP(&a.opts.format, "format", "f", FormatJSON, "output format: json, text, pdf or xlsx")
	flags.StringVarP(&a.opts.output, "output", "o", "", "write output to a file instead of stdout")
	flags.StringVar(&a.opts.tables, "tables", "", "NEC table edition file (default: embedded NEC 2023)")
	flags.Float64Var(&a.opts.voltage, "default-voltage", calc.DefaultVoltage, "voltage used when an input omits it")
	flags.StringVar(&a.opts.material, "default-material", string(tables.Copper), "conductor material used when an input omits it")
	flags.BoolVarP(&a.opts.verbose, "verbose", "v", false, "log calculation details to stderr")

	root.AddCommand(
		loadCommand(a, "dwelling", "Single-family dwelling load calculation", "Single-family dwelling load calculation",
			func(in calc.DwellingInput) (*calc.LoadCalculationResult, []calc.UnitTemplate, error) {
				out, err := a.service.Dwelling(cmdContext(), "", in)
				if err != nil {
					return nil, nil, err
				}
				return out.Result, nil, nil
			}),
		loadCommand(a, "multi-family", "Multi-family dwelling load calculation (optional method)", "Multi-family dwelling load calculation",
			func(in calc.MultiUnitInput) (*calc.LoadCalculationResult, []calc.UnitTemplate, error) {
				out, err := a.service.MultiFamily(cmdContext(), "", in)
				if err != nil {
					return nil, nil, err
				}
				return &out.Result.LoadCalculationResult, out.Result.Units, nil
			}),
		loadCommand(a, "commercial", "Commercial load calculation", "Commercial load calculation",
			func(in calc.CommercialInput) (*calc.LoadCalculationResult, []calc.UnitTemplate, error) {
				out, err := a.service.Commercial(cmdContext(), "", in)
				if err != nil {
					return nil, nil, err
				}
				return out.Result, nil, nil
			}),
		feederCommand(a),
		serviceCheckCommand(a),
		panelCommand(a),
		tablesCommand(a),
	)
	return root
}

// Execute runs the CLI against the process arguments.
func Execute() error {
	return NewRootCommand(os.Stdout, os.Stderr).Execute()
}

// applyEnv fills flags the user did not set from LOADCALC_* variables.
func applyEnv(cmd *cobra.Command) error {
	k := koanf.New(".")
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", "-")
	}), nil); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}
	for key := range k.All() {
		f := cmd.Flags().Lookup(key)
		if f == nil || f.Changed {
			continue
		}
		if err := f.Value.Set(k.String(key)); err != nil {
			return fmt.Errorf("invalid %s%s: %w", EnvPrefix, strings.ToUpper(strings.ReplaceAll(key, "-", "_")), err)
		}
	}
	return nil
}

func (a *app) init(stderr io.Writer) error {
	switch a.opts.format {
	case FormatJSON, FormatText, FormatPDF, FormatXLSX:
	default:
		return fmt.Errorf("unknown format %q (want json, text, pdf or xlsx)", a.opts.format)
	}

	store, err := tables.LoadFile(a.opts.tables)
	if err != nil {
		return err
	}
	a.store = store

	level := "warn"
	if a.opts.verbose {
		level = "debug"
	}
	log := logger.NewWithOptions(logger.Options{Env: "development", Level: level, Output: stderr})

	engine := calc.NewEngine(store, calc.Options{
		DefaultVoltage:  a.opts.voltage,
		DefaultMaterial: tables.Material(strings.ToLower(a.opts.material)),
	})
	a.service = services.NewCalculationService(engine, nil, nil, log)
	return nil
}

// loadInput decodes a YAML or JSON document into dst. Files are read with
// koanf and re-encoded as JSON so the same decoders as the HTTP API apply.
func loadInput(path string, dst interface{}) error {
	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = kyaml.Parser()
	case ".json":
		parser = kjson.Parser()
	default:
		return fmt.Errorf("unsupported input file %q: use .yaml, .yml or .json", path)
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), parser); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	raw, err := json.Marshal(k.Raw())
	if err != nil {
		return fmt.Errorf("failed to re-encode %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("invalid input in %s: %w", path, err)
	}
	return nil
}

// write sends body to --output or stdout.
func (a *app) write(body []byte) error {
	if a.opts.output == "" {
		_, err := a.stdout.Write(body)
		return err
	}
	if err := os.WriteFile(a.opts.output, body, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", a.opts.output, err)
	}
	return nil
}

func encodeJSON(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
