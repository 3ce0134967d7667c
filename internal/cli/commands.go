package cli

import (
	"bytes"
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/stwalsh4118/loadcalc/api/internal/calc"
	"github.com/stwalsh4118/loadcalc/api/internal/report"
)

func cmdContext() context.Context {
	return context.Background()
}

// loadCommand builds a subcommand for one of the load calculations. These
// support every output format.
func loadCommand[In any](
	a *app,
	use, short, title string,
	run func(In) (*calc.LoadCalculationResult, []calc.UnitTemplate, error),
) *cobra.Command {
	var projectID string
	cmd := &cobra.Command{
		Use:   use + " <input.yaml|input.json>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in In
			if err := loadInput(args[0], &in); err != nil {
				return err
			}
			res, units, err := run(in)
			if err != nil {
				return err
			}
			if a.opts.format == FormatJSON {
				body, err := encodeJSON(res)
				if err != nil {
					return err
				}
				return a.write(body)
			}
			body, err := report.Render(report.Format(a.opts.format), report.Report{
				Title:       title,
				ProjectID:   projectID,
				GeneratedAt: time.Now(),
				Result:      res,
				Units:       units,
			})
			if err != nil {
				return err
			}
			return a.write(body)
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "project name printed on reports")
	return cmd
}

// simpleOutput writes JSON, or the text rendering for --format text. PDF and
// XLSX are only produced for load calculations.
func (a *app) simpleOutput(v interface{}, text func(*tabwriter.Writer)) error {
	switch a.opts.format {
	case FormatJSON:
		body, err := encodeJSON(v)
		if err != nil {
			return err
		}
		return a.write(body)
	case FormatText:
		var buf bytes.Buffer
		tw := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
		text(tw)
		if err := tw.Flush(); err != nil {
			return err
		}
		return a.write(buf.Bytes())
	default:
		return fmt.Errorf("format %s is only available for dwelling, multi-family and commercial calculations", a.opts.format)
	}
}

func feederCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "feeder <input.yaml|input.json>",
		Short: "Size feeder conductors, protection, grounding and raceway",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in calc.FeederInput
			if err := loadInput(args[0], &in); err != nil {
				return err
			}
			out, err := a.service.Feeder(cmdContext(), "", in)
			if err != nil {
				return err
			}
			r := out.Result
			return a.simpleOutput(r, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "Feeder:\t%s\n", r.String())
				fmt.Fprintf(tw, "Load current:\t%.1f A\n", r.LoadAmps)
				fmt.Fprintf(tw, "Design current:\t%.1f A\n", r.DesignAmps)
				fmt.Fprintf(tw, "Conductor:\t%s %s (%.0f A, %.1f A derated)\n", r.ConductorSize, r.Material.Abbrev(), r.ConductorAmpacity, r.DeratedAmpacity)
				if r.NeutralSize != "" {
					fmt.Fprintf(tw, "Neutral:\t%s\n", r.NeutralSize)
				}
				fmt.Fprintf(tw, "Voltage drop:\t%.2f V (%.2f%%, limit %.1f%%)\n", r.VoltageDropVolts, r.VoltageDropPercent, r.VoltageDropLimitPercent)
				if r.UpsizedConductorSize != "" {
					fmt.Fprintf(tw, "Upsize to:\t%s\n", r.UpsizedConductorSize)
				}
				writeWarnings(tw, r.Warnings)
			})
		},
	}
}

func serviceCheckCommand(a *app) *cobra.Command {
	var in calc.QuickCheckInput
	var method string
	cmd := &cobra.Command{
		Use:   "service-check [input.yaml|input.json]",
		Short: "Quick amp-based check for adding load to an existing service",
		Long: "Checks whether an existing service can take additional load. Values come from\n" +
			"an input file or from the --service, --usage and --proposed flags.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				if err := loadInput(args[0], &in); err != nil {
					return err
				}
			} else if !cmd.Flags().Changed("service") {
				return fmt.Errorf("either an input file or --service is required")
			}
			if method != "" {
				in.Method = calc.ExistingLoadMethod(method)
			}
			out, err := a.service.ServiceCheck(cmdContext(), "", in)
			if err != nil {
				return err
			}
			r := out.Result
			return a.simpleOutput(r, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "Status:\t%s\n", r.Status)
				fmt.Fprintf(tw, "Total:\t%.1f A of %.0f A (%.1f%%)\n", r.TotalAmps, r.ServiceAmps, r.UtilizationPercent)
				fmt.Fprintf(tw, "Remaining:\t%.1f A\n", r.RemainingAmps)
				fmt.Fprintf(tw, "Existing load:\t%s\n", r.MethodLabel)
				if r.RecommendedServiceSize > 0 {
					fmt.Fprintf(tw, "Recommended service:\t%d A\n", r.RecommendedServiceSize)
				}
				fmt.Fprintf(tw, "\n%s\n", r.Recommendation)
			})
		},
	}
	cmd.Flags().Float64Var(&in.ServiceAmps, "service", 0, "existing service rating in amps")
	cmd.Flags().Float64Var(&in.UsageAmps, "usage", 0, "existing peak usage in amps")
	cmd.Flags().Float64Var(&in.ProposedAmps, "proposed", 0, "proposed additional load in amps")
	cmd.Flags().StringVar(&method, "method", "", "how usage was measured: utility_billing, load_study, calculated_panel or manual")
	return cmd
}

func panelCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "panel <input.yaml|input.json>",
		Short: "Panelboard bus and space utilization",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in calc.PanelInput
			if err := loadInput(args[0], &in); err != nil {
				return err
			}
			out, err := a.service.Panel(cmdContext(), "", in)
			if err != nil {
				return err
			}
			r := out.Result
			return a.simpleOutput(r, func(tw *tabwriter.Writer) {
				if r.Name != "" {
					fmt.Fprintf(tw, "Panel:\t%s\n", r.Name)
				}
				fmt.Fprintf(tw, "Status:\t%s\n", r.Status)
				fmt.Fprintf(tw, "Load:\t%.1f A of %.0f A (%.1f%%)\n", r.LoadAmps, r.BusRatingAmps, r.UtilizationPercent)
				fmt.Fprintf(tw, "Spaces:\t%d of %d used\n", r.SpacesUsed, r.Spaces)
				writeWarnings(tw, r.Warnings)
			})
		},
	}
}

func tablesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "Show the loaded NEC table edition",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := a.store
			view := struct {
				Edition        string   `json:"edition"`
				ServiceCatalog []int    `json:"service_catalog"`
				Occupancies    []string `json:"occupancies"`
			}{s.Edition, s.ServiceCatalog, s.OccupancyKeys()}

			return a.simpleOutput(view, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "Edition:\t%s\n", s.Edition)
				fmt.Fprintf(tw, "Service sizes:\t%v\n", []int(s.ServiceCatalog))
				fmt.Fprintln(tw, "\nOCCUPANCY\tLABEL\tVA/FT²")
				for _, key := range view.Occupancies {
					occ, _ := s.Occupancy(key)
					fmt.Fprintf(tw, "%s\t%s\t%.1f\n", key, occ.Label, occ.UnitLoadVAPerFt2)
				}
			})
		},
	}
}

func writeWarnings(tw *tabwriter.Writer, warnings []string) {
	for _, w := range warnings {
		fmt.Fprintf(tw, "Warning:\t%s\n", w)
	}
}
