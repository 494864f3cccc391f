package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"go-bar-race/internal/api"
	"go-bar-race/internal/config"
	"go-bar-race/internal/logging"
	"go-bar-race/internal/model"
	"go-bar-race/internal/pipeline"
	"go-bar-race/internal/render"
	"go-bar-race/internal/sample"
)

var (
	cfg       config.Config
	envFile   string
	logLevel  string
	logFormat string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "barrace",
		Short:        "Normalize period/entity/value tables and render racing bar charts",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(envFile); err != nil {
				return fmt.Errorf("load %s: %w", envFile, err)
			}
			cfg = config.Load()
			if cmd.Flags().Changed("log-level") {
				cfg.Log.Level = logLevel
			}
			if cmd.Flags().Changed("log-format") {
				cfg.Log.Format = logFormat
			}
			logging.Init(cfg.Log.Format, logging.ParseLevel(cfg.Log.Level))
			return nil
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env", ".env", "dotenv file with BARRACE_* settings")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "text", "text or json")

	root.AddCommand(normalizeCmd(), renderCmd(), sampleCmd(), serveCmd())
	return root
}

type sourceFlags struct {
	input      string
	sheet      string
	topN       int
	dedup      string
	threshold  float64
	reference  int
	transforms []string
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.input, "input", "i", "", "input table (.csv, .tsv, .xlsx or http(s) URL)")
	cmd.Flags().StringVar(&f.sheet, "sheet", "", "xlsx sheet name (default: first sheet)")
	cmd.Flags().IntVarP(&f.topN, "top", "n", 0, "number of entities to keep (default BARRACE_TOP_N)")
	cmd.Flags().StringVar(&f.dedup, "dedup", "last", "duplicate (period, entity) policy: last, first or sum")
	cmd.Flags().Float64Var(&f.threshold, "threshold", 3, "outlier threshold in standard deviations")
	cmd.Flags().IntVar(&f.reference, "reference", 0, "period used to rank entities (default: latest)")
	cmd.Flags().StringSliceVar(&f.transforms, "transform", nil, "entity name transforms: trim, nfc, lowercase, uppercase, title")
	cmd.MarkFlagRequired("input")
}

func (f *sourceFlags) spec(cmd *cobra.Command) model.RunSpec {
	spec := model.RunSpec{
		Source:          model.Source{Path: f.input, Sheet: f.sheet},
		Transformations: f.transforms,
		Normalization: model.Normalization{
			TopN:       f.topN,
			Threshold:  f.threshold,
			Duplicates: f.dedup,
		},
	}
	if cmd.Flags().Changed("reference") {
		ref := f.reference
		spec.Normalization.ReferencePeriod = &ref
	}
	return spec
}

func deps(dir string) pipeline.Deps {
	return pipeline.Deps{
		Defaults:     cfg.Render,
		JobTimeout:   cfg.Server.JobTimeout,
		OutputDir:    dir,
		Capabilities: render.DetectCapabilities(),
	}
}

func normalizeCmd() *cobra.Command {
	var (
		src    sourceFlags
		output string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Normalize a long-format table into a dense period x entity panel",
		RunE: func(cmd *cobra.Command, args []string) error {
			spec := src.spec(cmd)
			spec.Render.Skip = true
			dir := "."
			if output != "" {
				dir = filepath.Dir(output)
				spec.Export = &model.Export{File: filepath.Base(output)}
			}

			res, err := pipeline.Run(cmd.Context(), uuid.NewString(), spec, deps(dir))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]interface{}{
					"panel":  res.Normalized.Wide,
					"report": res.Normalized.Report,
				})
			}
			printPanel(out, res.Normalized.Wide)
			printReport(out, res.Normalized.Report)
			if output != "" {
				fmt.Fprintf(out, "wrote %s\n", output)
			}
			return nil
		},
	}
	src.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the wide panel to .csv, .json or .xlsx")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print panel and report as JSON")
	return cmd
}

func renderCmd() *cobra.Command {
	var (
		src      sourceFlags
		r        model.RenderSpec
		outDir   string
		noValues bool
		noGrid   bool
		noRanks  bool
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Normalize a table and render it as a racing bar chart",
		RunE: func(cmd *cobra.Command, args []string) error {
			spec := src.spec(cmd)
			off := false
			if noValues {
				r.ShowValues = &off
			}
			if noGrid {
				r.ShowGrid = &off
			}
			if noRanks {
				r.ShowRankChanges = &off
			}
			spec.Render = r
			if err := os.MkdirAll(outDir, 0755); err != nil {
				return err
			}

			res, err := pipeline.Run(cmd.Context(), uuid.NewString(), spec, deps(outDir))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printReport(out, res.Normalized.Report)
			rr := res.Render
			fmt.Fprintf(out, "strategy: %s\nformat:   %s\nframes:   %d\noutput:   %s\n", rr.Strategy, rr.Format, rr.Frames, rr.Path)
			if rr.Reason != "" {
				fmt.Fprintf(out, "note:     %s\n", rr.Reason)
			}
			return nil
		},
	}
	src.register(cmd)
	f := cmd.Flags()
	f.StringVarP(&r.Format, "format", "f", "", "gif, mp4 or png")
	f.StringVarP(&r.Output, "output", "o", "race", "output base name (extension added)")
	f.StringVar(&outDir, "out-dir", ".", "directory for the animation")
	f.StringVar(&r.Title, "title", "", "chart title")
	f.StringVar(&r.Subtitle, "subtitle", "", "chart subtitle")
	f.StringVar(&r.Unit, "unit", "", "value unit shown after bar values")
	f.StringVar(&r.Watermark, "watermark", "", "text drawn in the bottom right corner")
	f.IntVar(&r.FPS, "fps", 0, "frames per second")
	f.IntVar(&r.PeriodMillis, "period-ms", 0, "milliseconds per period")
	f.IntVar(&r.Bars, "bars", 0, "visible bars (default: min(top, 50))")
	f.IntVar(&r.Width, "width", 0, "frame width in pixels")
	f.IntVar(&r.Height, "height", 0, "frame height in pixels")
	f.IntVar(&r.DPI, "dpi", 0, "render resolution")
	f.StringVar(&r.Transition, "transition", "", "easing between periods: "+fmt.Sprint(render.Transitions()))
	f.StringVar(&r.Colormap, "colormap", "", "bar colors: "+fmt.Sprint(render.Colormaps()))
	f.StringVar(&r.FontFile, "font", "", "TTF/OTF font file for labels")
	f.BoolVar(&noValues, "no-values", false, "hide bar values")
	f.BoolVar(&noGrid, "no-grid", false, "hide the value grid")
	f.BoolVar(&noRanks, "no-rank-changes", false, "hide rank change markers")
	return cmd
}

func sampleCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Write the bundled GDP sample table",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := pipeline.WriteTable(output, sample.Table()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "example_data.xlsx", "output file (.csv or .xlsx)")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, db, outputs string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("db") {
				cfg.Store.DBPath = db
			}
			if cmd.Flags().Changed("outputs") {
				cfg.Store.OutputDir = outputs
			}
			return api.Serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&db, "db", "barrace.db", "sqlite database path")
	cmd.Flags().StringVar(&outputs, "outputs", "outputs", "directory for run outputs")
	return cmd
}

func printPanel(w io.Writer, p *model.WidePanel) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprint(tw, "period\t")
	for _, e := range p.Entities {
		fmt.Fprintf(tw, "%s\t", e)
	}
	fmt.Fprintln(tw)
	for i, period := range p.Periods {
		fmt.Fprintf(tw, "%d\t", period)
		for _, v := range p.Values[i] {
			fmt.Fprintf(tw, "%s\t", strconv.FormatFloat(v, 'f', 2, 64))
		}
		fmt.Fprintln(tw)
	}
	tw.Flush()
}

func printReport(w io.Writer, r model.NormalizeReport) {
	fmt.Fprintf(w, "rows: %d read, %d skipped, %d duplicates\n", r.RowsRead, r.RowsSkipped, r.Duplicates)
	fmt.Fprintf(w, "entities: %d, kept %d ranked at %d\n", r.Entities, len(r.Selected), r.Reference)
	fmt.Fprintf(w, "outliers: %d flagged, %d corrected\n", r.Outliers, len(r.Corrections))
	for _, c := range r.Corrections {
		fmt.Fprintf(w, "  %s %d: %.2f -> %.2f\n", c.Entity, c.Period, c.Original, c.Corrected)
	}
	for _, g := range r.Gaps {
		fmt.Fprintf(w, "  %s %d: left unchanged\n", g.Entity, g.Period)
	}
}
