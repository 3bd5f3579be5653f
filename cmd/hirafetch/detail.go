package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"hirafetch/pkg/fetcher"
	"hirafetch/pkg/models"
	"hirafetch/pkg/ratelimit"
	"hirafetch/pkg/retry"
	"hirafetch/pkg/storage"
	"hirafetch/pkg/ui"
)

type detailFlags struct {
	input      string
	keyColumn  string
	nameColumn string
	addrColumn string
	maxResults int
	delay      time.Duration
	output     string
	checkpoint string
	fresh      bool
	noCheck    bool
	preview    int
}

var detailOpts detailFlags

var detailCmd = &cobra.Command{
	Use:   "detail",
	Short: "Fetch detail information for every hospital in a list file",
	Long: `Read a CSV or XLSX file produced by 'hirafetch list' (or any table with an
institution code column) and call getDtlInfo once per row.

A row whose lookup fails is kept in the output with detailStatus=no_detail
and the error in detailError, so the output always has one or more records
per input row.`,
	Example: `  hirafetch detail --input data/hospitals_20260101_120000.xlsx

  # Input with a differently named code column, slower pacing
  hirafetch detail --input clinics.csv --key-column 암호화요양기호 --delay 500ms`,
	Args: cobra.NoArgs,
	RunE: runDetail,
}

func init() {
	rootCmd.AddCommand(detailCmd)

	f := detailCmd.Flags()
	f.StringVarP(&detailOpts.input, "input", "i", "", "CSV or XLSX file with an institution code column (required)")
	f.StringVar(&detailOpts.keyColumn, "key-column", "", "column holding ykiho (detected when omitted)")
	f.StringVar(&detailOpts.nameColumn, "name-column", "", "column holding the hospital name (detected when omitted)")
	f.StringVar(&detailOpts.addrColumn, "addr-column", "", "column holding the address (detected when omitted)")
	f.IntVar(&detailOpts.maxResults, "max-results", 0, "only process the first N rows (0 = all)")
	f.DurationVar(&detailOpts.delay, "delay", 0, "pause between detail calls (default from config)")
	f.StringVarP(&detailOpts.output, "output", "o", "", "output file; bare names go under the output directory")
	f.StringVar(&detailOpts.checkpoint, "checkpoint", "", "checkpoint name (default derived from the input file)")
	f.BoolVar(&detailOpts.fresh, "fresh", false, "discard any existing checkpoint and start over")
	f.BoolVar(&detailOpts.noCheck, "no-checkpoint", false, "disable checkpointing for this run")
	f.IntVar(&detailOpts.preview, "preview", 5, "number of records to show after the fetch")
	_ = detailCmd.MarkFlagRequired("input")
}

func runDetail(cmd *cobra.Command, args []string) error {
	flags := map[string]interface{}{
		"max-results": detailOpts.maxResults,
	}
	if cmd.Flags().Changed("delay") {
		flags["detail-delay"] = detailOpts.delay
	}
	if detailOpts.noCheck {
		flags["checkpoint"] = false
	}

	a, err := newApp(flags)
	if err != nil {
		return err
	}
	defer a.writeMetrics()

	header, rows, err := storage.ReadRows(detailOpts.input)
	if err != nil {
		return err
	}
	in, err := detailInput(header, rows, detailOpts)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	name := detailOpts.checkpoint
	if name == "" {
		name = detailCheckpointName(detailOpts.input)
	}
	store, err := a.openStore(ctx, name, detailOpts.fresh)
	if err != nil {
		return err
	}
	defer closeStore(store)

	ui.PrintLogo()
	ui.PrintInfo("Input", fmt.Sprintf("%s (%d rows, key column %s)", detailOpts.input, len(rows), in.KeyColumn))
	ui.PrintInfo("Checkpoint", store.Location())

	progress := ui.NewProgressDisplay("detail")
	df := fetcher.NewDetailFetcher(a.client, a.cfg.API.DetailURL, a.mode,
		ratelimit.NewPacer(a.cfg.Fetch.DetailDelay),
		fetcher.Options{
			Retry:      retry.FromSettings(ctx, a.cfg.Retry, a.log),
			Store:      store,
			Interval:   a.cfg.Checkpoint.Interval,
			MaxResults: a.cfg.Fetch.MaxResults,
			Logger:     a.log,
			Metrics:    a.metrics,
			OnProgress: progress.Update,
		})

	result, err := df.FetchAll(ctx, in)
	progress.Finish()
	if err != nil {
		a.reportInterrupted(store, name)
		return err
	}

	outName := detailOpts.output
	if outName == "" {
		outName = "hospital_details_" + time.Now().Format("20060102_150405")
	}
	path, err := a.output.Save(outName, result.Items, models.DetailColumns)
	if err != nil {
		return fmt.Errorf("failed to save hospital details: %w", err)
	}

	ui.PrintBlock(ui.RenderRecords(result.Items,
		[]string{models.FieldSourceName, models.FieldYkiho, models.FieldDetailStatus, models.FieldDetailError}, detailOpts.preview))
	ui.PrintBlock(ui.RenderSummary("Hospital details", []ui.Field{
		{Label: "Rows", Value: strconv.Itoa(result.TotalCount)},
		{Label: "Records", Value: strconv.Itoa(len(result.Items))},
		{Label: "Without detail", Value: strconv.Itoa(result.Sentinels)},
		{Label: "Rows this run", Value: strconv.Itoa(result.Units)},
		{Label: "Resumed", Value: strconv.FormatBool(result.Resumed)},
		{Label: "Output", Value: path},
	}))
	if result.Sentinels > 0 {
		ui.PrintWarning(fmt.Sprintf("%d rows have no detail; see the detailError column", result.Sentinels))
	}
	ui.PrintSuccess("Detail fetch completed")
	return nil
}

// detailInput picks the key, name and address columns. Explicit column
// flags must exist in the header; otherwise the columns are detected.
func detailInput(header []string, rows []models.Record, opts detailFlags) (fetcher.DetailInput, error) {
	in := fetcher.DetailInput{Rows: rows, Source: opts.input}
	if abs, err := filepath.Abs(opts.input); err == nil {
		in.Source = abs
	}

	pick := func(flag string, candidates []string) (string, error) {
		if flag == "" {
			col, _ := storage.DetectColumn(header, candidates)
			return col, nil
		}
		col, ok := storage.DetectColumn(header, []string{flag})
		if !ok {
			return "", fmt.Errorf("column %q not found in input (columns: %s)", flag, strings.Join(header, ", "))
		}
		return col, nil
	}

	var err error
	if opts.keyColumn == "" {
		in.KeyColumn, err = storage.DetectKeyColumn(header)
	} else {
		in.KeyColumn, err = pick(opts.keyColumn, nil)
	}
	if err != nil {
		return in, err
	}
	if in.NameColumn, err = pick(opts.nameColumn, models.NameColumnCandidates); err != nil {
		return in, err
	}
	if in.AddrColumn, err = pick(opts.addrColumn, models.AddrColumnCandidates); err != nil {
		return in, err
	}
	return in, nil
}

// detailCheckpointName derives the checkpoint name from the input file name
func detailCheckpointName(input string) string {
	base := filepath.Base(input)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return "detail_" + sanitizeName(base)
}
