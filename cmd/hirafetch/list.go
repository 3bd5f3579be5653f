package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"hirafetch/pkg/codes"
	"hirafetch/pkg/fetcher"
	"hirafetch/pkg/hira"
	"hirafetch/pkg/models"
	"hirafetch/pkg/retry"
	"hirafetch/pkg/ui"
)

// listFlags holds the list command's filters and run options
type listFlags struct {
	sido       string
	sggu       string
	dept       string
	class      string
	emdong     string
	name       string
	maxResults int
	pageSize   int
	output     string
	checkpoint string
	fresh      bool
	noCheck    bool
	preview    int
}

var listOpts listFlags

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Fetch the hospital list",
	Long: `Fetch hospitals from getHospBasisList, page by page, until the reported
total (or --max-results) is reached.

Filters accept either the Korean name from the code tables or the raw code.
Run 'hirafetch codes' to see the available names.`,
	Example: `  # Every dermatology clinic in Gangnam-gu
  hirafetch list --sido 서울 --sggu 강남구 --dept 피부과 --class 의원

  # First 500 hospitals in Busan as CSV
  hirafetch list --sido 부산 --max-results 500 --output busan.csv

  # Start over instead of resuming
  hirafetch list --sido 서울 --fresh`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	f := listCmd.Flags()
	f.StringVar(&listOpts.sido, "sido", "", "province or metropolitan city (name or sidoCd)")
	f.StringVar(&listOpts.sggu, "sggu", "", "city, county or district (name or sgguCd)")
	f.StringVar(&listOpts.dept, "dept", "", "medical department (name or dgsbjtCd)")
	f.StringVar(&listOpts.class, "class", "", "institution class (name or clCd)")
	f.StringVar(&listOpts.emdong, "emdong", "", "town or neighbourhood name")
	f.StringVar(&listOpts.name, "name", "", "institution name (partial match)")
	f.IntVar(&listOpts.maxResults, "max-results", 0, "stop after this many hospitals (0 = all)")
	f.IntVar(&listOpts.pageSize, "page-size", 0, "rows per page (default from config)")
	f.StringVarP(&listOpts.output, "output", "o", "", "output file; bare names go under the output directory")
	f.StringVar(&listOpts.checkpoint, "checkpoint", "", "checkpoint name (default derived from the filters)")
	f.BoolVar(&listOpts.fresh, "fresh", false, "discard any existing checkpoint and start over")
	f.BoolVar(&listOpts.noCheck, "no-checkpoint", false, "disable checkpointing for this run")
	f.IntVar(&listOpts.preview, "preview", 5, "number of hospitals to show after the fetch")
}

func runList(cmd *cobra.Command, args []string) error {
	flags := map[string]interface{}{
		"max-results": listOpts.maxResults,
		"page-size":   listOpts.pageSize,
	}
	if listOpts.noCheck {
		flags["checkpoint"] = false
	}

	a, err := newApp(flags)
	if err != nil {
		return err
	}
	defer a.writeMetrics()

	set, err := codes.Load(a.cfg.Codes.File)
	if err != nil {
		return err
	}
	filters, err := resolveFilters(set, listOpts)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	name := listOpts.checkpoint
	if name == "" {
		name = listCheckpointName(filters)
	}
	store, err := a.openStore(ctx, name, listOpts.fresh)
	if err != nil {
		return err
	}
	defer closeStore(store)

	ui.PrintLogo()
	ui.PrintInfo("Filters", describeFilters(set, filters))
	ui.PrintInfo("Checkpoint", store.Location())

	progress := ui.NewProgressDisplay("list")
	lf := fetcher.NewListFetcher(a.client, fetcher.Options{
		Retry:      retry.FromSettings(ctx, a.cfg.Retry, a.log),
		Store:      store,
		Interval:   a.cfg.Checkpoint.Interval,
		MaxResults: a.cfg.Fetch.MaxResults,
		Logger:     a.log,
		Metrics:    a.metrics,
		OnProgress: progress.Update,
	})

	req := hira.NewListRequest(a.cfg.API.ListURL, a.mode, filters, a.cfg.API.PageSize)
	result, err := lf.FetchAll(ctx, req)
	progress.Finish()
	if err != nil {
		a.reportInterrupted(store, name)
		return err
	}

	outName := listOpts.output
	if outName == "" {
		outName = "hospitals_" + time.Now().Format("20060102_150405")
	}
	path, err := a.output.Save(outName, result.Items, models.ListColumns)
	if err != nil {
		return fmt.Errorf("failed to save hospital list: %w", err)
	}

	ui.PrintBlock(ui.RenderRecords(result.Items, []string{"yadmNm", "clCdNm", "addr", "telno"}, listOpts.preview))
	ui.PrintBlock(ui.RenderSummary("Hospital list", []ui.Field{
		{Label: "Reported total", Value: strconv.Itoa(result.TotalCount)},
		{Label: "Saved", Value: strconv.Itoa(len(result.Items))},
		{Label: "Pages this run", Value: strconv.Itoa(result.Units)},
		{Label: "Resumed", Value: strconv.FormatBool(result.Resumed)},
		{Label: "Output", Value: path},
	}))
	ui.PrintSuccess("List fetch completed")
	return nil
}

// resolveFilters maps the filter flags onto API parameters, translating
// names through the code tables
func resolveFilters(set *codes.Set, opts listFlags) (map[string]string, error) {
	filters := make(map[string]string)

	coded := []struct {
		table, param, value string
	}{
		{codes.Sido, hira.FilterSido, opts.sido},
		{codes.Sggu, hira.FilterSggu, opts.sggu},
		{codes.Dgsbjt, hira.FilterDept, opts.dept},
		{codes.Cl, hira.FilterClass, opts.class},
	}
	for _, c := range coded {
		code, err := set.Resolve(c.table, c.value)
		if err != nil {
			return nil, err
		}
		if code != "" {
			filters[c.param] = code
		}
	}

	if v := strings.TrimSpace(opts.emdong); v != "" {
		filters[hira.FilterEmdong] = v
	}
	if v := strings.TrimSpace(opts.name); v != "" {
		filters[hira.FilterName] = v
	}
	return filters, nil
}

// listCheckpointName derives a stable name from the filters so that
// repeating a command resumes it
func listCheckpointName(filters map[string]string) string {
	if len(filters) == 0 {
		return "list_all"
	}
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := []string{"list"}
	for _, k := range keys {
		parts = append(parts, k+"-"+sanitizeName(filters[k]))
	}
	return strings.Join(parts, "_")
}

// sanitizeName keeps letters and digits (Hangul included) and replaces the rest
func sanitizeName(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r >= 0xAC00 && r <= 0xD7A3:
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return b.String()
}

// describeFilters renders the filters for display with code names where known
func describeFilters(set *codes.Set, filters map[string]string) string {
	if len(filters) == 0 {
		return "none (all hospitals)"
	}
	tables := map[string]string{
		hira.FilterSido:  codes.Sido,
		hira.FilterSggu:  codes.Sggu,
		hira.FilterDept:  codes.Dgsbjt,
		hira.FilterClass: codes.Cl,
	}
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := filters[k]
		if table, ok := tables[k]; ok {
			if name := set.Name(table, v); name != "" {
				v = name + " (" + v + ")"
			}
		}
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ", ")
}
