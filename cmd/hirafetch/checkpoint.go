package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"hirafetch/pkg/checkpoint"
	"hirafetch/pkg/ui"
)

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Inspect or clear saved fetch progress",
	Long: `Inspect or clear the checkpoint a list or detail run leaves behind when it
is interrupted or fails. The name is the one printed by the run, or the one
given with --checkpoint.`,
}

var checkpointShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a checkpoint",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheckpointShow,
}

var checkpointClearCmd = &cobra.Command{
	Use:   "clear <name>",
	Short: "Delete a checkpoint so the next run starts over",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheckpointClear,
}

func init() {
	rootCmd.AddCommand(checkpointCmd)
	checkpointCmd.AddCommand(checkpointShowCmd)
	checkpointCmd.AddCommand(checkpointClearCmd)
}

func openNamedStore(name string) (checkpoint.Store, error) {
	cfg, err := loadConfig(nil)
	if err != nil {
		return nil, err
	}
	cfg.Checkpoint.Enabled = true
	return checkpoint.Open(cfg.Checkpoint, name, nil)
}

func runCheckpointShow(cmd *cobra.Command, args []string) error {
	store, err := openNamedStore(args[0])
	if err != nil {
		return err
	}
	defer closeStore(store)

	state, err := store.Load(context.Background())
	if err != nil {
		return err
	}
	if state == nil {
		ui.PrintWarning("No checkpoint", store.Location())
		return nil
	}

	fields := []ui.Field{
		{Label: "Location", Value: store.Location()},
		{Label: "Kind", Value: state.Kind},
		{Label: "Last cursor", Value: strconv.Itoa(state.LastCursor)},
		{Label: "Next cursor", Value: strconv.Itoa(state.NextCursor())},
		{Label: "Items", Value: strconv.Itoa(len(state.Items))},
		{Label: "Total", Value: strconv.Itoa(state.TotalCount)},
		{Label: "Updated", Value: state.Timestamp.Format("2006-01-02 15:04:05")},
	}
	keys := make([]string, 0, len(state.Query))
	for k := range state.Query {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields = append(fields, ui.Field{Label: "Query " + k, Value: state.Query[k]})
	}
	if state.Error != "" {
		fields = append(fields, ui.Field{Label: "Error", Value: state.Error})
	}
	ui.PrintBlock(ui.RenderSummary(fmt.Sprintf("Checkpoint %s", args[0]), fields))
	return nil
}

func runCheckpointClear(cmd *cobra.Command, args []string) error {
	store, err := openNamedStore(args[0])
	if err != nil {
		return err
	}
	defer closeStore(store)

	if err := store.Delete(context.Background()); err != nil {
		return err
	}
	ui.PrintSuccess("Checkpoint cleared: " + store.Location())
	return nil
}
