package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"protect/internal/audit"
	"protect/internal/storage/model"
	"protect/internal/storage/repo"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	historyLimit       int
	historyStatus      string
	historyProjectID   string
	historyStageName   string
	historyClear       bool
	historyCleanupDays int
)

// historyCmd 查看或清理本地调用历史
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect the local invocation history",
	Long: `Lists invocations recorded in the local sqlite history.

Recording is enabled through the application config:

  history:
    enabled: true
    db: history.db`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	f := historyCmd.Flags()
	f.IntVar(&historyLimit, "limit", 20, "maximum number of records to show")
	f.StringVar(&historyStatus, "status", "", "filter by execution status")
	f.StringVar(&historyProjectID, "project-id", "", "filter by project ID")
	f.StringVar(&historyStageName, "stage-name", "", "filter by stage name")
	f.BoolVar(&historyClear, "clear", false, "delete all records")
	f.IntVar(&historyCleanupDays, "cleanup-days", 0, "delete records older than the given number of days")
	historyCmd.MarkFlagsMutuallyExclusive("clear", "cleanup-days")
}

func runHistory(cmd *cobra.Command, args []string) error {
	if appCfg == nil || !appCfg.History.Enabled {
		return errors.New("invocation history is disabled, set history.enabled in the application config")
	}
	pid, err := parseID("project-id", historyProjectID)
	if err != nil {
		return err
	}
	var projectFilter string
	if pid != uuid.Nil {
		projectFilter = pid.String()
	}

	h, err := audit.OpenHistory(appCfg.History, log)
	if err != nil {
		return err
	}
	defer h.Close()

	ctx := cmd.Context()
	switch {
	case historyClear:
		n, err := h.Repo.ClearAll(ctx)
		if err != nil {
			return err
		}
		return printDeleted(cmd.OutOrStdout(), n)
	case historyCleanupDays > 0:
		n, err := h.Repo.CleanupOldRecords(ctx, historyCleanupDays)
		if err != nil {
			return err
		}
		return printDeleted(cmd.OutOrStdout(), n)
	}

	records, total, err := h.Query(ctx, repo.QueryOptions{
		ProjectID: projectFilter,
		StageName: historyStageName,
		Status:    historyStatus,
		Limit:     historyLimit,
	})
	if err != nil {
		return err
	}
	page := struct {
		Total   int64                     `json:"total"`
		Records []*model.InvocationRecord `json:"records"`
	}{total, records}
	return printResult(cmd.OutOrStdout(), page, func(w io.Writer) {
		writeRecords(w, records, total)
	})
}

func printDeleted(w io.Writer, n int64) error {
	return printResult(w, map[string]int64{"deleted": n}, func(w io.Writer) {
		fmt.Fprintf(w, "Deleted %d records.\n", n)
	})
}

func writeRecords(w io.Writer, records []*model.InvocationRecord, total int64) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tSTATUS\tSTAGE\tMS\tTEXT")
	for _, r := range records {
		stage := r.StageName
		if stage == "" {
			stage = r.StageID
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			time.UnixMilli(r.Timestamp).Format("2006-01-02 15:04:05"), r.Status, stage, r.ElapsedMs, truncate(r.ResponseText, 60))
	}
	tw.Flush()
	fmt.Fprintf(w, "%d of %d records\n", len(records), total)
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if r := []rune(s); len(r) > n {
		return string(r[:n-3]) + "..."
	}
	return s
}
