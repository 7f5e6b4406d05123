package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"easel/internal/collect"
)

const summaryRounding = 100 * time.Millisecond

func printSummary(out io.Writer, summary collect.Summary, target int) {
	fmt.Fprintf(out, "\nRun summary for %s (%s)\n", summary.Runner, summary.Duration.Round(summaryRounding))
	if summary.Exhausted {
		fmt.Fprintln(out, "Source exhausted before every category reached its target.")
	}

	categories := sortedKeys(summary.Counts)
	rows := make([][]string, 0, len(categories))
	for _, category := range categories {
		rows = append(rows, []string{
			category,
			fmt.Sprint(summary.Counts[category]),
			fmt.Sprint(target),
		})
	}
	fmt.Fprintln(out, renderTable(out,
		[]string{"Category", "Collected", "Target"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight},
	))

	if len(summary.Rejections) == 0 {
		return
	}
	filters := sortedKeys(summary.Rejections)
	rejectionRows := make([][]string, 0, len(filters))
	for _, name := range filters {
		rejectionRows = append(rejectionRows, []string{name, fmt.Sprint(summary.Rejections[name])})
	}
	fmt.Fprintln(out, renderTable(out,
		[]string{"Filter", "Rejections"},
		rejectionRows,
		[]columnAlignment{alignLeft, alignRight},
	))
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(out io.Writer, headers []string, rows [][]string, aligns []columnAlignment) string {
	tw := table.NewWriter()
	if isTerminal(out) {
		tw.SetStyle(table.StyleRounded)
	} else {
		tw.SetStyle(table.StyleLight)
	}

	header := make(table.Row, len(headers))
	for i, name := range headers {
		header[i] = name
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, len(row))
		for i, cell := range row {
			r[i] = cell
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, len(headers))
	for i := range headers {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func isTerminal(out io.Writer) bool {
	file, ok := out.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
