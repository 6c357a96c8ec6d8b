package main

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// statusCountRows builds the per-status count rows shared by the status
// and queue health commands.
func statusCountRows(pending, syncing, synced, failed, total int) [][]string {
	return [][]string{
		{"pending", strconv.Itoa(pending)},
		{"syncing", strconv.Itoa(syncing)},
		{"synced", strconv.Itoa(synced)},
		{"failed", strconv.Itoa(failed)},
		{"total", strconv.Itoa(total)},
	}
}

// renderCountTable prints status/count pairs with the counts
// right-aligned.
func renderCountTable(rows [][]string) string {
	return renderAlignedTable([]string{"Status", "Count"}, rows, map[int]text.Align{1: text.AlignRight})
}

// renderSettingsTable prints setting/value pairs for config output.
func renderSettingsTable(rows [][]string) string {
	return renderAlignedTable([]string{"Setting", "Value"}, rows, nil)
}

// renderActionTable prints queue listings with the retry count
// right-aligned.
func renderActionTable(rows [][]string) string {
	headers := []string{"ID", "Kind", "Request", "Status", "Retries", "Enqueued"}
	return renderAlignedTable(headers, rows, map[int]text.Align{4: text.AlignRight})
}

func renderAlignedTable(headers []string, rows [][]string, aligns map[int]text.Align) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	headerRow := make(table.Row, len(headers))
	configs := make([]table.ColumnConfig, len(headers))
	for i, header := range headers {
		headerRow[i] = header
		align := text.AlignLeft
		if a, ok := aligns[i]; ok {
			align = a
		}
		configs[i] = table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		}
	}
	tw.AppendHeader(headerRow)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		cells := make(table.Row, len(row))
		for i, cell := range row {
			cells[i] = cell
		}
		tw.AppendRow(cells)
	}

	return tw.Render()
}
