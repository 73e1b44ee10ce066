package main

import (
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/zsiec/adsplice/internal/segment"
)

var (
	accent   = lipgloss.Color("#1E88E5")
	muted    = lipgloss.Color("#90A4AE")
	alertRed = lipgloss.Color("#F44336")

	headerStyle = lipgloss.NewStyle().Foreground(accent).Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	errorStyle  = cellStyle.Foreground(alertRed)
	borderStyle = lipgloss.NewStyle().Foreground(muted)
)

var reportHeaders = []string{
	"File", "Brand", "Version",
	"Sidx Ver", "Ref ID", "Timescale", "EPT",
	"Moof Size", "Sequence", "Mdat Size",
}

const missing = "-"

func renderReports(results []inspection) string {
	failed := make(map[int]bool)
	rows := make([][]string, 0, len(results))
	for i, res := range results {
		if res.Report == nil {
			failed[i] = true
		}
		rows = append(rows, reportRow(res))
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(reportHeaders...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case failed[row]:
				return errorStyle
			default:
				return cellStyle
			}
		}).
		String()
}

func reportRow(res inspection) []string {
	row := []string{filepath.Base(res.File)}
	r := res.Report
	if r == nil {
		row = append(row, "parse error")
		for len(row) < len(reportHeaders) {
			row = append(row, missing)
		}
		return row
	}

	brands := r.Styp
	if brands == nil {
		brands = r.Ftyp
	}
	if brands != nil {
		row = append(row, brands.MajorBrand, strconv.FormatUint(uint64(brands.MinorVersion), 10))
	} else {
		row = append(row, missing, missing)
	}

	if r.Sidx != nil {
		row = append(row,
			strconv.Itoa(int(r.Sidx.Version)),
			strconv.FormatUint(uint64(r.Sidx.ReferenceID), 10),
			strconv.FormatUint(uint64(r.Sidx.Timescale), 10),
			strconv.FormatUint(r.Sidx.EarliestPresentationTime, 10))
	} else {
		row = append(row, missing, missing, missing, missing)
	}

	if r.Moof != nil {
		row = append(row, strconv.FormatUint(r.Moof.Size, 10), sequenceText(r))
	} else {
		row = append(row, missing, missing)
	}

	if r.MdatSize != nil {
		row = append(row, strconv.FormatUint(*r.MdatSize, 10))
	} else {
		row = append(row, missing)
	}
	return row
}

func sequenceText(r *segment.Report) string {
	if r.FragmentSequence == nil {
		return missing
	}
	return strconv.FormatUint(uint64(*r.FragmentSequence), 10)
}
