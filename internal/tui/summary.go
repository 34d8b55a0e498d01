package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"imgpress/internal/processor"
)

type SummaryRow struct {
	Label string
	Value string
}

// RenderSummary lays rows out as a two-column table. Values are right
// aligned so sizes and counts line up on their last digit.
func RenderSummary(rows []SummaryRow) string {
	labelWidth, valueWidth := 0, 0
	for _, row := range rows {
		labelWidth = max(labelWidth, lipgloss.Width(row.Label))
		valueWidth = max(valueWidth, lipgloss.Width(row.Value))
	}

	label := labelStyle.Width(labelWidth)
	value := valueStyle.Width(valueWidth).Align(lipgloss.Right)
	rule := dimStyle.Render(strings.Repeat("─", labelWidth+valueWidth+3))

	lines := []string{rule}
	for _, row := range rows {
		lines = append(lines, label.Render(row.Label)+dimStyle.Render(" │ ")+value.Render(row.Value))
	}
	lines = append(lines, rule)
	return strings.Join(lines, "\n")
}

// SummaryRows lists the run totals. Skipped and failed rows only appear
// when non-zero.
func SummaryRows(s processor.Summary) []SummaryRow {
	rows := []SummaryRow{{Label: "Successfully processed", Value: fmt.Sprint(s.Successful)}}
	if s.Skipped > 0 {
		rows = append(rows, SummaryRow{Label: "Skipped", Value: fmt.Sprint(s.Skipped)})
	}
	if s.Failed > 0 {
		rows = append(rows, SummaryRow{Label: "Failed", Value: fmt.Sprint(s.Failed)})
	}
	if s.Successful > 0 {
		rows = append(rows,
			SummaryRow{Label: "Size before", Value: FormatMB(s.BytesIn)},
			SummaryRow{Label: "Size after", Value: FormatMB(s.BytesOut)},
			SummaryRow{Label: "Reduction", Value: fmt.Sprintf("%.1f%%", s.Reduction())},
		)
	}
	return rows
}

// RenderReport is the closing block printed after a run.
func RenderReport(s processor.Summary) string {
	out := titleStyle.Render("Processing Summary") + "\n" + RenderSummary(SummaryRows(s))
	if s.Successful > 0 {
		out += "\n\n" + successStyle.Bold(true).Render("Done! Check the output folder for your processed images.")
	}
	return out
}

func Banner() string {
	return bannerStyle.Render("IMAGE COMPRESSOR")
}

// RenderImageList prints the found images with their dimensions and size.
func RenderImageList(files []processor.ImageFile) string {
	var b strings.Builder
	b.WriteString(successStyle.Bold(true).Render(fmt.Sprintf("Found %d image(s) in input folder:", len(files))))
	b.WriteString("\n\n")
	for i, f := range files {
		fmt.Fprintf(&b, "  %s %s\n", titleStyle.Render(fmt.Sprintf("%2d.", i+1)), filepath.Base(f.Path))
		fmt.Fprintf(&b, "      %s\n", dimStyle.Render(fmt.Sprintf("%dx%d pixels | %s", f.Width, f.Height, FormatMB(f.Size))))
	}
	return strings.TrimRight(b.String(), "\n")
}

// Heading describes the run settings, e.g.
// "Processing images: Compress Only (Low - 60%)".
func Heading(opts processor.Options) string {
	mode := opts.Mode
	quality := fmt.Sprintf("(%s - %d%%)", QualityLabel(opts.Quality), opts.Quality)
	switch {
	case mode == processor.ModeCompressOnly:
		return fmt.Sprintf("Processing images: %s %s", mode.Title(), quality)
	case !mode.Compresses():
		return fmt.Sprintf("Processing images: %s → %s", mode.Title(), FormatLabel(opts.TargetExt))
	default:
		return fmt.Sprintf("Processing images: %s %s → %s", mode.Title(), quality, FormatLabel(opts.TargetExt))
	}
}

func QualityLabel(q int) string {
	switch q {
	case 90:
		return "High"
	case processor.DefaultQuality:
		return "Medium"
	case 60:
		return "Low"
	default:
		return "Custom"
	}
}

func FormatLabel(ext string) string {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "":
		return "Original Format"
	case "jpg", "jpeg":
		return "JPEG"
	case "png":
		return "PNG"
	case "webp":
		return "WebP"
	case "bmp":
		return "BMP"
	case "tif", "tiff":
		return "TIFF"
	default:
		return strings.ToUpper(strings.TrimPrefix(ext, "."))
	}
}

func FormatMB(n int64) string {
	return fmt.Sprintf("%.2f MB", float64(n)/(1<<20))
}

// Outcome is the one-line result of a finished file.
func Outcome(u processor.ProgressUpdate) string {
	switch u.Kind {
	case processor.EventSkipped:
		return warnStyle.Render("skipped ") + u.Name
	case processor.EventFailed:
		return errorStyle.Render("failed  ") + u.Name + dimStyle.Render(fmt.Sprintf(" (%v)", u.Err))
	case processor.EventDone:
		pct := 0.0
		if u.BytesIn > 0 {
			pct = float64(u.BytesIn-u.BytesOut) / float64(u.BytesIn) * 100
		}
		return successStyle.Render("ok      ") + fmt.Sprintf("%s → %s ", u.Name, filepath.Base(u.Output)) +
			dimStyle.Render(fmt.Sprintf("%s → %s (%.1f%% reduction)", FormatMB(u.BytesIn), FormatMB(u.BytesOut), pct))
	default:
		return ""
	}
}
