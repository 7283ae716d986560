package view

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ngenohkevin/hivedeck-drive/internal/models"
	"github.com/ngenohkevin/hivedeck-drive/internal/navigator"
)

// Styles
var (
	primaryColor = lipgloss.Color("#7aa2f7")
	successColor = lipgloss.Color("#9ece6a")
	warningColor = lipgloss.Color("#e0af68")
	errorColor   = lipgloss.Color("#f7768e")
	textColor    = lipgloss.Color("#c0caf5")
	dimColor     = lipgloss.Color("#565f89")
	borderColor  = lipgloss.Color("#414868")

	crumbStyle       = lipgloss.NewStyle().Foreground(dimColor)
	activeCrumbStyle = lipgloss.NewStyle().Foreground(primaryColor).Bold(true)

	headerStyle = lipgloss.NewStyle().
			Foreground(textColor).
			Bold(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(borderColor)

	rowStyle      = lipgloss.NewStyle().Foreground(textColor)
	cursorStyle   = lipgloss.NewStyle().Foreground(primaryColor).Bold(true)
	selectedStyle = lipgloss.NewStyle().Foreground(successColor)
	dragOverStyle = lipgloss.NewStyle().Foreground(warningColor).Bold(true).Underline(true)
	draggedStyle  = lipgloss.NewStyle().Foreground(dimColor).Italic(true)
	dimStyle      = lipgloss.NewStyle().Foreground(dimColor)
	errorStyle    = lipgloss.NewStyle().Foreground(errorColor).Bold(true)

	cellStyle = lipgloss.NewStyle().
			Width(18).
			Height(3).
			Padding(0, 1).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(borderColor)

	categoryColors = map[models.Category]lipgloss.Color{
		models.CategoryFolder:   lipgloss.Color("#7aa2f7"),
		models.CategoryImage:    lipgloss.Color("#9ece6a"),
		models.CategoryVideo:    lipgloss.Color("#bb9af7"),
		models.CategoryAudio:    lipgloss.Color("#e0af68"),
		models.CategoryDocument: lipgloss.Color("#f7768e"),
		models.CategoryArchive:  lipgloss.Color("#ff9e64"),
		models.CategoryCode:     lipgloss.Color("#7dcfff"),
		models.CategoryOther:    lipgloss.Color("#a9b1d6"),
	}

	categoryIcons = map[models.Category]string{
		models.CategoryFolder:   "▸",
		models.CategoryImage:    "▣",
		models.CategoryVideo:    "▶",
		models.CategoryAudio:    "♪",
		models.CategoryDocument: "≡",
		models.CategoryArchive:  "◫",
		models.CategoryCode:     "⌘",
		models.CategoryOther:    "·",
	}
)

// Render draws m in its view mode. cursor indexes m.Rows; -1 hides it.
func Render(m Model, width, cursor int) string {
	if m.Mode == navigator.ViewGrid {
		return RenderGrid(m, width, cursor)
	}
	return RenderList(m, width, cursor)
}

// RenderList draws a table with sortable headers.
func RenderList(m Model, width, cursor int) string {
	if width <= 0 {
		width = 80
	}
	nameWidth := width - 2 - 4 - 18 - 10 - 3
	if nameWidth < 12 {
		nameWidth = 12
	}

	var b strings.Builder
	b.WriteString(renderTop(m))
	b.WriteString("\n")

	var header []string
	for _, c := range m.Columns {
		header = append(header, c.Title+c.Indicator)
	}
	check := "[ ]"
	if m.AllSelected {
		check = "[x]"
	}
	b.WriteString(headerStyle.Render(fmt.Sprintf("  %s %-*s %-18s %10s", check, nameWidth, header[0], header[1], header[2])))
	b.WriteString("\n")

	for i, row := range m.Rows {
		mark := "[ ]"
		switch {
		case row.IsParent:
			mark = "   "
		case row.Selected:
			mark = "[x]"
		}

		label := truncate(row.Label, nameWidth-2)
		line := fmt.Sprintf("%s %s %-*s %-18s %10s", mark, icon(row), nameWidth-2, label, row.Modified, row.Size)

		prefix := "  "
		if i == cursor {
			prefix = cursorStyle.Render("> ")
		}
		b.WriteString(prefix + rowStyleFor(row).Render(line))
		b.WriteString("\n")
	}

	b.WriteString(renderFooter(m))
	return b.String()
}

// RenderGrid draws entries as tiles, as many per line as width allows.
func RenderGrid(m Model, width, cursor int) string {
	if width <= 0 {
		width = 80
	}
	perLine := width / (cellStyle.GetWidth() + 2)
	if perLine < 1 {
		perLine = 1
	}

	var b strings.Builder
	b.WriteString(renderTop(m))
	b.WriteString("\n")

	var line []string
	for i, row := range m.Rows {
		mark := ""
		if row.Selected {
			mark = "✓ "
		}
		body := fmt.Sprintf("%s%s\n%s", mark, icon(row), truncate(row.Label, cellStyle.GetWidth()-2))
		if row.Thumbnail {
			body += "\n" + dimStyle.Render("preview")
		} else if row.Size != "" && row.Size != "-" {
			body += "\n" + dimStyle.Render(row.Size)
		}

		style := cellStyle
		switch {
		case row.DragOver:
			style = style.BorderForeground(warningColor)
		case i == cursor:
			style = style.BorderForeground(primaryColor)
		case row.Selected:
			style = style.BorderForeground(successColor)
		}
		line = append(line, style.Render(rowStyleFor(row).Render(body)))

		if len(line) == perLine {
			b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, line...))
			b.WriteString("\n")
			line = nil
		}
	}
	if len(line) > 0 {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, line...))
		b.WriteString("\n")
	}

	b.WriteString(renderFooter(m))
	return b.String()
}

func renderTop(m Model) string {
	var parts []string
	for i, name := range m.Breadcrumbs {
		if i == len(m.Breadcrumbs)-1 {
			parts = append(parts, activeCrumbStyle.Render(name))
		} else {
			parts = append(parts, crumbStyle.Render(name))
		}
	}
	top := strings.Join(parts, crumbStyle.Render(" / "))
	if m.Query != "" {
		top += dimStyle.Render(fmt.Sprintf("   search: %s", m.Query))
	}
	return top
}

func renderFooter(m Model) string {
	var lines []string
	switch {
	case m.Error != "":
		lines = append(lines, errorStyle.Render(m.Error))
	case m.Loading:
		lines = append(lines, dimStyle.Render("Loading..."))
	case m.Empty != "":
		lines = append(lines, dimStyle.Render(m.Empty))
	}
	if m.SelectedCount > 0 {
		lines = append(lines, selectedStyle.Render(fmt.Sprintf("%d selected", m.SelectedCount)))
	}
	if m.UsageLine != "" {
		lines = append(lines, dimStyle.Render(m.UsageLine))
	}
	return strings.Join(lines, "\n")
}

func rowStyleFor(row Row) lipgloss.Style {
	switch {
	case row.DragOver:
		return dragOverStyle
	case row.Dragged:
		return draggedStyle
	case row.Selected:
		return selectedStyle
	case row.IsParent:
		return dimStyle
	}
	return rowStyle
}

func icon(row Row) string {
	color, ok := categoryColors[row.Category]
	if !ok {
		color = categoryColors[models.CategoryOther]
	}
	return lipgloss.NewStyle().Foreground(color).Render(categoryIcons[row.Category])
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 1 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
