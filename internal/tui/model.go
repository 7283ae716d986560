// Package tui is the interactive terminal browser. It drives the
// navigator and the drag-move controller and renders with the view package.
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ngenohkevin/hivedeck-drive/internal/dragmove"
	"github.com/ngenohkevin/hivedeck-drive/internal/drive"
	"github.com/ngenohkevin/hivedeck-drive/internal/files"
	"github.com/ngenohkevin/hivedeck-drive/internal/models"
	"github.com/ngenohkevin/hivedeck-drive/internal/navigator"
	"github.com/ngenohkevin/hivedeck-drive/internal/notify"
	"github.com/ngenohkevin/hivedeck-drive/internal/sortutil"
	"github.com/ngenohkevin/hivedeck-drive/internal/view"
)

type inputMode int

const (
	inputNone inputMode = iota
	inputSearch
	inputFolderName
	inputConfirmDelete
	inputUploadPath
)

// doneMsg reports the end of a navigator call.
type doneMsg struct {
	err error
}

// usageMsg carries refreshed storage statistics.
type usageMsg struct {
	usage models.Usage
	err   error
}

var (
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ece6a")).Bold(true)
	promptStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#7aa2f7"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#565f89"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ece6a"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#e0af68"))
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#f7768e"))
)

// Model is the bubbletea model of the browser.
type Model struct {
	ctx     context.Context
	nav     *navigator.Navigator
	drag    *dragmove.Controller
	notices *notify.Queue

	downloadDir string

	cursor int
	width  int
	mode   inputMode
	input  string
	usage  *models.Usage
	busy   bool
}

// New creates the browser model. Downloads are saved into downloadDir.
func New(ctx context.Context, nav *navigator.Navigator, drag *dragmove.Controller, notices *notify.Queue, downloadDir string) Model {
	if downloadDir == "" {
		downloadDir = "."
	}
	return Model{ctx: ctx, nav: nav, drag: drag, notices: notices, downloadDir: downloadDir, width: 100}
}

// Init fetches the root.
func (m Model) Init() tea.Cmd {
	return m.run(m.nav.Start)
}

// run executes a navigator call off the event loop.
func (m Model) run(fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return doneMsg{err: fn(ctx)}
	}
}

func (m Model) fetchUsage() tea.Cmd {
	ctx, nav := m.ctx, m.nav
	return func() tea.Msg {
		u, err := nav.Usage(ctx)
		return usageMsg{usage: u, err: err}
	}
}

func (m Model) viewModel() view.Model {
	return view.Build(view.Input{Snapshot: m.nav.Snapshot(), Drag: m.drag.State(), Usage: m.usage})
}

func (m Model) rowAtCursor() (view.Row, bool) {
	rows := m.viewModel().Rows
	if m.cursor < 0 || m.cursor >= len(rows) {
		return view.Row{}, false
	}
	return rows[m.cursor], true
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case doneMsg:
		m.busy = false
		m.clampCursor()
		if m.usage == nil {
			return m, m.fetchUsage()
		}
		return m, nil

	case usageMsg:
		if msg.err == nil {
			u := msg.usage
			m.usage = &u
		}
		return m, nil

	case tea.KeyMsg:
		if m.mode != inputNone {
			return m.updateInput(msg)
		}
		return m.updateBrowse(msg)
	}

	return m, nil
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		m.hoverCursor()
		return m, nil

	case "down", "j":
		if m.cursor < len(m.viewModel().Rows)-1 {
			m.cursor++
		}
		m.hoverCursor()
		return m, nil

	case "enter", "l":
		row, ok := m.rowAtCursor()
		if !ok || row.Kind != models.KindFolder {
			return m, nil
		}
		m.cursor = 0
		m.busy = true
		id := row.ID
		if row.IsParent {
			return m, m.run(m.nav.GoToParent)
		}
		return m, m.run(func(ctx context.Context) error { return m.nav.OpenFolderByID(ctx, id) })

	case "backspace", "h":
		m.cursor = 0
		m.busy = true
		return m, m.run(m.nav.GoToParent)

	case "g":
		m.cursor = 0
		m.busy = true
		return m, m.run(m.nav.ResetToRoot)

	case "r":
		m.busy = true
		return m, m.run(m.nav.Refresh)

	case " ":
		if row, ok := m.rowAtCursor(); ok && !row.IsParent {
			m.nav.Toggle(row.ID)
		}
		return m, nil

	case "a":
		m.nav.SelectAll()
		return m, nil

	case "1":
		m.nav.ToggleSort(sortutil.FieldName)
		return m, nil
	case "2":
		m.nav.ToggleSort(sortutil.FieldModified)
		return m, nil
	case "3":
		m.nav.ToggleSort(sortutil.FieldSize)
		return m, nil

	case "v":
		if m.nav.Snapshot().Mode == navigator.ViewGrid {
			m.nav.SetViewMode(navigator.ViewList)
		} else {
			m.nav.SetViewMode(navigator.ViewGrid)
		}
		return m, nil

	case "/":
		m.mode = inputSearch
		m.input = m.nav.Snapshot().Query
		return m, nil

	case "n":
		m.mode = inputFolderName
		m.input = ""
		return m, nil

	case "D":
		if len(m.nav.Snapshot().Selected) > 0 {
			m.mode = inputConfirmDelete
		} else {
			// Let the navigator report the empty selection
			return m, m.run(m.nav.DeleteSelected)
		}
		return m, nil

	case "u":
		m.mode = inputUploadPath
		m.input = ""
		return m, nil

	case "d":
		m.busy = true
		return m, m.run(m.download)

	case "m":
		if row, ok := m.rowAtCursor(); ok && !row.IsParent {
			m.drag.DragStart(row.ID, row.Kind)
		}
		return m, nil

	case "p":
		p, ok := m.drag.Current()
		if !ok {
			return m, nil
		}
		row, ok := m.rowAtCursor()
		if !ok || row.Kind != models.KindFolder {
			return m, nil
		}
		target := row.ID
		m.busy = true
		return m, m.run(func(ctx context.Context) error { return m.drag.Drop(ctx, p, target) })

	case "P":
		p, ok := m.drag.Current()
		if !ok {
			return m, nil
		}
		m.busy = true
		return m, m.run(func(ctx context.Context) error { return m.drag.DropOnList(ctx, p) })

	case "esc":
		m.drag.DragEnd()
		return m, nil
	}

	return m, nil
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.mode == inputConfirmDelete {
		m.mode = inputNone
		if msg.String() == "y" {
			m.busy = true
			return m, m.run(m.nav.DeleteSelected)
		}
		return m, nil
	}

	switch msg.Type {
	case tea.KeyEsc:
		if m.mode == inputSearch {
			m.nav.SetQuery("")
		}
		m.mode = inputNone
		m.input = ""
		return m, nil

	case tea.KeyEnter:
		mode, name := m.mode, m.input
		m.mode = inputNone
		m.input = ""
		switch mode {
		case inputFolderName:
			m.busy = true
			return m, m.run(func(ctx context.Context) error {
				_, err := m.nav.CreateFolder(ctx, name)
				return err
			})
		case inputUploadPath:
			m.busy = true
			return m, m.run(func(ctx context.Context) error { return m.upload(ctx, name) })
		}
		return m, nil

	case tea.KeyBackspace:
		if r := []rune(m.input); len(r) > 0 {
			m.input = string(r[:len(r)-1])
		}

	case tea.KeySpace:
		m.input += " "

	case tea.KeyRunes:
		m.input += string(msg.Runes)

	default:
		return m, nil
	}

	if m.mode == inputSearch {
		m.nav.SetQuery(m.input)
		m.cursor = 0
	}
	return m, nil
}

// upload sends one local file into the current folder.
func (m Model) upload(ctx context.Context, path string) error {
	batch, err := files.Open([]string{strings.TrimSpace(path)})
	if err != nil {
		m.notices.Failure(drive.OpUpload, err)
		return err
	}
	defer batch.Close()

	return m.nav.Upload(ctx, batch.Uploads())
}

// download saves the selection into the download directory.
func (m Model) download(ctx context.Context) error {
	dl, err := m.nav.DownloadSelected(ctx)
	if err != nil {
		return err
	}

	saved, err := files.Save(dl, m.downloadDir)
	if err != nil {
		m.notices.Failure(drive.OpDownload, err)
		return err
	}
	m.notices.Success(drive.OpDownload, fmt.Sprintf("Saved %s", saved.Path))
	return nil
}

// hoverCursor mirrors a drag-over on the folder under the cursor.
func (m *Model) hoverCursor() {
	p, ok := m.drag.Current()
	if !ok {
		return
	}
	if row, ok := m.rowAtCursor(); ok && row.Kind == models.KindFolder {
		m.drag.DragOver(p, row.ID)
	}
}

func (m *Model) clampCursor() {
	rows := len(m.viewModel().Rows)
	if m.cursor >= rows {
		m.cursor = rows - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// View renders the browser.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("hivedeck drive"))
	b.WriteString("\n\n")
	b.WriteString(view.Render(m.viewModel(), m.width, m.cursor))
	b.WriteString("\n")
	if m.busy {
		b.WriteString(helpStyle.Render("working..."))
		b.WriteString("\n")
	}

	switch m.mode {
	case inputSearch:
		b.WriteString(promptStyle.Render("search: ") + m.input + "█\n")
	case inputFolderName:
		b.WriteString(promptStyle.Render("new folder: ") + m.input + "█\n")
	case inputUploadPath:
		b.WriteString(promptStyle.Render("upload file: ") + m.input + "█\n")
	case inputConfirmDelete:
		n := len(m.nav.Snapshot().Selected)
		b.WriteString(promptStyle.Render(fmt.Sprintf("delete %d item(s)? [y/N] ", n)))
		b.WriteString("\n")
	}

	if st := m.drag.State(); st.Dragging && st.DraggedID != nil {
		b.WriteString(infoStyle.Render(fmt.Sprintf("moving item %d: pick a folder and press p, esc to cancel", *st.DraggedID)))
		b.WriteString("\n")
	}

	if n, ok := m.notices.Last(); ok {
		b.WriteString(noticeStyle(n.Level).Render(n.Message))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("j/k move • enter open • h up • g root • space select • a all • 1/2/3 sort • v view • / search • n folder • u upload • d download • D delete • m/p/P move • r refresh • q quit"))
	return b.String()
}

func noticeStyle(level notify.Level) lipgloss.Style {
	switch level {
	case notify.LevelSuccess:
		return successStyle
	case notify.LevelInfo:
		return infoStyle
	}
	return failureStyle
}

// Run starts the browser on the terminal.
func Run(ctx context.Context, nav *navigator.Navigator, drag *dragmove.Controller, notices *notify.Queue, downloadDir string) error {
	p := tea.NewProgram(New(ctx, nav, drag, notices, downloadDir), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
