// Copyright (c) 2026 Marco Reyes (marcoreyes). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// VideoConv - conversión y compresión de vídeo con FFmpeg

// Package tui implements the interactive session: pick a file, pick a
// target format and mode, watch the engine work. It is one input provider
// among others; scripted invocations bypass it entirely via CLI flags.
package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/marcoreyes/videoconv/internal/convert"
)

var (
	appStyle = lipgloss.NewStyle().Margin(1, 2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1).
			Bold(true)

	stepStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4")).Bold(true)
	errStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555")).Bold(true)
	doneStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#50FA7B")).Bold(true)
	hintStyle = lipgloss.NewStyle().Faint(true)

	selectedItemStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	itemStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	barFullStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))
	barEmptyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

type uiState int

const (
	statePickFile uiState = iota
	statePickFormat
	statePickMode
	statePickQuality
	stateConverting
	stateDone
	stateError
)

var modeOptions = []struct {
	Mode  convert.Mode
	Label string
}{
	{convert.ModeConvert, "Convert (remux only, fast, keeps quality)"},
	{convert.ModeCompress, "Compress (re-encode, smaller file)"},
}

type progressMsg convert.Snapshot

type doneMsg struct {
	result convert.Result
	err    error
}

type model struct {
	conv *convert.Converter

	state     uiState
	textInput textinput.Model
	spinner   spinner.Model
	err       error

	// discovered media files in the working directory, for quick picking
	candidates []string
	selected   int

	input    string
	format   int
	mode     int
	quality  int

	progressChan chan progressMsg
	cancel       context.CancelFunc
	cancelling   bool
	snapshot     convert.Snapshot
	result       convert.Result

	formats   []string
	qualities []string
}

func initialModel(conv *convert.Converter, startDir string) model {
	ti := textinput.New()
	ti.CharLimit = 1000
	ti.Width = 60
	ti.Placeholder = "Path to a video file, or pick one below…"
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	candidates, _ := convert.Discover(startDir)

	return model{
		conv:       conv,
		state:      statePickFile,
		textInput:  ti,
		spinner:    sp,
		candidates: candidates,
		formats:    convert.FormatNames(),
		qualities:  convert.QualityNames(),
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
			if m.state == stateConverting && m.cancel != nil {
				// primero cancelar el proceso, luego salir
				m.cancelling = true
				m.cancel()
				return m, nil
			}
			return m, tea.Quit
		}

		switch m.state {
		case statePickFile:
			switch msg.String() {
			case "up":
				if m.selected > 0 {
					m.selected--
				}
				return m, nil
			case "down":
				if m.selected < len(m.candidates)-1 {
					m.selected++
				}
				return m, nil
			case "enter":
				path := strings.TrimSpace(m.textInput.Value())
				if path == "" && len(m.candidates) > 0 {
					path = m.candidates[m.selected]
				}
				if err := convert.ValidateInput(path); err != nil {
					m.err = err
					return m, nil
				}
				m.input = path
				m.err = nil
				m.state = statePickFormat
				m.textInput.Blur()
				return m, nil
			}

		case statePickFormat:
			switch msg.String() {
			case "up", "k":
				if m.format > 0 {
					m.format--
				}
			case "down", "j":
				if m.format < len(m.formats)-1 {
					m.format++
				}
			case "enter":
				m.state = statePickMode
			}
			return m, nil

		case statePickMode:
			switch msg.String() {
			case "up", "k":
				if m.mode > 0 {
					m.mode--
				}
			case "down", "j":
				if m.mode < len(modeOptions)-1 {
					m.mode++
				}
			case "enter":
				if modeOptions[m.mode].Mode == convert.ModeCompress {
					m.state = statePickQuality
					return m, nil
				}
				return m.startConversion()
			}
			return m, nil

		case statePickQuality:
			switch msg.String() {
			case "up", "k":
				if m.quality > 0 {
					m.quality--
				}
			case "down", "j":
				if m.quality < len(m.qualities)-1 {
					m.quality++
				}
			case "enter":
				return m.startConversion()
			}
			return m, nil
		}

	case progressMsg:
		m.snapshot = convert.Snapshot(msg)
		return m, waitForProgress(m.progressChan)

	case doneMsg:
		close(m.progressChan)
		if msg.err != nil {
			m.state = stateError
			m.err = msg.err
		} else {
			m.state = stateDone
			m.result = msg.result
		}
		return m, tea.Quit

	case spinner.TickMsg:
		if m.state == stateConverting {
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
	}

	if m.state == statePickFile {
		m.textInput, cmd = m.textInput.Update(msg)
	}

	return m, cmd
}

func (m model) startConversion() (tea.Model, tea.Cmd) {
	req := convert.Request{
		Input:  m.input,
		Format: m.formats[m.format],
		Mode:   modeOptions[m.mode].Mode,
	}
	if req.Mode == convert.ModeCompress {
		req.Quality = m.qualities[m.quality]
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.progressChan = make(chan progressMsg, 8)
	m.state = stateConverting

	return m, tea.Batch(
		m.spinner.Tick,
		runConversion(ctx, m.conv, req, m.progressChan),
		waitForProgress(m.progressChan),
	)
}

// runConversion drives the converter in a background command. Progress
// snapshots flow through ch; the final result arrives as doneMsg.
func runConversion(ctx context.Context, conv *convert.Converter, req convert.Request, ch chan progressMsg) tea.Cmd {
	return func() tea.Msg {
		result, err := conv.Convert(ctx, req, func(s convert.Snapshot) {
			select {
			case ch <- progressMsg(s):
			default: // drop snapshots the UI hasn't consumed yet
			}
		})
		return doneMsg{result: result, err: err}
	}
}

func waitForProgress(sub <-chan progressMsg) tea.Cmd {
	return func() tea.Msg {
		if msg, ok := <-sub; ok {
			return msg
		}
		return nil
	}
}

func (m model) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" VideoConv "))
	s.WriteString("\n\n")

	if m.err != nil && m.state != stateError {
		s.WriteString(errStyle.Render(fmt.Sprintf("ERROR: %v", m.err)))
		s.WriteString("\n\n")
	}

	switch m.state {
	case statePickFile:
		s.WriteString(stepStyle.Render("1. Select input video"))
		s.WriteString("\n\n")
		s.WriteString(m.textInput.View())
		s.WriteString("\n")
		if len(m.candidates) > 0 {
			s.WriteString(hintStyle.Render("\nFound nearby (↑/↓ then Enter):\n"))
			for i, c := range m.candidates {
				cursor, style := "  ", itemStyle
				if i == m.selected {
					cursor, style = "> ", selectedItemStyle
				}
				s.WriteString(style.Render(cursor+filepath.Base(c)) + "\n")
			}
		}

	case statePickFormat:
		s.WriteString(stepStyle.Render("2. Target format"))
		s.WriteString(fmt.Sprintf("\nFile: %s\n\n", filepath.Base(m.input)))
		for i, f := range m.formats {
			cursor, style := "  ", itemStyle
			if i == m.format {
				cursor, style = "> ", selectedItemStyle
			}
			s.WriteString(style.Render(cursor+f) + "\n")
		}

	case statePickMode:
		s.WriteString(stepStyle.Render("3. Mode"))
		s.WriteString("\n\n")
		for i, o := range modeOptions {
			cursor, style := "  ", itemStyle
			if i == m.mode {
				cursor, style = "> ", selectedItemStyle
			}
			s.WriteString(style.Render(cursor+o.Label) + "\n")
		}

	case statePickQuality:
		s.WriteString(stepStyle.Render("4. Quality preset"))
		s.WriteString("\n\n")
		for i, q := range m.qualities {
			cursor, style := "  ", itemStyle
			if i == m.quality {
				cursor, style = "> ", selectedItemStyle
			}
			s.WriteString(style.Render(cursor+q) + "\n")
		}

	case stateConverting:
		label := "Converting…"
		if m.cancelling {
			label = "Cancelling…"
		}
		s.WriteString(stepStyle.Render(label))
		s.WriteString("\n\n")
		s.WriteString(fmt.Sprintf("%s %s %.0f%%\n\n", m.spinner.View(), renderBar(m.snapshot.Progress.Percent), m.snapshot.Progress.Percent))
		s.WriteString(hintStyle.Render(fmt.Sprintf(
			"time %.0fs   speed %.1fx   cpu %.0f%%   mem %d MB",
			m.snapshot.Progress.Time,
			m.snapshot.Progress.Speed,
			m.snapshot.CPU,
			m.snapshot.Memory/(1024*1024),
		)))
		s.WriteString(hintStyle.Render("\n\nCtrl+C cancels and removes the partial file."))

	case stateDone:
		s.WriteString(doneStyle.Render("Success!"))
		s.WriteString(fmt.Sprintf("\n\nSaved to:\n%s", m.result.OutputPath))

	case stateError:
		s.WriteString(errStyle.Render("Failed."))
		if m.err != nil {
			s.WriteString(fmt.Sprintf("\n\n%v", m.err))
		}
	}

	return appStyle.Render(s.String())
}

func renderBar(percent float64) string {
	const width = 40
	filled := int(percent / 100 * width)
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}
	return barFullStyle.Render(strings.Repeat("█", filled)) +
		barEmptyStyle.Render(strings.Repeat("░", width-filled))
}

// Run launches the interactive session and blocks until it finishes.
// Returns a non-nil error when the conversion failed or was cancelled, so
// the caller can map it to an exit code.
func Run(conv *convert.Converter, startDir string) error {
	m := initialModel(conv, startDir)

	final, err := tea.NewProgram(m).Run()
	if err != nil {
		return err
	}

	fm, ok := final.(model)
	if !ok {
		return nil
	}
	if fm.state == stateError {
		return fm.err
	}
	if fm.state == stateConverting || fm.cancelling {
		return convert.ErrCancelled
	}
	return nil
}
