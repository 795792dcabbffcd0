package main

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ptt/session"
)

type stateMsg struct {
	State session.State
	At    time.Time
}
type targetMsg struct{ Label string }
type reportMsg session.Report
type modeLineMsg struct{ Text string }
type deviceLineMsg struct{ Text string }
type tickMsg time.Time

type tuiModel struct {
	state      session.State
	since      time.Time
	target     string
	frame      int
	level      float64
	peak       float64
	levelFn    func() float64
	width      int
	height     int
	hotkey     string
	modeLine   string
	deviceLine string
	last       *session.Report
	count      int
}

// palettes indexed by colour slot; 0 is transparent.
var (
	paletteIdle       = []string{"", "231", "224", "217", "210", "160", "124", "88", "52", "236", "236", "236", "236", "236", "255", "249"}
	paletteRecording  = []string{"", "226", "220", "214", "208", "196", "160", "124", "88", "52", "236", "236", "236", "236", "255", "249"}
	paletteProcessing = []string{"", "230", "229", "222", "215", "208", "172", "136", "94", "58", "236", "236", "236", "236", "255", "249"}
)

type eyeStyles struct {
	fg [16]lipgloss.Style
	bg [16][16]lipgloss.Style
}

var eyeByState = map[session.State]*eyeStyles{
	session.Idle:       newEyeStyles(paletteIdle),
	session.Recording:  newEyeStyles(paletteRecording),
	session.Processing: newEyeStyles(paletteProcessing),
}

func newEyeStyles(palette []string) *eyeStyles {
	s := &eyeStyles{}
	for i, fg := range palette {
		if fg == "" {
			continue
		}
		s.fg[i] = lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
		for j, bg := range palette {
			if bg != "" {
				s.bg[i][j] = lipgloss.NewStyle().Foreground(lipgloss.Color(fg)).Background(lipgloss.Color(bg))
			}
		}
	}
	return s
}

func newTUIProgram(hotkeyLabel string, level func() float64) *tea.Program {
	m := tuiModel{hotkey: hotkeyLabel, levelFn: level}
	return tea.NewProgram(m, tea.WithAltScreen())
}

// tuiSink forwards queue events to the running program.
type tuiSink struct{ p *tea.Program }

func (s tuiSink) HandleEvent(e session.Event) {
	switch e.Kind {
	case session.EventState:
		s.p.Send(stateMsg{State: e.State, At: e.At})
	case session.EventLabel, session.EventTarget:
		s.p.Send(targetMsg{Label: e.Label})
	}
}

func tuiTick() tea.Cmd {
	return tea.Tick(60*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	return tuiTick()
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}

	case tickMsg:
		m.frame++
		if m.state == session.Recording && m.levelFn != nil {
			l := m.levelFn()
			m.level = m.level*0.6 + l*0.4
			m.peak = math.Max(m.peak, l)
		} else {
			m.level = 0
		}
		return m, tuiTick()

	case stateMsg:
		m.state = msg.State
		m.since = msg.At
		if msg.State == session.Recording {
			m.peak = 0
		}
		if msg.State == session.Idle {
			m.target = ""
		}

	case targetMsg:
		m.target = msg.Label

	case reportMsg:
		r := session.Report(msg)
		m.last = &r
		m.count++

	case modeLineMsg:
		m.modeLine = msg.Text

	case deviceLineMsg:
		m.deviceLine = msg.Text
	}
	return m, nil
}

var (
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	faintStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	recStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	procStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	textStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
)

func (m tuiModel) statusLines() []string {
	var lines []string
	elapsed := time.Since(m.since).Seconds()
	switch m.state {
	case session.Recording:
		lines = append(lines, recStyle.Render(fmt.Sprintf("● REC %.1fs", elapsed)))
		if elapsed > 1.0 && m.peak < 0.02 {
			lines = append(lines, warnStyle.Render("  ⚠ no voice detected"))
		}
	case session.Processing:
		lines = append(lines, procStyle.Render("◐ PROCESSING"))
	default:
		lines = append(lines, dimStyle.Render("○ STANDBY"))
	}
	if m.target != "" {
		lines = append(lines, dimStyle.Render("→ "+m.target))
	}
	for _, l := range []string{m.modeLine, m.deviceLine} {
		if l != "" {
			lines = append(lines, dimStyle.Render(l))
		}
	}
	lines = append(lines, "",
		faintStyle.Bold(true).Render(m.hotkey)+faintStyle.Render(" hold to dictate, q quits"),
		faintStyle.Render("ptt "+version))
	return lines
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	const eyeWidth = 45
	eye := renderEye(m.frame, m.level, m.state)
	for _, line := range m.statusLines() {
		eye += line + "\n"
	}
	eyeLines := strings.Split(eye, "\n")

	logWidth := max(m.width-eyeWidth-1, 20)
	wrapWidth := max(logWidth-2, 10)

	var panel strings.Builder
	if r := m.last; r != nil {
		panel.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("246")).
			Render(fmt.Sprintf("Last transcription (#%d, %.1fs → %s)", m.count, r.Audio.Seconds(), r.Target.Label)))
		panel.WriteString("\n\n")
		if r.Text == "" {
			panel.WriteString(warnStyle.Render("(" + strings.ReplaceAll(r.Outcome, "_", " ") + ")"))
			panel.WriteString("\n")
		}
		for _, line := range wrapText(r.Text, wrapWidth) {
			if line != "" {
				panel.WriteString(textStyle.Render(line) + "\n")
			}
		}
		if len(r.Metrics) > 0 {
			panel.WriteString("\n")
			for _, l := range r.Metrics {
				panel.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("243")).Render(l) + "\n")
			}
		}
	} else {
		panel.WriteString(dimStyle.Render("No transcriptions yet"))
	}

	logPanel := lipgloss.NewStyle().
		Width(logWidth).
		Height(m.height).
		PaddingLeft(1).
		Render(panel.String())

	eyePadded := make([]string, m.height)
	for i := range eyePadded {
		if i < len(eyeLines) {
			eyePadded[i] = eyeLines[i]
		} else {
			eyePadded[i] = strings.Repeat(" ", eyeWidth-1)
		}
	}
	eyePanel := lipgloss.NewStyle().
		Width(eyeWidth - 1).
		Height(m.height).
		Render(strings.Join(eyePadded, "\n"))

	return lipgloss.JoinHorizontal(lipgloss.Top, eyePanel, logPanel)
}

// renderEye draws concentric rings in half-block characters. While
// recording the rings breathe with the input level; while processing they
// spin slowly.
func renderEye(frame int, level float64, state session.State) string {
	const charsW = 44
	const charsH = 15
	const pixW = charsW
	const pixH = charsH * 2

	centerX := float64(pixW) / 2
	centerY := float64(pixH) / 2

	var breathe float64
	switch state {
	case session.Recording:
		breathe = math.Sin(float64(frame)*0.10)*0.03 + level*10.0 - 0.05
	case session.Processing:
		breathe = math.Sin(float64(frame)*0.25)*0.05 - 0.03
	default:
		breathe = math.Sin(float64(frame)*0.08)*0.02 - 0.05
	}

	type ring struct {
		radius     float64
		breatheAmt float64
		colorIdx   int
	}
	rings := []ring{
		{0.6, 0.10, 1}, {1.3, 0.12, 2}, {2.0, 0.15, 3},
		{2.8, 0.35, 4}, {3.5, 0.40, 5}, {4.2, 0.38, 6},
		{5.0, 0.30, 7}, {5.8, 0.15, 8}, {6.5, 0.03, 9},
		{7.2, 0, 10}, {8.0, 0, 11}, {10.0, 0, 12}, {12.0, 0, 13},
	}

	pixels := make([][]int, pixH)
	for y := range pixels {
		pixels[y] = make([]int, pixW)
		for x := range pixels[y] {
			dist := math.Hypot(float64(x)-centerX, float64(y)-centerY)
			for _, r := range rings {
				if dist < math.Min(r.radius+breathe*r.breatheAmt*20, 10) {
					pixels[y][x] = r.colorIdx
					break
				}
			}
		}
	}

	// a highlight orbiting the rim while processing
	if state == session.Processing {
		a := float64(frame) * 0.2
		hx, hy := centerX+math.Cos(a)*8.5, centerY+math.Sin(a)*8.5
		for y := range pixels {
			for x := range pixels[y] {
				if math.Hypot(float64(x)-hx, float64(y)-hy) < 1.2 {
					pixels[y][x] = 14
				}
			}
		}
	}

	st := eyeByState[state]
	if st == nil {
		st = eyeByState[session.Idle]
	}

	var out strings.Builder
	for cy := 0; cy < charsH; cy++ {
		for cx := 0; cx < charsW; cx++ {
			top, bot := pixels[cy*2][cx], pixels[cy*2+1][cx]
			switch {
			case top == 0 && bot == 0:
				out.WriteString(" ")
			case top == bot:
				out.WriteString(st.fg[top].Render("█"))
			case bot == 0:
				out.WriteString(st.fg[top].Render("▀"))
			case top == 0:
				out.WriteString(st.fg[bot].Render("▄"))
			default:
				out.WriteString(st.bg[top][bot].Render("▀"))
			}
		}
		out.WriteString("\n")
	}
	return out.String()
}

func wrapText(text string, width int) []string {
	if len(text) == 0 {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}

	var lines []string
	for len(text) > width {
		splitAt := width
		for i := width; i > 0; i-- {
			if text[i] == ' ' {
				splitAt = i
				break
			}
		}
		lines = append(lines, text[:splitAt])
		text = strings.TrimLeft(text[splitAt:], " ")
	}
	if len(text) > 0 {
		lines = append(lines, text)
	}
	return lines
}
