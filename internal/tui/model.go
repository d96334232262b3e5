// Package tui provides the Bubble Tea workout player interface.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/tuibeat/internal/model"
	"github.com/verte-zerg/tuibeat/internal/stats"
)

// RefreshInterval is how often the player state is polled.
const RefreshInterval = 100 * time.Millisecond

const musicStep = 0.1

// Controls is the workout surface the player drives.
type Controls interface {
	Snapshot() model.PlayerState
	Settings() model.Settings
	MusicPlaying() bool
	Finished() <-chan struct{}
	ToggleRunning()
	TogglePause()
	NudgeBPM(delta int)
	ToggleCounting()
	CycleCountMax()
	CycleSound()
	ToggleMusic()
	SetMusicVolume(v float64)
}

type refreshMsg time.Time

type finishedMsg struct{}

var (
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	bpmStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	countStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A")).Bold(true)
	pausedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAAD14")).Bold(true)
	idleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C")).Bold(true)
	bannerStyle  = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 2).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#52C41A"))
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// Model implements the Bubble Tea player UI.
type Model struct {
	ctl  Controls
	keys keyMap
	help help.Model
	bar  progress.Model

	state    model.PlayerState
	settings model.Settings
	music    bool
	finished bool

	width  int
	height int
}

// NewModel constructs a player UI model.
func NewModel(ctl Controls) *Model {
	m := &Model{
		ctl:  ctl,
		keys: defaultKeyMap(),
		help: help.New(),
		bar:  progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
	}
	m.refresh()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(refreshCmd(), m.waitFinished())
}

func refreshCmd() tea.Cmd {
	return tea.Tick(RefreshInterval, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

func (m *Model) waitFinished() tea.Cmd {
	ch := m.ctl.Finished()
	return func() tea.Msg {
		<-ch
		return finishedMsg{}
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.bar.Width = max(10, min(msg.Width-8, 60))
		return m, nil
	case refreshMsg:
		m.refresh()
		return m, refreshCmd()
	case finishedMsg:
		m.finished = true
		m.refresh()
		return m, m.waitFinished()
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.StartStop):
		m.finished = false
		m.ctl.ToggleRunning()
	case key.Matches(msg, m.keys.Pause):
		m.ctl.TogglePause()
	case key.Matches(msg, m.keys.Faster):
		m.ctl.NudgeBPM(1)
	case key.Matches(msg, m.keys.Slower):
		m.ctl.NudgeBPM(-1)
	case key.Matches(msg, m.keys.Faster10):
		m.ctl.NudgeBPM(10)
	case key.Matches(msg, m.keys.Slower10):
		m.ctl.NudgeBPM(-10)
	case key.Matches(msg, m.keys.Count):
		m.ctl.ToggleCounting()
	case key.Matches(msg, m.keys.CountMax):
		m.ctl.CycleCountMax()
	case key.Matches(msg, m.keys.Sound):
		m.ctl.CycleSound()
	case key.Matches(msg, m.keys.Music):
		m.ctl.ToggleMusic()
	case key.Matches(msg, m.keys.MusicUp):
		m.ctl.SetMusicVolume(m.settings.BackgroundMusicVolume + musicStep)
	case key.Matches(msg, m.keys.MusicDown):
		m.ctl.SetMusicVolume(m.settings.BackgroundMusicVolume - musicStep)
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	default:
		return nil
	}
	m.refresh()
	return nil
}

func (m *Model) refresh() {
	m.state = m.ctl.Snapshot()
	m.settings = m.ctl.Settings()
	m.music = m.ctl.MusicPlaying()
}

// View implements tea.Model.
func (m *Model) View() string {
	lines := []string{
		titleStyle.Render("tuibeat") + "  " + renderStatus(m.state.Status),
		"",
		bpmStyle.Render(fmt.Sprintf("%d BPM", m.state.CurrentBPM)),
	}
	if m.settings.EnableCount {
		count := "-"
		if m.state.CurrentCount > 0 {
			count = fmt.Sprintf("%d", m.state.CurrentCount)
		}
		lines = append(lines, countStyle.Render(count)+labelStyle.Render(fmt.Sprintf(" / %d", m.settings.CountMax)))
	}
	lines = append(lines, "", m.renderTime())
	if m.state.TimerMode {
		lines = append(lines, m.bar.ViewAs(timerProgress(m.state, m.settings)))
	}
	if m.finished {
		lines = append(lines, "", bannerStyle.Render("Workout complete!"))
	}
	lines = append(lines, "", m.renderFooter(), "", m.help.View(m.keys))
	content := strings.Join(lines, "\n")
	if m.width == 0 || m.height == 0 {
		return content
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

func renderStatus(status model.SessionStatus) string {
	switch status {
	case model.StatusRunning:
		return runningStyle.Render("● playing")
	case model.StatusPaused:
		return pausedStyle.Render("Ⅱ paused")
	}
	return idleStyle.Render("■ stopped")
}

func (m *Model) renderTime() string {
	elapsed := labelStyle.Render("Elapsed ") + stats.FormatDuration(m.state.ElapsedSeconds)
	if !m.state.TimerMode {
		return elapsed
	}
	return elapsed + labelStyle.Render("   Remaining ") + stats.FormatDuration(m.state.RemainingSeconds)
}

func timerProgress(st model.PlayerState, s model.Settings) float64 {
	total := s.TimerDuration * 60
	if total <= 0 {
		return 0
	}
	done := 1 - float64(st.RemainingSeconds)/float64(total)
	return max(0, min(1, done))
}

func (m *Model) renderFooter() string {
	segments := []string{fmt.Sprintf("Sound %s", m.settings.SoundType)}
	if m.settings.EnableCount {
		segments = append(segments, fmt.Sprintf("Count 1-%d %s", m.settings.CountMax, m.settings.VoiceLanguage))
	} else {
		segments = append(segments, "Count off")
	}
	if m.settings.TimerMode {
		segments = append(segments, fmt.Sprintf("Timer %dm", m.settings.TimerDuration))
	}
	switch {
	case m.music:
		segments = append(segments, fmt.Sprintf("Music %.0f%%", m.settings.BackgroundMusicVolume*100))
	case m.settings.BackgroundMusicEnabled:
		segments = append(segments, "Music (no tracks)")
	default:
		segments = append(segments, "Music off")
	}
	return footerStyle.Render(strings.Join(segments, "  ·  "))
}
