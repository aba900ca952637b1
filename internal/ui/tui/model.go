package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	refreshv1 "github.com/noderefresh/node-refresh-operator/api/v1"
)

// Model is the Bubble Tea model for the refresh dashboard.
type Model struct {
	Name string

	// Latest observed state
	Status     refreshv1.NodeRefreshStatus
	Paused     bool
	Generation int64
	Fetched    bool
	LastFetch  time.Time

	// Animation
	SpinnerFrame int

	// UI state
	Width     int
	Height    int
	StartTime time.Time
	Err       error
	Done      bool

	// ExitOnFinish quits once the run reaches a terminal phase.
	ExitOnFinish bool

	now func() time.Time
}

// NewStatusModel creates a dashboard model for the named NodeRefresh.
func NewStatusModel(name string) Model {
	return Model{
		Name:      name,
		StartTime: time.Now(),
		now:       time.Now,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case StatusMsg:
		if msg.NotFound {
			m.Err = fmt.Errorf("NodeRefresh %q not found", m.Name)
			return m, tea.Quit
		}
		if msg.FetchErr != "" {
			m.Err = fmt.Errorf("failed to fetch refresh status: %s", msg.FetchErr)
			return m, tea.Quit
		}
		m.updateStatus(msg)
		if m.ExitOnFinish && m.Status.Phase.IsTerminal() {
			m.Done = true
			return m, tea.Quit
		}

	case TickMsg:
		m.SpinnerFrame++
		return m, tickCmd()

	case ErrMsg:
		m.Err = msg.Err
		return m, tea.Quit

	case DoneMsg:
		m.Done = true
		return m, tea.Quit
	}

	return m, nil
}

func (m *Model) updateStatus(msg StatusMsg) {
	m.Status = msg.Status
	m.Paused = msg.Paused
	m.Generation = msg.Generation
	m.Fetched = true
	m.LastFetch = m.clock()
}

func (m Model) clock() time.Time {
	if m.now == nil {
		return time.Now()
	}
	return m.now()
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// View implements tea.Model.
func (m Model) View() string {
	return renderView(m)
}
