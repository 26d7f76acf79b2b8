// SPDX-License-Identifier: MIT
package tui

import (
	"context"
	"fmt"
	"strings"

	"capture/internal/device"
	"capture/internal/media"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A0A0A0")).
			Underline(true)

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)
)

var (
	keyQuit   = key.NewBinding(key.WithKeys("q", "ctrl+c"))
	keyUp     = key.NewBinding(key.WithKeys("up", "k"))
	keyDown   = key.NewBinding(key.WithKeys("down", "j"))
	keyReload = key.NewBinding(key.WithKeys("r"))
	keySelect = key.NewBinding(key.WithKeys("enter"))
)

// Loader produces the device lists. *device.Enumerator implements it.
type Loader interface {
	Reload(ctx context.Context) device.Lists
}

// section is one titled group of rows.
type section struct {
	title   string
	devices []media.DeviceInfo
}

// DeviceListModel is the Bubble Tea model of the device browser. Only audio
// inputs can be selected.
type DeviceListModel struct {
	loader   Loader
	ctx      context.Context
	lists    device.Lists
	loaded   bool
	loading  bool
	cursor   int
	selected *media.DeviceInfo

	viewport viewport.Model
	ready    bool
}

type devicesMsg struct {
	lists device.Lists
}

// NewDeviceListModel returns a model that loads devices through l.
func NewDeviceListModel(ctx context.Context, l Loader) DeviceListModel {
	return DeviceListModel{loader: l, ctx: ctx, lists: device.Empty(), loading: true}
}

func (m DeviceListModel) Init() tea.Cmd {
	return m.fetchDevices
}

func (m DeviceListModel) fetchDevices() tea.Msg {
	return devicesMsg{lists: m.loader.Reload(m.ctx)}
}

// Selected returns the chosen input device, if the user picked one.
func (m DeviceListModel) Selected() (media.DeviceInfo, bool) {
	if m.selected == nil {
		return media.DeviceInfo{}, false
	}
	return *m.selected, true
}

func (m DeviceListModel) sections() []section {
	return []section{
		{"Audio inputs", m.lists.AudioInputs},
		{"Video inputs", m.lists.VideoInputs},
		{"Audio outputs", m.lists.AudioOutputs},
	}
}

func (m DeviceListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.viewport.Style = lipgloss.NewStyle()
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}
		m.viewport.SetContent(m.renderDevices())

	case devicesMsg:
		m.lists = msg.lists
		m.loaded, m.loading = true, false
		if m.cursor >= len(m.lists.AudioInputs) {
			m.cursor = max(0, len(m.lists.AudioInputs)-1)
		}
		m.viewport.SetContent(m.renderDevices())

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keyQuit):
			return m, tea.Quit

		case key.Matches(msg, keyUp):
			if m.cursor > 0 {
				m.cursor--
			}

		case key.Matches(msg, keyDown):
			if m.cursor < len(m.lists.AudioInputs)-1 {
				m.cursor++
			}

		case key.Matches(msg, keyReload):
			if !m.loading {
				m.loading = true
				cmds = append(cmds, m.fetchDevices)
			}

		case key.Matches(msg, keySelect):
			if m.cursor < len(m.lists.AudioInputs) {
				d := m.lists.AudioInputs[m.cursor]
				m.selected = &d
				return m, tea.Quit
			}
		}
		m.viewport.SetContent(m.renderDevices())
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m DeviceListModel) View() string {
	if !m.ready {
		return "Initializing..."
	}
	title := titleStyle.Render("Capture Devices")
	help := infoStyle.Render("↑/↓: Navigate • Enter: Select input • r: Reload • q: Quit")
	return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.viewport.View(), help)
}

func (m DeviceListModel) renderDevices() string {
	if !m.loaded {
		return "Loading devices..."
	}
	if m.lists.Len() == 0 {
		return "No devices found."
	}

	var sb strings.Builder
	for _, sec := range m.sections() {
		sb.WriteString(sectionStyle.Render(fmt.Sprintf("%s (%d)", sec.title, len(sec.devices))))
		sb.WriteString("\n")
		if len(sec.devices) == 0 {
			sb.WriteString("    none\n")
		}
		for i, d := range sec.devices {
			line := fmt.Sprintf("  %s\n      id: %s\n", deviceLabel(d), d.DeviceID)
			if d.Kind == media.AudioInput && i == m.cursor {
				line = highlightStyle.Render("▶" + line[1:])
			}
			sb.WriteString(line)
		}
		sb.WriteString("\n")
	}
	if m.loading {
		sb.WriteString("Reloading...\n")
	}
	return sb.String()
}

func deviceLabel(d media.DeviceInfo) string {
	if d.Label == "" {
		return "(label hidden until permission is granted)"
	}
	return d.Label
}

// RunDevicePicker runs the device browser until the user quits or selects
// an audio input.
func RunDevicePicker(ctx context.Context, l Loader) (media.DeviceInfo, bool, error) {
	p := tea.NewProgram(
		NewDeviceListModel(ctx, l),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	final, err := p.Run()
	if err != nil {
		return media.DeviceInfo{}, false, err
	}
	d, ok := final.(DeviceListModel).Selected()
	return d, ok, nil
}
