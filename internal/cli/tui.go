package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/perisponge/stormflow/pkg/errors"
	"github.com/perisponge/stormflow/pkg/network"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// NodeListModel - Interactive subcatchment selection
// =============================================================================

// nodeEntry is one row in the picker.
type nodeEntry struct {
	id       string
	area     float64
	upstream int
	outlet   bool
}

// NodeListModel is the bubbletea model for interactive subcatchment selection.
type NodeListModel struct {
	Nodes    []nodeEntry
	Cursor   int
	Selected string
	Height   int
	Offset   int
}

// NewNodeListModel creates a picker over the network's node enumeration.
func NewNodeListModel(net *network.Network) NodeListModel {
	entries := make([]nodeEntry, 0, net.NodeCount())
	for _, id := range net.Order() {
		nd, _ := net.Node(id)
		entries = append(entries, nodeEntry{
			id:       id,
			area:     nd.Area,
			upstream: len(net.Upstream(id)),
			outlet:   id == net.Outlet(),
		})
	}
	return NodeListModel{
		Nodes:  entries,
		Height: 15,
	}
}

func (m NodeListModel) Init() tea.Cmd {
	return nil
}

func (m NodeListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Nodes)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			m.Selected = m.Nodes[m.Cursor].id
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 6
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m NodeListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Subcatchment"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	end := m.Offset + m.Height
	if end > len(m.Nodes) {
		end = len(m.Nodes)
	}

	for i := m.Offset; i < end; i++ {
		nd := m.Nodes[i]

		cursor := "  "
		style := listNormalStyle
		if i == m.Cursor {
			cursor = "▸ "
			style = listSelectedStyle
		}

		label := nd.id
		if nd.outlet {
			label += " (outlet)"
		}
		detail := fmt.Sprintf("%.2f ha · %d upstream", nd.area, nd.upstream)

		b.WriteString(cursor + style.Render(label) + "  " + listDimStyle.Render(detail))
		b.WriteString("\n")
	}

	return b.String()
}

// runNodePicker runs the picker and returns the chosen node ID.
func runNodePicker(net *network.Network) (string, error) {
	final, err := tea.NewProgram(NewNodeListModel(net)).Run()
	if err != nil {
		return "", err
	}
	m, ok := final.(NodeListModel)
	if !ok || m.Selected == "" {
		return "", errors.New(errors.ErrCodeInvalidInput, "no subcatchment selected")
	}
	return m.Selected, nil
}
