package audit

import (
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/jobenrich/internal/model"
)

var (
	pickerTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Padding(1, 0, 1, 2)

	pickerItemStyle = lipgloss.NewStyle().
			Padding(0, 0, 0, 4)

	pickerSelectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true).
				Padding(0, 0, 0, 2)

	pickerHintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Padding(1, 0, 0, 2)
)

// Facet is one choice in the picker: records whose Column equals Value.
// An empty Value matches every record.
type Facet struct {
	Label  string
	Column string
	Value  string
}

// Match reports whether rec falls in the facet.
func (f Facet) Match(rec model.Record) bool {
	if f.Value == "" {
		return true
	}
	return fieldString(rec, f.Column) == f.Value
}

type pickerModel struct {
	title  string
	facets []Facet
	counts []int
	cursor int
	chosen int // -1 = no choice yet, -2 = quit
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.chosen = -2
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.facets)-1 {
				m.cursor++
			}
		case "enter":
			m.chosen = m.cursor
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m pickerModel) View() string {
	s := pickerTitleStyle.Render(m.title)
	s += "\n"

	for i, f := range m.facets {
		label := f.Label
		if i < len(m.counts) {
			label += " (" + strconv.Itoa(m.counts[i]) + ")"
		}
		if i == m.cursor {
			s += pickerSelectedStyle.Render("> "+label) + "\n"
		} else {
			s += pickerItemStyle.Render(label) + "\n"
		}
	}

	s += pickerHintStyle.Render("↑/↓/j/k navigate  enter select  q quit")
	return s
}

// RunFacetPicker shows an interactive facet selector with per-facet record counts.
// Returns the index of the chosen facet, or -1 if the user quit.
func RunFacetPicker(title string, facets []Facet, records []model.Record) (int, error) {
	m := pickerModel{
		title:  title,
		facets: facets,
		counts: countFacets(facets, records),
		chosen: -1,
	}

	p := tea.NewProgram(m)
	result, err := p.Run()
	if err != nil {
		return -1, err
	}

	final := result.(pickerModel)
	if final.chosen < 0 {
		return -1, nil
	}
	return final.chosen, nil
}

func countFacets(facets []Facet, records []model.Record) []int {
	counts := make([]int, len(facets))
	for i, f := range facets {
		for _, rec := range records {
			if f.Match(rec) {
				counts[i]++
			}
		}
	}
	return counts
}
