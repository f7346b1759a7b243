package audit

import (
	"fmt"
	"math"
	"os/exec"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/jobenrich/internal/model"
	"github.com/amishk599/jobenrich/internal/schema"
)

// Lines per record in the list view (title + subtitle + blank separator).
const recordItemHeight = 3

type viewState int

const (
	viewList viewState = iota
	viewDetail
)

var (
	activeBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("39"))

	inactiveBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	activeHeaderStyle = headerStyle.
				Foreground(lipgloss.Color("39"))

	inactiveHeaderStyle = headerStyle.
				Foreground(lipgloss.Color("240"))

	statusBarStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))

	titleStyle = lipgloss.NewStyle().
			Bold(true)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	selectedTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("24"))

	selectedSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252")).
				Background(lipgloss.Color("24"))

	detailLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Width(18)

	detailValueStyle = lipgloss.NewStyle()

	detailTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				MarginBottom(1)

	dividerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)

	bodyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))
)

type browseModel struct {
	schema        schema.Schema
	facet         Facet
	all           []model.Record
	matched       []model.Record
	leftViewport  viewport.Model
	rightViewport viewport.Model
	activePane    int // 0=left, 1=right
	leftCursor    int
	rightCursor   int
	width         int
	height        int
	ready         bool

	view            viewState
	detail          model.Record
	detailViewport  viewport.Model
	showDescription bool

	wantQuit bool
}

func (m browseModel) Init() tea.Cmd {
	return nil
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcLayout()
		if m.view == viewDetail {
			m.detailViewport.Width = m.width - 4
			m.detailViewport.Height = m.height - 4
			m.detailViewport.SetContent(m.renderDetail())
		}
		return m, nil

	case tea.KeyMsg:
		if m.view == viewDetail {
			return m.updateDetailView(msg)
		}
		return m.updateListView(msg)
	}

	return m, nil
}

func (m browseModel) updateListView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.wantQuit = true
		return m, tea.Quit
	case "esc", "b":
		m.wantQuit = false
		return m, tea.Quit
	case "tab", "left", "right":
		m.activePane = 1 - m.activePane
		m.recalcContent()
		return m, nil
	case "up", "k":
		m.moveCursor(-1)
		m.recalcContent()
		m.ensureCursorVisible()
		return m, nil
	case "down", "j":
		m.moveCursor(1)
		m.recalcContent()
		m.ensureCursorVisible()
		return m, nil
	case "enter":
		return m.openDetailView()
	}

	var cmd tea.Cmd
	if m.activePane == 0 {
		m.leftViewport, cmd = m.leftViewport.Update(msg)
	} else {
		m.rightViewport, cmd = m.rightViewport.Update(msg)
	}
	return m, cmd
}

func (m browseModel) updateDetailView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.wantQuit = true
		return m, tea.Quit
	case "esc", "backspace":
		m.view = viewList
		return m, nil
	case "o":
		if url := applyURL(m.detail); url != "" {
			openURL(url)
		}
		return m, nil
	case "r":
		if fieldString(m.detail, "description") != "" {
			m.showDescription = !m.showDescription
			m.detailViewport.SetContent(m.renderDetail())
			m.detailViewport.SetYOffset(0)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.detailViewport, cmd = m.detailViewport.Update(msg)
	return m, cmd
}

func (m *browseModel) moveCursor(delta int) {
	if m.activePane == 0 {
		m.leftCursor = clamp(m.leftCursor+delta, 0, max(len(m.all)-1, 0))
	} else {
		m.rightCursor = clamp(m.rightCursor+delta, 0, max(len(m.matched)-1, 0))
	}
}

func (m *browseModel) ensureCursorVisible() {
	vp := &m.leftViewport
	cursor := m.leftCursor
	if m.activePane == 1 {
		vp = &m.rightViewport
		cursor = m.rightCursor
	}

	top := cursor * recordItemHeight
	bottom := top + recordItemHeight - 1

	if top < vp.YOffset {
		vp.SetYOffset(top)
	} else if bottom >= vp.YOffset+vp.Height {
		vp.SetYOffset(bottom - vp.Height + 1)
	}
}

func (m browseModel) openDetailView() (tea.Model, tea.Cmd) {
	records, cursor := m.all, m.leftCursor
	if m.activePane == 1 {
		records, cursor = m.matched, m.rightCursor
	}
	if len(records) == 0 {
		return m, nil
	}

	m.view = viewDetail
	m.detail = records[cursor]
	m.showDescription = false
	m.detailViewport = viewport.New(m.width-4, m.height-4)
	m.detailViewport.SetContent(m.renderDetail())
	return m, nil
}

func (m *browseModel) recalcLayout() {
	// 2 border chars per pane + 1 gap between panes.
	paneWidth := max((m.width-5)/2, 20)
	// Header + border top/bottom + status bar.
	paneHeight := max(m.height-4, 5)

	if !m.ready {
		m.leftViewport = viewport.New(paneWidth, paneHeight)
		m.rightViewport = viewport.New(paneWidth, paneHeight)
		m.ready = true
	} else {
		m.leftViewport.Width = paneWidth
		m.leftViewport.Height = paneHeight
		m.rightViewport.Width = paneWidth
		m.rightViewport.Height = paneHeight
	}

	m.recalcContent()
}

func (m *browseModel) recalcContent() {
	m.leftViewport.SetContent(renderRecords(m.all, m.leftCursor, m.activePane == 0))
	m.rightViewport.SetContent(renderRecords(m.matched, m.rightCursor, m.activePane == 1))
}

func (m browseModel) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.view == viewDetail {
		return m.viewDetail()
	}
	return m.viewList()
}

func (m browseModel) viewList() string {
	paneWidth := m.leftViewport.Width

	leftHeader := fmt.Sprintf(" All Listings (%d)", len(m.all))
	rightHeader := fmt.Sprintf(" %s (%d)", m.facet.Label, len(m.matched))

	leftHeaderStyle, rightHeaderStyle := activeHeaderStyle, inactiveHeaderStyle
	leftBorder, rightBorder := activeBorderStyle, inactiveBorderStyle
	if m.activePane == 1 {
		leftHeaderStyle, rightHeaderStyle = inactiveHeaderStyle, activeHeaderStyle
		leftBorder, rightBorder = inactiveBorderStyle, activeBorderStyle
	}

	headerRow := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(paneWidth+2).Render(leftHeaderStyle.Render(leftHeader)),
		" ",
		lipgloss.NewStyle().Width(paneWidth+2).Render(rightHeaderStyle.Render(rightHeader)),
	)
	panes := lipgloss.JoinHorizontal(lipgloss.Top,
		leftBorder.Width(paneWidth).Render(m.leftViewport.View()),
		" ",
		rightBorder.Width(paneWidth).Render(m.rightViewport.View()),
	)

	statusText := fmt.Sprintf(" %d listings | %d %s    ←/→/Tab switch  ↑/↓ cursor  Enter detail  Esc back  q quit",
		len(m.all), len(m.matched), strings.ToLower(m.facet.Label))
	statusBar := statusBarStyle.Width(m.width).Render(statusText)

	return headerRow + "\n" + panes + "\n" + statusBar
}

func (m browseModel) viewDetail() string {
	title := detailTitleStyle.Render("Listing Details")
	content := activeBorderStyle.Width(m.width - 2).Render(m.detailViewport.View())

	statusText := " o open URL  esc/backspace back  ↑/↓ scroll  q quit"
	if fieldString(m.detail, "description") != "" {
		statusText = " o open URL  r desc  esc/backspace back  ↑/↓ scroll  q quit"
	}
	statusBar := statusBarStyle.Width(m.width).Render(statusText)

	return title + "\n" + content + "\n" + statusBar
}

func (m browseModel) renderDetail() string {
	rec := m.detail
	var b strings.Builder

	addField := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(detailLabelStyle.Render(label))
		b.WriteString(detailValueStyle.Render(value))
		b.WriteByte('\n')
	}

	addField("Title", fieldString(rec, "title"))
	addField("Company", fieldString(rec, "company"))
	addField("Location", formatLocation(rec))
	addField("Listing ID", fieldString(rec, schema.IDColumn))
	addField("Site", fieldString(rec, "site"))
	if posted, ok := postedAt(rec); ok {
		addField("Posted", posted.Local().Format("2006-01-02 15:04 MST"))
	}

	b.WriteByte('\n')
	addField("Job URL", fieldString(rec, "job_url"))
	if direct := fieldString(rec, "job_url_direct"); direct != fieldString(rec, "job_url") {
		addField("Apply URL", direct)
	}

	wrapWidth := max(m.width-8, 20)
	divider := func(label string) string {
		fill := strings.Repeat("─", max(wrapWidth-len(label), 3))
		return dividerStyle.Render(label + fill)
	}

	b.WriteByte('\n')
	b.WriteString(divider("── Enrichment ") + "\n\n")
	addField("Salary", formatSalary(rec))
	for _, p := range m.schema.Properties {
		switch p.Name {
		case "advertised_minimum_salary", "advertised_maximum_salary", "advertised_salary_interval":
			continue
		}
		value := fieldString(rec, p.Name)
		if p.Type == schema.TypeString && len(value) > wrapWidth-18 {
			b.WriteString(detailLabelStyle.Render(labelFor(p.Name)) + "\n")
			b.WriteString(bodyStyle.Render(wordWrap(value, wrapWidth)) + "\n")
			continue
		}
		addField(labelFor(p.Name), value)
	}

	if desc := fieldString(rec, "description"); desc != "" {
		b.WriteByte('\n')
		if m.showDescription {
			b.WriteString(divider("── Description ") + "\n\n")
			b.WriteString(bodyStyle.Render(wordWrap(desc, wrapWidth)) + "\n")
		} else {
			b.WriteString(hintStyle.Render("  press r to read the description") + "\n")
		}
	}

	return b.String()
}

func renderRecords(records []model.Record, cursor int, isActive bool) string {
	if len(records) == 0 {
		return "  (no listings)"
	}

	var b strings.Builder
	for i, rec := range records {
		ts, ss := titleStyle, subtitleStyle
		prefix := "  "
		if isActive && i == cursor {
			ts, ss = selectedTitleStyle, selectedSubtitleStyle
			prefix = "> "
		}

		b.WriteString(prefix)
		b.WriteString(ts.Render(fieldString(rec, "title")))
		b.WriteByte('\n')

		posted := "n/a"
		if t, ok := postedAt(rec); ok {
			posted = t.Format("2006-01-02")
		}
		sub := strings.Join(nonEmpty(fieldString(rec, "company"), formatLocation(rec), posted), " · ")
		b.WriteString(prefix)
		b.WriteString(ss.Render(sub))
		b.WriteByte('\n')

		if i < len(records)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// fieldString renders a column value for display. Missing and nil values are "".
func fieldString(rec model.Record, column string) string {
	switch v := rec[column].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	default:
		return fmt.Sprint(v)
	}
}

func fieldNumber(rec model.Record, column string) (float64, bool) {
	switch v := rec[column].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	return 0, false
}

func postedAt(rec model.Record) (time.Time, bool) {
	ts, ok := fieldNumber(rec, schema.DatePostedColumn)
	if !ok || ts <= 0 {
		return time.Time{}, false
	}
	return time.Unix(int64(ts), 0).UTC(), true
}

func formatLocation(rec model.Record) string {
	return strings.Join(nonEmpty(
		fieldString(rec, "location_suburb"),
		fieldString(rec, "location_state"),
		fieldString(rec, "location_country"),
	), ", ")
}

// formatSalary renders the advertised range, e.g. "$90,000 - $120,000 yearly".
func formatSalary(rec model.Record) string {
	lo, hasLo := fieldNumber(rec, "advertised_minimum_salary")
	hi, hasHi := fieldNumber(rec, "advertised_maximum_salary")
	if (!hasLo || lo <= 0) && (!hasHi || hi <= 0) {
		return ""
	}
	var s string
	switch {
	case hasLo && hasHi && lo > 0 && hi > 0 && lo != hi:
		s = formatDollars(lo) + " - " + formatDollars(hi)
	case hasHi && hi > 0:
		s = formatDollars(hi)
	default:
		s = formatDollars(lo)
	}
	if interval := fieldString(rec, "advertised_salary_interval"); interval != "" {
		s += " " + interval
	}
	return s
}

func formatDollars(v float64) string {
	n := strconv.FormatInt(int64(math.Round(v)), 10)
	var b strings.Builder
	for i, r := range n {
		if i > 0 && (len(n)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return "$" + b.String()
}

// labelFor turns a column name into a display label: "office_type" -> "Office type".
func labelFor(column string) string {
	s := strings.ReplaceAll(column, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func applyURL(rec model.Record) string {
	if u := fieldString(rec, "job_url_direct"); u != "" {
		return u
	}
	return fieldString(rec, "job_url")
}

func nonEmpty(parts ...string) []string {
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func sortRecordsByDate(records []model.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		ti, okI := postedAt(records[i])
		tj, okJ := postedAt(records[j])
		if !okI {
			return false
		}
		if !okJ {
			return true
		}
		return ti.After(tj)
	})
}

func wordWrap(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len(line)+1+len(w) <= width {
			line += " " + w
		} else {
			lines = append(lines, line)
			line = w
		}
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// openURL opens url in the default system browser, fire-and-forget.
func openURL(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return
	}
	_ = cmd.Start()
}

// Facets returns an "All" facet followed by one facet per enum value of the
// named schema property. Unknown or free-text properties yield only "All".
func Facets(s schema.Schema, property string) []Facet {
	facets := []Facet{{Label: "All"}}
	for _, p := range s.Properties {
		if p.Name != property {
			continue
		}
		for _, v := range p.Enum {
			facets = append(facets, Facet{Label: labelFor(v), Column: p.Name, Value: v})
		}
	}
	return facets
}

// FilterRecords returns the records matching f, preserving order.
func FilterRecords(records []model.Record, f Facet) []model.Record {
	var out []model.Record
	for _, rec := range records {
		if f.Match(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// RunBrowseTUI shows every record on the left and those matching facet on the right.
// Returns wantQuit=true if the user pressed q/ctrl+c, false if they pressed esc to
// return to the facet picker.
func RunBrowseTUI(s schema.Schema, records []model.Record, facet Facet) (bool, error) {
	all := append([]model.Record(nil), records...)
	sortRecordsByDate(all)

	m := browseModel{
		schema:  s,
		facet:   facet,
		all:     all,
		matched: FilterRecords(all, facet),
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	result, err := p.Run()
	if err != nil {
		return false, err
	}
	return result.(browseModel).wantQuit, nil
}
