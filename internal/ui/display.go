package ui

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/haricheung/taskrank/internal/render"
	"github.com/haricheung/taskrank/internal/types"
	"github.com/haricheung/taskrank/internal/workflow"
)

// DefaultWidth is the card width used when the terminal width is unknown.
const DefaultWidth = 80

var spinRunes = []rune("⠋⠙⠹⠸⠼⠴⠦⠧⠇⠏")

// Display draws controller snapshots to a terminal.
// Handle is called from the controller's goroutine; the spinner runs on its own.
type Display struct {
	out     io.Writer
	width   int
	animate bool
	prev    workflow.Presentation
	label   string
	mu      sync.Mutex // guards writes shared with the spinner
	stopCh  chan struct{}
	doneCh  chan struct{}
	started time.Time
}

// New creates a Display writing to out. animate enables the spinner;
// turn it off when out is not a terminal. Without animate, cards also name
// their tier in words, since colour is dropped off a terminal.
func New(out io.Writer, width int, animate bool) *Display {
	if width <= 0 {
		width = DefaultWidth
	}
	return &Display{out: out, width: width, animate: animate}
}

// SetBusyLabel sets the text shown next to the spinner for the next busy phase.
func (d *Display) SetBusyLabel(label string) {
	d.label = label
}

// Handle renders one presentation snapshot.
//
// Expectations:
//   - A snapshot with Notice prints only the notice
//   - Entering busy starts the progress indicator
//   - Leaving busy stops the indicator, then prints the banner or the results
//   - An idle snapshot with Error prints the banner (local validation failures)
//   - The "no results" state prints NoResultsText, never the banner
func (d *Display) Handle(p workflow.Presentation) {
	prev := d.prev
	d.prev = p

	if p.Notice != "" {
		d.println(noticeStyle.Render("! " + p.Notice))
		return
	}

	if p.Phase == types.PhaseBusy {
		if prev.Phase != types.PhaseBusy {
			d.startProgress()
		}
		return
	}

	wasBusy := prev.Phase == types.PhaseBusy
	if wasBusy {
		d.stopProgress()
	}
	switch {
	case p.Error != "":
		d.println(bannerStyle.Render("✗ " + p.Error))
	case p.View != nil && wasBusy:
		d.println(d.RenderView(*p.View))
	}
}

func (d *Display) println(s string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintln(d.out, s)
}

func (d *Display) startProgress() {
	d.started = time.Now()
	label := d.label
	if label == "" {
		label = "working..."
	}
	if !d.animate {
		d.println(mutedStyle.Render("… " + label))
		return
	}

	d.stopCh = make(chan struct{})
	d.doneCh = make(chan struct{})
	go d.spin(label, d.stopCh, d.doneCh)
}

// stopProgress blocks until the spinner has cleared its line.
func (d *Display) stopProgress() {
	if d.stopCh == nil {
		return
	}
	close(d.stopCh)
	<-d.doneCh
	d.stopCh, d.doneCh = nil, nil
}

func (d *Display) spin(label string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()

	for i := 0; ; i++ {
		select {
		case <-stop:
			d.mu.Lock()
			fmt.Fprint(d.out, "\r\033[K")
			d.mu.Unlock()
			return
		case <-ticker.C:
			elapsed := time.Since(d.started).Round(100 * time.Millisecond)
			d.mu.Lock()
			fmt.Fprintf(d.out, "\r%s %s %s", accentStyle.Render(string(spinRunes[i%len(spinRunes)])), label, mutedStyle.Render(elapsed.String()))
			d.mu.Unlock()
		}
	}
}

// RenderView formats a full result view.
func (d *Display) RenderView(v render.View) string {
	if v.Empty || len(v.Cards) == 0 {
		return mutedStyle.Render(render.NoResultsText)
	}
	cards := make([]string, 0, len(v.Cards))
	for _, c := range v.Cards {
		cards = append(cards, d.RenderCard(c))
	}
	return strings.Join(cards, "\n\n")
}

// RenderCard formats one result:
//
//	  92  Fix login bug (#1)
//	      Due: 2025-11-30 | Est: 3h | Imp: 8/10 | Priority: high
//	      💡 Due today (+100); Importance 8 (x1.8)
func (d *Display) RenderCard(c render.Card) string {
	const indent = "      "
	room := d.width - len(indent)

	head := badgeStyle(c.Tier).Render(strconv.Itoa(c.Score)) + " " +
		titleStyle.Render(clip(c.Title, room-8)) + " " + mutedStyle.Render(fmt.Sprintf("(#%d)", c.ID))
	meta := fmt.Sprintf("Due: %s | Est: %sh | Imp: %d/10", c.DueDate, formatHours(c.EstimatedHours), c.Importance)
	if !d.animate {
		meta += " | Priority: " + string(c.Tier)
	}

	lines := []string{head, indent + mutedStyle.Render(meta)}
	if c.Explanation != "" {
		lines = append(lines, indent+explainStyle.Render("💡 "+clip(c.Explanation, room-3)))
	}
	return strings.Join(lines, "\n")
}

// ManualPreview lists accumulated manual tasks as "#id title (Due: date)".
func ManualPreview(list []types.Task) string {
	if len(list) == 0 {
		return mutedStyle.Render("(no manual tasks yet)")
	}
	lines := make([]string, len(list))
	for i, t := range list {
		lines[i] = fmt.Sprintf("  #%d %s (Due: %s)", t.ID, t.Title, t.DueDate)
	}
	return strings.Join(lines, "\n")
}

func formatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64)
}

// clip truncates s to at most n display cells, appending "…" if trimmed.
func clip(s string, n int) string {
	if n <= 1 || runewidth.StringWidth(s) <= n {
		return s
	}
	return runewidth.Truncate(s, n, "…")
}
