// Package view turns a screen state into a renderable tree.
//
// [Render] is a pure function: the same state and options always yield the
// same [View]. Output formats (terminal text here, HTML in the dashboard
// package) only walk the tree and never look at the state directly.
package view

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jpalmerr/racescreen/internal/raceapi"
	"github.com/jpalmerr/racescreen/internal/screen"
)

const (
	// DefaultTitle is shown when no title is configured.
	DefaultTitle = "Indy 500 Pool Standings"

	// DefaultTimeFormat is the time-of-day layout for the timestamp.
	DefaultTimeFormat = "3:04:05 PM"

	// LoadingText replaces the timestamp until one arrives.
	LoadingText = "Loading..."

	// InvalidTimeText replaces a timestamp that cannot be parsed.
	InvalidTimeText = "Invalid Date"
)

// timestamp layouts accepted from the service, most specific first.
// Layouts without a zone are read in the display location.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// Options controls presentation details that are not part of the state.
type Options struct {
	// Title is the page heading. Defaults to [DefaultTitle].
	Title string

	// Location is the zone used for the time-of-day. Defaults to time.Local.
	Location *time.Location

	// TimeFormat is a Go time layout. Defaults to [DefaultTimeFormat].
	TimeFormat string
}

// View is the visual tree for one state.
type View struct {
	Title     string       `json:"title"`
	Pools     []PoolOption `json:"pools"`
	Timestamp string       `json:"timestamp"`
	Loading   bool         `json:"loading"`
	Error     string       `json:"error,omitempty"`
	Entries   []Entry      `json:"entries"`
}

// PoolOption is one choice in the pool selector.
type PoolOption struct {
	ID       int    `json:"id"`
	Value    string `json:"value"`
	Name     string `json:"name"`
	Selected bool   `json:"selected"`
}

// Entry is one rendered standing.
type Entry struct {
	Rank            int      `json:"rank"`
	Name            string   `json:"name"`
	Heading         string   `json:"heading"`
	AveragePosition string   `json:"average_position"`
	Highlight       bool     `json:"highlight"`
	Drivers         []Driver `json:"drivers"`
}

// Driver is one rendered driver line.
type Driver struct {
	Position int    `json:"position"`
	Number   string `json:"number"`
	Name     string `json:"name"`
	Text     string `json:"text"`
}

// Render maps a state to its [View].
//
// Entries keep the service order; rank is the one-based index. An entry is
// highlighted when any of its drivers holds position 1.
func Render(state screen.State, opts Options) View {
	opts = opts.withDefaults()

	v := View{
		Title:   opts.Title,
		Pools:   make([]PoolOption, 0, len(state.Pools)),
		Error:   state.Error,
		Entries: make([]Entry, 0, len(state.Standings)),
	}

	selectedID, hasSelection := state.SelectedID()
	for _, p := range state.Pools {
		v.Pools = append(v.Pools, PoolOption{
			ID:       p.ID,
			Value:    strconv.Itoa(p.ID),
			Name:     p.Name,
			Selected: hasSelection && p.ID == selectedID,
		})
	}

	if state.UpdatedAt == "" {
		v.Timestamp = LoadingText
		v.Loading = true
	} else {
		v.Timestamp = FormatTimestamp(state.UpdatedAt, opts.Location, opts.TimeFormat)
	}

	for i, s := range state.Standings {
		entry := Entry{
			Rank:            i + 1,
			Name:            s.Name,
			Heading:         fmt.Sprintf("%d - %s", i+1, s.Name),
			AveragePosition: fmt.Sprintf("Avg Pos: %.2f", s.AveragePosition),
			Highlight:       Highlighted(s.Drivers),
			Drivers:         make([]Driver, 0, len(s.Drivers)),
		}
		for _, d := range s.Drivers {
			entry.Drivers = append(entry.Drivers, Driver{
				Position: d.Position,
				Number:   d.Number,
				Name:     d.Name,
				Text:     fmt.Sprintf("%d - #%s %s", d.Position, d.Number, d.Name),
			})
		}
		v.Entries = append(v.Entries, entry)
	}

	return v
}

// Highlighted reports whether an entry with these drivers is marked as
// leading: any of them holds position 1.
func Highlighted(drivers []raceapi.Driver) bool {
	for _, d := range drivers {
		if d.Position == 1 {
			return true
		}
	}
	return false
}

// FormatTimestamp renders a service timestamp as a time-of-day in loc.
//
// Returns [InvalidTimeText] if the value matches none of the accepted layouts.
func FormatTimestamp(value string, loc *time.Location, layout string) string {
	if loc == nil {
		loc = time.Local
	}
	if layout == "" {
		layout = DefaultTimeFormat
	}
	for _, l := range timestampLayouts {
		if t, err := time.ParseInLocation(l, value, loc); err == nil {
			return t.In(loc).Format(layout)
		}
	}
	return InvalidTimeText
}

func (o Options) withDefaults() Options {
	if o.Title == "" {
		o.Title = DefaultTitle
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.TimeFormat == "" {
		o.TimeFormat = DefaultTimeFormat
	}
	return o
}
