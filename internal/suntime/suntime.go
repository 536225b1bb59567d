// Package suntime classifies an instant as day or night for a city from a
// table of sunrise and sunset times.
package suntime

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/nathan-osman/go-sunrise"
)

// Moment is the day/night classification used to pick a theme.
type Moment string

const (
	Day   Moment = "day"
	Night Moment = "night"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

// Zone is the local time of every city in the table.
var Zone = time.FixedZone("CST", 8*60*60)

// ErrNoSunData is returned when the table has no entry for a city and date.
var ErrNoSunData = errors.New("no sunrise data")

// Entry holds the sunrise and sunset of one city on one local date.
type Entry struct {
	Date    string
	Sunrise time.Time
	Sunset  time.Time
}

// Table indexes entries by sun-table city key and local date.
type Table struct {
	mu      sync.RWMutex
	entries map[string]map[string]Entry
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{entries: make(map[string]map[string]Entry)}
}

// Add stores e for city, replacing an entry with the same date.
func (t *Table) Add(city string, e Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	byDate, ok := t.entries[city]
	if !ok {
		byDate = make(map[string]Entry)
		t.entries[city] = byDate
	}
	byDate[e.Date] = e
}

// Lookup returns the entry for city on the local date of at.
func (t *Table) Lookup(city string, at time.Time) (Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.entries[city][at.In(Zone).Format(dateLayout)]
	return e, ok
}

// Len returns the number of entries across all cities.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := 0
	for _, byDate := range t.entries {
		n += len(byDate)
	}
	return n
}

// MomentAt classifies now for the given city. It is Day when now lies
// strictly between sunrise and sunset; the sunrise and sunset instants
// themselves are Night.
func (t *Table) MomentAt(city string, now time.Time) (Moment, error) {
	e, ok := t.Lookup(city, now)
	if !ok {
		return Night, fmt.Errorf("%w: %s on %s", ErrNoSunData, city, now.In(Zone).Format(dateLayout))
	}
	if now.After(e.Sunrise) && now.Before(e.Sunset) {
		return Day, nil
	}
	return Night, nil
}

type fileLocation struct {
	LocationName string `json:"locationName"`
	Time         []struct {
		DataTime string `json:"dataTime"`
		Sunrise  string `json:"sunrise"`
		Sunset   string `json:"sunset"`
	} `json:"time"`
}

// LoadTable reads a JSON sunrise table: a list of
// {locationName, time: [{dataTime, sunrise, sunset}]} with local dates and
// HH:MM clock times.
func LoadTable(r io.Reader) (*Table, error) {
	var locs []fileLocation
	if err := json.NewDecoder(r).Decode(&locs); err != nil {
		return nil, fmt.Errorf("decode sun table: %w", err)
	}

	t := NewTable()
	for _, loc := range locs {
		name := strings.TrimSpace(loc.LocationName)
		if name == "" {
			return nil, errors.New("sun table: location without name")
		}
		for _, row := range loc.Time {
			day, err := time.ParseInLocation(dateLayout, row.DataTime, Zone)
			if err != nil {
				return nil, fmt.Errorf("sun table %s: date %q: %w", name, row.DataTime, err)
			}
			rise, err := clockOn(day, row.Sunrise)
			if err != nil {
				return nil, fmt.Errorf("sun table %s %s: sunrise: %w", name, row.DataTime, err)
			}
			set, err := clockOn(day, row.Sunset)
			if err != nil {
				return nil, fmt.Errorf("sun table %s %s: sunset: %w", name, row.DataTime, err)
			}
			t.Add(name, Entry{Date: row.DataTime, Sunrise: rise, Sunset: set})
		}
	}
	return t, nil
}

func clockOn(day time.Time, hhmm string) (time.Time, error) {
	c, err := time.Parse(clockLayout, strings.TrimSpace(hhmm))
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), c.Hour(), c.Minute(), 0, 0, Zone), nil
}

// Point is a sun-table key with its coordinates.
type Point struct {
	Name      string
	Latitude  float64
	Longitude float64
}

// GenerateTable computes entries for days local dates starting at from.
// The first point wins when several share a name.
func GenerateTable(points []Point, from time.Time, days int) *Table {
	t := NewTable()
	start := from.In(Zone)
	seen := make(map[string]bool, len(points))

	for _, p := range points {
		if seen[p.Name] {
			continue
		}
		seen[p.Name] = true

		for i := 0; i < days; i++ {
			day := time.Date(start.Year(), start.Month(), start.Day()+i, 0, 0, 0, 0, Zone)
			if e, ok := p.entryOn(day); ok {
				t.Add(p.Name, e)
			}
		}
	}
	return t
}

// entryOn computes sunrise and sunset for the local date of day. Polar day
// or night yields no entry.
func (p Point) entryOn(day time.Time) (Entry, bool) {
	day = day.In(Zone)
	rise, set := sunrise.SunriseSunset(p.Latitude, p.Longitude, day.Year(), day.Month(), day.Day())
	if rise.IsZero() || set.IsZero() {
		return Entry{}, false
	}
	return Entry{
		Date:    day.Format(dateLayout),
		Sunrise: rise.Truncate(time.Minute),
		Sunset:  set.Truncate(time.Minute),
	}, true
}

// Calculator classifies the current instant using a clock.
type Calculator struct {
	table  *Table
	clock  clockwork.Clock
	points map[string]Point
}

// CalculatorOption configures a Calculator.
type CalculatorOption func(*Calculator)

// WithPoints lets the Calculator compute and cache entries for dates the
// table does not cover. The first point wins when several share a name.
func WithPoints(points []Point) CalculatorOption {
	return func(c *Calculator) {
		for _, p := range points {
			if _, ok := c.points[p.Name]; !ok {
				c.points[p.Name] = p
			}
		}
	}
}

// NewCalculator returns a Calculator. A nil clock uses the real clock.
func NewCalculator(table *Table, clock clockwork.Clock, opts ...CalculatorOption) *Calculator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	c := &Calculator{table: table, clock: clock, points: make(map[string]Point)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Moment classifies the current instant for the given sun-table key.
func (c *Calculator) Moment(key string) (Moment, error) {
	now := c.clock.Now()
	if _, ok := c.table.Lookup(key, now); !ok {
		if p, known := c.points[key]; known {
			if e, ok := p.entryOn(now); ok {
				c.table.Add(key, e)
			}
		}
	}
	return c.table.MomentAt(key, now)
}
