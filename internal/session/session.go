// Package session holds the state of one interactive weather card: the
// selected city, its resolved dataset keys, the day/night moment and the
// aggregated weather.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/i474232898/weather-card/internal/location"
	"github.com/i474232898/weather-card/internal/store"
	"github.com/i474232898/weather-card/internal/suntime"
	"github.com/i474232898/weather-card/internal/weather"
)

// CityKey is the preference key of the selected city.
const CityKey = "cityName"

// DefaultCity is used when no city has been stored yet.
const DefaultCity = "臺北市"

// Page is one of the two view states.
type Page string

const (
	PageWeather  Page = "weather"
	PageSettings Page = "settings"
)

// ErrInvalidPage is returned by SetPage for an unknown page.
var ErrInvalidPage = errors.New("invalid page")

// Deps are the collaborators of a Session.
type Deps struct {
	Store         store.Store
	Aggregator    *weather.Aggregator
	Sun           *suntime.Calculator
	CredentialKey string
	DefaultCity   string
	Logger        *slog.Logger
}

// View is everything the presentation layer renders.
type View struct {
	Page      Page              `json:"page"`
	City      string            `json:"city"`
	Keys      location.Keys     `json:"keys"`
	Weather   weather.ViewModel `json:"weather"`
	Condition weather.Condition `json:"condition"`
	Moment    suntime.Moment    `json:"moment"`
	Theme     Theme             `json:"theme"`
}

// Session is safe for concurrent use.
type Session struct {
	store      store.Store
	aggregator *weather.Aggregator
	sun        *suntime.Calculator
	credential string
	logger     *slog.Logger

	// selectMu orders selections so the last city stored is also the last
	// one handed to the aggregator.
	selectMu sync.Mutex

	mu     sync.RWMutex
	page   Page
	city   string
	keys   location.Keys
	moment suntime.Moment
}

// New restores the stored city (falling back to the default), resolves it
// and activates the aggregator. A failed initial fetch is logged, not
// returned: the card stays usable and can be refreshed.
func New(ctx context.Context, deps Deps) (*Session, error) {
	if deps.Store == nil || deps.Aggregator == nil || deps.Sun == nil {
		return nil, errors.New("session: store, aggregator and sun calculator are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	def := deps.DefaultCity
	if def == "" {
		def = DefaultCity
	}
	if _, err := location.Resolve(def); err != nil {
		return nil, fmt.Errorf("session: default city: %w", err)
	}

	city, err := store.GetDefault(ctx, deps.Store, CityKey, def)
	if err != nil {
		return nil, fmt.Errorf("session: read stored city: %w", err)
	}
	keys, err := location.Resolve(city)
	if err != nil {
		logger.Warn("stored city is not selectable, using default", "city", city, "default", def)
		city = def
		keys, _ = location.Resolve(def)
	}

	s := &Session{
		store:      deps.Store,
		aggregator: deps.Aggregator,
		sun:        deps.Sun,
		credential: deps.CredentialKey,
		logger:     logger,
		page:       PageWeather,
		city:       city,
		keys:       keys,
	}
	s.moment = s.computeMoment(keys)

	if err := s.aggregator.SetParams(ctx, s.params(keys)); err != nil {
		logger.Warn("initial weather fetch failed", "city", city, "error", err)
	}
	return s, nil
}

// SelectCity validates and persists a new selection, re-resolves its keys,
// recomputes the moment and re-triggers the aggregator. The view returns to
// the weather page, as after saving the settings form.
func (s *Session) SelectCity(ctx context.Context, name string) error {
	c, err := location.Lookup(name)
	if err != nil {
		return err
	}

	s.selectMu.Lock()
	defer s.selectMu.Unlock()

	if err := s.store.Set(ctx, CityKey, c.Name); err != nil {
		return fmt.Errorf("persist city: %w", err)
	}

	moment := s.computeMoment(c.Keys)

	s.mu.Lock()
	changed := s.city != c.Name
	s.city = c.Name
	s.keys = c.Keys
	s.moment = moment
	s.page = PageWeather
	s.mu.Unlock()

	if changed {
		s.logger.Info("city selected", "city", c.Name, "moment", moment)
	}
	return s.aggregator.SetParams(ctx, s.params(c.Keys))
}

// Refresh runs a fetch cycle for the current city and recomputes the moment.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.RLock()
	keys := s.keys
	s.mu.RUnlock()

	moment := s.computeMoment(keys)
	s.mu.Lock()
	if s.keys == keys {
		s.moment = moment
	}
	s.mu.Unlock()

	return s.aggregator.FetchData(ctx)
}

// SetPage switches between the weather and the settings view.
func (s *Session) SetPage(p Page) error {
	switch p {
	case PageWeather, PageSettings:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPage, p)
	}
	s.mu.Lock()
	s.page = p
	s.mu.Unlock()
	return nil
}

// City returns the selected display name.
func (s *Session) City() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.city
}

// View returns a consistent snapshot for rendering.
func (s *Session) View() View {
	s.mu.RLock()
	v := View{
		Page:   s.page,
		City:   s.city,
		Keys:   s.keys,
		Moment: s.moment,
		Theme:  ThemeFor(s.moment),
	}
	s.mu.RUnlock()

	v.Weather = s.aggregator.Snapshot()
	v.Condition = weather.ConditionForCode(v.Weather.WeatherCode)
	return v
}

func (s *Session) params(keys location.Keys) weather.Params {
	return weather.Params{
		ObservationName: keys.ObservationName,
		ForecastName:    keys.ForecastName,
		CredentialKey:   s.credential,
	}
}

// computeMoment falls back to Night when the table has no entry.
func (s *Session) computeMoment(keys location.Keys) suntime.Moment {
	m, err := s.sun.Moment(keys.SunTableName)
	if err != nil {
		s.logger.Warn("no sun data, using night theme", "sunTable", keys.SunTableName, "error", err)
		return suntime.Night
	}
	return m
}
