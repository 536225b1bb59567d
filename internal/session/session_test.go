package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-card/internal/location"
	"github.com/i474232898/weather-card/internal/store"
	"github.com/i474232898/weather-card/internal/suntime"
	"github.com/i474232898/weather-card/internal/weather"
	"github.com/i474232898/weather-card/internal/weather/cwa"
)

const observationJSON = `{"records":{"location":[{
  "locationName": "Taipei City",
  "time": {"obsTime": "2020-12-12 14:00:00"},
  "weatherElement": [
    {"elementName": "TEMP", "elementValue": "26"},
    {"elementName": "WDSD", "elementValue": "3.2"}
  ]}]}}`

const forecastJSON = `{"records":{"location":[{
  "locationName": "臺北市",
  "weatherElement": [
    {"elementName": "Wx", "time": [{"parameter": {"parameterName": "Cloudy", "parameterValue": "4"}}]},
    {"elementName": "PoP", "time": [{"parameter": {"parameterName": "20%"}}]},
    {"elementName": "CI", "time": [{"parameter": {"parameterName": "Comfortable"}}]}
  ]}]}}`

// fakeCWA serves both datasets and records the requested location names.
type fakeCWA struct {
	mu        sync.Mutex
	locations []string
	keys      []string
	fail      bool
}

func (f *fakeCWA) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.locations = append(f.locations, r.URL.Query().Get("locationName"))
	f.keys = append(f.keys, r.URL.Query().Get("Authorization"))
	fail := f.fail
	f.mu.Unlock()

	if fail && strings.HasSuffix(r.URL.Path, "F-C0032-001") {
		http.Error(w, "down", http.StatusServiceUnavailable)
		return
	}
	switch {
	case strings.HasSuffix(r.URL.Path, "O-A0003-001"):
		_, _ = w.Write([]byte(observationJSON))
	case strings.HasSuffix(r.URL.Path, "F-C0032-001"):
		_, _ = w.Write([]byte(forecastJSON))
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeCWA) setFail(v bool) {
	f.mu.Lock()
	f.fail = v
	f.mu.Unlock()
}

func (f *fakeCWA) credentials() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.keys...)
}

func (f *fakeCWA) requested() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.locations...)
}

type fixture struct {
	cwa   *fakeCWA
	store *store.MemoryStore
	clock clockwork.FakeClock
	deps  Deps
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	fake := &fakeCWA{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	clock := clockwork.NewFakeClockAt(now)
	table := suntime.NewTable()
	for _, c := range location.Available() {
		day := now.In(suntime.Zone)
		date := day.Format("2006-01-02")
		table.Add(c.Keys.SunTableName, suntime.Entry{
			Date:    date,
			Sunrise: time.Date(day.Year(), day.Month(), day.Day(), 6, 0, 0, 0, suntime.Zone),
			Sunset:  time.Date(day.Year(), day.Month(), day.Day(), 18, 0, 0, 0, suntime.Zone),
		})
	}

	prefs := store.NewMemoryStore()
	return &fixture{
		cwa:   fake,
		store: prefs,
		clock: clock,
		deps: Deps{
			Store:         prefs,
			Aggregator:    weather.NewAggregator(cwa.NewClient(srv.Client(), cwa.Config{BaseURL: srv.URL}), nil),
			Sun:           suntime.NewCalculator(table, clock),
			CredentialKey: "X",
		},
	}
}

var noon = time.Date(2020, 12, 12, 12, 0, 0, 0, suntime.Zone)

func TestSession_EndToEnd(t *testing.T) {
	f := newFixture(t, noon)
	ctx := context.Background()

	s, err := New(ctx, f.deps)
	require.NoError(t, err)
	require.NoError(t, s.SelectCity(ctx, "Taipei City"))

	v := s.View()
	assert.Equal(t, "臺北市", v.City)
	assert.Equal(t, PageWeather, v.Page)
	assert.Equal(t, "Taipei City", v.Weather.LocationName)
	assert.Equal(t, 3.2, v.Weather.WindSpeed)
	assert.Equal(t, 26.0, v.Weather.Temperature)
	assert.True(t, v.Weather.ObservedAt.Equal(time.Date(2020, 12, 12, 14, 0, 0, 0, suntime.Zone)))
	assert.Equal(t, weather.ForecastRecord{
		Description:     "Cloudy",
		WeatherCode:     4,
		RainProbability: 20,
		Comfort:         "Comfortable",
	}, v.Weather.ForecastRecord)
	assert.False(t, v.Weather.IsLoading)
	assert.Equal(t, weather.ConditionCloudy, v.Condition)
	assert.Equal(t, suntime.Day, v.Moment)
	assert.Equal(t, "light", v.Theme.Name)

	for _, k := range f.cwa.credentials() {
		assert.Equal(t, "X", k)
	}
}

func TestSession_RestoresStoredCity(t *testing.T) {
	f := newFixture(t, noon)
	ctx := context.Background()
	require.NoError(t, f.store.Set(ctx, CityKey, "高雄市"))

	s, err := New(ctx, f.deps)
	require.NoError(t, err)

	assert.Equal(t, "高雄市", s.City())
	assert.ElementsMatch(t, []string{"高雄", "高雄市"}, f.cwa.requested())
}

func TestSession_DefaultCity(t *testing.T) {
	f := newFixture(t, noon)

	s, err := New(context.Background(), f.deps)
	require.NoError(t, err)

	assert.Equal(t, DefaultCity, s.City())
	assert.Equal(t, location.Keys{ObservationName: "臺北", ForecastName: "臺北市", SunTableName: "臺北"}, s.View().Keys)
}

func TestSession_UnknownStoredCityFallsBack(t *testing.T) {
	f := newFixture(t, noon)
	ctx := context.Background()
	require.NoError(t, f.store.Set(ctx, CityKey, "Atlantis"))

	s, err := New(ctx, f.deps)
	require.NoError(t, err)
	assert.Equal(t, DefaultCity, s.City())
}

func TestSession_SelectUnknownCity(t *testing.T) {
	f := newFixture(t, noon)
	ctx := context.Background()
	s, err := New(ctx, f.deps)
	require.NoError(t, err)

	err = s.SelectCity(ctx, "Atlantis")
	assert.True(t, errors.Is(err, location.ErrUnknownCity))

	_, err = f.store.Get(ctx, CityKey)
	assert.True(t, errors.Is(err, store.ErrNotFound), "nothing should be persisted")
	assert.Equal(t, DefaultCity, s.City())
}

func TestSession_SelectCityPersistsAndRefetches(t *testing.T) {
	f := newFixture(t, noon)
	ctx := context.Background()
	s, err := New(ctx, f.deps)
	require.NoError(t, err)
	require.NoError(t, s.SetPage(PageSettings))

	require.NoError(t, s.SelectCity(ctx, "花蓮縣"))

	stored, err := f.store.Get(ctx, CityKey)
	require.NoError(t, err)
	assert.Equal(t, "花蓮縣", stored)
	assert.Equal(t, PageWeather, s.View().Page)
	assert.Contains(t, f.cwa.requested(), "花蓮")
	assert.Contains(t, f.cwa.requested(), "花蓮縣")

	// Re-selecting the same city does not refetch.
	before := len(f.cwa.requested())
	require.NoError(t, s.SelectCity(ctx, "花蓮縣"))
	assert.Len(t, f.cwa.requested(), before)
}

// echoSource reports the requested station as the observed location.
type echoSource struct{}

func (echoSource) FetchObservation(ctx context.Context, _, name string) (weather.ObservationRecord, error) {
	select {
	case <-time.After(5 * time.Millisecond):
	case <-ctx.Done():
		return weather.ObservationRecord{}, ctx.Err()
	}
	return weather.ObservationRecord{LocationName: name}, nil
}

func (echoSource) FetchForecast(_ context.Context, _, name string) (weather.ForecastRecord, error) {
	return weather.ForecastRecord{Description: name}, nil
}

func TestSession_ConcurrentSelectionsStayConsistent(t *testing.T) {
	f := newFixture(t, noon)
	f.deps.Aggregator = weather.NewAggregator(echoSource{}, nil)
	ctx := context.Background()
	s, err := New(ctx, f.deps)
	require.NoError(t, err)

	cities := location.Available()
	var wg sync.WaitGroup
	for _, c := range cities {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			assert.NoError(t, s.SelectCity(ctx, name))
		}(c.Name)
	}
	wg.Wait()

	v := s.View()
	stored, err := f.store.Get(ctx, CityKey)
	require.NoError(t, err)
	assert.Equal(t, v.City, stored)
	assert.False(t, v.Weather.IsLoading)
	assert.Equal(t, v.Keys.ObservationName, v.Weather.LocationName)
	assert.Equal(t, v.Keys.ForecastName, v.Weather.Description)
}

func TestSession_MomentFollowsClockOnRefresh(t *testing.T) {
	f := newFixture(t, noon)
	ctx := context.Background()
	s, err := New(ctx, f.deps)
	require.NoError(t, err)
	assert.Equal(t, suntime.Day, s.View().Moment)

	f.clock.Advance(7 * time.Hour)
	require.NoError(t, s.Refresh(ctx))

	v := s.View()
	assert.Equal(t, suntime.Night, v.Moment)
	assert.Equal(t, "dark", v.Theme.Name)
}

func TestSession_NoSunDataIsNight(t *testing.T) {
	f := newFixture(t, noon)
	f.deps.Sun = suntime.NewCalculator(suntime.NewTable(), f.clock)

	s, err := New(context.Background(), f.deps)
	require.NoError(t, err)
	assert.Equal(t, suntime.Night, s.View().Moment)
}

func TestSession_FailedRefreshKeepsWeather(t *testing.T) {
	f := newFixture(t, noon)
	ctx := context.Background()
	s, err := New(ctx, f.deps)
	require.NoError(t, err)
	before := s.View().Weather

	f.cwa.setFail(true)
	err = s.Refresh(ctx)

	var nerr *weather.NetworkError
	require.True(t, errors.As(err, &nerr), "want NetworkError, got %v", err)
	assert.Equal(t, before, s.View().Weather)
}

func TestSession_SetPage(t *testing.T) {
	f := newFixture(t, noon)
	s, err := New(context.Background(), f.deps)
	require.NoError(t, err)

	require.NoError(t, s.SetPage(PageSettings))
	assert.Equal(t, PageSettings, s.View().Page)

	err = s.SetPage("map")
	assert.True(t, errors.Is(err, ErrInvalidPage))
	assert.Equal(t, PageSettings, s.View().Page)
}

func TestNew_MissingDeps(t *testing.T) {
	_, err := New(context.Background(), Deps{})
	assert.Error(t, err)
}
