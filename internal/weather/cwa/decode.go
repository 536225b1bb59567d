package cwa

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/i474232898/weather-card/internal/weather"
)

// Element identifiers used by the two datasets.
const (
	elementWindSpeed   = "WDSD"
	elementTemperature = "TEMP"

	elementWeather    = "Wx"
	elementRainChance = "PoP"
	elementComfort    = "CI"

	sourceObservation = "observation"
	sourceForecast    = "forecast"

	obsTimeLayout = "2006-01-02 15:04:05"
)

// Observation times are reported in Taiwan local time.
var taiwanTime = time.FixedZone("CST", 8*60*60)

var (
	errMissing      = errors.New("missing")
	errNoLocation   = errors.New("no location in response")
	errEmptySeries  = errors.New("empty time series")
	errInvalidValue = errors.New("invalid value")
)

// flexString accepts both JSON strings and numbers.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type observationResponse struct {
	Records *struct {
		Location []struct {
			LocationName string `json:"locationName"`
			Time         struct {
				ObsTime string `json:"obsTime"`
			} `json:"time"`
			WeatherElement []struct {
				ElementName  string     `json:"elementName"`
				ElementValue flexString `json:"elementValue"`
			} `json:"weatherElement"`
		} `json:"location"`
	} `json:"records"`
}

type forecastResponse struct {
	Records *struct {
		Location []struct {
			LocationName   string `json:"locationName"`
			WeatherElement []struct {
				ElementName string `json:"elementName"`
				Time        []struct {
					StartTime string `json:"startTime"`
					EndTime   string `json:"endTime"`
					Parameter struct {
						ParameterName  flexString `json:"parameterName"`
						ParameterValue flexString `json:"parameterValue"`
						ParameterUnit  string     `json:"parameterUnit"`
					} `json:"parameter"`
				} `json:"time"`
			} `json:"weatherElement"`
		} `json:"location"`
	} `json:"records"`
}

// decodeObservation extracts the first location of a current-conditions
// response. Elements are matched by name, so their order does not matter.
func decodeObservation(r io.Reader) (weather.ObservationRecord, error) {
	var payload observationResponse
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return weather.ObservationRecord{}, &weather.ParseError{Source: sourceObservation, Err: err}
	}
	if payload.Records == nil || len(payload.Records.Location) == 0 {
		return weather.ObservationRecord{}, &weather.ParseError{Source: sourceObservation, Field: "records.location", Err: errNoLocation}
	}
	loc := payload.Records.Location[0]

	var (
		rec             weather.ObservationRecord
		haveWind, haveT bool
	)
	rec.LocationName = loc.LocationName

	for _, el := range loc.WeatherElement {
		switch el.ElementName {
		case elementWindSpeed:
			if haveWind {
				continue
			}
			v, err := parseFloat(string(el.ElementValue))
			if err != nil {
				return weather.ObservationRecord{}, &weather.ParseError{Source: sourceObservation, Field: elementWindSpeed, Err: err}
			}
			rec.WindSpeed, haveWind = v, true
		case elementTemperature:
			if haveT {
				continue
			}
			v, err := parseFloat(string(el.ElementValue))
			if err != nil {
				return weather.ObservationRecord{}, &weather.ParseError{Source: sourceObservation, Field: elementTemperature, Err: err}
			}
			rec.Temperature, haveT = v, true
		default:
			// Stations report many more elements than the card shows.
		}
	}

	if !haveWind {
		return weather.ObservationRecord{}, &weather.ParseError{Source: sourceObservation, Field: elementWindSpeed, Err: errMissing}
	}
	if !haveT {
		return weather.ObservationRecord{}, &weather.ParseError{Source: sourceObservation, Field: elementTemperature, Err: errMissing}
	}

	ts, err := parseObsTime(loc.Time.ObsTime)
	if err != nil {
		return weather.ObservationRecord{}, &weather.ParseError{Source: sourceObservation, Field: "time.obsTime", Err: err}
	}
	rec.ObservedAt = ts

	return rec, nil
}

// decodeForecast extracts the nearest time window of the Wx, PoP and CI
// elements from the first location of a forecast response.
func decodeForecast(r io.Reader) (weather.ForecastRecord, error) {
	var payload forecastResponse
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return weather.ForecastRecord{}, &weather.ParseError{Source: sourceForecast, Err: err}
	}
	if payload.Records == nil || len(payload.Records.Location) == 0 {
		return weather.ForecastRecord{}, &weather.ParseError{Source: sourceForecast, Field: "records.location", Err: errNoLocation}
	}
	loc := payload.Records.Location[0]

	var (
		rec                     weather.ForecastRecord
		haveWx, havePoP, haveCI bool
	)

	for _, el := range loc.WeatherElement {
		switch el.ElementName {
		case elementWeather, elementRainChance, elementComfort:
		default:
			continue
		}
		if len(el.Time) == 0 {
			return weather.ForecastRecord{}, &weather.ParseError{Source: sourceForecast, Field: el.ElementName, Err: errEmptySeries}
		}
		// The dataset covers 36 hours; only the nearest window is shown.
		param := el.Time[0].Parameter

		switch el.ElementName {
		case elementWeather:
			if haveWx {
				continue
			}
			code, err := strconv.Atoi(strings.TrimSpace(string(param.ParameterValue)))
			if err != nil {
				return weather.ForecastRecord{}, &weather.ParseError{Source: sourceForecast, Field: elementWeather, Err: fmt.Errorf("%w: weather code %q", errInvalidValue, param.ParameterValue)}
			}
			rec.Description = string(param.ParameterName)
			rec.WeatherCode = code
			haveWx = true
		case elementRainChance:
			if havePoP {
				continue
			}
			pct, err := parsePercent(string(param.ParameterName))
			if err != nil {
				return weather.ForecastRecord{}, &weather.ParseError{Source: sourceForecast, Field: elementRainChance, Err: err}
			}
			rec.RainProbability = pct
			havePoP = true
		case elementComfort:
			if haveCI {
				continue
			}
			rec.Comfort = string(param.ParameterName)
			haveCI = true
		}
	}

	switch {
	case !haveWx:
		return weather.ForecastRecord{}, &weather.ParseError{Source: sourceForecast, Field: elementWeather, Err: errMissing}
	case !havePoP:
		return weather.ForecastRecord{}, &weather.ParseError{Source: sourceForecast, Field: elementRainChance, Err: errMissing}
	case !haveCI:
		return weather.ForecastRecord{}, &weather.ParseError{Source: sourceForecast, Field: elementComfort, Err: errMissing}
	}

	return rec, nil
}

func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", errInvalidValue, s)
	}
	return v, nil
}

// parsePercent accepts "20" as well as "20%".
func parsePercent(s string) (float64, error) {
	return parseFloat(strings.TrimSuffix(strings.TrimSpace(s), "%"))
}

func parseObsTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errMissing
	}
	if ts, err := time.ParseInLocation(obsTimeLayout, s, taiwanTime); err == nil {
		return ts, nil
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	return time.Time{}, fmt.Errorf("%w: time %q", errInvalidValue, s)
}
