package weather

import (
	"time"
)

// Condition is the weather-code family used to pick an icon.
type Condition string

const (
	ConditionUnknown                Condition = "unknown"
	ConditionThunderstorm           Condition = "thunderstorm"
	ConditionClear                  Condition = "clear"
	ConditionCloudyFog              Condition = "cloudy-fog"
	ConditionCloudy                 Condition = "cloudy"
	ConditionFog                    Condition = "fog"
	ConditionPartiallyClearWithRain Condition = "partially-clear-with-rain"
	ConditionSnowing                Condition = "snowing"
)

// Params identifies one aggregator input set. A change to any field
// re-triggers a fetch cycle.
type Params struct {
	ObservationName string
	ForecastName    string
	CredentialKey   string
}

// ObservationRecord is the current-conditions reading of one station.
type ObservationRecord struct {
	LocationName string    `json:"locationName"`
	WindSpeed    float64   `json:"windSpeed"`
	Temperature  float64   `json:"temperature"`
	ObservedAt   time.Time `json:"observationTime"`
}

// ForecastRecord holds the nearest forecast window for a city.
type ForecastRecord struct {
	Description string `json:"description"`
	WeatherCode int    `json:"weatherCode"`
	// RainProbability is a percentage in [0, 100].
	RainProbability float64 `json:"rainPossibility"`
	Comfort         string  `json:"comfortability"`
}

// ViewModel is the merged result of one fetch cycle plus the loading flag.
// When IsLoading is false both embedded records come from the same cycle.
type ViewModel struct {
	ObservationRecord
	ForecastRecord
	IsLoading bool `json:"isLoading"`
}

// Merge combines both records of a completed cycle into a settled view-model.
func Merge(obs ObservationRecord, fc ForecastRecord) ViewModel {
	return ViewModel{
		ObservationRecord: obs,
		ForecastRecord:    fc,
		IsLoading:         false,
	}
}
