package weather

import (
	"context"
)

// Source abstracts the remote weather data provider. Both calls carry the
// same credential key.
type Source interface {
	FetchObservation(ctx context.Context, credentialKey, observationName string) (ObservationRecord, error)
	FetchForecast(ctx context.Context, credentialKey, forecastName string) (ForecastRecord, error)
}
