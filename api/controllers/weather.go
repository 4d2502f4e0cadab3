package controllers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/combinewear/wardrobe-backend/api/responses"
	pkgerrors "github.com/combinewear/wardrobe-backend/pkg/errors"
	"github.com/combinewear/wardrobe-backend/pkg/logger"
	"github.com/combinewear/wardrobe-backend/pkg/weather"
)

// WeatherProvider is the upstream surface the weather endpoint proxies.
type WeatherProvider interface {
	Current(ctx context.Context, lat, lon float64) (*weather.Conditions, error)
}

// WeatherCurrent proxies current conditions for the given coordinates so the
// client never carries the upstream API key.
func WeatherCurrent(provider WeatherProvider, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if provider == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeConfiguration, "weather is not configured"))
			return
		}

		lat, err := queryFloat(r, "lat", -90, 90)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lon, err := queryFloat(r, "lon", -180, 180)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		conditions, err := provider.Current(r.Context(), lat, lon)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch weather"))
			return
		}
		responses.WriteSuccess(w, conditions)
	}
}

func queryFloat(r *http.Request, key string, min, max float64) (float64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter required").WithDetails(map[string]any{"field": key})
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be numeric").WithDetails(map[string]any{"field": key})
	}
	if value < min || value > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter out of range").WithDetails(map[string]any{"field": key, "min": min, "max": max})
	}
	return value, nil
}
