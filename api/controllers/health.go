package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/combinewear/wardrobe-backend/api/responses"
	"github.com/combinewear/wardrobe-backend/pkg/config"
	pkgerrors "github.com/combinewear/wardrobe-backend/pkg/errors"
	"github.com/combinewear/wardrobe-backend/pkg/logger"
)

const readinessTimeout = 3 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Combine-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports whether the API can reach its backing services. Nil
// dependencies are skipped so partial deployments still report on what they
// actually use.
func HealthReady(cfg *config.Config, logg *logger.Logger, db, cache, storage pinger) http.HandlerFunc {
	checks := []struct {
		name string
		dep  pinger
	}{
		{"postgres", db},
		{"redis", cache},
		{"gcs", storage},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Combine-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		statuses := make(map[string]string, len(checks))
		healthy := true
		for _, check := range checks {
			if check.dep == nil {
				continue
			}
			if err := check.dep.Ping(ctx); err != nil {
				statuses[check.name] = "down"
				healthy = false
				if logg != nil {
					logg.Error(ctx, "readiness check failed for "+check.name, err)
				}
				continue
			}
			statuses[check.name] = "up"
		}

		if !healthy {
			err := pkgerrors.New(pkgerrors.CodeDependency, "one or more dependencies unavailable").
				WithDetails(map[string]any{"checks": statuses})
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": statuses})
	}
}
