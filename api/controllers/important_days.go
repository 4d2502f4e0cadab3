package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/combinewear/wardrobe-backend/api/responses"
	"github.com/combinewear/wardrobe-backend/api/validators"
	"github.com/combinewear/wardrobe-backend/internal/importantdays"
	pkgerrors "github.com/combinewear/wardrobe-backend/pkg/errors"
	"github.com/combinewear/wardrobe-backend/pkg/logger"
)

type importantDayCreateBody struct {
	Date     string  `json:"date"`
	Name     *string `json:"name,omitempty"`
	Occasion string  `json:"occasion"`
	Notes    *string `json:"notes,omitempty"`
}

type importantDayUpdateBody struct {
	Date     *string `json:"date,omitempty"`
	Name     *string `json:"name,omitempty"`
	Occasion *string `json:"occasion,omitempty"`
	Notes    *string `json:"notes,omitempty"`
}

// parseDayDate accepts RFC3339 timestamps and the bare YYYY-MM-DD form the
// mobile clients submit.
func parseDayDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}

func ImportantDaysList(svc importantdays.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		days, err := svc.List(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, days)
	}
}

func ImportantDaysCreate(svc importantdays.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body importantDayCreateBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		date, err := parseDayDate(body.Date)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "date must be YYYY-MM-DD or RFC3339"))
			return
		}

		day, err := svc.Create(r.Context(), userID, importantdays.CreateDayInput{
			Date:     date,
			Name:     body.Name,
			Occasion: body.Occasion,
			Notes:    body.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, day)
	}
}

func ImportantDaysUpdate(svc importantdays.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dayID, err := pathUUID(r, "dayId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body importantDayUpdateBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := importantdays.UpdateDayInput{
			Name:     body.Name,
			Occasion: body.Occasion,
			Notes:    body.Notes,
		}
		if body.Date != nil {
			date, err := parseDayDate(*body.Date)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "date must be YYYY-MM-DD or RFC3339"))
				return
			}
			input.Date = &date
		}

		day, err := svc.Update(r.Context(), userID, dayID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, day)
	}
}

func ImportantDaysDelete(svc importantdays.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dayID, err := pathUUID(r, "dayId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), userID, dayID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
