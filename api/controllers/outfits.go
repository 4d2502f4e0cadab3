package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/combinewear/wardrobe-backend/api/responses"
	"github.com/combinewear/wardrobe-backend/api/validators"
	"github.com/combinewear/wardrobe-backend/internal/outfits"
	pkgerrors "github.com/combinewear/wardrobe-backend/pkg/errors"
	"github.com/combinewear/wardrobe-backend/pkg/logger"
	"github.com/combinewear/wardrobe-backend/pkg/pagination"
)

type outfitGenerateBody struct {
	Weather         *string `json:"weather,omitempty"`
	ExcludeOutfitID *string `json:"exclude_outfit_id,omitempty"`
	Feedback        string  `json:"feedback,omitempty"`
}

// OutfitsGenerate asks the model for a fresh suggestion. The body is
// optional; an empty post generates without extra context.
func OutfitsGenerate(svc outfits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := outfits.GenerateInput{}
		if r.ContentLength > 0 {
			var body outfitGenerateBody
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.Weather = body.Weather
			input.Feedback = body.Feedback
			if body.ExcludeOutfitID != nil {
				excluded, parseErr := uuid.Parse(*body.ExcludeOutfitID)
				if parseErr != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "exclude_outfit_id must be a uuid"))
					return
				}
				input.Exclude = &excluded
			}
		}

		outfit, err := svc.Generate(r.Context(), userID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, outfit)
	}
}

type outfitCreateBody struct {
	Name        string   `json:"name" validate:"required,min=1,max=120"`
	ItemIDs     []string `json:"item_ids" validate:"required,min=1"`
	Description *string  `json:"description,omitempty"`
}

// OutfitsCreate persists a user-assembled outfit.
func OutfitsCreate(svc outfits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body outfitCreateBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		itemIDs := make([]uuid.UUID, 0, len(body.ItemIDs))
		for _, raw := range body.ItemIDs {
			id, parseErr := uuid.Parse(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "item_ids must be uuids"))
				return
			}
			itemIDs = append(itemIDs, id)
		}

		outfit, err := svc.Create(r.Context(), userID, outfits.CreateInput{
			Name:        body.Name,
			ItemIDs:     itemIDs,
			Description: body.Description,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, outfit)
	}
}

func OutfitsList(svc outfits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cursor := strings.TrimSpace(r.URL.Query().Get("cursor"))

		list, err := svc.List(r.Context(), userID, pagination.Params{Limit: limit, Cursor: cursor})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

type outfitStatusBody struct {
	Status string `json:"status" validate:"required"`
}

// OutfitsUpdateStatus applies a lifecycle transition. Marking an outfit worn
// also returns the chained follow-up suggestion when one was generated.
func OutfitsUpdateStatus(svc outfits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		outfitID, err := pathUUID(r, "outfitId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body outfitStatusBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.UpdateStatus(r.Context(), userID, outfitID, body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func OutfitsDelete(svc outfits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		outfitID, err := pathUUID(r, "outfitId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), userID, outfitID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// OutfitsDeleteDisliked clears the user's disliked pile in one call.
func OutfitsDeleteDisliked(svc outfits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		removed, err := svc.DeleteDisliked(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"deleted": removed})
	}
}
