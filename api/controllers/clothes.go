package controllers

import (
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/combinewear/wardrobe-backend/api/responses"
	"github.com/combinewear/wardrobe-backend/api/validators"
	"github.com/combinewear/wardrobe-backend/internal/media"
	"github.com/combinewear/wardrobe-backend/internal/wardrobe"
	"github.com/combinewear/wardrobe-backend/pkg/enums"
	pkgerrors "github.com/combinewear/wardrobe-backend/pkg/errors"
	"github.com/combinewear/wardrobe-backend/pkg/logger"
)

// maxMultipartMemory bounds the in-memory portion of multipart parsing;
// larger files spill to temp storage.
const maxMultipartMemory = 8 << 20

// ClothesCreate accepts a multipart form with the garment photo and its
// descriptive fields, stores the image, then persists the item.
func ClothesCreate(svc wardrobe.Service, mediaSvc media.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form"))
			return
		}

		file, header, err := r.FormFile("image")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "an image file is required"))
			return
		}
		defer func() { _ = file.Close() }()

		uploaded, err := mediaSvc.Upload(r.Context(), userID, uploadInputFor(enums.MediaKindWardrobeItem, header, file))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := wardrobe.CreateItemInput{
			Name:        r.FormValue("name"),
			Category:    r.FormValue("category"),
			SubCategory: formPtr(r, "sub_category"),
			Color:       formPtr(r, "color"),
			Season:      formPtr(r, "season"),
			Material:    formPtr(r, "material"),
			Size:        formPtr(r, "size"),
			Brand:       formPtr(r, "brand"),
			Description: formPtr(r, "description"),
			ImageURL:    uploaded.URL,
			ImageKey:    uploaded.GCSKey,
		}

		item, err := svc.Create(r.Context(), userID, input)
		if err != nil {
			// The row never landed, so queue the just-uploaded image for removal.
			if cleanupErr := mediaSvc.RequestDeletionByKey(r.Context(), userID, uploaded.GCSKey); cleanupErr != nil && logg != nil {
				logg.Warn(r.Context(), "reclaiming orphaned item image failed")
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

// ClothesAnalyze runs the vision model over an uploaded photo without
// persisting anything.
func ClothesAnalyze(svc wardrobe.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form"))
			return
		}

		file, header, err := r.FormFile("image")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "an image file is required"))
			return
		}
		defer func() { _ = file.Close() }()

		data, err := io.ReadAll(file)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read image"))
			return
		}

		result, err := svc.Analyze(r.Context(), userID, header.Header.Get("Content-Type"), data)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func ClothesList(svc wardrobe.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.List(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func ClothesDetail(svc wardrobe.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := pathUUID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Get(r.Context(), userID, itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

type clothesUpdateBody struct {
	Name        *string `json:"name,omitempty"`
	Category    *string `json:"category,omitempty"`
	SubCategory *string `json:"sub_category,omitempty"`
	Color       *string `json:"color,omitempty"`
	Season      *string `json:"season,omitempty"`
	Material    *string `json:"material,omitempty"`
	Size        *string `json:"size,omitempty"`
	Brand       *string `json:"brand,omitempty"`
	Description *string `json:"description,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

func ClothesUpdate(svc wardrobe.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := pathUUID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body clothesUpdateBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Update(r.Context(), userID, itemID, wardrobe.UpdateItemInput{
			Name:        body.Name,
			Category:    body.Category,
			SubCategory: body.SubCategory,
			Color:       body.Color,
			Season:      body.Season,
			Material:    body.Material,
			Size:        body.Size,
			Brand:       body.Brand,
			Description: body.Description,
			IsActive:    body.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func ClothesDelete(svc wardrobe.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := pathUUID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), userID, itemID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

func ClothesStats(svc wardrobe.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		stats, err := svc.Stats(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

func uploadInputFor(kind enums.MediaKind, header *multipart.FileHeader, file multipart.File) media.UploadInput {
	return media.UploadInput{
		Kind:      kind,
		FileName:  header.Filename,
		MimeType:  header.Header.Get("Content-Type"),
		SizeBytes: header.Size,
		Body:      file,
	}
}

func formPtr(r *http.Request, field string) *string {
	value := strings.TrimSpace(r.FormValue(field))
	if value == "" {
		return nil
	}
	return &value
}
