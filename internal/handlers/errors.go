package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"villa-backend/internal/apperr"
	"villa-backend/internal/middleware"
	"villa-backend/pkg/utils"

	"github.com/gorilla/mux"
)

// writeServiceError maps the service error taxonomy onto HTTP statuses
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var validation *apperr.ValidationError
	var conflict *apperr.ConflictError
	var notFound *apperr.NotFoundError
	var permission *apperr.PermissionError

	switch {
	case errors.As(err, &validation):
		utils.JSON(w, http.StatusBadRequest, utils.ErrorBody{Error: validation.Error(), Field: validation.Field})
	case errors.As(err, &conflict):
		id := conflict.BookingID
		utils.JSON(w, http.StatusConflict, utils.ErrorBody{
			Error:                 conflict.Error(),
			ConflictingBookingID:  &id,
			ConflictingCustomerID: conflict.CustomerID,
		})
	case errors.As(err, &notFound):
		utils.Error(w, http.StatusNotFound, notFound.Error())
	case errors.As(err, &permission):
		utils.Error(w, http.StatusForbidden, permission.Error())
	case errors.Is(err, apperr.ErrReadOnlyEntry):
		utils.Error(w, http.StatusForbidden, err.Error())
	default:
		log.Printf("[API] %s %s failed: %v", r.Method, r.URL.Path, err)
		utils.Error(w, http.StatusInternalServerError, "Internal server error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// pathID parses a numeric mux variable, writing 400 on failure
func pathID(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil || id <= 0 {
		utils.Error(w, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return id, true
}

// queryInt reads an optional integer query parameter
func queryInt(r *http.Request, name string, fallback int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperr.Validation(name, "must be a number")
	}
	return n, nil
}

func currentUserID(r *http.Request) int {
	id, _ := middleware.GetUserIDFromContext(r.Context())
	return id
}
