package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/gobeaver/formkit"
)

// UploadResponse is the body of a successful upload
type UploadResponse struct {
	Record    *formkit.Record `json:"record"`
	Locations []string        `json:"locations"`
}

// ErrorResponse is the body of a failed upload. Saved lists the locations
// of the files that were stored before the failure, "" for the others.
type ErrorResponse struct {
	Error string   `json:"error"`
	Saved []string `json:"saved,omitempty"`
}

func UploadHandler(logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := formkit.SessionFromRequest(r)
		if !ok {
			writeJSON(w, logger, http.StatusUnsupportedMediaType, ErrorResponse{Error: "expected multipart/form-data"})
			return
		}

		locations, err := session.SaveAll()
		if err != nil {
			level.Error(logger).Log("msg", "SaveAll error",
				"err", err,
			)
			resp := ErrorResponse{Error: err.Error()}
			var bulk *formkit.BulkSaveError
			if errors.As(err, &bulk) {
				resp.Saved = bulk.Saved
			}
			writeJSON(w, logger, saveStatus(err), resp)
			return
		}

		stats := session.Stats()
		level.Info(logger).Log("msg", "upload stored",
			"fields", stats.Fields,
			"files", stats.Files,
			"bytes", stats.Bytes,
		)
		writeJSON(w, logger, http.StatusOK, UploadResponse{Record: session.Record(), Locations: locations})
	}
}

func HealthHandler(logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func saveStatus(err error) int {
	switch {
	case formkit.IsValidationError(err):
		return http.StatusUnprocessableEntity
	case formkit.IsUnbound(err), formkit.IsConfigurationError(err):
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, logger log.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		level.Error(logger).Log("msg", "can't write response",
			"err", err,
		)
	}
}
