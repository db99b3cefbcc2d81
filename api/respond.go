package api

import (
	"encoding/json"
	"log/slog"
	"mime"
	"net/http"
)

// maxBodyBytes caps every JSON request body.
const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error   string   `json:"error"`
	Missing []string `json:"missing,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, v any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", slog.Any("err", err))
	}
}

func writeError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, errorResponse{Error: msg}, status)
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

// decodeJSON enforces the JSON content type and body cap and decodes into v.
// On failure it has already written the 400 response.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if !isJSON(r) {
		writeError(w, "Content-Type must be application/json", http.StatusBadRequest)
		return false
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}

	return true
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, "Not found", http.StatusNotFound)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
}
