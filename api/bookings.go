package api

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/garnizeh/labbook/internal/booking"
	"github.com/garnizeh/labbook/internal/metrics"
	"github.com/garnizeh/labbook/pkg/models"
	"github.com/gorilla/mux"
)

const maxRecentLimit = 100

type BookingsHandler struct {
	svc     *booking.Service
	metrics *metrics.Metrics
}

// NewBookingsHandler creates a BookingsHandler. m may be nil.
func NewBookingsHandler(svc *booking.Service, m *metrics.Metrics) *BookingsHandler {
	return &BookingsHandler{svc: svc, metrics: m}
}

type submitResponse struct {
	Message string `json:"message"`
	ID      int64  `json:"id"`
}

type statusRequest struct {
	Status *string `json:"status"`
}

// Submit handles the public booking form.
func (h *BookingsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req booking.SubmitRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	id, err := h.svc.Submit(r.Context(), req)
	var verr *booking.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, errorResponse{Error: verr.Error(), Missing: verr.Missing}, http.StatusBadRequest)
		return
	}
	if err != nil {
		logger.Error("failed to create booking", slog.Any("err", err))
		writeError(w, "An error occurred while processing your request. Please try again.", http.StatusInternalServerError)
		return
	}

	h.metrics.BookingSubmitted()
	writeJSON(w, submitResponse{Message: "Booking submitted successfully!", ID: id}, http.StatusCreated)
}

func (h *BookingsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		logger.Error("failed to compute stats", slog.Any("err", err))
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, stats, http.StatusOK)
}

// Recent lists the newest bookings. ?limit= outside 1..100 falls back to
// the default.
func (h *BookingsHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit := booking.DefaultRecentLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= 1 && n <= maxRecentLimit {
			limit = n
		}
	}

	list, err := h.svc.Recent(r.Context(), limit)
	if err != nil {
		logger.Error("failed to list recent bookings", slog.Any("err", err))
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, list, http.StatusOK)
}

func (h *BookingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := bookingID(r)
	if !ok {
		notFound(w, r)
		return
	}

	b, err := h.svc.Get(r.Context(), id)
	if errors.Is(err, booking.ErrNotFound) {
		notFound(w, r)
		return
	}
	if err != nil {
		logger.Error("failed to get booking", slog.Int64("id", id), slog.Any("err", err))
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, b, http.StatusOK)
}

func (h *BookingsHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := bookingID(r)
	if !ok {
		notFound(w, r)
		return
	}

	// unknown ids are reported before the body is looked at
	if _, err := h.svc.Get(r.Context(), id); err != nil {
		if errors.Is(err, booking.ErrNotFound) {
			notFound(w, r)
			return
		}
		logger.Error("failed to get booking", slog.Int64("id", id), slog.Any("err", err))
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Status == nil {
		writeError(w, "Status is required", http.StatusBadRequest)
		return
	}

	err := h.svc.SetStatus(r.Context(), id, *req.Status)
	var verr *booking.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, "Status is required", http.StatusBadRequest)
		return
	case errors.Is(err, booking.ErrNotFound):
		notFound(w, r)
		return
	case err != nil:
		logger.Error("failed to update status", slog.Int64("id", id), slog.Any("err", err))
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	status := strings.TrimSpace(*req.Status)
	h.metrics.StatusUpdated(status, models.KnownStatus(status))
	writeJSON(w, messageResponse{Message: "Status updated successfully"}, http.StatusOK)
}

func (h *BookingsHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.svc.ExportCSV(r.Context(), &buf); err != nil {
		logger.Error("failed to export csv", slog.Any("err", err))
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.metrics.Exported("csv")
	writeAttachment(w, "text/csv", "bookings.csv", buf.Bytes())
}

func (h *BookingsHandler) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.svc.ExportXLSX(r.Context(), &buf); err != nil {
		logger.Error("failed to export xlsx", slog.Any("err", err))
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.metrics.Exported("xlsx")
	writeAttachment(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "bookings.xlsx", buf.Bytes())
}

func writeAttachment(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		logger.Error("failed to write attachment", slog.String("filename", filename), slog.Any("err", err))
	}
}

func bookingID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
