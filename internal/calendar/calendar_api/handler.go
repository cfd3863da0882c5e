package calendar_api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"atrium-jazz/internal/calendar"
	"atrium-jazz/internal/logger"
	"atrium-jazz/internal/models"
	"atrium-jazz/internal/share"
	"atrium-jazz/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
)

// CalendarService is what the handlers need from calendar.Service.
type CalendarService interface {
	ParseWindow(from, to string) (calendar.Window, error)
	Events(ctx context.Context, w calendar.Window) ([]models.Event, error)
	Event(ctx context.Context, slug string) (*models.Event, error)
	Venue(ctx context.Context, slug string) (*models.Venue, error)
	Artist(ctx context.Context, id string) (*models.ArtistProfile, error)
	Sitemap(ctx context.Context) ([]byte, error)

	UpdateVenue(ctx context.Context, slug string, in calendar.VenueInput) (*models.Venue, error)
	DeleteVenue(ctx context.Context, slug string) error
	DeleteEvent(ctx context.Context, id string) error
	UpdateArtist(ctx context.Context, id string, in calendar.ArtistInput) (*models.ArtistProfile, error)
	DeleteArtist(ctx context.Context, id string) error
}

type Handler struct {
	Service CalendarService
	QR      *share.QRGenerator
	Logger  *logger.Logger
}

func NewHandler(service CalendarService, qr *share.QRGenerator, log *logger.Logger) *Handler {
	return &Handler{Service: service, QR: qr, Logger: log}
}

// Routes mounts the public API, the sitemap and the admin API. admin guards
// every /api/admin route.
func (h *Handler) Routes(admin func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Get("/sitemap.xml", h.GetSitemap)

	r.Route("/api", func(r chi.Router) {
		r.Get("/events", h.ListEvents)
		r.Get("/events/{slug}", h.GetEvent)
		r.Get("/events/{slug}/qr", h.GetEventQR)
		r.Get("/venues/{slug}", h.GetVenue)
		r.Get("/artists/{id}", h.GetArtist)

		r.Route("/admin", func(r chi.Router) {
			r.Use(admin)
			r.Delete("/events/{id}", h.DeleteEvent)
			r.Put("/venues/{slug}", h.UpdateVenue)
			r.Delete("/venues/{slug}", h.DeleteVenue)
			r.Put("/artists/{id}", h.UpdateArtist)
			r.Delete("/artists/{id}", h.DeleteArtist)
		})
	})
	return r
}

// ---------------- PUBLIC ----------------

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	window, err := h.Service.ParseWindow(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		h.writeError(w, err, "Invalid date range")
		return
	}
	events, err := h.Service.Events(r.Context(), window)
	if err != nil {
		h.writeError(w, err, "Failed to list events")
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("Events retrieved", events))
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.Service.Event(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.writeError(w, err, "Event not available")
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("Event retrieved", event))
}

// GetEventQR returns a PNG QR code linking to the event page.
func (h *Handler) GetEventQR(w http.ResponseWriter, r *http.Request) {
	event, err := h.Service.Event(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.writeError(w, err, "Event not available")
		return
	}
	png, err := h.QR.EventPNG(event.Slug)
	if err != nil {
		h.writeError(w, err, "Failed to render QR code")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

func (h *Handler) GetVenue(w http.ResponseWriter, r *http.Request) {
	venue, err := h.Service.Venue(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.writeError(w, err, "Venue not available")
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("Venue retrieved", venue))
}

func (h *Handler) GetArtist(w http.ResponseWriter, r *http.Request) {
	artist, err := h.Service.Artist(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err, "Artist not available")
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("Artist retrieved", artist))
}

func (h *Handler) GetSitemap(w http.ResponseWriter, r *http.Request) {
	body, err := h.Service.Sitemap(r.Context())
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("sitemap: %v", err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.Header().Set("Cache-Control", "public, max-age=3600, must-revalidate")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// ---------------- ADMIN ----------------

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Service.DeleteEvent(r.Context(), id); err != nil {
		h.writeError(w, err, "Failed to delete event")
		return
	}
	h.Logger.Info("ADMIN", fmt.Sprintf("deleted event %s", id))
	writeJSON(w, http.StatusOK, utils.SuccessResponse("Event deleted", nil))
}

func (h *Handler) UpdateVenue(w http.ResponseWriter, r *http.Request) {
	var in calendar.VenueInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}
	venue, err := h.Service.UpdateVenue(r.Context(), chi.URLParam(r, "slug"), in)
	if err != nil {
		h.writeError(w, err, "Failed to update venue")
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("Venue updated", venue))
}

func (h *Handler) DeleteVenue(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if err := h.Service.DeleteVenue(r.Context(), slug); err != nil {
		h.writeError(w, err, "Failed to delete venue")
		return
	}
	h.Logger.Info("ADMIN", fmt.Sprintf("deleted venue %s with its events", slug))
	writeJSON(w, http.StatusOK, utils.SuccessResponse("Venue and related events deleted", nil))
}

func (h *Handler) UpdateArtist(w http.ResponseWriter, r *http.Request) {
	var in calendar.ArtistInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}
	artist, err := h.Service.UpdateArtist(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.writeError(w, err, "Failed to update artist")
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("Artist updated", artist))
}

func (h *Handler) DeleteArtist(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Service.DeleteArtist(r.Context(), id); err != nil {
		h.writeError(w, err, "Failed to delete artist")
		return
	}
	h.Logger.Info("ADMIN", fmt.Sprintf("deleted artist %s", id))
	writeJSON(w, http.StatusOK, utils.SuccessResponse("Artist deleted", nil))
}

// ---------------- HELPERS ----------------

func (h *Handler) writeError(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, calendar.ErrNotFound):
		writeJSON(w, http.StatusNotFound, utils.ErrorResponse(message, "not found"))
	case errors.Is(err, calendar.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse(message, err.Error()))
	default:
		h.Logger.Error("API", fmt.Sprintf("%s: %v", message, err))
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse(message, "internal error"))
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.Logger.LogAPI(r.Method, r.URL.Path, strconv.Itoa(ww.Status()), time.Since(start).String())
	})
}
