package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/chonkyweb/petcare/libs/httpx"
	"github.com/chonkyweb/petcare/libs/money"
	"github.com/chonkyweb/petcare/services/booking-service/internal/availability"
	"github.com/chonkyweb/petcare/services/booking-service/internal/model"
	"github.com/chonkyweb/petcare/services/booking-service/internal/payment"
	"github.com/chonkyweb/petcare/services/booking-service/internal/storage"
	"github.com/shopspring/decimal"
)

// Store is the persistence the booking API needs. *storage.Repository implements it.
type Store interface {
	InTx(ctx context.Context, fn func(storage.Tx) error) error
	GetService(ctx context.Context, id int64) (model.Service, error)
	ListServices(ctx context.Context, ids []int64) ([]model.Service, error)
	GetAppointment(ctx context.Context, id int64) (model.Appointment, error)
	ListActiveForDay(ctx context.Context, branch model.Branch, date time.Time) ([]model.Appointment, error)
	ListAppointments(ctx context.Context, f storage.ListFilter) ([]model.Appointment, error)
	GetTransaction(ctx context.Context, appointmentID int64) (model.Transaction, error)
}

type Config struct {
	Hours      availability.BusinessHours
	Money      *money.Formatter
	References payment.ReferenceGenerator
	Cache      payment.TransactionCache
	Now        func() time.Time
}

type BookingHandler struct {
	store  Store
	logger *slog.Logger
	hours  availability.BusinessHours
	money  *money.Formatter
	refs   payment.ReferenceGenerator
	cache  payment.TransactionCache
	now    func() time.Time
}

func NewBookingHandler(store Store, logger *slog.Logger, cfg Config) *BookingHandler {
	if cfg.Hours.Location == nil {
		cfg.Hours = availability.DefaultBusinessHours(time.UTC)
	}
	if cfg.References == nil {
		cfg.References = payment.NewRandomReferences()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &BookingHandler{
		store:  store,
		logger: logger,
		hours:  cfg.Hours,
		money:  cfg.Money,
		refs:   cfg.References,
		cache:  cfg.Cache,
		now:    cfg.Now,
	}
}

// Register mounts the booking routes on mux.
func (h *BookingHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/public/services", h.Services)
	mux.HandleFunc("/api/v1/public/slots", h.Slots)
	mux.HandleFunc("/api/v1/public/quote", h.Quote)
	mux.HandleFunc("/api/v1/appointments", h.Appointments)
	mux.HandleFunc("/api/v1/appointments/cancel", h.Cancel)
	mux.HandleFunc("/api/v1/appointments/transaction", h.Transaction)
	mux.HandleFunc("/api/v1/admin/appointments/status", h.UpdateStatus)
	mux.HandleFunc("/api/v1/admin/appointments/payment", h.Payment)
}

// Appointments dispatches GET to List and POST to Create.
func (h *BookingHandler) Appointments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.List(w, r)
	case http.MethodPost:
		h.Create(w, r)
	default:
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type identity struct {
	UserID string
	Admin  bool
}

// Identity headers are set by the gateway after authentication.
func identityFrom(r *http.Request) identity {
	return identity{
		UserID: strings.TrimSpace(r.Header.Get("X-User-Id")),
		Admin:  strings.EqualFold(strings.TrimSpace(r.Header.Get("X-Role")), "admin"),
	}
}

func (h *BookingHandler) today() time.Time {
	return availability.Day(h.now().In(h.hours.Location), h.hours.Location)
}

func (h *BookingHandler) parseDate(raw string) (time.Time, error) {
	d, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(raw), h.hours.Location)
	if err != nil {
		return time.Time{}, model.Invalid("date", "must be YYYY-MM-DD")
	}
	return d, nil
}

func parseID(field, raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, model.Invalid(field, "must be a positive integer")
	}
	return id, nil
}

// writeErr maps domain and storage errors onto HTTP statuses.
func (h *BookingHandler) writeErr(w http.ResponseWriter, r *http.Request, err error, what string) {
	var vErr *model.ValidationError
	var short *payment.AmountInsufficientError
	switch {
	case errors.As(err, &vErr):
		httpx.WriteError(w, http.StatusBadRequest, vErr.Error())
	case errors.As(err, &short):
		httpx.WriteJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error":     short.Error(),
			"total":     short.Total.StringFixed(2),
			"shortfall": short.Shortfall().StringFixed(2),
		})
	case errors.Is(err, storage.ErrSlotTaken):
		httpx.WriteError(w, http.StatusConflict, storage.ErrSlotTaken.Error())
	case errors.Is(err, errConflict):
		httpx.WriteError(w, http.StatusConflict, err.Error())
	case storage.IsNotFound(err):
		httpx.WriteError(w, http.StatusNotFound, what+" not found")
	default:
		h.logger.Error(what+" request failed", "err", err, "path", r.URL.Path, "request_id", httpx.RequestIDFromContext(r.Context()))
		httpx.WriteError(w, http.StatusInternalServerError, "failed to process "+what)
	}
}

var errConflict = errors.New("conflict")

type conflictError string

func (e conflictError) Error() string        { return string(e) }
func (e conflictError) Is(target error) bool { return target == errConflict }

func (h *BookingHandler) format(d decimal.Decimal) string {
	if h.money == nil {
		return d.StringFixed(2)
	}
	return h.money.Format(d)
}
