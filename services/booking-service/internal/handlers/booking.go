package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/chonkyweb/petcare/libs/httpx"
	"github.com/chonkyweb/petcare/services/booking-service/internal/availability"
	"github.com/chonkyweb/petcare/services/booking-service/internal/model"
	"github.com/chonkyweb/petcare/services/booking-service/internal/outbox"
	"github.com/chonkyweb/petcare/services/booking-service/internal/storage"
)

type createBookingRequest struct {
	Branch    string  `json:"branch"`
	ServiceID int64   `json:"service_id"`
	PetID     *int64  `json:"pet_id"`
	AddOnIDs  []int64 `json:"add_on_ids"`
	Date      string  `json:"date"`
	StartTime string  `json:"start_time"`
	Notes     string  `json:"notes"`
}

type appointmentView struct {
	ID         int64        `json:"appointment_id"`
	UserID     string       `json:"user_id"`
	Branch     model.Branch `json:"branch"`
	ServiceID  int64        `json:"service_id"`
	PetID      *int64       `json:"pet_id,omitempty"`
	AddOnIDs   []int64      `json:"add_on_ids"`
	Date       string       `json:"date"`
	StartTime  string       `json:"start_time"`
	EndTime    string       `json:"end_time"`
	Display    string       `json:"display"`
	Status     model.Status `json:"status"`
	Notes      string       `json:"notes,omitempty"`
	AmountPaid string       `json:"amount_paid,omitempty"`
	Change     string       `json:"change,omitempty"`
	CreatedAt  string       `json:"created_at,omitempty"`
	UpdatedAt  string       `json:"updated_at,omitempty"`
}

func viewOf(a model.Appointment) appointmentView {
	v := appointmentView{
		ID:        a.ID,
		UserID:    a.UserID,
		Branch:    a.Branch,
		ServiceID: a.ServiceID,
		PetID:     a.PetID,
		AddOnIDs:  a.AddOnIDs,
		Date:      a.Date.Format("2006-01-02"),
		StartTime: a.StartTime.Format("15:04"),
		EndTime:   a.EndTime.Format("15:04"),
		Display:   a.StartTime.Format("3:04 PM") + " - " + a.EndTime.Format("3:04 PM"),
		Status:    a.Status,
		Notes:     a.Notes,
	}
	if v.AddOnIDs == nil {
		v.AddOnIDs = []int64{}
	}
	if a.AmountPaid != nil {
		v.AmountPaid = a.AmountPaid.StringFixed(2)
	}
	if a.Change != nil {
		v.Change = a.Change.StringFixed(2)
	}
	if !a.CreatedAt.IsZero() {
		v.CreatedAt = a.CreatedAt.UTC().Format(time.RFC3339)
	}
	if !a.UpdatedAt.IsZero() {
		v.UpdatedAt = a.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return v
}

func appointmentPayload(a model.Appointment) map[string]any {
	return map[string]any{
		"appointment_id": a.ID,
		"user_id":        a.UserID,
		"branch":         a.Branch,
		"service_id":     a.ServiceID,
		"date":           a.Date.Format("2006-01-02"),
		"start_time":     a.StartTime.Format(time.RFC3339),
		"end_time":       a.EndTime.Format(time.RFC3339),
		"status":         a.Status,
	}
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	who := identityFrom(r)
	if who.UserID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.ServiceID <= 0 || strings.TrimSpace(req.Date) == "" || strings.TrimSpace(req.StartTime) == "" {
		httpx.WriteError(w, http.StatusBadRequest, "branch, service_id, date, and start_time are required")
		return
	}
	branch, err := model.ParseBranch(req.Branch)
	if err != nil {
		h.writeErr(w, r, err, "appointment")
		return
	}
	date, err := h.parseDate(req.Date)
	if err != nil {
		h.writeErr(w, r, err, "appointment")
		return
	}
	clock, err := availability.ParseClock(req.StartTime)
	if err != nil {
		h.writeErr(w, r, err, "appointment")
		return
	}
	start := clock.On(date)
	if start.Before(h.now()) {
		httpx.WriteError(w, http.StatusBadRequest, "start_time is in the past")
		return
	}

	ctx := r.Context()
	svc, addOns, err := h.loadSelection(ctx, req.ServiceID, req.AddOnIDs)
	if err != nil {
		h.writeErr(w, r, err, "service")
		return
	}
	end := start.Add(svc.Duration())
	if !h.hours.WithinBusinessHours(start, end) {
		httpx.WriteError(w, http.StatusUnprocessableEntity, "requested time is outside business hours")
		return
	}

	appt := model.Appointment{
		UserID:     who.UserID,
		Branch:     branch,
		ServiceID:  svc.ID,
		PetID:      req.PetID,
		AddOnIDs:   idsOf(addOns),
		Date:       date,
		StartTime:  start,
		EndTime:    end,
		Status:     model.StatusPending,
		Notes:      strings.TrimSpace(req.Notes),
		MayOverlap: svc.MayOverlap,
	}

	idempotencyKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	var (
		replay *storage.IdempotencyRecord
		body   []byte
	)
	err = h.store.InTx(ctx, func(tx storage.Tx) error {
		if idempotencyKey != "" {
			rec, exists, err := tx.LockIdempotencyKey(ctx, who.UserID, idempotencyKey)
			if err != nil {
				return err
			}
			if exists && rec.StatusCode > 0 {
				replay = &rec
				return nil
			}
		}

		if err := tx.LockDay(ctx, appt.Branch, appt.Date); err != nil {
			return err
		}
		if !appt.MayOverlap {
			taken, err := tx.HasOverlap(ctx, appt.Branch, appt.Date, appt.StartTime, appt.EndTime)
			if err != nil {
				return err
			}
			if taken {
				return storage.ErrSlotTaken
			}
		}
		if err := tx.CreateAppointment(ctx, &appt); err != nil {
			return err
		}

		evt, err := outbox.AppointmentEvent(appt.ID, outbox.EventAppointmentBooked, appointmentPayload(appt))
		if err != nil {
			return err
		}
		if err := tx.InsertEvent(ctx, evt); err != nil {
			return err
		}

		body, err = json.Marshal(viewOf(appt))
		if err != nil {
			return err
		}
		if idempotencyKey != "" {
			return tx.FinalizeIdempotency(ctx, who.UserID, idempotencyKey, appt.ID, http.StatusCreated, body)
		}
		return nil
	})
	if err != nil {
		h.writeErr(w, r, err, "appointment")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if replay != nil {
		w.Header().Set("Idempotent-Replay", "true")
		w.WriteHeader(replay.StatusCode)
		_, _ = w.Write(replay.ResponsePayload)
		return
	}
	h.logger.Info("appointment booked", "appointment_id", appt.ID, "branch", appt.Branch, "date", req.Date, "start", clock.String())
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(body)
}

func idsOf(services []model.Service) []int64 {
	ids := make([]int64, 0, len(services))
	for _, s := range services {
		ids = append(ids, s.ID)
	}
	return ids
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	who := identityFrom(r)
	if who.UserID == "" && !who.Admin {
		httpx.WriteError(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	q := r.URL.Query()
	var f storage.ListFilter
	if !who.Admin {
		f.UserID = who.UserID
	}
	if raw := strings.TrimSpace(q.Get("branch")); raw != "" {
		b, err := model.ParseBranch(raw)
		if err != nil {
			h.writeErr(w, r, err, "appointments")
			return
		}
		f.Branch = b
	}
	if raw := strings.TrimSpace(q.Get("date")); raw != "" {
		d, err := h.parseDate(raw)
		if err != nil {
			h.writeErr(w, r, err, "appointments")
			return
		}
		f.Date = &d
	}
	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		s, err := model.ParseStatus(raw)
		if err != nil {
			h.writeErr(w, r, err, "appointments")
			return
		}
		f.Status = s
	}
	f.Limit = 50
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			f.Limit = n
		}
	}

	appts, err := h.store.ListAppointments(r.Context(), f)
	if err != nil {
		h.writeErr(w, r, err, "appointments")
		return
	}
	items := make([]appointmentView, 0, len(appts))
	for _, a := range appts {
		items = append(items, viewOf(a))
	}
	httpx.WriteJSON(w, http.StatusOK, items)
}

type appointmentRef struct {
	AppointmentID int64 `json:"appointment_id"`
}

// Cancel lets a customer withdraw their own booking while it is still pending.
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	who := identityFrom(r)
	if who.UserID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "missing user identity")
		return
	}
	var req appointmentRef
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.AppointmentID <= 0 {
		httpx.WriteError(w, http.StatusBadRequest, "appointment_id required")
		return
	}

	ctx := r.Context()
	var appt model.Appointment
	err := h.store.InTx(ctx, func(tx storage.Tx) error {
		var err error
		appt, err = tx.GetAppointmentForUpdate(ctx, req.AppointmentID)
		if err != nil {
			return err
		}
		if appt.UserID != who.UserID {
			// Do not reveal other customers' bookings.
			return storage.ErrNotFound
		}
		if appt.Status == model.StatusCancelled {
			return nil
		}
		if appt.Status != model.StatusPending {
			return conflictError("only pending appointments can be cancelled")
		}
		if appt.UpdatedAt, err = tx.UpdateStatus(ctx, appt.ID, model.StatusCancelled); err != nil {
			return err
		}
		appt.Status = model.StatusCancelled

		evt, err := outbox.AppointmentEvent(appt.ID, outbox.EventAppointmentCancelled, appointmentPayload(appt))
		if err != nil {
			return err
		}
		return tx.InsertEvent(ctx, evt)
	})
	if err != nil {
		h.writeErr(w, r, err, "appointment")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, viewOf(appt))
}

type statusRequest struct {
	AppointmentID int64  `json:"appointment_id"`
	Status        string `json:"status"`
}

// UpdateStatus is the admin confirm/cancel action. Completion goes through Payment.
func (h *BookingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !identityFrom(r).Admin {
		httpx.WriteError(w, http.StatusForbidden, "admin role required")
		return
	}
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.AppointmentID <= 0 {
		httpx.WriteError(w, http.StatusBadRequest, "appointment_id required")
		return
	}
	status, err := model.ParseStatus(req.Status)
	if err != nil {
		h.writeErr(w, r, err, "appointment")
		return
	}
	if status == model.StatusCompleted {
		httpx.WriteError(w, http.StatusBadRequest, "appointments are completed by recording a payment")
		return
	}

	ctx := r.Context()
	var appt model.Appointment
	err = h.store.InTx(ctx, func(tx storage.Tx) error {
		var err error
		appt, err = tx.GetAppointmentForUpdate(ctx, req.AppointmentID)
		if err != nil {
			return err
		}
		if appt.Status == status {
			return nil
		}
		if !appt.Status.CanTransition(status) {
			return conflictError("cannot change status from " + string(appt.Status) + " to " + string(status))
		}
		previous := appt.Status
		if appt.UpdatedAt, err = tx.UpdateStatus(ctx, appt.ID, status); err != nil {
			return err
		}
		appt.Status = status

		payload := appointmentPayload(appt)
		payload["previous_status"] = previous
		evt, err := outbox.AppointmentEvent(appt.ID, outbox.EventAppointmentStatusChanged, payload)
		if err != nil {
			return err
		}
		return tx.InsertEvent(ctx, evt)
	})
	if err != nil {
		h.writeErr(w, r, err, "appointment")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, viewOf(appt))
}
