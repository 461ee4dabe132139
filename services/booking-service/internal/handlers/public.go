package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/chonkyweb/petcare/libs/httpx"
	"github.com/chonkyweb/petcare/services/booking-service/internal/availability"
	"github.com/chonkyweb/petcare/services/booking-service/internal/model"
	"github.com/chonkyweb/petcare/services/booking-service/internal/pricing"
)

type slotsResponse struct {
	Date            string                  `json:"date"`
	Branch          model.Branch            `json:"branch"`
	ServiceID       int64                   `json:"service_id"`
	ServiceName     string                  `json:"service_name"`
	DurationMinutes int                     `json:"duration_minutes"`
	MayOverlap      bool                    `json:"may_overlap"`
	AvailableSlots  []availability.TimeSlot `json:"available_slots"`
}

func (h *BookingHandler) Services(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	services, err := h.store.ListServices(r.Context(), nil)
	if err != nil {
		h.writeErr(w, r, err, "services")
		return
	}
	for _, svc := range services {
		if problems := svc.Validate(); len(problems) > 0 {
			h.logger.Warn("service catalog entry inconsistent", "service_id", svc.ID, "problems", problems)
		}
	}
	if services == nil {
		services = []model.Service{}
	}
	httpx.WriteJSON(w, http.StatusOK, services)
}

func (h *BookingHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()
	if q.Get("date") == "" || q.Get("branch") == "" || q.Get("service_id") == "" {
		httpx.WriteError(w, http.StatusBadRequest, "date, branch, and service_id are required")
		return
	}
	date, err := h.parseDate(q.Get("date"))
	if err != nil {
		h.writeErr(w, r, err, "slots")
		return
	}
	if date.Before(h.today()) {
		httpx.WriteError(w, http.StatusBadRequest, "date is in the past")
		return
	}
	branch, err := model.ParseBranch(q.Get("branch"))
	if err != nil {
		h.writeErr(w, r, err, "slots")
		return
	}
	serviceID, err := parseID("service_id", q.Get("service_id"))
	if err != nil {
		h.writeErr(w, r, err, "slots")
		return
	}

	svc, err := h.store.GetService(r.Context(), serviceID)
	if err != nil {
		h.writeErr(w, r, err, "service")
		return
	}
	existing, err := h.store.ListActiveForDay(r.Context(), branch, date)
	if err != nil {
		h.writeErr(w, r, err, "slots")
		return
	}

	slots, err := availability.ComputeAvailableSlots(h.hours, date, branch, svc, existing)
	if err != nil {
		h.writeErr(w, r, err, "slots")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, slotsResponse{
		Date:            date.Format("2006-01-02"),
		Branch:          branch,
		ServiceID:       svc.ID,
		ServiceName:     svc.Name,
		DurationMinutes: svc.DurationMinutes,
		MayOverlap:      svc.MayOverlap,
		AvailableSlots:  slots,
	})
}

type quoteRequest struct {
	ServiceID int64   `json:"service_id"`
	Size      string  `json:"size"`
	AddOnIDs  []int64 `json:"add_on_ids"`
}

type quoteResponse struct {
	ServiceID   int64           `json:"service_id"`
	ServiceName string          `json:"service_name"`
	Breakdown   model.Breakdown `json:"breakdown"`
	Display     breakdownText   `json:"display"`
}

type breakdownText struct {
	ServicePrice string `json:"service_price"`
	AddOnsTotal  string `json:"add_ons_total"`
	Subtotal     string `json:"subtotal"`
	Tax          string `json:"tax"`
	Total        string `json:"total"`
}

func (h *BookingHandler) displayBreakdown(b model.Breakdown) breakdownText {
	return breakdownText{
		ServicePrice: h.format(b.ServicePrice),
		AddOnsTotal:  h.format(b.AddOnsTotal),
		Subtotal:     h.format(b.Subtotal),
		Tax:          h.format(b.Tax),
		Total:        h.format(b.Total),
	}
}

func (h *BookingHandler) Quote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.ServiceID <= 0 {
		httpx.WriteError(w, http.StatusBadRequest, "service_id required")
		return
	}

	svc, addOns, err := h.loadSelection(r.Context(), req.ServiceID, req.AddOnIDs)
	if err != nil {
		h.writeErr(w, r, err, "service")
		return
	}
	var size *model.Size
	if req.Size != "" {
		s := model.ParseSize(req.Size)
		size = &s
	}
	b := pricing.ComputeTotals(svc, size, addOns)
	httpx.WriteJSON(w, http.StatusOK, quoteResponse{
		ServiceID:   svc.ID,
		ServiceName: svc.Name,
		Breakdown:   b,
		Display:     h.displayBreakdown(b),
	})
}

// loadSelection loads the primary service and its add-ons, checking that each
// can play the role it is requested for.
func (h *BookingHandler) loadSelection(ctx context.Context, serviceID int64, addOnIDs []int64) (model.Service, []model.Service, error) {
	svc, err := h.store.GetService(ctx, serviceID)
	if err != nil {
		return model.Service{}, nil, err
	}
	if !svc.BookableStandalone() {
		return model.Service{}, nil, model.Invalid("service_id", fmt.Sprintf("%s can only be booked as an add-on", svc.Name))
	}
	if len(addOnIDs) == 0 {
		return svc, nil, nil
	}

	ids := dedupe(addOnIDs)
	addOns, err := h.store.ListServices(ctx, ids)
	if err != nil {
		return model.Service{}, nil, err
	}
	if len(addOns) != len(ids) {
		return model.Service{}, nil, model.Invalid("add_on_ids", "unknown add-on")
	}
	for _, a := range addOns {
		if a.ID == svc.ID {
			return model.Service{}, nil, model.Invalid("add_on_ids", "service cannot be its own add-on")
		}
		if !a.AttachableAsAddon() {
			return model.Service{}, nil, model.Invalid("add_on_ids", fmt.Sprintf("%s is not available as an add-on", a.Name))
		}
	}
	return svc, addOns, nil
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
