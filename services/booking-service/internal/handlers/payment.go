package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/chonkyweb/petcare/libs/httpx"
	"github.com/chonkyweb/petcare/services/booking-service/internal/model"
	"github.com/chonkyweb/petcare/services/booking-service/internal/outbox"
	"github.com/chonkyweb/petcare/services/booking-service/internal/payment"
	"github.com/chonkyweb/petcare/services/booking-service/internal/pricing"
	"github.com/chonkyweb/petcare/services/booking-service/internal/storage"
	"github.com/shopspring/decimal"
)

const referenceAttempts = 5

type paymentRequest struct {
	AppointmentID int64            `json:"appointment_id"`
	AmountPaid    *decimal.Decimal `json:"amount_paid"`
	Size          string           `json:"size"`
}

type receiptResponse struct {
	Transaction model.Transaction `json:"transaction"`
	Display     receiptText       `json:"display"`
}

type receiptText struct {
	breakdownText
	AmountPaid string `json:"amount_paid"`
	Change     string `json:"change"`
}

func (h *BookingHandler) receipt(txn model.Transaction) receiptResponse {
	if txn.AddOns == nil {
		txn.AddOns = []model.AddOnLine{}
	}
	return receiptResponse{
		Transaction: txn,
		Display: receiptText{
			breakdownText: h.displayBreakdown(txn.Breakdown),
			AmountPaid:    h.format(txn.AmountPaid),
			Change:        h.format(txn.Change),
		},
	}
}

// Payment records cash tendered for an appointment and completes it.
func (h *BookingHandler) Payment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !identityFrom(r).Admin {
		httpx.WriteError(w, http.StatusForbidden, "admin role required")
		return
	}
	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.AppointmentID <= 0 || req.AmountPaid == nil {
		httpx.WriteError(w, http.StatusBadRequest, "appointment_id and amount_paid are required")
		return
	}
	paid, err := payment.Tender(*req.AmountPaid)
	if err != nil {
		h.writeErr(w, r, err, "payment")
		return
	}
	var size *model.Size
	if req.Size != "" {
		s := model.ParseSize(req.Size)
		size = &s
	}

	ctx := r.Context()
	var txn model.Transaction
	err = h.store.InTx(ctx, func(tx storage.Tx) error {
		appt, err := tx.GetAppointmentForUpdate(ctx, req.AppointmentID)
		if err != nil {
			return err
		}
		switch appt.Status {
		case model.StatusCompleted:
			return conflictError("appointment is already paid")
		case model.StatusCancelled:
			return conflictError("appointment is cancelled")
		}

		svc, err := h.store.GetService(ctx, appt.ServiceID)
		if err != nil {
			return err
		}
		var addOns []model.Service
		if len(appt.AddOnIDs) > 0 {
			if addOns, err = h.store.ListServices(ctx, appt.AddOnIDs); err != nil {
				return err
			}
		}

		now := h.now().In(h.hours.Location)
		breakdown := pricing.ComputeTotals(svc, size, addOns)
		res, err := payment.CompletePayment(ctx, breakdown.Total, paid, now, h.refs)
		if err != nil {
			return err
		}
		txn = payment.NewTransaction(appt, svc, addOns, breakdown, res, paid, now)

		for attempt := 1; ; attempt++ {
			err = tx.InsertTransaction(ctx, txn)
			if !errors.Is(err, storage.ErrReferenceTaken) || attempt == referenceAttempts {
				break
			}
			h.logger.Warn("reference number collision; regenerating", "reference", txn.ReferenceNumber, "attempt", attempt)
			if txn.ReferenceNumber, err = h.refs.Next(ctx, now); err != nil {
				return err
			}
		}
		if err != nil {
			return err
		}

		if err := tx.CompleteAppointment(ctx, appt.ID, txn.AmountPaid, txn.Change); err != nil {
			return err
		}
		evt, err := outbox.AppointmentEvent(appt.ID, outbox.EventAppointmentCompleted, map[string]any{
			"appointment_id":   appt.ID,
			"transaction_id":   txn.ID,
			"reference_number": txn.ReferenceNumber,
			"branch":           appt.Branch,
			"total":            txn.Breakdown.Total.StringFixed(2),
			"amount_paid":      txn.AmountPaid.StringFixed(2),
			"change":           txn.Change.StringFixed(2),
			"paid_at":          txn.PaidAt,
		})
		if err != nil {
			return err
		}
		return tx.InsertEvent(ctx, evt)
	})
	if err != nil {
		h.writeErr(w, r, err, "payment")
		return
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, txn); err != nil {
			h.logger.Warn("transaction cache write failed", "appointment_id", txn.AppointmentID, "err", err)
		}
	}
	h.logger.Info("payment recorded", "appointment_id", txn.AppointmentID, "reference", txn.ReferenceNumber, "total", txn.Breakdown.Total.StringFixed(2))
	httpx.WriteJSON(w, http.StatusCreated, h.receipt(txn))
}

// Transaction serves the receipt for a completed appointment, preferring the cache.
func (h *BookingHandler) Transaction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	who := identityFrom(r)
	if who.UserID == "" && !who.Admin {
		httpx.WriteError(w, http.StatusUnauthorized, "missing user identity")
		return
	}
	id, err := parseID("appointment_id", r.URL.Query().Get("appointment_id"))
	if err != nil {
		h.writeErr(w, r, err, "transaction")
		return
	}

	ctx := r.Context()
	if !who.Admin {
		appt, err := h.store.GetAppointment(ctx, id)
		if err != nil {
			h.writeErr(w, r, err, "transaction")
			return
		}
		if appt.UserID != who.UserID {
			h.writeErr(w, r, storage.ErrNotFound, "transaction")
			return
		}
	}

	if h.cache != nil {
		txn, err := h.cache.Get(ctx, id)
		if err == nil {
			w.Header().Set("X-Cache", "hit")
			httpx.WriteJSON(w, http.StatusOK, h.receipt(txn))
			return
		}
		if !errors.Is(err, payment.ErrCacheMiss) {
			h.logger.Warn("transaction cache read failed", "appointment_id", id, "err", err)
		}
	}

	txn, err := h.store.GetTransaction(ctx, id)
	if err != nil {
		h.writeErr(w, r, err, "transaction")
		return
	}
	if h.cache != nil {
		if err := h.cache.Set(ctx, txn); err != nil {
			h.logger.Warn("transaction cache write failed", "appointment_id", id, "err", err)
		}
	}
	w.Header().Set("X-Cache", "miss")
	httpx.WriteJSON(w, http.StatusOK, h.receipt(txn))
}
