package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/loadhaul/platform/services/payments-service/internal/application"
	"github.com/loadhaul/platform/services/payments-service/internal/contracts"
	"github.com/loadhaul/platform/services/payments-service/internal/domain"
)

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ok")
}

func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	if h.readyCheck != nil {
		if err := h.readyCheck(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "NOT_READY", "dependencies unavailable", requestIDFromContext(r.Context()))
			return
		}
	}
	writeMessage(w, http.StatusOK, "ready")
}

func (h *Handler) createLoad(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())
	var req contracts.CreateLoadRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "create_load", err)
		return
	}

	load, err := h.service.CreateLoad(r.Context(), actor, application.CreateLoadInput{
		OriginCity:      req.OriginCity,
		DestinationCity: req.DestinationCity,
		EquipmentType:   req.EquipmentType,
		PostedRate:      req.PostedRate,
	})
	if err != nil {
		writeMappedError(r.Context(), w, "create_load", err)
		return
	}
	writeSuccess(w, http.StatusCreated, load)
}

func (h *Handler) getLoad(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())
	load, err := h.service.GetLoad(r.Context(), actor, chi.URLParam(r, "load_id"))
	if err != nil {
		writeMappedError(r.Context(), w, "get_load", err)
		return
	}
	writeSuccess(w, http.StatusOK, load)
}

func (h *Handler) transitionLoad(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())
	var req contracts.TransitionLoadRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "transition_load", err)
		return
	}

	load, err := h.service.TransitionLoad(r.Context(), actor, chi.URLParam(r, "load_id"), domain.LoadStatus(req.Status))
	if err != nil {
		writeMappedError(r.Context(), w, "transition_load", err)
		return
	}
	writeSuccess(w, http.StatusOK, load)
}

func (h *Handler) placeBid(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())
	var req contracts.PlaceBidRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "place_bid", err)
		return
	}

	input := application.PlaceBidInput{
		LoadID: chi.URLParam(r, "load_id"),
		Amount: req.Amount,
	}
	if req.ExpiresAt != nil {
		input.ExpiresAt = *req.ExpiresAt
	}
	bid, err := h.service.PlaceBid(r.Context(), actor, input)
	if err != nil {
		writeMappedError(r.Context(), w, "place_bid", err)
		return
	}
	writeSuccess(w, http.StatusCreated, bid)
}

func (h *Handler) listBids(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())
	bids, err := h.service.ListBids(r.Context(), actor, chi.URLParam(r, "load_id"))
	if err != nil {
		writeMappedError(r.Context(), w, "list_bids", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"bids": bids})
}

func (h *Handler) createHold(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())
	var req contracts.CreateHoldRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "create_hold", err)
		return
	}

	out, err := h.service.CreateHold(r.Context(), actor, application.CreateHoldInput{
		LoadID:    req.LoadID,
		BidID:     req.BidID,
		CarrierID: req.CarrierID,
		Amount:    req.Amount,
	})
	if err != nil {
		writeMappedError(r.Context(), w, "create_hold", err)
		return
	}
	writeSuccess(w, http.StatusCreated, contracts.CreateHoldResponse{
		PaymentID:    out.Payment.PaymentID,
		LoadID:       out.Payment.LoadID,
		HoldRef:      out.Payment.HoldRef,
		ClientSecret: out.ClientSecret,
		Amount:       domain.CentsToAmount(out.Payment.AmountCents),
		AmountCents:  out.Payment.AmountCents,
		Status:       string(out.Payment.Status),
	})
}

func (h *Handler) confirmHold(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())
	var req contracts.ConfirmHoldRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "confirm_hold", err)
		return
	}

	out, err := h.service.ConfirmHold(r.Context(), actor, application.ConfirmHoldInput{
		HoldRef: req.HoldRef,
		LoadID:  req.LoadID,
		BidID:   req.BidID,
	})
	if err != nil {
		writeMappedError(r.Context(), w, "confirm_hold", err)
		return
	}
	writeSuccess(w, http.StatusOK, out)
}

func (h *Handler) releasePayment(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())
	var req contracts.ReleasePaymentRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "release_payment", err)
		return
	}

	payment, err := h.service.ReleasePayment(r.Context(), actor, application.ReleasePaymentInput{
		LoadID:      chi.URLParam(r, "load_id"),
		FinalAmount: req.FinalAmount,
		Notes:       req.Notes,
	})
	if err != nil {
		writeMappedError(r.Context(), w, "release_payment", err)
		return
	}
	writeSuccess(w, http.StatusOK, payment)
}

func (h *Handler) createPayout(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())
	payout, err := h.service.CreateCarrierPayout(r.Context(), actor, chi.URLParam(r, "load_id"))
	if err != nil {
		writeMappedError(r.Context(), w, "create_payout", err)
		return
	}
	writeSuccess(w, http.StatusCreated, contracts.PayoutResponse{
		PayoutID:           payout.PayoutID,
		PaymentID:          payout.PaymentID,
		LoadID:             payout.LoadID,
		CarrierID:          payout.CarrierID,
		AmountCents:        payout.AmountCents,
		PlatformFeeCents:   payout.PlatformFeeCents,
		CarrierAmountCents: payout.CarrierAmountCents,
		CarrierAmount:      domain.CentsToAmount(payout.CarrierAmountCents),
		Status:             string(payout.Status),
		TransferRef:        payout.TransferRef,
	})
}

func (h *Handler) getPayment(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())
	payment, err := h.service.GetPaymentByLoad(r.Context(), actor, chi.URLParam(r, "load_id"))
	if err != nil {
		writeMappedError(r.Context(), w, "get_payment", err)
		return
	}
	writeSuccess(w, http.StatusOK, payment)
}

func (h *Handler) openDispute(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())
	var req contracts.OpenDisputeRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "open_dispute", err)
		return
	}

	payment, err := h.service.OpenDispute(r.Context(), actor, application.OpenDisputeInput{
		LoadID: req.LoadID,
		Reason: req.Reason,
	})
	if err != nil {
		writeMappedError(r.Context(), w, "open_dispute", err)
		return
	}
	writeSuccess(w, http.StatusOK, payment)
}

func (h *Handler) resolveDispute(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())
	var req contracts.ResolveDisputeRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "resolve_dispute", err)
		return
	}

	payment, err := h.service.ResolveDispute(r.Context(), actor, application.ResolveDisputeInput{
		LoadID:           chi.URLParam(r, "load_id"),
		ReleaseToCarrier: req.ReleaseToCarrier,
	})
	if err != nil {
		writeMappedError(r.Context(), w, "resolve_dispute", err)
		return
	}
	writeSuccess(w, http.StatusOK, payment)
}

func (h *Handler) attachDocument(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())
	var req contracts.AttachDocumentRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "attach_document", err)
		return
	}

	doc, err := h.service.AttachDocument(r.Context(), actor, application.AttachDocumentInput{
		LoadID:  chi.URLParam(r, "load_id"),
		DocType: req.DocType,
		FileURL: req.FileURL,
	})
	if err != nil {
		writeMappedError(r.Context(), w, "attach_document", err)
		return
	}
	writeSuccess(w, http.StatusCreated, doc)
}

func (h *Handler) reviewDocument(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())
	var req struct {
		Approve bool `json:"approve"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "review_document", err)
		return
	}

	doc, err := h.service.ReviewDocument(r.Context(), actor, chi.URLParam(r, "document_id"), req.Approve)
	if err != nil {
		writeMappedError(r.Context(), w, "review_document", err)
		return
	}
	writeSuccess(w, http.StatusOK, doc)
}

func (h *Handler) upsertCarrierAccount(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())
	var req contracts.UpsertCarrierAccountRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "upsert_carrier_account", err)
		return
	}

	account, err := h.service.UpsertCarrierAccount(r.Context(), actor, chi.URLParam(r, "carrier_id"), req.ProcessorAccountID, req.PayoutsEnabled)
	if err != nil {
		writeMappedError(r.Context(), w, "upsert_carrier_account", err)
		return
	}
	writeSuccess(w, http.StatusOK, account)
}

func (h *Handler) listCarrierPayouts(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())
	payouts, err := h.service.ListCarrierPayouts(r.Context(), actor, chi.URLParam(r, "carrier_id"))
	if err != nil {
		writeMappedError(r.Context(), w, "list_carrier_payouts", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"payouts": payouts})
}

func (h *Handler) autoReleaseSweep(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())
	if !actor.IsAdmin() {
		writeMappedError(r.Context(), w, "auto_release_sweep", domain.ErrForbidden)
		return
	}
	result, err := h.service.AutoReleaseSweep(r.Context())
	if err != nil {
		writeMappedError(r.Context(), w, "auto_release_sweep", err)
		return
	}
	writeSuccess(w, http.StatusOK, contracts.SweepResponse{
		Processed: result.Processed,
		Released:  result.Released,
		Failed:    result.Failed,
	})
}

func (h *Handler) expireBidsSweep(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())
	if !actor.IsAdmin() {
		writeMappedError(r.Context(), w, "expire_bids_sweep", domain.ErrForbidden)
		return
	}
	result, err := h.service.ExpireBidsSweep(r.Context())
	if err != nil {
		writeMappedError(r.Context(), w, "expire_bids_sweep", err)
		return
	}
	writeSuccess(w, http.StatusOK, contracts.SweepResponse{
		Processed: result.Processed,
		Expired:   result.Expired,
		Failed:    result.Failed,
	})
}
