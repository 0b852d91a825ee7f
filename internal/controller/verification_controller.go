package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	domainErrors "github.com/mcosta/payflow/internal/domain/errors"
	"github.com/mcosta/payflow/internal/service"
)

// VerificationController handles verification-related HTTP requests.
type VerificationController struct {
	verificationService *service.VerificationService
}

// NewVerificationController creates a new VerificationController.
func NewVerificationController(verificationService *service.VerificationService) *VerificationController {
	return &VerificationController{verificationService: verificationService}
}

// VerifyTransaction handles POST /verify/transaction. The check runs
// asynchronously; the response acknowledges the pending record.
func (h *VerificationController) VerifyTransaction(w http.ResponseWriter, r *http.Request) {
	var req VerifyTransactionRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	transactionID, err := uuid.Parse(req.TransactionID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid transactionId", Code: "invalid_id"})
		return
	}

	orderID := ""
	if req.OrderID != nil {
		orderID = *req.OrderID
	}
	var expectedCents *int64
	if req.ExpectedAmount != nil {
		c := floatToCents(*req.ExpectedAmount)
		expectedCents = &c
	}

	v, err := h.verificationService.VerifyTransaction(r.Context(), transactionID, orderID, expectedCents)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, VerifyAcceptedResponse{
		Status:         string(v.Status),
		VerificationID: v.ID.String(),
	})
}

// GetStatus handles GET /verify/status/{verificationId}
func (h *VerificationController) GetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "verificationId"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid verification id", Code: "invalid_id"})
		return
	}

	v, err := h.verificationService.GetVerification(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FromVerification(v))
}

// VerifyOrder handles GET /verify/order/{orderId}
func (h *VerificationController) VerifyOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	if orderID == "" {
		writeError(w, domainErrors.NewValidationError("orderId", "cannot be empty"))
		return
	}

	var expectedCents *int64
	if s := r.URL.Query().Get("expectedAmount"); s != "" {
		var amount float64
		if err := parseFloat(s, &amount); err != nil {
			writeError(w, domainErrors.NewValidationError("expectedAmount", "must be a number"))
			return
		}
		c := floatToCents(amount)
		expectedCents = &c
	}

	result, err := h.verificationService.VerifyOrderPayment(r.Context(), orderID, expectedCents)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := VerifyOrderResponse{
		OrderID:         result.OrderID,
		PaymentVerified: result.Verified,
		TransactionID:   result.TransactionID,
		Reason:          result.Reason,
		Transactions:    make([]TransactionData, 0, len(result.Transactions)),
	}
	for _, snap := range result.Transactions {
		resp.Transactions = append(resp.Transactions, FromSnapshot(snap))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Reconcile handles POST /verify/reconcile. The sweep runs asynchronously.
func (h *VerificationController) Reconcile(w http.ResponseWriter, r *http.Request) {
	var req ReconcileRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	start, err := parseDate(req.StartDate)
	if err != nil {
		writeError(w, domainErrors.NewValidationError("startDate", "must be an RFC3339 timestamp or YYYY-MM-DD date"))
		return
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		writeError(w, domainErrors.NewValidationError("endDate", "must be an RFC3339 timestamp or YYYY-MM-DD date"))
		return
	}

	rec, err := h.verificationService.ReconcilePayments(r.Context(), start, end, req.OrderIDs)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, ReconcileAcceptedResponse{
		Status:           string(rec.Status),
		ReconciliationID: rec.ID.String(),
	})
}

// GetReconciliation handles GET /verify/reconcile/{id}
func (h *VerificationController) GetReconciliation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid reconciliation id", Code: "invalid_id"})
		return
	}

	rec, err := h.verificationService.GetReconciliation(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FromReconciliation(rec))
}
