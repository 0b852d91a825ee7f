package controller

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	domainErrors "github.com/mcosta/payflow/internal/domain/errors"
	"github.com/mcosta/payflow/internal/domain/transaction"
	"github.com/mcosta/payflow/internal/service"
)

// PaymentController handles payment-related HTTP requests.
type PaymentController struct {
	paymentService *service.PaymentService
	sessionService *service.SessionService
}

// NewPaymentController creates a new PaymentController.
func NewPaymentController(
	paymentService *service.PaymentService,
	sessionService *service.SessionService,
) *PaymentController {
	return &PaymentController{
		paymentService: paymentService,
		sessionService: sessionService,
	}
}

// Process handles POST /payments/process
func (h *PaymentController) Process(w http.ResponseWriter, r *http.Request) {
	var req ProcessPaymentRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if req.SessionID != nil && h.sessionService != nil {
		sessionID, err := uuid.Parse(*req.SessionID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid sessionId", Code: "invalid_id"})
			return
		}
		if _, err := h.sessionService.Consume(r.Context(), sessionID, req.UserID); err != nil {
			writeError(w, err)
			return
		}
	}

	txn, err := h.paymentService.Process(r.Context(), service.ProcessRequest{
		Method:      transaction.Method(req.PaymentMethod),
		OrderID:     req.OrderID,
		UserID:      req.UserID,
		AmountCents: floatToCents(req.Amount),
		Currency:    req.Currency,
		Details:     req.PaymentDetails.toDomain(),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	resp := ProcessPaymentResponse{
		TransactionID: txn.ID.String(),
		Data:          FromTransaction(txn),
	}
	if txn.Status == transaction.StatusCompleted {
		resp.Status = "success"
		resp.Message = "payment processed successfully"
	} else {
		resp.Status = "failed"
		resp.Message = "payment failed"
		if txn.FailureReason != nil {
			resp.Message = *txn.FailureReason
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Validate handles POST /payments/validate
func (h *PaymentController) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateDetailsRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	issues, err := h.paymentService.ValidateDetails(r.Context(),
		transaction.Method(req.PaymentMethod), req.PaymentDetails.toDomain())
	if err != nil {
		writeError(w, err)
		return
	}
	if issues == nil {
		issues = []string{}
	}

	writeJSON(w, http.StatusOK, ValidateDetailsResponse{
		Valid:  len(issues) == 0,
		Errors: issues,
	})
}

// GetTransaction handles GET /payments/transaction/{id}
func (h *PaymentController) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid transaction id", Code: "invalid_id"})
		return
	}

	txn, err := h.paymentService.GetTransaction(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, DataResponse{Status: "success", Data: FromTransaction(txn)})
}

// ListByOrder handles GET /payments/order/{orderId}
func (h *PaymentController) ListByOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	if orderID == "" {
		writeError(w, domainErrors.NewValidationError("orderId", "cannot be empty"))
		return
	}

	txns, err := h.paymentService.ListByOrder(r.Context(), orderID)
	if err != nil {
		writeError(w, err)
		return
	}

	data := make([]TransactionData, 0, len(txns))
	for _, t := range txns {
		data = append(data, *FromTransaction(t))
	}
	writeJSON(w, http.StatusOK, DataResponse{Status: "success", Data: data})
}

// ListRange handles GET /payments/transactions?from=&to=
func (h *PaymentController) ListRange(w http.ResponseWriter, r *http.Request) {
	from, err := time.Parse(time.RFC3339, r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, domainErrors.NewValidationError("from", "must be an RFC3339 timestamp"))
		return
	}
	to, err := time.Parse(time.RFC3339, r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, domainErrors.NewValidationError("to", "must be an RFC3339 timestamp"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	txns, err := h.paymentService.ListRange(r.Context(), from, to, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	data := make([]TransactionData, 0, len(txns))
	for _, t := range txns {
		data = append(data, *FromTransaction(t))
	}
	writeJSON(w, http.StatusOK, DataResponse{Status: "success", Data: data})
}

// Refund handles POST /payments/refund
func (h *PaymentController) Refund(w http.ResponseWriter, r *http.Request) {
	var req RefundPaymentRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	transactionID, err := uuid.Parse(req.TransactionID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid transactionId", Code: "invalid_id"})
		return
	}

	refund, err := h.paymentService.Refund(r.Context(), service.RefundRequest{
		TransactionID: transactionID,
		AmountCents:   floatToCents(req.Amount),
		Reason:        req.Reason,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	resp := RefundPaymentResponse{RefundID: refund.ID.String()}
	if refund.Status == transaction.StatusCompleted {
		resp.Status = "success"
		resp.Message = "refund processed successfully"
	} else {
		resp.Status = "failed"
		resp.Message = "refund failed"
		if refund.FailureReason != nil {
			resp.Message = *refund.FailureReason
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
