package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mcosta/payflow/internal/domain/transaction"
	"github.com/mcosta/payflow/internal/service"
)

// SessionController handles payment session HTTP requests.
type SessionController struct {
	sessionService *service.SessionService
}

// NewSessionController creates a new SessionController.
func NewSessionController(sessionService *service.SessionService) *SessionController {
	return &SessionController{sessionService: sessionService}
}

// Create handles POST /payments/session
func (h *SessionController) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	sess, err := h.sessionService.Create(r.Context(),
		req.UserID, req.OrderID,
		transaction.Method(req.PaymentMethod),
		floatToCents(req.Amount), req.Currency)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, FromSession(sess))
}

// Get handles GET /payments/session/{id}
func (h *SessionController) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid session id", Code: "invalid_id"})
		return
	}

	sess, err := h.sessionService.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FromSession(sess))
}
