package order

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"Storefront/internal/cart"
	"Storefront/pkg/kit"
)

const maxCreateBody = 1 << 20

type Server struct {
	Recorder *Recorder
	Log      *zap.Logger
	// AdminJWTSecret guards the full order listing when non-empty.
	AdminJWTSecret string
}

type createReq struct {
	PaymentIntentID string          `json:"paymentIntentId"`
	Items           []cart.Item     `json:"items"`
	Total           float64         `json:"total"`
	Status          string          `json:"status"`
	CustomerInfo    json.RawMessage `json:"customerInfo"`
}

type createResp struct {
	Success bool   `json:"success"`
	Order   Order  `json:"order"`
	Message string `json:"message"`
}

type listResp struct {
	Orders []Order `json:"orders"`
	Count  int     `json:"count"`
}

// Routes is mounted under /api/orders.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", s.create)
	r.Get("/payment/{paymentIntentId}", s.getByPaymentIntent)

	if s.AdminJWTSecret != "" {
		r.With(RequireAdmin(s.AdminJWTSecret)).Get("/", s.list)
	} else {
		r.Get("/", s.list)
	}
	return r
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxCreateBody)
	defer func() { _ = r.Body.Close() }()

	var req createReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, kit.KindInvalidRequest, "bad json", nil)
		return
	}

	o, err := s.Recorder.Create(r.Context(), CreateInput{
		PaymentIntentID: req.PaymentIntentID,
		Items:           req.Items,
		Total:           req.Total,
		Status:          req.Status,
		CustomerInfo:    req.CustomerInfo,
		IdempotencyKey:  strings.TrimSpace(r.Header.Get("Idempotency-Key")),
	})
	if err != nil {
		s.writeCreateError(w, r, err)
		return
	}

	kit.WriteJSON(w, http.StatusOK, createResp{Success: true, Order: o, Message: "Order created successfully"})
}

func (s *Server) writeCreateError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		dup    *DuplicateError
		lookup *PaymentLookupError
	)
	switch {
	case errors.Is(err, ErrPaymentNotCompleted):
		kit.WriteError(w, r, http.StatusBadRequest, kit.KindPaymentNotCompleted, "Payment not completed", nil)
	case errors.As(err, &dup):
		var details map[string]any
		if dup.Record.OrderID != "" {
			details = map[string]any{
				"orderId":         dup.Record.OrderID,
				"paymentIntentId": dup.Record.PaymentIntentID,
			}
		}
		kit.WriteError(w, r, http.StatusConflict, kit.KindDuplicateRequest, "Duplicate request", details)
	case errors.As(err, &lookup):
		s.Log.Error("payment lookup failed", zap.Error(lookup.Err))
		kit.WriteError(w, r, http.StatusInternalServerError, kit.KindProviderError, lookup.Error(), nil)
	default:
		s.Log.Error("create order failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, kit.KindInternal, "server error", nil)
	}
}

func (s *Server) getByPaymentIntent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "paymentIntentId")

	o, found, err := s.Recorder.Get(r.Context(), id)
	if err != nil {
		s.Log.Error("store get order failed", zap.Error(err), zap.String("payment_intent_id", id))
		kit.WriteError(w, r, http.StatusInternalServerError, kit.KindInternal, "server error", nil)
		return
	}
	if !found {
		kit.WriteError(w, r, http.StatusNotFound, kit.KindOrderNotFound, "Order not found", nil)
		return
	}

	kit.WriteJSON(w, http.StatusOK, o)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	orders, err := s.Recorder.List(r.Context())
	if err != nil {
		s.Log.Error("store list orders failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, kit.KindInternal, "server error", nil)
		return
	}

	kit.WriteJSON(w, http.StatusOK, listResp{Orders: orders, Count: len(orders)})
}
