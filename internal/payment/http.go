package payment

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validatorv10 "github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"Storefront/internal/cart"
	"Storefront/internal/order"
	"Storefront/pkg/kit"
)

const (
	maxIntentBody   = 1 << 20
	defaultCurrency = "usd"
)

// OrderLookup finds the locally recorded order for a payment intent.
type OrderLookup interface {
	Get(ctx context.Context, paymentIntentID string) (order.Order, bool, error)
}

type Server struct {
	Provider Provider
	Orders   OrderLookup
	Log      *zap.Logger
	Metrics  *Metrics
	// Limiter throttles intent creation per client IP when set.
	Limiter *kit.IPRateLimiter

	validate *validatorv10.Validate
}

// The amount bound is the processor's largest accepted charge in minor units.
type createIntentReq struct {
	Amount   *float64       `json:"amount" validate:"required,gt=0,lte=99999999"`
	Currency string         `json:"currency"`
	Items    []cart.Item    `json:"items"`
	Metadata map[string]any `json:"metadata"`
}

type createIntentResp struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId"`
}

type statusResp struct {
	Status        string       `json:"status"`
	Amount        float64      `json:"amount"`
	Currency      string       `json:"currency"`
	PaymentMethod *string      `json:"paymentMethod"`
	OrderDetails  *order.Order `json:"orderDetails"`
}

type confirmResp struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Routes is mounted under /api/payments.
func (s *Server) Routes() chi.Router {
	s.validate = validatorv10.New()

	r := chi.NewRouter()
	if s.Limiter != nil {
		r.With(s.Limiter.Middleware).Post("/create-intent", s.createIntent)
	} else {
		r.Post("/create-intent", s.createIntent)
	}
	r.Get("/status/{paymentIntentId}", s.status)
	r.Post("/confirm/{paymentIntentId}", s.confirm)
	return r
}

func (s *Server) createIntent(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeCreateIntent(w, r)
	if err != nil {
		var te *json.UnmarshalTypeError
		switch {
		case errors.As(err, &te) && te.Field == "amount":
			kit.WriteError(w, r, http.StatusBadRequest, kit.KindInvalidAmount, "Invalid amount", nil)
		// An empty body carries no amount.
		case errors.Is(err, errInvalidAmount), errors.Is(err, io.EOF):
			kit.WriteError(w, r, http.StatusBadRequest, kit.KindInvalidAmount, "Invalid amount", nil)
		default:
			kit.WriteError(w, r, http.StatusBadRequest, kit.KindInvalidRequest, "bad json", nil)
		}
		return
	}

	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = defaultCurrency
	}

	md, err := buildMetadata(req.Metadata, req.Items)
	if err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, kit.KindInvalidRequest, "bad metadata", nil)
		return
	}

	amount := int64(math.Round(*req.Amount))
	if len(req.Items) > 0 && !IsZeroDecimal(currency) {
		if subtotal := cart.New(req.Items...).AmountMinor(); subtotal != amount {
			s.Log.Warn("intent amount differs from cart subtotal",
				zap.Int64("amount", amount), zap.Int64("cart_subtotal", subtotal))
		}
	}

	in, err := s.Provider.CreateIntent(r.Context(), IntentParams{
		Amount:         amount,
		Currency:       currency,
		Metadata:       md,
		IdempotencyKey: strings.TrimSpace(r.Header.Get("Idempotency-Key")),
	})
	if err != nil {
		s.writeProviderError(w, r, "create payment intent failed", err)
		return
	}

	s.Metrics.intentCreated(currency)
	s.Log.Info("payment intent created",
		zap.String("payment_intent_id", in.ID),
		zap.Int64("amount", in.Amount),
		zap.String("currency", currency),
	)

	kit.WriteJSON(w, http.StatusOK, createIntentResp{ClientSecret: in.ClientSecret, PaymentIntentID: in.ID})
}

var errInvalidAmount = errors.New("invalid amount")

func (s *Server) decodeCreateIntent(w http.ResponseWriter, r *http.Request) (createIntentReq, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxIntentBody)
	defer func() { _ = r.Body.Close() }()

	var req createIntentReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return createIntentReq{}, err
	}
	if err := s.validate.Struct(req); err != nil {
		var ve validatorv10.ValidationErrors
		if errors.As(err, &ve) {
			return createIntentReq{}, errInvalidAmount
		}
		return createIntentReq{}, err
	}
	return req, nil
}

// buildMetadata flattens caller metadata to strings and stores the cart items as JSON
// under "items", replacing any caller value for that key.
func buildMetadata(in map[string]any, items []cart.Item) (map[string]string, error) {
	md := make(map[string]string, len(in)+1)
	for k, v := range in {
		if str, ok := v.(string); ok {
			md[k] = str
			continue
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		md[k] = string(b)
	}

	itemsJSON, err := cart.MarshalItems(items)
	if err != nil {
		return nil, err
	}
	md["items"] = itemsJSON
	return md, nil
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "paymentIntentId")

	in, err := s.Provider.GetIntent(r.Context(), id)
	if err != nil {
		s.writeProviderError(w, r, "retrieve payment intent failed", err)
		return
	}

	resp := statusResp{
		Status:   in.Status,
		Amount:   MajorUnits(in.Amount, in.Currency),
		Currency: in.Currency,
	}
	if in.PaymentMethodID != "" {
		pm := in.PaymentMethodID
		resp.PaymentMethod = &pm
	}

	if s.Orders != nil {
		o, found, err := s.Orders.Get(r.Context(), id)
		if err != nil {
			s.Log.Error("order lookup failed", zap.Error(err), zap.String("payment_intent_id", id))
			kit.WriteError(w, r, http.StatusInternalServerError, kit.KindInternal, "server error", nil)
			return
		}
		if found {
			resp.OrderDetails = &o
		}
	}

	kit.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) confirm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "paymentIntentId")

	in, err := s.Provider.ConfirmIntent(r.Context(), id)
	if err != nil {
		s.writeProviderError(w, r, "confirm payment intent failed", err)
		return
	}

	msg := "Payment requires further action"
	if in.Status == "succeeded" {
		msg = "Payment confirmed"
	}
	kit.WriteJSON(w, http.StatusOK, confirmResp{Status: in.Status, Message: msg})
}

func (s *Server) writeProviderError(w http.ResponseWriter, r *http.Request, logMsg string, err error) {
	s.Log.Error(logMsg, zap.Error(err))

	var pe *ProviderError
	if errors.As(err, &pe) {
		kit.WriteError(w, r, http.StatusInternalServerError, kit.KindProviderError, pe.Msg, nil)
		return
	}
	kit.WriteError(w, r, http.StatusInternalServerError, kit.KindProviderError, err.Error(), nil)
}
