package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/fundedsim/engine/src/database"
	"github.com/fundedsim/engine/src/engine"
	"github.com/fundedsim/engine/src/marketdata"
	"github.com/fundedsim/engine/src/models"
)

type errorResponse struct {
	Type string `json:"type"`
	Msg  string `json:"message"`
}

func setResponse(response interface{}, w http.ResponseWriter) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(200)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		return fmt.Errorf("setResponse: encode: %w", err)
	}

	return nil
}

func setErrorResponse(errType string, statusCode int, err error, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	resp := &errorResponse{Type: errType, Msg: err.Error()}
	if encodeErr := json.NewEncoder(w).Encode(resp); encodeErr != nil {
		log.Errorf("setErrorResponse: encode: %v", encodeErr)
	}
}

// Handler exposes the engine's external surface: order submission and
// cancellation, the manual monitor sweep, and read-only account and candle
// views.
type Handler struct {
	store     database.Store
	feed      *marketdata.PriceFeed
	lifecycle *engine.Lifecycle
	monitor   *engine.Monitor
	tiers     map[string]models.Tier
}

func NewHandler(store database.Store, feed *marketdata.PriceFeed, lifecycle *engine.Lifecycle, monitor *engine.Monitor, tiers map[string]models.Tier) *Handler {
	return &Handler{
		store:     store,
		feed:      feed,
		lifecycle: lifecycle,
		monitor:   monitor,
		tiers:     tiers,
	}
}

func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/accounts", h.createAccount).Methods("POST")
	r.HandleFunc("/accounts/{id}", h.getAccount).Methods("GET")
	r.HandleFunc("/accounts/{id}/roll-day", h.rollDay).Methods("POST")
	r.HandleFunc("/orders", h.submitOrder).Methods("POST")
	r.HandleFunc("/orders/{id}", h.getOrder).Methods("GET")
	r.HandleFunc("/orders/{id}", h.cancelOrder).Methods("DELETE")
	r.HandleFunc("/monitor/sweep", h.runSweep).Methods("POST")
	r.HandleFunc("/candles/{symbol}", h.getCandles).Methods("GET")
	r.HandleFunc("/candles/{symbol}/stats", h.getCandleStats).Methods("GET")
}

type createAccountRequest struct {
	Tier string `json:"tier"`
}

func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		setErrorResponse("createAccount: decode", 400, err, w)
		return
	}

	tier, ok := h.tiers[req.Tier]
	if !ok {
		setErrorResponse("createAccount: unknown tier", 400, fmt.Errorf("%w: %s", models.ErrUnknownTier, req.Tier), w)
		return
	}

	account := models.NewAccount(tier)
	if err := h.store.CreateAccount(account); err != nil {
		setErrorResponse("createAccount: persist", 500, fmt.Errorf("account could not be created"), w)
		log.Errorf("createAccount: %v", err)
		return
	}

	if err := setResponse(account, w); err != nil {
		log.Errorf("createAccount: %v", err)
	}
}

type accountResponse struct {
	Account   *models.Account    `json:"account"`
	Positions []*models.Position `json:"positions"`
}

func (h *Handler) getAccount(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		setErrorResponse("getAccount: invalid id", 400, err, w)
		return
	}

	account, err := h.store.GetAccount(id)
	if err != nil {
		if errors.Is(err, models.ErrAccountNotFound) {
			setErrorResponse("getAccount: not found", 404, err, w)
			return
		}

		setErrorResponse("getAccount: load", 500, fmt.Errorf("account could not be loaded"), w)
		log.Errorf("getAccount: %v", err)
		return
	}

	positions, err := h.store.ListOpenPositions(id)
	if err != nil {
		setErrorResponse("getAccount: positions", 500, fmt.Errorf("account could not be loaded"), w)
		log.Errorf("getAccount: positions: %v", err)
		return
	}

	// Mark open positions to the shared price snapshot before serving.
	for _, position := range positions {
		if inst, ok := h.feed.Instrument(position.Symbol); ok {
			if price, priceErr := h.feed.CurrentPrice(position.Symbol); priceErr == nil {
				position.MarkToMarket(price, inst.PointValue())
			}
		}
	}

	if err := setResponse(&accountResponse{Account: account, Positions: positions}, w); err != nil {
		log.Errorf("getAccount: %v", err)
	}
}

func (h *Handler) rollDay(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		setErrorResponse("rollDay: invalid id", 400, err, w)
		return
	}

	account, err := h.lifecycle.RollDay(id)
	if err != nil {
		if errors.Is(err, models.ErrAccountNotFound) {
			setErrorResponse("rollDay: not found", 404, err, w)
			return
		}

		setErrorResponse("rollDay: failed", 500, fmt.Errorf("account could not be processed"), w)
		log.Errorf("rollDay: %v", err)
		return
	}

	if err := setResponse(account, w); err != nil {
		log.Errorf("rollDay: %v", err)
	}
}

func (h *Handler) submitOrder(w http.ResponseWriter, r *http.Request) {
	var req engine.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		setErrorResponse("submitOrder: decode", 400, err, w)
		return
	}

	order, err := h.lifecycle.SubmitOrder(req)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrAccountNotFound):
			setErrorResponse("submitOrder: account not found", 404, err, w)
		case errors.Is(err, models.ErrTradingNotAllowed), errors.Is(err, models.ErrInvalidOrderQuantity):
			setErrorResponse("submitOrder: not allowed", 422, err, w)
		case errors.Is(err, models.ErrUnknownTier):
			setErrorResponse("submitOrder: unknown tier", 422, err, w)
		default:
			// Persistence failures stay generic; details go to the log only.
			setErrorResponse("submitOrder: failed", 500, fmt.Errorf("order could not be processed"), w)
			log.Errorf("submitOrder: %v", err)
		}

		return
	}

	if err := setResponse(order, w); err != nil {
		log.Errorf("submitOrder: %v", err)
	}
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		setErrorResponse("getOrder: invalid id", 400, err, w)
		return
	}

	order, err := h.store.GetOrder(id)
	if err != nil {
		if errors.Is(err, models.ErrOrderNotFound) {
			setErrorResponse("getOrder: not found", 404, err, w)
			return
		}

		setErrorResponse("getOrder: load", 500, fmt.Errorf("order could not be loaded"), w)
		log.Errorf("getOrder: %v", err)
		return
	}

	if err := setResponse(order, w); err != nil {
		log.Errorf("getOrder: %v", err)
	}
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		setErrorResponse("cancelOrder: invalid id", 400, err, w)
		return
	}

	order, err := h.lifecycle.CancelOrder(id)
	if err != nil {
		if errors.Is(err, models.ErrOrderNotFound) {
			setErrorResponse("cancelOrder: not found", 404, err, w)
			return
		}

		setErrorResponse("cancelOrder: failed", 500, fmt.Errorf("order could not be processed"), w)
		log.Errorf("cancelOrder: %v", err)
		return
	}

	if err := setResponse(order, w); err != nil {
		log.Errorf("cancelOrder: %v", err)
	}
}

func (h *Handler) runSweep(w http.ResponseWriter, r *http.Request) {
	result, err := h.monitor.RunSweep()
	if err != nil {
		setErrorResponse("runSweep: failed", 500, fmt.Errorf("sweep could not be completed"), w)
		log.Errorf("runSweep: %v", err)
		return
	}

	if err := setResponse(result, w); err != nil {
		log.Errorf("runSweep: %v", err)
	}
}

func (h *Handler) getCandles(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			setErrorResponse("getCandles: invalid limit", 400, err, w)
			return
		}

		limit = parsed
	}

	bars, err := h.feed.Bars(symbol, limit)
	if err != nil {
		setErrorResponse("getCandles: unknown symbol", 404, err, w)
		return
	}

	if err := setResponse(bars, w); err != nil {
		log.Errorf("getCandles: %v", err)
	}
}

func (h *Handler) getCandleStats(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	stats, err := h.feed.Stats(symbol)
	if err != nil {
		setErrorResponse("getCandleStats: unknown symbol", 404, err, w)
		return
	}

	if err := setResponse(stats, w); err != nil {
		log.Errorf("getCandleStats: %v", err)
	}
}
