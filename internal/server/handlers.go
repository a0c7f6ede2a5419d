package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"trade-dashboard-go/internal/auth"
	"trade-dashboard-go/internal/service"
	"trade-dashboard-go/internal/store"
)

// APIHandler holds dependencies for the API endpoints.
type APIHandler struct {
	log      *zap.Logger
	svc      *service.TradeService
	sessions *auth.Sessions
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(log *zap.Logger, svc *service.TradeService, sessions *auth.Sessions) *APIHandler {
	return &APIHandler{log: log, svc: svc, sessions: sessions}
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *APIHandler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}

// decodeBody decodes a JSON request body, reporting 400 on malformed
// input. Returns false when a response has already been written.
func (h *APIHandler) decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "POST required")
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// TradesHandler returns the trades within the retention window, newest
// first.
func (h *APIHandler) TradesHandler(w http.ResponseWriter, r *http.Request) {
	trades, err := h.svc.ListTrades()
	if err != nil {
		h.log.Error("Failed to list trades", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, trades)
}

type signalRequest struct {
	TradeID string `json:"trade_id"`
	Symbol  string `json:"symbol"`
	Type    string `json:"type"`
}

// SignalDetectedHandler records the first sighting of a trade.
func (h *APIHandler) SignalDetectedHandler(w http.ResponseWriter, r *http.Request) {
	var req signalRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.TradeID == "" || req.Symbol == "" || req.Type == "" {
		h.writeError(w, http.StatusBadRequest, "trade_id, symbol and type are required")
		return
	}

	if err := h.svc.SignalDetected(req.TradeID, req.Symbol, req.Type); err != nil {
		h.log.Error("signal_detected failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type setupRequest struct {
	TradeID string  `json:"trade_id"`
	Symbol  string  `json:"symbol"`
	Type    string  `json:"type"`
	Entry   float64 `json:"entry"`
	SL      float64 `json:"sl"`
	TP1     float64 `json:"tp1"`
	TP2     float64 `json:"tp2"`
	TP3     float64 `json:"tp3"`
}

// SetupConfirmedHandler refines a signal with price levels, reversing
// any open siblings on the symbol.
func (h *APIHandler) SetupConfirmedHandler(w http.ResponseWriter, r *http.Request) {
	var req setupRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.TradeID == "" || req.Symbol == "" || req.Type == "" {
		h.writeError(w, http.StatusBadRequest, "trade_id, symbol and type are required")
		return
	}

	levels := store.Levels{Entry: req.Entry, SL: req.SL, TP1: req.TP1, TP2: req.TP2, TP3: req.TP3}
	if err := h.svc.SetupConfirmed(req.TradeID, req.Symbol, req.Type, levels); err != nil {
		h.log.Error("setup_confirmed failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type priceUpdateRequest struct {
	Symbol string  `json:"symbol"`
	Bid    float64 `json:"bid"`
	Ask    float64 `json:"ask"`
}

// PriceUpdateHandler refreshes floating P/L for ACTIVE trades on a symbol.
func (h *APIHandler) PriceUpdateHandler(w http.ResponseWriter, r *http.Request) {
	var req priceUpdateRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.Symbol == "" {
		h.writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	if err := h.svc.PriceUpdate(req.Symbol, req.Bid, req.Ask); err != nil {
		h.log.Error("price_update failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type logEventRequest struct {
	TradeID   string  `json:"trade_id"`
	NewStatus string  `json:"new_status"`
	Price     float64 `json:"price"`
}

// LogEventHandler applies a reported lifecycle transition under the
// guard rules. An unknown trade_id is a soft failure so the automated
// caller does not retry it forever.
func (h *APIHandler) LogEventHandler(w http.ResponseWriter, r *http.Request) {
	var req logEventRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.TradeID == "" || req.NewStatus == "" {
		h.writeError(w, http.StatusBadRequest, "trade_id and new_status are required")
		return
	}

	result, err := h.svc.LogEvent(req.TradeID, req.NewStatus, req.Price)
	if err != nil {
		h.log.Error("log_event failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !result.Found {
		h.writeJSON(w, http.StatusOK, map[string]interface{}{"success": false, "msg": "Trade not found"})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type deleteRequest struct {
	TradeIDs []string `json:"trade_ids"`
	Password string   `json:"password"`
}

// DeleteTradesHandler hard-deletes a list of trades. It is guarded both
// by the session (route middleware) and by the delete password.
func (h *APIHandler) DeleteTradesHandler(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if len(req.TradeIDs) == 0 {
		h.writeJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "msg": "No IDs provided"})
		return
	}
	if !h.sessions.CheckDeletePassword(req.Password) {
		h.writeError(w, http.StatusUnauthorized, "invalid password")
		return
	}

	if err := h.svc.DeleteTrades(req.TradeIDs); err != nil {
		h.log.Error("delete_trades failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginHandler issues the session cookie.
func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	token, ok := h.sessions.Login(req.Username, req.Password)
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	http.SetCookie(w, auth.Cookie(token, 0))
	h.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// LogoutHandler invalidates the session and clears the cookie.
func (h *APIHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	h.sessions.Logout(auth.FromRequest(r))
	http.SetCookie(w, auth.Cookie("", -1))
	h.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
