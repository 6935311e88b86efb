package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/rl1809/stock-tracker/internal/core/domain"
	"github.com/rl1809/stock-tracker/internal/core/service"
)

var errInvalidSnapshotName = errors.New("invalid snapshot name")

// HTTPHandler exposes the inventory over HTTP. It owns the session log and
// serializes every call into the service.
type HTTPHandler struct {
	mu        sync.Mutex
	inventory *service.InventoryService
	logger    *zap.Logger
	snapshot  string
	threshold int
	log       []string
}

type MutationHTTPResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Item     string `json:"item,omitempty"`
	Quantity int    `json:"quantity"`
}

type StockHTTPResponse struct {
	Item     string `json:"item"`
	Quantity int    `json:"quantity"`
}

type LowStockHTTPResponse struct {
	Threshold int      `json:"threshold"`
	Items     []string `json:"items"`
}

type LogHTTPResponse struct {
	Entries []string `json:"entries"`
}

func NewHTTPHandler(inventory *service.InventoryService, logger *zap.Logger, snapshot string, threshold int) *HTTPHandler {
	return &HTTPHandler{
		inventory: inventory,
		logger:    logger,
		snapshot:  snapshot,
		threshold: threshold,
		log:       []string{},
	}
}

func (h *HTTPHandler) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/stock", h.ListStock).Methods(http.MethodGet)
	api.HandleFunc("/stock/low", h.LowStock).Methods(http.MethodGet)
	api.HandleFunc("/stock/add", h.Add).Methods(http.MethodPost)
	api.HandleFunc("/stock/remove", h.Remove).Methods(http.MethodPost)
	api.HandleFunc("/stock/{item}", h.GetStock).Methods(http.MethodGet)
	api.HandleFunc("/snapshot/save", h.SaveSnapshot).Methods(http.MethodPost)
	api.HandleFunc("/snapshot/load", h.LoadSnapshot).Methods(http.MethodPost)
	api.HandleFunc("/report", h.Report).Methods(http.MethodGet)
	api.HandleFunc("/log", h.SessionLog).Methods(http.MethodGet)
	return r
}

func (h *HTTPHandler) Add(w http.ResponseWriter, r *http.Request) {
	m, ok := h.decodeMutation(w, r, "add")
	if !ok {
		return
	}

	h.mu.Lock()
	h.log = h.inventory.Add(m.Item, m.Quantity, h.log)
	qty := h.inventory.Quantity(m.Item)
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, MutationHTTPResponse{
		Success:  true,
		Message:  "stock added",
		Item:     m.Item,
		Quantity: qty,
	})
}

func (h *HTTPHandler) Remove(w http.ResponseWriter, r *http.Request) {
	m, ok := h.decodeMutation(w, r, "remove")
	if !ok {
		return
	}

	h.mu.Lock()
	found := h.inventory.Contains(m.Item)
	h.inventory.Remove(m.Item, m.Quantity)
	qty := h.inventory.Quantity(m.Item)
	h.mu.Unlock()

	if !found {
		writeJSON(w, http.StatusNotFound, MutationHTTPResponse{
			Success: false,
			Message: "item not found",
			Item:    m.Item,
		})
		return
	}

	writeJSON(w, http.StatusOK, MutationHTTPResponse{
		Success:  true,
		Message:  "stock removed",
		Item:     m.Item,
		Quantity: qty,
	})
}

func (h *HTTPHandler) GetStock(w http.ResponseWriter, r *http.Request) {
	item := mux.Vars(r)["item"]

	h.mu.Lock()
	qty := h.inventory.Quantity(item)
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, StockHTTPResponse{Item: item, Quantity: qty})
}

func (h *HTTPHandler) ListStock(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	snapshot := h.inventory.Snapshot()
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, snapshot)
}

func (h *HTTPHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	threshold := h.threshold
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, MutationHTTPResponse{
				Success: false,
				Message: "threshold must be an integer",
			})
			return
		}
		threshold = n
	}

	h.mu.Lock()
	items := h.inventory.ListBelow(threshold)
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, LowStockHTTPResponse{Threshold: threshold, Items: items})
}

func (h *HTTPHandler) SaveSnapshot(w http.ResponseWriter, r *http.Request) {
	name, err := h.snapshotName(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, MutationHTTPResponse{Success: false, Message: err.Error()})
		return
	}

	h.mu.Lock()
	err = h.inventory.Save(r.Context(), name)
	count := h.inventory.Len()
	h.mu.Unlock()

	if err != nil {
		h.logger.Error("failed to save snapshot", zap.String("snapshot", name), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, MutationHTTPResponse{Success: false, Message: "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, MutationHTTPResponse{Success: true, Message: "snapshot saved", Quantity: count})
}

func (h *HTTPHandler) LoadSnapshot(w http.ResponseWriter, r *http.Request) {
	name, err := h.snapshotName(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, MutationHTTPResponse{Success: false, Message: err.Error()})
		return
	}

	h.mu.Lock()
	err = h.inventory.Load(r.Context(), name)
	count := h.inventory.Len()
	h.mu.Unlock()

	if err != nil {
		h.logger.Error("failed to load snapshot", zap.String("snapshot", name), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, MutationHTTPResponse{Success: false, Message: "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, MutationHTTPResponse{Success: true, Message: "snapshot loaded", Quantity: count})
}

func (h *HTTPHandler) Report(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer

	h.mu.Lock()
	err := h.inventory.Report(&buf)
	h.mu.Unlock()

	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (h *HTTPHandler) SessionLog(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	entries := append([]string{}, h.log...)
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, LogHTTPResponse{Entries: entries})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeMutation reads {"item": ..., "quantity": ...} without trusting the
// JSON types and writes the 400 response itself when they are wrong.
func (h *HTTPHandler) decodeMutation(w http.ResponseWriter, r *http.Request, op string) (domain.Mutation, bool) {
	var body map[string]any

	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, MutationHTTPResponse{
			Success: false,
			Message: "invalid request body",
		})
		return domain.Mutation{}, false
	}

	m, err := domain.ParseMutation(body["item"], body["quantity"])
	if err != nil {
		h.logger.Warn("invalid input for "+op,
			zap.Any("item", body["item"]),
			zap.Any("quantity", body["quantity"]),
			zap.Error(err),
		)
		writeJSON(w, http.StatusBadRequest, MutationHTTPResponse{
			Success: false,
			Message: err.Error(),
		})
		return domain.Mutation{}, false
	}

	return m, true
}

func (h *HTTPHandler) snapshotName(r *http.Request) (string, error) {
	name := r.URL.Query().Get("name")
	if name == "" {
		return h.snapshot, nil
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", errInvalidSnapshotName
	}
	return name, nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
