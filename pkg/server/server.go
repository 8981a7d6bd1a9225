// Package server exposes the account view over HTTP and websocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"acctview/pkg/accounts"
	"acctview/pkg/favorites"
	"acctview/pkg/models"
	"acctview/pkg/session"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// View is the part of the session the server drives.
type View interface {
	Snapshot() models.Snapshot
	Subscribe() session.Subscriber
	Unsubscribe(session.Subscriber)
	ToggleFavorite(ctx context.Context, address string) error
	ReportBalance(address string, value *big.Int)
}

// AccountEditor mutates the account source.
type AccountEditor interface {
	Add(acc models.Account) error
	Remove(address string) error
	Rename(address, name string) error
	SetTags(address string, tags []string) error
}

type Server struct {
	view     View
	accounts AccountEditor
	gatherer prometheus.Gatherer
	log      zerolog.Logger

	clients map[*websocket.Conn]bool
	mu      sync.Mutex
	router  *mux.Router
}

type wsMessage struct {
	Type string          `json:"type"`
	Data models.Snapshot `json:"data"`
}

type accountPatch struct {
	Name *string   `json:"name"`
	Tags *[]string `json:"tags"`
}

type balanceBody struct {
	Balance string `json:"balance"`
}

func NewServer(view View, editor AccountEditor, gatherer prometheus.Gatherer, log zerolog.Logger) *Server {
	s := &Server{
		view:     view,
		accounts: editor,
		gatherer: gatherer,
		log:      log.With().Str("component", "server").Logger(),
		clients:  make(map[*websocket.Conn]bool),
		router:   mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/accounts", s.handleSnapshot).Methods(http.MethodGet)
	api.HandleFunc("/accounts", s.handleAddAccount).Methods(http.MethodPost)
	api.HandleFunc("/accounts/{address}", s.handleRemoveAccount).Methods(http.MethodDelete)
	api.HandleFunc("/accounts/{address}", s.handlePatchAccount).Methods(http.MethodPatch)
	api.HandleFunc("/favorites/{address}", s.handleToggleFavorite).Methods(http.MethodPost)
	api.HandleFunc("/balances/{address}", s.handleReportBalance).Methods(http.MethodPost)

	s.router.HandleFunc("/ws", s.handleWS)
	if s.gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves on addr until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.listenToSession(ctx)

	srv := &http.Server{Addr: addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Info().Str("addr", addr).Msg("API server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func errorCode(err error) int {
	switch {
	case errors.Is(err, accounts.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, accounts.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, favorites.ErrEmptyAddress):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// handleSnapshot returns the current view. With ?filter= only the matching
// accounts are returned.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := s.view.Snapshot()
	if filter, ok := r.URL.Query()["filter"]; ok {
		snap.Filter = strings.Join(filter, " ")
		snap.Accounts = snap.Visible()
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleAddAccount(w http.ResponseWriter, r *http.Request) {
	var acc models.Account
	if err := json.NewDecoder(r.Body).Decode(&acc); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(acc.Address) == "" {
		writeError(w, http.StatusBadRequest, errors.New("address is required"))
		return
	}
	if err := s.accounts.Add(acc); err != nil {
		writeError(w, errorCode(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, acc)
}

func (s *Server) handleRemoveAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.accounts.Remove(mux.Vars(r)["address"]); err != nil {
		writeError(w, errorCode(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePatchAccount(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	var patch accountPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if patch.Name != nil {
		if err := s.accounts.Rename(address, *patch.Name); err != nil {
			writeError(w, errorCode(err), err)
			return
		}
	}
	if patch.Tags != nil {
		if err := s.accounts.SetTags(address, *patch.Tags); err != nil {
			writeError(w, errorCode(err), err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	if err := s.view.ToggleFavorite(r.Context(), mux.Vars(r)["address"]); err != nil {
		writeError(w, errorCode(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReportBalance(w http.ResponseWriter, r *http.Request) {
	var body balanceBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	value, ok := math.ParseBig256(body.Balance)
	if !ok || body.Balance == "" || value.Sign() < 0 {
		writeError(w, http.StatusBadRequest, errors.New("balance must be a non-negative decimal or 0x hex integer"))
		return
	}
	s.view.ReportBalance(mux.Vars(r)["address"], value)
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	// the initial snapshot goes out before the client joins the broadcast
	s.mu.Lock()
	err = conn.WriteJSON(wsMessage{Type: "initial", Data: s.view.Snapshot()})
	if err == nil {
		s.clients[conn] = true
	}
	s.mu.Unlock()
	if err != nil {
		return
	}

	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// listenToSession subscribes before returning and forwards snapshots to
// websocket clients in the background.
func (s *Server) listenToSession(ctx context.Context) {
	sub := s.view.Subscribe()
	go s.forward(ctx, sub)
}

func (s *Server) forward(ctx context.Context, sub session.Subscriber) {
	defer s.view.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-sub:
			if !ok {
				return
			}
			if snap, isSnap := event.Data.(models.Snapshot); isSnap {
				s.broadcast(wsMessage{Type: string(event.Type), Data: snap})
			}
		}
	}
}

func (s *Server) broadcast(msg wsMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for client := range s.clients {
		if err := client.WriteJSON(msg); err != nil {
			s.log.Debug().Err(err).Msg("Dropping websocket client")
			_ = client.Close()
			delete(s.clients, client)
		}
	}
}
