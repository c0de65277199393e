// Package server exposes the task projections and intents as a JSON API
// for the signed-in user's session.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/nhle/taskflow/internal/app"
	"github.com/nhle/taskflow/internal/auth"
)

// TokenVerifier resolves a bearer token to the identity it was issued to.
type TokenVerifier interface {
	Restore(ctx context.Context, token string) (auth.Identity, error)
}

// Server serves one controller. Requests must carry a bearer token for the
// user whose session the controller is subscribed to.
type Server struct {
	ctrl     *app.Controller
	verifier TokenVerifier
	log      *logrus.Entry
	router   *mux.Router
}

// New builds the router.
func New(ctrl *app.Controller, verifier TokenVerifier, log *logrus.Logger) *Server {
	s := &Server{
		ctrl:     ctrl,
		verifier: verifier,
		log:      log.WithField("component", "server"),
		router:   mux.NewRouter(),
	}

	s.router.HandleFunc("/healthz", s.health).Methods(http.MethodGet)

	api := s.router.PathPrefix("/").Subrouter()
	api.Use(s.logRequests, s.requireToken)

	api.HandleFunc("/board", s.getBoard).Methods(http.MethodGet)
	api.HandleFunc("/list", s.getList).Methods(http.MethodGet)
	api.HandleFunc("/calendar", s.getCalendar).Methods(http.MethodGet)
	api.HandleFunc("/tasks", s.quickAdd).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{id}", s.getTask).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{id}", s.updateTask).Methods(http.MethodPatch)
	api.HandleFunc("/tasks/{id}", s.deleteTask).Methods(http.MethodDelete)
	api.HandleFunc("/tasks/{id}/move", s.moveTask).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{id}/subtasks", s.addSubtask).Methods(http.MethodPost)
	api.HandleFunc("/undo", s.undo).Methods(http.MethodPost)
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving on %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}
