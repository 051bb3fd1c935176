package server

import (
	"context"
	"net/http"
	"time"

	"github.com/NullRecords/nullrecords-cms/internal/utils"
	"github.com/NullRecords/nullrecords-cms/pkg/eligibility"
	"github.com/NullRecords/nullrecords-cms/pkg/storage"
	"github.com/NullRecords/nullrecords-cms/pkg/store"
)

// OptOutStore manages the persistent opt-out list. *storage.DB satisfies it.
type OptOutStore interface {
	AddOptOut(ctx context.Context, email, reason string) error
	RemoveOptOut(ctx context.Context, email string) error
	ListOptOuts(ctx context.Context) ([]storage.OptOut, error)
}

type Server struct {
	Backend store.Backend
	OptOuts OptOutStore // nil disables the opt-out endpoints
	Filter  eligibility.Filter

	// LockPath is the store path whose run lock guards every write.
	LockPath string
	Username string
	Password string
	Now      func() time.Time
}

func New(b store.Backend, lockPath, user, pass string) *Server {
	return &Server{
		Backend:  b,
		Filter:   eligibility.Default(),
		LockPath: lockPath,
		Username: user,
		Password: pass,
		Now:      time.Now,
	}
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/stats", s.basicAuth(s.handleStats))
	mux.HandleFunc("GET /api/contacts", s.basicAuth(s.handleContacts))
	mux.HandleFunc("GET /api/eligible", s.basicAuth(s.handleEligible))
	mux.HandleFunc("POST /api/contacts/respond", s.basicAuth(s.handleRespond))
	mux.HandleFunc("GET /api/optouts", s.basicAuth(s.handleListOptOuts))
	mux.HandleFunc("POST /api/optouts", s.basicAuth(s.handleAddOptOut))
	mux.HandleFunc("DELETE /api/optouts", s.basicAuth(s.handleRemoveOptOut))
	return mux
}

func (s *Server) Start(addr string) error {
	utils.Log.Infof("Starting server on %s", addr)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Server) basicAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Username == "" && s.Password == "" {
			next(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != s.Username || pass != s.Password {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// load reads a fresh snapshot so changes made by concurrent runs are seen.
func (s *Server) load(ctx context.Context) (*store.Store, error) {
	return store.Open(ctx, s.Backend)
}

// write runs fn under the store lock.
func (s *Server) write(ctx context.Context, fn func(st *store.Store) error) error {
	return utils.WithLock(ctx, s.LockPath, func() error {
		st, err := s.load(ctx)
		if err != nil {
			return err
		}
		return fn(st)
	})
}
