package mockapi

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/crypto/bcrypt"

	"github.com/five82/basket/internal/shop"
)

const (
	// SessionCookieName carries the signed session token.
	SessionCookieName = "basket_session"
	// DemoEmail and DemoPassword sign in to the seeded account.
	DemoEmail    = "demo@example.com"
	DemoPassword = "password"

	maxImageBytes = 5 << 20
	sessionTTL    = 24 * time.Hour
)

type account struct {
	user         shop.User
	passwordHash []byte
}

type listRecord struct {
	id      shop.ID
	name    string
	ownerID shop.ID
	shared  map[shop.ID]bool
	items   []shop.Item
}

func (l *listRecord) visibleTo(userID shop.ID) bool {
	return l.ownerID == userID || l.shared[userID]
}

func (l *listRecord) dto() shop.List {
	return shop.List{
		ID:         l.id,
		Name:       l.name,
		OwnerID:    l.ownerID,
		ItemsCount: int64(len(l.items)),
	}
}

// Server is an in-memory implementation of the shopping-list API.
type Server struct {
	mu       sync.Mutex
	accounts map[string]*account
	lists    map[shop.ID]*listRecord
	order    []shop.ID
	nextID   int64

	noSeed    bool
	secret    []byte
	validator *validator
	logger    *slog.Logger
	now       func() time.Time
	router    chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithSecret fixes the token signing key.
func WithSecret(secret []byte) Option {
	return func(s *Server) {
		if len(secret) > 0 {
			s.secret = secret
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces time.Now for token issue and expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// WithoutSeed starts with no accounts or lists.
func WithoutSeed() Option {
	return func(s *Server) { s.noSeed = true }
}

// New returns a Server seeded with the demo account and its "Groceries" list.
func New(opts ...Option) (*Server, error) {
	s := &Server{
		accounts: map[string]*account{},
		lists:    map[shop.ID]*listRecord{},
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.secret == nil {
		s.secret = make([]byte, 32)
		if _, err := rand.Read(s.secret); err != nil {
			return nil, fmt.Errorf("generate secret: %w", err)
		}
	}

	v, err := newValidator()
	if err != nil {
		return nil, err
	}
	s.validator = v

	if !s.noSeed {
		demo, err := s.addAccount(DemoEmail, DemoPassword)
		if err != nil {
			return nil, err
		}
		groceries := s.addList(demo.user.ID, "Groceries")
		groceries.items = append(groceries.items,
			shop.Item{ID: s.newID(), Name: "Milk", Count: 1, ListID: groceries.id},
			shop.Item{ID: s.newID(), Name: "Eggs", Count: 12, ListID: groceries.id},
		)
	}

	s.router = s.routes()
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Post("/register", s.handleRegister)
		r.Delete("/logout", s.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(s.requireUser)
			r.Get("/me", s.handleMe)

			r.Get("/list", s.handleLists)
			r.Post("/list", s.handleCreateList)
			r.Post("/list/import", s.handleImport)
			r.Get("/list/{listID}", s.handleGetList)
			r.Put("/list/{listID}", s.handleUpdateList)
			r.Delete("/list/{listID}", s.handleDeleteList)
			r.Post("/list/{listID}", s.handleShareList)

			r.Get("/list/{listID}/items", s.handleItems)
			r.Post("/list/{listID}/items", s.handleCreateItem)
			r.Get("/list/{listID}/items/{itemID}", s.handleGetItem)
			r.Put("/list/{listID}/items/{itemID}", s.handleUpdateItem)
			r.Delete("/list/{listID}/items/{itemID}", s.handleDeleteItem)
			r.Put("/list/{listID}/items/{itemID}/image", s.handlePutImage)
			r.Delete("/list/{listID}/items/{itemID}/image", s.handleDeleteImage)
		})
	})

	r.NotFound(teapot)
	r.MethodNotAllowed(teapot)
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := s.now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("mock api request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", s.now().Sub(start),
		)
	})
}

// addAccount must be called with mu held or before the server is shared.
func (s *Server) addAccount(email, password string) (*account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	acct := &account{
		user:         shop.User{ID: s.newID(), Email: email},
		passwordHash: hash,
	}
	s.accounts[email] = acct
	return acct, nil
}

func (s *Server) addList(ownerID shop.ID, name string) *listRecord {
	rec := &listRecord{
		id:      s.newID(),
		name:    name,
		ownerID: ownerID,
		shared:  map[shop.ID]bool{},
	}
	s.lists[rec.id] = rec
	s.order = append(s.order, rec.id)
	return rec
}

func (s *Server) removeList(id shop.ID) {
	delete(s.lists, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

func (s *Server) newID() shop.ID {
	s.nextID++
	return shop.ID(strconv.FormatInt(s.nextID, 10))
}

func (s *Server) accountByID(id shop.ID) *account {
	for _, acct := range s.accounts {
		if acct.user.ID == id {
			return acct
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func teapot(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusTeapot, "No such route")
}
