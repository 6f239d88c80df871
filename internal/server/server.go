package server

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"bitebook/internal/events"
	"bitebook/internal/search"
	"bitebook/internal/store"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// DetailsProvider looks up provider records used to enrich stored places.
type DetailsProvider interface {
	Details(ctx context.Context, placeID string) (*search.Details, error)
	SearchText(ctx context.Context, query string) (*search.Details, error)
}

// Config wires the service's collaborators. Only Store is required.
type Config struct {
	Store          store.PlaceStore
	Details        DetailsProvider
	DetailsCache   *DetailsCache
	Publisher      events.Publisher
	Logger         *log.Logger
	APIKeys        map[string]struct{}
	AllowedOrigins []string
	Now            func() time.Time
	NewID          func() string
}

// Server is the places REST service.
type Server struct {
	store     store.PlaceStore
	details   DetailsProvider
	cache     *DetailsCache
	publisher events.Publisher
	logger    *log.Logger
	apiKeys   map[string]struct{}
	origins   []string
	now       func() time.Time
	newID     func() string
}

// New creates a Server from cfg, filling defaults for optional fields.
func New(cfg Config) *Server {
	s := &Server{
		store:     cfg.Store,
		details:   cfg.Details,
		cache:     cfg.DetailsCache,
		publisher: cfg.Publisher,
		logger:    cfg.Logger,
		apiKeys:   cfg.APIKeys,
		origins:   cfg.AllowedOrigins,
		now:       cfg.Now,
		newID:     cfg.NewID,
	}
	if s.publisher == nil {
		s.publisher = events.NopPublisher{}
	}
	if s.logger == nil {
		s.logger = log.New(os.Stdout, "bitebook ", log.LstdFlags|log.Lmicroseconds)
	}
	if len(s.origins) == 0 {
		s.origins = []string{"http://localhost:3000"}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = newUUID
	}
	return s
}

// Handler returns the routed handler with CORS, logging and, when keys are
// configured, bearer authentication.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	places := r.PathPrefix("/places").Subrouter()
	places.HandleFunc("/feed", s.handleFeed).Methods(http.MethodGet)
	places.HandleFunc("/place/{id}", s.handleGet).Methods(http.MethodGet)
	places.HandleFunc("/add", s.handleAdd).Methods(http.MethodPost)
	places.HandleFunc("/update/{id}", s.handleUpdate).Methods(http.MethodPost)
	places.HandleFunc("/delete/{id}", s.handleDelete).Methods(http.MethodPut)

	var h http.Handler = r
	if len(s.apiKeys) > 0 {
		h = authMiddleware(s.apiKeys)(h)
	}
	h = loggingMiddleware(s.logger)(h)

	c := cors.New(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	return c.Handler(h)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("places service listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
