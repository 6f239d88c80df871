package cmd

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"bitebook/internal/events"
	"bitebook/internal/search"
	"bitebook/internal/server"
	"bitebook/internal/store"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var (
	serveAddr   string
	serveDBPath string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the places REST service",
	Long: `serve runs the places service the client talks to.

Storage is SQLite unless DATABASE_URL points at Postgres. Setting
GOOGLE_MAPS_API_KEY enables enrichment from Google Maps, REDIS_ADDR caches
those lookups and KAFKA_BROKER publishes an event for every change.
BITEBOOK_API_KEYS (comma-separated) requires a bearer key on every request.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")
	serveCmd.Flags().StringVar(&serveDBPath, "db", "", "Path to SQLite database file (default: ~/.bitebook/bitebook.db)")
}

func runServe(cmd *cobra.Command, args []string) error {
	loadDotEnv()
	logger := log.New(os.Stdout, "bitebook ", log.LstdFlags|log.Lmicroseconds)

	st, err := openStore(serveDBPath, os.Getenv("DATABASE_URL"))
	if err != nil {
		return err
	}
	defer st.Close()

	cfg := server.Config{
		Store:   st,
		Logger:  logger,
		APIKeys: server.ParseAPIKeys(os.Getenv("BITEBOOK_API_KEYS")),
	}

	mapsKey := firstNonEmpty(flags.mapsKey, os.Getenv("GOOGLE_MAPS_API_KEY"))
	if mapsKey != "" {
		cfg.Details = search.NewGoogleClient(mapsKey)
	} else {
		logger.Printf("GOOGLE_MAPS_API_KEY not set, places will not be enriched")
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
		})
		defer rdb.Close()
		cfg.DetailsCache = server.NewDetailsCache(rdb, 10*time.Minute)
		logger.Printf("caching provider details in redis at %s", addr)
	}

	if broker := os.Getenv("KAFKA_BROKER"); broker != "" {
		pub := events.NewKafkaPublisher(broker, os.Getenv("KAFKA_TOPIC"))
		defer pub.Close()
		cfg.Publisher = pub
		logger.Printf("publishing place events to kafka at %s", broker)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = server.New(cfg).ListenAndServe(ctx, serveAddr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// openStore connects to Postgres when dsn is set and to SQLite otherwise.
func openStore(dbPath, dsn string) (*store.SQLStore, error) {
	if dsn != "" {
		return store.OpenPostgres(dsn)
	}
	if dbPath == "" {
		dir, err := configDir()
		if err != nil {
			return nil, err
		}
		dbPath = filepath.Join(dir, "bitebook.db")
	}
	st, err := store.OpenSQLite(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", dbPath, err)
	}
	return st, nil
}
