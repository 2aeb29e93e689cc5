package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/graphif/stagecore/internal/attachment"
	"github.com/graphif/stagecore/internal/auth"
	"github.com/graphif/stagecore/internal/collab"
	"github.com/graphif/stagecore/internal/config"
	"github.com/graphif/stagecore/internal/export"
	mw "github.com/graphif/stagecore/internal/middleware"
	"github.com/graphif/stagecore/internal/project"
	"github.com/graphif/stagecore/internal/store"
	"github.com/graphif/stagecore/internal/typeid"
)

const playgroundProjectID = "proj_playground"

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	docs, closeDocs, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("open document store", "store", cfg.Store, "error", err)
		os.Exit(1)
	}
	defer closeDocs()

	attachments, err := attachment.NewDirStore(cfg.AttachmentDir)
	if err != nil {
		slog.Error("open attachment store", "error", err)
		os.Exit(1)
	}

	authService := auth.NewService(cfg.JWTSecret, auth.DefaultTTL)
	authHandler := auth.NewHandler(authService, cfg.TokenSecret)

	hub := collab.NewHub(docs, cfg.SaveInterval)
	go hub.Run()

	projectService := project.NewService(docs, hub)
	projectHandler := project.NewHandler(projectService)
	attachmentHandler := attachment.NewHandler(attachments)
	exportHandler := export.NewHandler(projectService, attachments, export.Options{
		TileWidth:  cfg.ExportTileW,
		TileHeight: cfg.ExportTileH,
		MaxPixels:  cfg.ExportMaxPix,
	})

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.Origins()))

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Public routes
	r.HandleFunc("/api/token", authHandler.Token).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/attachments/{attachmentId}", attachmentHandler.Serve).Methods("GET")

	// Protected API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.Middleware)

	api.HandleFunc("/projects", projectHandler.List).Methods("GET")
	api.HandleFunc("/projects", projectHandler.Create).Methods("POST")
	api.HandleFunc("/projects/{projectId}", projectHandler.Get).Methods("GET")
	api.HandleFunc("/projects/{projectId}/document", projectHandler.GetDocument).Methods("GET")
	api.HandleFunc("/projects/{projectId}/document", projectHandler.PutDocument).Methods("PUT")
	api.HandleFunc("/projects/{projectId}/export", exportHandler.Export).Methods("POST")
	api.HandleFunc("/projects/{projectId}/attachments", attachmentHandler.Upload).Methods("POST")
	api.HandleFunc("/attachments", attachmentHandler.List).Methods("GET")
	api.HandleFunc("/attachments/{attachmentId}", attachmentHandler.Delete).Methods("DELETE")

	// WebSocket endpoint
	origins := originPatterns(cfg.Origins())
	r.HandleFunc("/ws/project/{projectId}", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(w, r, hub, authService, origins)
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		// Stop hub first to save all dirty documents
		slog.Info("saving all documents...")
		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr, "store", cfg.Store)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func openStore(ctx context.Context, cfg *config.Config) (store.DocumentStore, func(), error) {
	switch cfg.Store {
	case "postgres":
		pool, err := store.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		pg := store.NewPostgres(pool)
		if err := pg.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return pg, pool.Close, nil
	case "file":
		dir, err := store.NewDir(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return dir, func() {}, nil
	case "memory":
		return store.NewMemory(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown store %q: want postgres, file or memory", cfg.Store)
}

// originPatterns turns allowed origins into the host patterns the websocket accept
// check expects.
func originPatterns(origins []string) []string {
	var out []string
	for _, o := range origins {
		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			slog.Warn("ignoring allowed origin", "origin", o)
			continue
		}
		out = append(out, u.Host)
	}
	return out
}

func handleWebSocket(w http.ResponseWriter, r *http.Request, hub *collab.Hub, authSvc *auth.Service, origins []string) {
	projectID := mux.Vars(r)["projectId"]
	if err := store.CheckID(projectID); err != nil {
		http.Error(w, "invalid project id", http.StatusBadRequest)
		return
	}

	var userID string
	if projectID == playgroundProjectID {
		// Anonymous user for playground
		userID = "anon-" + uuid.New().String()[:8]
	} else {
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}
		var err error
		userID, err = authSvc.Validate(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
	}
	displayName := r.URL.Query().Get("name")
	if displayName == "" {
		displayName = userID
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: origins,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	client := collab.NewClient(hub, conn, userID, displayName, projectID, typeid.NewClientID())
	hub.Register(client)

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}
