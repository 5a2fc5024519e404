package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/oszuidwest/zwfm-levelmeter/internal/alert"
	"github.com/oszuidwest/zwfm-levelmeter/internal/config"
	"github.com/oszuidwest/zwfm-levelmeter/internal/server"
)

// Server is the HTTP server that provides the meter web interface.
type Server struct {
	config   *config.Config
	levels   *LevelPublisher
	watcher  *alert.Watcher
	commands *server.CommandHandler
	version  *VersionChecker
}

// NewServer returns a new Server wired to the given publisher and watcher.
func NewServer(cfg *config.Config, levels *LevelPublisher, watcher *alert.Watcher) *Server {
	notifier := watcher.Notifier()
	commands := server.NewCommandHandler(
		cfg,
		func() {
			levels.RequestReset()
			watcher.RequestOverloadReset()
		},
		func() {
			levels.RequestOverloadReset()
			watcher.RequestOverloadReset()
		},
		map[string]func() error{
			"webhook": notifier.TestWebhook,
			"email":   notifier.TestEmail,
			"log":     notifier.TestLog,
		},
	)

	return &Server{
		config:   cfg,
		levels:   levels,
		watcher:  watcher,
		commands: commands,
		version:  NewVersionChecker(),
	}
}

// handleWebSocket streams real-time meter levels and status to the client.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := server.UpgradeConnection(w, r)
	if err != nil {
		slog.Error("WebSocket upgrade failed", "error", err)
		return
	}
	defer func() {
		if err := conn.Close(); err != nil {
			slog.Warn("failed to close WebSocket connection", "error", err)
		}
	}()

	// Channel to signal that a status update is needed
	statusUpdate := make(chan bool, 1)
	done := make(chan bool)

	// Goroutine to read and process commands from the client
	go func() {
		for {
			var cmd server.WSCommand
			if err := conn.ReadJSON(&cmd); err != nil {
				close(done)
				return
			}
			s.commands.Handle(cmd, conn, func() {
				select {
				case statusUpdate <- true:
				default:
				}
			})
		}
	}()

	levelsTicker := time.NewTicker(100 * time.Millisecond) // 10 fps for the VU meters
	statusTicker := time.NewTicker(3 * time.Second)
	defer levelsTicker.Stop()
	defer statusTicker.Stop()

	sendStatus := func() error {
		cfg := s.config.Snapshot()
		return conn.WriteJSON(map[string]any{
			"type": "status",
			"scale": map[string]any{
				"floor_db":  cfg.ScaleFloorDB,
				"divisions": cfg.ScaleDivisions,
			},
			"silence_threshold": cfg.SilenceThreshold,
			"silence_duration":  cfg.SilenceDuration,
			"silence_recovery":  cfg.SilenceRecovery,
			"webhook_url":       cfg.WebhookURL,
			"log_path":          cfg.LogPath,
			"email_smtp_host":   cfg.EmailSMTPHost,
			"email_smtp_port":   cfg.EmailSMTPPort,
			"email_recipients":  cfg.EmailRecipients,
			"version":           s.version.GetInfo(),
		})
	}

	// Send initial status
	if err := sendStatus(); err != nil {
		return
	}

	for {
		select {
		case <-done:
			return
		case <-statusUpdate:
			if err := sendStatus(); err != nil {
				return
			}
		case <-levelsTicker.C:
			snapshot := s.levels.Snapshot()
			snapshot.Silence = s.watcher.InSilence()
			if err := conn.WriteJSON(map[string]any{
				"type":   "levels",
				"levels": snapshot,
			}); err != nil {
				return
			}
		case <-statusTicker.C:
			if err := sendStatus(); err != nil {
				return
			}
		}
	}
}

// SetupRoutes returns an [http.Handler] configured with all routes.
func (s *Server) SetupRoutes() http.Handler {
	mux := http.NewServeMux()
	auth := server.BasicAuth(s.config.WebUser(), s.config.WebPassword())

	// WebSocket for all real-time communication
	mux.HandleFunc("/ws", auth(s.handleWebSocket))

	// Static files
	mux.HandleFunc("/", auth(s.handleStatic))

	return mux
}

// staticFile represents an embedded static file with its content type.
type staticFile struct {
	contentType string
	content     string
}

// staticFiles maps URL paths to their corresponding static assets.
var staticFiles = map[string]staticFile{
	"/style.css": {contentType: "text/css", content: styleCSS},
	"/app.js":    {contentType: "application/javascript", content: appJS},
}

// handleStatic serves the embedded static web interface files.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if path == "/" {
		path = "/index.html"
	}

	if path == "/index.html" {
		w.Header().Set("Content-Type", "text/html")
		html := strings.Replace(indexHTML, "{{VERSION}}", Version, 1)
		if _, err := w.Write([]byte(html)); err != nil {
			slog.Error("failed to write index.html", "error", err)
		}
		return
	}

	if file, ok := staticFiles[path]; ok {
		w.Header().Set("Content-Type", file.contentType)
		if _, err := w.Write([]byte(file.content)); err != nil {
			slog.Error("failed to write static file", "path", path, "error", err)
		}
		return
	}

	http.NotFound(w, r)
}

// Start begins listening and serving HTTP requests on the configured port.
// Returns an *http.Server that can be used for graceful shutdown.
func (s *Server) Start() *http.Server {
	addr := fmt.Sprintf(":%d", s.config.WebPort())
	slog.Info("starting web server", "addr", addr)

	srv := &http.Server{
		Addr:    addr,
		Handler: s.SetupRoutes(),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	return srv
}
