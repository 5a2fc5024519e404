package server

import (
	"encoding/json"
	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/oszuidwest/zwfm-levelmeter/internal/config"
	"github.com/oszuidwest/zwfm-levelmeter/internal/util"
)

// WSCommand is a command received from a WebSocket client.
type WSCommand struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// CommandHandler processes WebSocket commands.
type CommandHandler struct {
	cfg           *config.Config
	resetMeters   func()
	resetOverload func()
	testTriggers  map[string]func() error
}

// NewCommandHandler creates a new command handler.
func NewCommandHandler(
	cfg *config.Config,
	resetMeters func(),
	resetOverload func(),
	testTriggers map[string]func() error,
) *CommandHandler {
	return &CommandHandler{
		cfg:           cfg,
		resetMeters:   resetMeters,
		resetOverload: resetOverload,
		testTriggers:  testTriggers,
	}
}

// silenceSettings is the payload of a set_silence command.
type silenceSettings struct {
	ThresholdDB     float64 `json:"threshold_db"`
	DurationSeconds float64 `json:"duration_seconds"`
	RecoverySeconds float64 `json:"recovery_seconds"`
}

// notificationSettings is the payload of a set_notifications command.
type notificationSettings struct {
	WebhookURL      string `json:"webhook_url"`
	LogPath         string `json:"log_path"`
	EmailSMTPHost   string `json:"email_smtp_host"`
	EmailSMTPPort   int    `json:"email_smtp_port"`
	EmailFromName   string `json:"email_from_name"`
	EmailUsername   string `json:"email_username"`
	EmailPassword   string `json:"email_password"`
	EmailRecipients string `json:"email_recipients"`
}

// Handle processes a WebSocket command and performs the requested action.
// triggerStatusUpdate is invoked after commands that change visible state.
func (h *CommandHandler) Handle(cmd WSCommand, conn *websocket.Conn, triggerStatusUpdate func()) {
	switch cmd.Type {
	case "reset_meters":
		h.resetMeters()
		h.sendAck(conn, cmd.Type, nil)

	case "reset_overload":
		h.resetOverload()
		h.sendAck(conn, cmd.Type, nil)

	case "set_silence":
		h.handleSetSilence(cmd, conn, triggerStatusUpdate)

	case "set_notifications":
		h.handleSetNotifications(cmd, conn, triggerStatusUpdate)

	case "test_webhook", "test_email", "test_log":
		h.handleTest(cmd, conn)

	default:
		slog.Warn("unknown WebSocket command", "type", cmd.Type)
		h.sendError(conn, cmd.Type, "unknown command")
	}
}

func (h *CommandHandler) handleSetSilence(cmd WSCommand, conn *websocket.Conn, triggerStatusUpdate func()) {
	var settings silenceSettings
	if err := json.Unmarshal(cmd.Data, &settings); err != nil {
		h.sendError(conn, cmd.Type, "invalid settings payload")
		return
	}

	if v := util.ValidateRangeFloat("threshold_db", settings.ThresholdDB, -120, 0); v != nil {
		h.sendError(conn, cmd.Type, v.Message)
		return
	}
	if v := util.ValidateRangeFloat("duration_seconds", settings.DurationSeconds, 1, 3600); v != nil {
		h.sendError(conn, cmd.Type, v.Message)
		return
	}
	if v := util.ValidateRangeFloat("recovery_seconds", settings.RecoverySeconds, 1, 3600); v != nil {
		h.sendError(conn, cmd.Type, v.Message)
		return
	}

	if err := h.cfg.SetSilenceThreshold(settings.ThresholdDB); err != nil {
		h.sendError(conn, cmd.Type, err.Error())
		return
	}
	if err := h.cfg.SetSilenceDuration(settings.DurationSeconds); err != nil {
		h.sendError(conn, cmd.Type, err.Error())
		return
	}
	if err := h.cfg.SetSilenceRecovery(settings.RecoverySeconds); err != nil {
		h.sendError(conn, cmd.Type, err.Error())
		return
	}

	h.sendAck(conn, cmd.Type, nil)
	triggerStatusUpdate()
}

func (h *CommandHandler) handleSetNotifications(cmd WSCommand, conn *websocket.Conn, triggerStatusUpdate func()) {
	var settings notificationSettings
	if err := json.Unmarshal(cmd.Data, &settings); err != nil {
		h.sendError(conn, cmd.Type, "invalid settings payload")
		return
	}

	if settings.EmailSMTPPort != 0 {
		if v := util.ValidatePort("email_smtp_port", settings.EmailSMTPPort); v != nil {
			h.sendError(conn, cmd.Type, v.Message)
			return
		}
	}

	if err := h.cfg.SetWebhookURL(settings.WebhookURL); err != nil {
		h.sendError(conn, cmd.Type, err.Error())
		return
	}
	if err := h.cfg.SetLogPath(settings.LogPath); err != nil {
		h.sendError(conn, cmd.Type, err.Error())
		return
	}
	if err := h.cfg.SetEmailConfig(
		settings.EmailSMTPHost,
		settings.EmailSMTPPort,
		settings.EmailFromName,
		settings.EmailUsername,
		settings.EmailPassword,
		settings.EmailRecipients,
	); err != nil {
		h.sendError(conn, cmd.Type, err.Error())
		return
	}

	h.sendAck(conn, cmd.Type, nil)
	triggerStatusUpdate()
}

func (h *CommandHandler) handleTest(cmd WSCommand, conn *websocket.Conn) {
	name := cmd.Type[len("test_"):]
	trigger, ok := h.testTriggers[name]
	if !ok {
		h.sendError(conn, cmd.Type, "unknown test trigger")
		return
	}
	if err := trigger(); err != nil {
		h.sendError(conn, cmd.Type, err.Error())
		return
	}
	h.sendAck(conn, cmd.Type, map[string]any{"test": name})
}

func (h *CommandHandler) sendAck(conn *websocket.Conn, cmdType string, extra map[string]any) {
	payload := map[string]any{"type": "ack", "command": cmdType}
	for k, v := range extra {
		payload[k] = v
	}
	h.send(conn, payload)
}

func (h *CommandHandler) sendError(conn *websocket.Conn, cmdType, message string) {
	h.send(conn, map[string]any{"type": "error", "command": cmdType, "message": message})
}

func (h *CommandHandler) send(conn *websocket.Conn, payload map[string]any) {
	if conn == nil {
		return
	}
	if err := conn.WriteJSON(payload); err != nil {
		slog.Error("failed to write WebSocket response", "error", err)
	}
}
