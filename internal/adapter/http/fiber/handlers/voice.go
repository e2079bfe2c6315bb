package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	ws "github.com/seu-repo/ai-playground/internal/adapter/websocket"
	"github.com/seu-repo/ai-playground/internal/domain"
	"github.com/seu-repo/ai-playground/internal/service/voice"
)

type VoiceHandler struct {
	launcher *voice.Launcher
	hub      *ws.Hub
	log      *zap.Logger
}

func NewVoiceHandler(launcher *voice.Launcher, hub *ws.Hub, log *zap.Logger) *VoiceHandler {
	return &VoiceHandler{
		launcher: launcher,
		hub:      hub,
		log:      log,
	}
}

func (h *VoiceHandler) Register(router fiber.Router) {
	router.Get("/ui/voice", h.Get)
	router.Post("/ui/voice/toggle", h.Toggle)
	router.Post("/ui/voice/stop", h.Stop)
	router.Delete("/ui/voice", h.Close)

	router.Use("/ws/voice", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get("/ws/voice", websocket.New(h.Stream))
}

func (h *VoiceHandler) Get(c *fiber.Ctx) error {
	return c.JSON(h.launcher.Controller().Snapshot())
}

func (h *VoiceHandler) Toggle(c *fiber.Ctx) error {
	var req voice.ToggleRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid body")
		}
	}

	snap, err := h.launcher.Toggle(c.UserContext(), req)
	if err != nil && !domain.IsDeviceError(err) {
		return err
	}
	// Device failures leave the overlay open and idle with a notice.
	return c.JSON(snap)
}

// Stop ends the current recording, or interrupts the spoken reply.
func (h *VoiceHandler) Stop(c *fiber.Ctx) error {
	ctrl := h.launcher.Controller()
	switch ctrl.Snapshot().State {
	case domain.VoiceStateListening:
		if err := ctrl.StopRecording(); err != nil {
			return err
		}
	case domain.VoiceStateSpeaking:
		ctrl.StopPlayback()
	}
	return c.JSON(ctrl.Snapshot())
}

func (h *VoiceHandler) Close(c *fiber.Ctx) error {
	ctrl := h.launcher.Controller()
	ctrl.Close()
	return c.JSON(ctrl.Snapshot())
}

// Stream pushes a VoiceSnapshot on every transition until the peer leaves.
func (h *VoiceHandler) Stream(conn *websocket.Conn) {
	h.log.Debug("Voice watcher connected", zap.String("remote", conn.RemoteAddr().String()))
	h.hub.Serve(conn, h.launcher.Controller().Snapshot())
}
