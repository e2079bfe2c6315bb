package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/ai-playground/internal/domain"
	"github.com/seu-repo/ai-playground/internal/service/history"
)

type HistoryHandler struct {
	service *history.Service
	log     *zap.Logger
}

func NewHistoryHandler(service *history.Service, log *zap.Logger) *HistoryHandler {
	return &HistoryHandler{
		service: service,
		log:     log,
	}
}

func (h *HistoryHandler) Register(router fiber.Router) {
	g := router.Group("/ui/history")
	g.Get("/:capability", h.List)
	g.Get("/:capability/:id", h.Get)
	g.Delete("/:capability/:id", h.Delete)
}

func (h *HistoryHandler) List(c *fiber.Ctx) error {
	capability, err := domain.ParseCapability(c.Params("capability"))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}

	entries, err := h.service.List(c.UserContext(), capability)
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []domain.HistoryEntry{}
	}
	return c.JSON(entries)
}

// Get returns a full chat or voice session. Other capabilities only keep
// list entries.
func (h *HistoryHandler) Get(c *fiber.Ctx) error {
	capability, id, err := parseEntry(c)
	if err != nil {
		return err
	}

	switch capability {
	case domain.CapabilityVoice:
		session, err := h.service.LoadVoiceSession(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(session)
	case domain.CapabilityChat:
		session, err := h.service.LoadChatSession(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(session)
	default:
		return fiber.NewError(fiber.StatusNotFound, "no session view for "+string(capability))
	}
}

func (h *HistoryHandler) Delete(c *fiber.Ctx) error {
	capability, id, err := parseEntry(c)
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.UserContext(), capability, id); err != nil {
		return err
	}
	h.log.Info("History entry deleted", zap.String("capability", string(capability)), zap.Int64("id", id))
	return c.SendStatus(fiber.StatusNoContent)
}

func parseEntry(c *fiber.Ctx) (domain.Capability, int64, error) {
	capability, err := domain.ParseCapability(c.Params("capability"))
	if err != nil {
		return "", 0, fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return "", 0, fiber.NewError(fiber.StatusBadRequest, "Invalid id")
	}
	return capability, id, nil
}
