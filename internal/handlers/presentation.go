package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/cupido/internal/store"
)

// PresentationHandler serves the public slideshow view.
type PresentationHandler struct {
	store store.OrderStore
}

// NewPresentationHandler constructs PresentationHandler.
func NewPresentationHandler(st store.OrderStore) *PresentationHandler {
	return &PresentationHandler{store: st}
}

// View returns a presentation and bumps its view counter.
func (h *PresentationHandler) View(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "presentation not found")
	}

	presentation, err := h.store.PresentationByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "presentation not found")
		}
		return err
	}

	if err := h.store.IncrementViewCount(c.Context(), id); err != nil {
		log.Printf("[Presentation] Failed to bump view count for %s: %v", id, err)
	}

	return c.JSON(fiber.Map{
		"id":         presentation.ID,
		"title":      presentation.Title,
		"slides":     presentation.Slides,
		"view_count": presentation.ViewCount + 1,
	})
}
