package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/example/cupido/internal/models"
	"github.com/example/cupido/internal/plans"
	"github.com/example/cupido/internal/store"
	"github.com/example/cupido/internal/utils"
)

// AccessHandler lets buyers look up their orders by phone.
type AccessHandler struct {
	store store.OrderStore
}

// NewAccessHandler constructs AccessHandler.
func NewAccessHandler(st store.OrderStore) *AccessHandler {
	return &AccessHandler{store: st}
}

type accessRequest struct {
	Phone string `json:"phone"`
}

type accessOrder struct {
	ID          string `json:"id"`
	Plan        string `json:"plan"`
	PlanLabel   string `json:"plan_label"`
	FormToken   string `json:"form_token"`
	StatusLabel string `json:"status_label"`
	Usable      bool   `json:"usable"`
	CreatedAt   string `json:"created_at"`
}

// Lookup lists a buyer's orders with their remaining-use status.
func (h *AccessHandler) Lookup(c *fiber.Ctx) error {
	var req accessRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if !utils.ValidatePhone(req.Phone) {
		return fiber.NewError(fiber.StatusBadRequest, "invalid phone")
	}

	orders, err := h.store.OrdersByBuyerPhone(c.Context(), utils.CleanPhone(req.Phone))
	if err != nil {
		return err
	}
	if len(orders) == 0 {
		return fiber.NewError(fiber.StatusNotFound, "no orders found for this number")
	}

	available := make([]accessOrder, 0, len(orders))
	for _, order := range orders {
		cfg := plans.Config(order.Plan)
		remaining := cfg.MaxMessages - order.MessagesSent

		isDelivered := order.Status == models.OrderStatusDelivered
		isPremiumSubmitted := order.Status == models.OrderStatusSubmitted && cfg.HasPresentation
		allUsed := remaining <= 0

		var statusLabel string
		var usable bool
		switch {
		case isDelivered || isPremiumSubmitted || allUsed:
			statusLabel = "Entregue"
		case order.Status == models.OrderStatusApproved:
			usable = true
			if cfg.MaxMessages > 1 {
				plural := ""
				if remaining != 1 {
					plural = "s"
				}
				statusLabel = fmt.Sprintf("%d msg restante%s", remaining, plural)
			} else {
				statusLabel = "Disponivel"
			}
		default:
			statusLabel = order.Status
		}

		available = append(available, accessOrder{
			ID:          order.ID.String(),
			Plan:        order.Plan,
			PlanLabel:   cfg.Label,
			FormToken:   order.FormToken,
			StatusLabel: statusLabel,
			Usable:      usable,
			CreatedAt:   order.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	return c.JSON(fiber.Map{"orders": available})
}
