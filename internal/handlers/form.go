package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/cupido/internal/models"
	"github.com/example/cupido/internal/plans"
	"github.com/example/cupido/internal/services"
	"github.com/example/cupido/internal/store"
	"github.com/example/cupido/internal/utils"
)

const defaultNickname = "Alguem especial"

// FormHandler manages the token-gated message form.
type FormHandler struct {
	store    store.OrderStore
	delivery *services.DeliveryService
	storage  services.FileStorage
}

// NewFormHandler constructs FormHandler.
func NewFormHandler(st store.OrderStore, delivery *services.DeliveryService, storage services.FileStorage) *FormHandler {
	return &FormHandler{store: st, delivery: delivery, storage: storage}
}

func (h *FormHandler) orderForToken(c *fiber.Ctx) (*models.Order, error) {
	order, err := h.store.OrderByToken(c.Context(), c.Params("token"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return nil, err
	}
	return order, nil
}

// Show returns the order and plan details backing the form page. A
// token whose order is already fully submitted or delivered is spent.
func (h *FormHandler) Show(c *fiber.Ctx) error {
	order, err := h.orderForToken(c)
	if err != nil {
		return err
	}

	if order.Status == models.OrderStatusSubmitted || order.Status == models.OrderStatusDelivered {
		return fiber.NewError(fiber.StatusBadRequest, "message already sent")
	}

	cfg := plans.Config(order.Plan)
	remaining := cfg.MaxMessages - order.MessagesSent

	usable := order.Status == models.OrderStatusApproved && remaining > 0

	return c.JSON(fiber.Map{
		"order": fiber.Map{
			"id":            order.ID,
			"plan":          order.Plan,
			"status":        order.Status,
			"messages_sent": order.MessagesSent,
		},
		"plan": fiber.Map{
			"label":            cfg.Label,
			"max_messages":     cfg.MaxMessages,
			"has_audio":        cfg.HasAudio,
			"has_presentation": cfg.HasPresentation,
			"audio_char_limit": cfg.AudioCharLimit,
		},
		"remaining": remaining,
		"usable":    usable,
	})
}

type submitRequest struct {
	RecipientPhone string `json:"recipient_phone"`
	Message        string `json:"message"`
	SenderNickname string `json:"sender_nickname"`
	AudioText      string `json:"audio_text"`
	ScheduledAt    string `json:"scheduled_at"`
}

// Submit processes one message submission. A future scheduled_at defers
// delivery to the sweep; everything else is delivered inline.
func (h *FormHandler) Submit(c *fiber.Ctx) error {
	order, err := h.orderForToken(c)
	if err != nil {
		return err
	}

	cfg := plans.Config(order.Plan)
	if cfg.HasPresentation {
		return fiber.NewError(fiber.StatusBadRequest, "premium plan uses the upload endpoint")
	}

	if order.Status != models.OrderStatusApproved {
		return fiber.NewError(fiber.StatusBadRequest, "message already sent")
	}
	if order.MessagesSent >= cfg.MaxMessages {
		return fiber.NewError(fiber.StatusBadRequest, "all messages already used")
	}

	var req submitRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if !utils.ValidatePhone(req.RecipientPhone) {
		return fiber.NewError(fiber.StatusBadRequest, "invalid recipient phone")
	}
	if strings.TrimSpace(req.Message) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "message must not be empty")
	}

	if req.AudioText != "" {
		if !cfg.HasAudio {
			return fiber.NewError(fiber.StatusBadRequest, "plan does not include audio")
		}
		if cfg.AudioCharLimit > 0 && len([]rune(req.AudioText)) > cfg.AudioCharLimit {
			return fiber.NewError(fiber.StatusBadRequest,
				fmt.Sprintf("audio text exceeds %d characters", cfg.AudioCharLimit))
		}
	}

	var scheduledAt *time.Time
	if req.ScheduledAt != "" {
		parsed, err := time.Parse(time.RFC3339, req.ScheduledAt)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid scheduled_at timestamp")
		}
		if parsed.After(time.Now()) {
			scheduledAt = &parsed
		}
	}

	nickname := req.SenderNickname
	if nickname == "" {
		nickname = defaultNickname
	}

	recipient := utils.CleanPhone(req.RecipientPhone)

	msg := &models.Message{
		OrderID:        order.ID,
		MessageIndex:   order.MessagesSent,
		Content:        req.Message,
		SenderNickname: nickname,
		AudioText:      req.AudioText,
		ScheduledAt:    scheduledAt,
	}
	if err := h.store.CreateMessage(c.Context(), msg); err != nil {
		log.Printf("[Form] Failed to create message for order %s: %v", order.ID, err)
		return fiber.NewError(fiber.StatusInternalServerError, "failed to save message")
	}

	sent, err := h.store.IncrementMessagesSent(c.Context(), order.ID)
	if err != nil {
		return err
	}

	updates := map[string]interface{}{"recipient_phone": recipient}
	if sent >= cfg.MaxMessages {
		updates["status"] = models.OrderStatusSubmitted
	}
	if err := h.store.UpdateOrder(c.Context(), order.ID, updates); err != nil {
		return err
	}

	log.Printf("[Form] Submission %d/%d for order %s (scheduled=%v)",
		sent, cfg.MaxMessages, order.ID, scheduledAt != nil)

	if scheduledAt != nil {
		return c.JSON(fiber.Map{"status": "scheduled", "scheduled_at": scheduledAt})
	}

	order.RecipientPhone = recipient
	order.MessagesSent = sent
	if !h.delivery.DeliverSingleMessage(c.Context(), order, msg) {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to deliver message")
	}

	if _, err := h.delivery.FinalizeIfComplete(c.Context(), order); err != nil {
		log.Printf("[Form] Completion check failed for order %s: %v", order.ID, err)
	}

	return c.JSON(fiber.Map{"status": "ok"})
}

// Upload processes the premium multipart upload: title, captions and
// image files become a presentation, delivered as a link message.
func (h *FormHandler) Upload(c *fiber.Ctx) error {
	order, err := h.orderForToken(c)
	if err != nil {
		return err
	}

	cfg := plans.Config(order.Plan)
	if !cfg.HasPresentation {
		return fiber.NewError(fiber.StatusBadRequest, "plan does not include a presentation")
	}
	if order.Status != models.OrderStatusApproved {
		return fiber.NewError(fiber.StatusBadRequest, "already submitted")
	}

	recipientPhone := c.FormValue("recipient_phone")
	if !utils.ValidatePhone(recipientPhone) {
		return fiber.NewError(fiber.StatusBadRequest, "invalid recipient phone")
	}

	title := c.FormValue("title", "Uma historia para voce")
	nickname := c.FormValue("sender_nickname", defaultNickname)

	audioText := c.FormValue("audio_text")
	if audioText != "" && cfg.AudioCharLimit > 0 && len([]rune(audioText)) > cfg.AudioCharLimit {
		return fiber.NewError(fiber.StatusBadRequest,
			fmt.Sprintf("audio text exceeds %d characters", cfg.AudioCharLimit))
	}

	var captions []string
	if raw := c.FormValue("slides_data", "[]"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &captions); err != nil {
			captions = nil
		}
	}

	form, err := c.MultipartForm()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid multipart form")
	}

	var slides []models.Slide
	for i, fileHeader := range form.File["files"] {
		if fileHeader.Filename == "" {
			continue
		}

		file, err := fileHeader.Open()
		if err != nil {
			log.Printf("[Form] Failed to open upload %q: %v", fileHeader.Filename, err)
			continue
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			log.Printf("[Form] Failed to read upload %q: %v", fileHeader.Filename, err)
			continue
		}

		ext := "jpg"
		if idx := strings.LastIndex(fileHeader.Filename, "."); idx >= 0 && idx < len(fileHeader.Filename)-1 {
			ext = fileHeader.Filename[idx+1:]
		}
		contentType := fileHeader.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "image/jpeg"
		}

		path := fmt.Sprintf("presentations/%s/%s.%s", order.ID, strings.ReplaceAll(uuid.NewString(), "-", ""), ext)
		imageURL, err := h.storage.Upload(c.Context(), path, data, contentType)
		if err != nil {
			log.Printf("[Form] Image upload failed for order %s: %v", order.ID, err)
			continue
		}

		caption := ""
		if i < len(captions) {
			caption = captions[i]
		}
		slides = append(slides, models.Slide{ImageURL: imageURL, Caption: caption})
	}

	if len(slides) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "no images uploaded")
	}

	presentation := &models.Presentation{
		OrderID: order.ID,
		Title:   title,
		Slides:  slides,
	}
	if err := h.store.CreatePresentation(c.Context(), presentation); err != nil {
		log.Printf("[Form] Failed to create presentation for order %s: %v", order.ID, err)
		return fiber.NewError(fiber.StatusInternalServerError, "failed to create presentation")
	}

	log.Printf("[Form] Presentation created: %s (%d slides)", presentation.ID, len(slides))

	recipient := utils.CleanPhone(recipientPhone)
	if err := h.store.UpdateOrder(c.Context(), order.ID, map[string]interface{}{
		"recipient_phone": recipient,
		"status":          models.OrderStatusSubmitted,
	}); err != nil {
		return err
	}

	msg := &models.Message{
		OrderID:        order.ID,
		MessageIndex:   0,
		Content:        title,
		SenderNickname: nickname,
		AudioText:      audioText,
	}
	if err := h.store.CreateMessage(c.Context(), msg); err != nil {
		log.Printf("[Form] Failed to create premium message row for order %s: %v", order.ID, err)
		msg = nil
	}

	order.RecipientPhone = recipient
	if !h.delivery.DeliverPremium(c.Context(), order, msg, presentation.ID) {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to deliver presentation")
	}

	return c.JSON(fiber.Map{"status": "ok", "presentation_id": presentation.ID})
}
