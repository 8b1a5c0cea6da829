package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/example/cupido/internal/cache"
	"github.com/example/cupido/internal/metrics"
	"github.com/example/cupido/internal/models"
	"github.com/example/cupido/internal/plans"
	"github.com/example/cupido/internal/store"
)

// presenceDelayMs is how long the gateway keeps the typing/recording
// indicator visible before the actual send.
const presenceDelayMs = 1200

// DeliveryService delivers one message's content to one recipient and
// updates order state. It never retries: a failed transport send is
// logged and reported to the caller, and a new event (webhook, sweep
// tick or resubmission) is the only way to trigger another attempt.
type DeliveryService struct {
	store     store.OrderStore
	transport Transport
	tts       Synthesizer
	storage   FileStorage
	receipts  cache.ReceiptCache
	baseURL   string
}

// NewDeliveryService wires the delivery engine with its collaborators.
// receipts may be nil.
func NewDeliveryService(st store.OrderStore, transport Transport, tts Synthesizer, storage FileStorage, receipts cache.ReceiptCache, baseURL string) *DeliveryService {
	return &DeliveryService{
		store:     st,
		transport: transport,
		tts:       tts,
		storage:   storage,
		receipts:  receipts,
		baseURL:   baseURL,
	}
}

func buildMessageText(cfg plans.PlanConfig, msg *models.Message) string {
	nickname := msg.SenderNickname
	if nickname == "" {
		nickname = "Alguem especial"
	}

	if cfg.MaxMessages > 1 {
		return fmt.Sprintf(
			"💘 *Mensagem Anonima do Cupido* (%d/%d)\n\n_%s_\n\n— %s",
			msg.MessageIndex+1, cfg.MaxMessages, msg.Content, nickname,
		)
	}

	audioHint := ""
	if msg.AudioText != "" {
		audioHint = " com audio"
	}
	return fmt.Sprintf(
		"💘 *Mensagem Anonima do Cupido*\n\nAlguem especial te enviou uma mensagem%s:\n\n_%s_\n\n— %s",
		audioHint, msg.Content, nickname,
	)
}

// DeliverSingleMessage sends one message (text plus best-effort audio)
// to the order's recipient and marks it delivered on success. Returns
// false when the text send failed; callers decide how to react.
func (s *DeliveryService) DeliverSingleMessage(ctx context.Context, order *models.Order, msg *models.Message) bool {
	if order.RecipientPhone == "" {
		log.Printf("[Delivery] No recipient phone for order %s", order.ID)
		return false
	}

	cfg := plans.Config(order.Plan)
	text := buildMessageText(cfg, msg)

	// Audio is best-effort: a synthesis or upload failure downgrades the
	// delivery to text-only instead of blocking it.
	var audioURL *string
	var audioPath string
	if msg.AudioText != "" && cfg.HasAudio {
		audioPath = fmt.Sprintf("audio/%s/%d.mp3", order.ID, msg.MessageIndex)
		if url := s.prepareAudio(ctx, msg.AudioText, audioPath); url != "" {
			audioURL = &url
		}
	}

	s.sendPresence(ctx, order.RecipientPhone, "composing")
	if err := s.transport.SendText(ctx, order.RecipientPhone, text); err != nil {
		log.Printf("[Delivery] Text send failed for order %s message %d: %v", order.ID, msg.MessageIndex, err)
		metrics.DeliveryCount.WithLabelValues("failed").Inc()
		return false
	}

	s.sendAudioIfPrepared(ctx, order, audioURL, audioPath)

	now := time.Now().UTC()
	if err := s.store.MarkMessageDelivered(ctx, msg.ID, audioURL); err != nil {
		log.Printf("[Delivery] Failed to mark message %s delivered: %v", msg.ID, err)
	}

	if s.receipts != nil {
		if err := s.receipts.StoreReceipt(ctx, msg.ID, audioURL, now); err != nil {
			log.Printf("[Delivery] Receipt cache write failed for %s: %v", msg.ID, err)
		}
	}

	metrics.DeliveryCount.WithLabelValues("delivered").Inc()
	log.Printf("[Delivery] Message %d/%d sent for order %s (audio=%v)",
		msg.MessageIndex+1, cfg.MaxMessages, order.ID, audioURL != nil)
	return true
}

// sendPresence shows a typing/recording indicator before a send.
// Best-effort.
func (s *DeliveryService) sendPresence(ctx context.Context, phone, presence string) {
	if err := s.transport.SendPresence(ctx, phone, presence, presenceDelayMs); err != nil {
		log.Printf("[Delivery] Presence send failed for %s: %v", presence, err)
	}
}

// sendAudioIfPrepared sends a prepared audio file and cleans up the
// staging object only after a confirmed send.
func (s *DeliveryService) sendAudioIfPrepared(ctx context.Context, order *models.Order, audioURL *string, audioPath string) {
	if audioURL == nil {
		return
	}

	s.sendPresence(ctx, order.RecipientPhone, "recording")
	if err := s.transport.SendAudio(ctx, order.RecipientPhone, *audioURL); err != nil {
		// Leave the uploaded file in place for manual recovery.
		log.Printf("[Delivery] Audio send failed for order %s (file kept at %s): %v", order.ID, audioPath, err)
	} else if err := s.storage.Delete(ctx, audioPath); err != nil {
		log.Printf("[Delivery] Audio cleanup failed for %s: %v", audioPath, err)
	}
}

// prepareAudio synthesizes speech and uploads it, returning the public
// URL or "" when any step failed.
func (s *DeliveryService) prepareAudio(ctx context.Context, text, path string) string {
	audio, err := s.tts.GenerateAudio(ctx, text)
	if err != nil {
		log.Printf("[Delivery] Audio synthesis failed: %v", err)
		metrics.AudioGenerated.WithLabelValues("failed").Inc()
		return ""
	}

	url, err := s.storage.Upload(ctx, path, audio, "audio/mpeg")
	if err != nil {
		log.Printf("[Delivery] Audio upload failed: %v", err)
		metrics.AudioGenerated.WithLabelValues("failed").Inc()
		return ""
	}

	metrics.AudioGenerated.WithLabelValues("ok").Inc()
	return url
}

// DeliverPremium sends the slideshow link for a premium order, plus a
// best-effort voice note when the sender wrote synthesis text. On
// transport success the order and its message row are both marked
// delivered.
func (s *DeliveryService) DeliverPremium(ctx context.Context, order *models.Order, msg *models.Message, presentationID uuid.UUID) bool {
	if order.RecipientPhone == "" {
		log.Printf("[Delivery] No recipient phone for premium order %s", order.ID)
		return false
	}

	cfg := plans.Config(order.Plan)

	var audioURL *string
	var audioPath string
	if msg != nil && msg.AudioText != "" && cfg.HasAudio {
		audioPath = fmt.Sprintf("audio/%s/%d.mp3", order.ID, msg.MessageIndex)
		if url := s.prepareAudio(ctx, msg.AudioText, audioPath); url != "" {
			audioURL = &url
		}
	}

	presentationURL := fmt.Sprintf("%s/p/%s", s.baseURL, presentationID)
	text := fmt.Sprintf(
		"💘 *Mensagem Anonima do Cupido*\n\nAlguem especial preparou algo muito especial pra voce!\n\nAbra o link abaixo para ver:\n\n👉 %s\n\n💌 Feito com amor!",
		presentationURL,
	)

	s.sendPresence(ctx, order.RecipientPhone, "composing")
	if err := s.transport.SendText(ctx, order.RecipientPhone, text); err != nil {
		log.Printf("[Delivery] Premium send failed for order %s: %v", order.ID, err)
		metrics.DeliveryCount.WithLabelValues("failed").Inc()
		return false
	}

	s.sendAudioIfPrepared(ctx, order, audioURL, audioPath)

	now := time.Now().UTC()
	if msg != nil {
		if err := s.store.MarkMessageDelivered(ctx, msg.ID, audioURL); err != nil {
			log.Printf("[Delivery] Failed to mark message %s delivered: %v", msg.ID, err)
		}
		if s.receipts != nil {
			if err := s.receipts.StoreReceipt(ctx, msg.ID, audioURL, now); err != nil {
				log.Printf("[Delivery] Receipt cache write failed for %s: %v", msg.ID, err)
			}
		}
	}

	if err := s.store.UpdateOrder(ctx, order.ID, map[string]interface{}{
		"status":       models.OrderStatusDelivered,
		"delivered_at": now,
	}); err != nil {
		log.Printf("[Delivery] Failed to mark premium order %s delivered: %v", order.ID, err)
	}

	metrics.DeliveryCount.WithLabelValues("delivered").Inc()
	return true
}

// FinalizeIfComplete transitions the order to delivered once every
// plan message has been submitted and delivered. order.MessagesSent
// must be current. The read-then-write is not transactional.
func (s *DeliveryService) FinalizeIfComplete(ctx context.Context, order *models.Order) (bool, error) {
	cfg := plans.Config(order.Plan)
	if order.MessagesSent < cfg.MaxMessages {
		return false, nil
	}

	remaining, err := s.store.UndeliveredCount(ctx, order.ID)
	if err != nil {
		return false, err
	}
	if remaining > 0 {
		return false, nil
	}

	now := time.Now().UTC()
	err = s.store.UpdateOrder(ctx, order.ID, map[string]interface{}{
		"status":       models.OrderStatusDelivered,
		"delivered_at": now,
	})
	if err != nil {
		return false, err
	}

	log.Printf("[Delivery] Order %s fully delivered", order.ID)
	return true, nil
}
