package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/example/cupido/internal/utils"
)

// Transport delivers outbound content to a phone number. Implemented by
// WhatsAppService; faked in tests.
type Transport interface {
	SendText(ctx context.Context, phone, text string) error
	SendTextAs(ctx context.Context, phone, text, token string) error
	SendAudio(ctx context.Context, phone, audioURL string) error
	SendPresence(ctx context.Context, phone, presence string, delayMs int) error
}

// WhatsAppService talks to the UAZAPI WhatsApp gateway.
type WhatsAppService struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewWhatsAppService creates a WhatsAppService with the default
// instance token.
func NewWhatsAppService(baseURL, token string) *WhatsAppService {
	return &WhatsAppService{
		baseURL: baseURL,
		token:   token,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (s *WhatsAppService) post(ctx context.Context, path, token string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("token", token)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// SendText sends a text message from the main Cupido number.
func (s *WhatsAppService) SendText(ctx context.Context, phone, text string) error {
	return s.SendTextAs(ctx, phone, text, s.token)
}

// SendTextAs sends a text message using an explicit instance token
// (the fidelity feature sends from a secondary number).
func (s *WhatsAppService) SendTextAs(ctx context.Context, phone, text, token string) error {
	if token == "" {
		token = s.token
	}

	err := s.post(ctx, "/send/text", token, map[string]any{
		"number":       utils.CleanPhone(phone),
		"text":         text,
		"track_source": "cupido",
	})
	if err != nil {
		log.Printf("[WhatsApp] Failed to send text: %v", err)
		return err
	}

	log.Printf("[WhatsApp] Text sent to %s...", utils.MaskPhone(utils.CleanPhone(phone)))
	return nil
}

// SendAudio sends an audio message by public URL.
func (s *WhatsAppService) SendAudio(ctx context.Context, phone, audioURL string) error {
	err := s.post(ctx, "/send/media", s.token, map[string]any{
		"number":       utils.CleanPhone(phone),
		"media_url":    audioURL,
		"media_type":   "audio",
		"track_source": "cupido",
	})
	if err != nil {
		log.Printf("[WhatsApp] Failed to send audio: %v", err)
		return err
	}

	log.Printf("[WhatsApp] Audio sent to %s...", utils.MaskPhone(utils.CleanPhone(phone)))
	return nil
}

// SendPresence sends a composing/recording indicator.
func (s *WhatsAppService) SendPresence(ctx context.Context, phone, presence string, delayMs int) error {
	return s.post(ctx, "/message/presence", s.token, map[string]any{
		"number":   utils.CleanPhone(phone),
		"presence": presence,
		"delay":    delayMs,
	})
}
