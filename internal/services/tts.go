package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// Synthesizer converts text to speech audio bytes.
type Synthesizer interface {
	GenerateAudio(ctx context.Context, text string) ([]byte, error)
}

const elevenLabsAPIBase = "https://api.elevenlabs.io/v1"

// TTSService generates MP3 audio via the ElevenLabs text-to-speech API.
type TTSService struct {
	apiBase string
	apiKey  string
	voiceID string
	modelID string
	client  *http.Client
}

// NewTTSService creates a TTSService.
func NewTTSService(apiKey, voiceID, modelID string) *TTSService {
	return &TTSService{
		apiBase: elevenLabsAPIBase,
		apiKey:  apiKey,
		voiceID: voiceID,
		modelID: modelID,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type ttsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type ttsRequest struct {
	Text          string           `json:"text"`
	ModelID       string           `json:"model_id"`
	VoiceSettings ttsVoiceSettings `json:"voice_settings"`
}

// GenerateAudio returns MP3 bytes for the given text.
func (s *TTSService) GenerateAudio(ctx context.Context, text string) ([]byte, error) {
	if s.apiKey == "" {
		return nil, errors.New("tts: API key not configured")
	}

	body, err := json.Marshal(ttsRequest{
		Text:    text,
		ModelID: s.modelID,
		VoiceSettings: ttsVoiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
		},
	})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/text-to-speech/%s", s.apiBase, s.voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("xi-api-key", s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("tts: status %d: %s", resp.StatusCode, string(msg))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	log.Printf("[TTS] Audio generated: %d bytes", len(audio))
	return audio, nil
}
