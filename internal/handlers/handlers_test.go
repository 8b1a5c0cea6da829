package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/cupido/internal/models"
	"github.com/example/cupido/internal/services"
	"github.com/example/cupido/internal/store"
)

// memStore is an in-memory store.Store for handler tests.
type memStore struct {
	mu sync.Mutex

	orders        map[uuid.UUID]*models.Order
	messages      []*models.Message
	presentations map[uuid.UUID]*models.Presentation
	leads         []*models.QuizLead

	users   map[string]*models.FidelityUser
	tests   map[uuid.UUID]*models.FidelityTest
	fidMsgs map[uuid.UUID][]models.FidelityMessage
}

func newMemStore() *memStore {
	return &memStore{
		orders:        make(map[uuid.UUID]*models.Order),
		presentations: make(map[uuid.UUID]*models.Presentation),
		users:         make(map[string]*models.FidelityUser),
		tests:         make(map[uuid.UUID]*models.FidelityTest),
		fidMsgs:       make(map[uuid.UUID][]models.FidelityMessage),
	}
}

func (m *memStore) CreateOrder(ctx context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	order.CreatedAt = time.Now()
	m.orders[order.ID] = order
	return nil
}

func (m *memStore) OrderByToken(ctx context.Context, formToken string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, order := range m.orders {
		if order.FormToken == formToken {
			copied := *order
			return &copied, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) OrderBySaleID(ctx context.Context, saleID string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, order := range m.orders {
		if order.SaleID == saleID {
			copied := *order
			return &copied, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) OrdersByBuyerPhone(ctx context.Context, phone string) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for _, order := range m.orders {
		if order.BuyerPhone == phone {
			out = append(out, *order)
		}
	}
	return out, nil
}

func (m *memStore) UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderID]
	if !ok {
		return store.ErrNotFound
	}
	if v, ok := updates["status"].(string); ok {
		order.Status = v
	}
	if v, ok := updates["recipient_phone"].(string); ok {
		order.RecipientPhone = v
	}
	if v, ok := updates["delivered_at"].(time.Time); ok {
		order.DeliveredAt = &v
	}
	return nil
}

func (m *memStore) IncrementMessagesSent(ctx context.Context, orderID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderID]
	if !ok {
		return 0, store.ErrNotFound
	}
	order.MessagesSent++
	return order.MessagesSent, nil
}

func (m *memStore) CreateMessage(ctx context.Context, msg *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	m.messages = append(m.messages, msg)
	return nil
}

func (m *memStore) MessagesByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Message
	for _, msg := range m.messages {
		if msg.OrderID == orderID {
			out = append(out, *msg)
		}
	}
	return out, nil
}

func (m *memStore) UndeliveredCount(ctx context.Context, orderID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, msg := range m.messages {
		if msg.OrderID == orderID && !msg.Delivered {
			count++
		}
	}
	return count, nil
}

func (m *memStore) MarkMessageDelivered(ctx context.Context, messageID uuid.UUID, audioURL *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if msg.ID == messageID {
			now := time.Now()
			msg.Delivered = true
			msg.DeliveredAt = &now
			msg.AudioURL = audioURL
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memStore) DueScheduledMessages(ctx context.Context, now time.Time) ([]store.ScheduledDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.ScheduledDelivery
	for _, msg := range m.messages {
		if msg.Delivered || msg.ScheduledAt == nil || msg.ScheduledAt.After(now) {
			continue
		}
		order, ok := m.orders[msg.OrderID]
		if !ok {
			continue
		}
		out = append(out, store.ScheduledDelivery{Message: *msg, Order: *order})
	}
	return out, nil
}

func (m *memStore) CreatePresentation(ctx context.Context, p *models.Presentation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	m.presentations[p.ID] = p
	return nil
}

func (m *memStore) PresentationByID(ctx context.Context, id uuid.UUID) (*models.Presentation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.presentations[id]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, store.ErrNotFound
}

func (m *memStore) IncrementViewCount(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.presentations[id]
	if !ok {
		return store.ErrNotFound
	}
	p.ViewCount++
	return nil
}

func (m *memStore) CreateQuizLead(ctx context.Context, lead *models.QuizLead) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leads = append(m.leads, lead)
	return nil
}

func (m *memStore) CreateFidelityUser(ctx context.Context, user *models.FidelityUser) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	m.users[user.Email] = user
	return nil
}

func (m *memStore) FidelityUserByEmail(ctx context.Context, email string) (*models.FidelityUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user, ok := m.users[email]; ok {
		return user, nil
	}
	return nil, store.ErrNotFound
}

func (m *memStore) FidelityUserByID(ctx context.Context, id uuid.UUID) (*models.FidelityUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) CreateFidelityTest(ctx context.Context, test *models.FidelityTest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if test.ID == uuid.Nil {
		test.ID = uuid.New()
	}
	test.CreatedAt = time.Now()
	m.tests[test.ID] = test
	return nil
}

func (m *memStore) FidelityTestByID(ctx context.Context, id uuid.UUID) (*models.FidelityTest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if test, ok := m.tests[id]; ok {
		copied := *test
		return &copied, nil
	}
	return nil, store.ErrNotFound
}

func (m *memStore) FidelityTestsByUser(ctx context.Context, userID uuid.UUID) ([]models.FidelityTest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.FidelityTest
	for _, test := range m.tests {
		if test.UserID == userID {
			out = append(out, *test)
		}
	}
	return out, nil
}

func (m *memStore) UpdateFidelityTest(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	test, ok := m.tests[id]
	if !ok {
		return store.ErrNotFound
	}
	if v, ok := updates["status"].(string); ok {
		test.Status = v
	}
	if v, ok := updates["sale_id"].(string); ok {
		test.SaleID = v
	}
	if v, ok := updates["paid_at"].(time.Time); ok {
		test.PaidAt = &v
	}
	if v, ok := updates["expires_at"].(time.Time); ok {
		test.ExpiresAt = &v
	}
	return nil
}

func (m *memStore) LatestPendingTestByUser(ctx context.Context, userID uuid.UUID) (*models.FidelityTest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *models.FidelityTest
	for _, test := range m.tests {
		if test.UserID == userID && test.Status == models.FidelityTestPending {
			if latest == nil || test.CreatedAt.After(latest.CreatedAt) {
				latest = test
			}
		}
	}
	if latest == nil {
		return nil, store.ErrNotFound
	}
	copied := *latest
	return &copied, nil
}

func (m *memStore) LatestOpenTestByTarget(ctx context.Context, targetPhone string) (*models.FidelityTest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *models.FidelityTest
	for _, test := range m.tests {
		if test.TargetPhone == targetPhone && test.Status != models.FidelityTestExpired {
			if latest == nil || test.CreatedAt.After(latest.CreatedAt) {
				latest = test
			}
		}
	}
	if latest == nil {
		return nil, store.ErrNotFound
	}
	copied := *latest
	return &copied, nil
}

func (m *memStore) CreateFidelityMessage(ctx context.Context, msg *models.FidelityMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	m.fidMsgs[msg.TestID] = append(m.fidMsgs[msg.TestID], *msg)
	return nil
}

func (m *memStore) FidelityMessagesByTest(ctx context.Context, testID uuid.UUID) ([]models.FidelityMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fidMsgs[testID], nil
}

// stubTransport records outbound sends.
type stubTransport struct {
	mu     sync.Mutex
	fail   bool
	phones []string
	texts  []string
}

func (s *stubTransport) SendText(ctx context.Context, phone, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return fiber.ErrBadGateway
	}
	s.phones = append(s.phones, phone)
	s.texts = append(s.texts, text)
	return nil
}

func (s *stubTransport) SendTextAs(ctx context.Context, phone, text, token string) error {
	return s.SendText(ctx, phone, text)
}

func (s *stubTransport) SendAudio(ctx context.Context, phone, audioURL string) error {
	return nil
}

func (s *stubTransport) SendPresence(ctx context.Context, phone, presence string, delayMs int) error {
	return nil
}

func (s *stubTransport) sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}

type stubSynth struct{}

func (stubSynth) GenerateAudio(ctx context.Context, text string) ([]byte, error) {
	return []byte("mp3"), nil
}

type stubStorage struct {
	mu      sync.Mutex
	uploads []string
}

func (s *stubStorage) Upload(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads = append(s.uploads, path)
	return "https://cdn.example.com/" + path, nil
}

func (s *stubStorage) Delete(ctx context.Context, path string) error {
	return nil
}

// env bundles everything a handler test needs.
type env struct {
	store     *memStore
	transport *stubTransport
	storage   *stubStorage
	delivery  *services.DeliveryService
	fidelity  *services.FidelityService
}

func newEnv() *env {
	st := newMemStore()
	tr := &stubTransport{}
	fs := &stubStorage{}
	return &env{
		store:     st,
		transport: tr,
		storage:   fs,
		delivery:  services.NewDeliveryService(st, tr, stubSynth{}, fs, nil, "https://cupido.example.com"),
		fidelity:  services.NewFidelityService(st, tr, "test-secret", time.Hour, "secondary-token", "https://cupido.example.com"),
	}
}

func jsonRequest(method, target string, payload any) *http.Request {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func doJSON(t *testing.T, app *fiber.App, req *http.Request) (int, map[string]any) {
	t.Helper()

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}

	var decoded map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("decode body %q: %v", raw, err)
		}
	}
	return resp.StatusCode, decoded
}
