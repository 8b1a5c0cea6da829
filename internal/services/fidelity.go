package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/cupido/internal/models"
	"github.com/example/cupido/internal/store"
	"github.com/example/cupido/internal/utils"
)

// AccessDuration is the paid window during which a fidelity test stays
// active after payment.
const AccessDuration = 48 * time.Hour

// Fidelity service errors surfaced to handlers.
var (
	ErrEmailTaken    = errors.New("fidelity: email already registered")
	ErrInvalidLogin  = errors.New("fidelity: invalid email or password")
	ErrTestNotFound  = errors.New("fidelity: test not found")
	ErrNotOwner      = errors.New("fidelity: access denied")
	ErrTestInactive  = errors.New("fidelity: test not active or expired")
	ErrNoPendingTest = errors.New("fidelity: no pending test")
	ErrUserNotFound  = errors.New("fidelity: user not found")
	ErrSendFailed    = errors.New("fidelity: failed to send message")
)

// FidelityService implements the fidelity-test feature: registered
// users message a target through a secondary gateway number and read
// replies inside a paid access window.
type FidelityService struct {
	store     store.FidelityStore
	transport Transport
	jwtSecret string
	tokenTTL  time.Duration
	sendToken string
	baseURL   string
}

// NewFidelityService wires the fidelity feature. sendToken is the
// gateway token of the secondary ("woman") number.
func NewFidelityService(st store.FidelityStore, transport Transport, jwtSecret string, tokenTTL time.Duration, sendToken, baseURL string) *FidelityService {
	return &FidelityService{
		store:     st,
		transport: transport,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		sendToken: sendToken,
		baseURL:   baseURL,
	}
}

// ── Auth ────────────────────────────────────────────────────────────

// Register creates a user and returns a session token.
func (s *FidelityService) Register(ctx context.Context, name, email, phone, password string) (token string, userID uuid.UUID, err error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if _, err := s.store.FidelityUserByEmail(ctx, email); err == nil {
		return "", uuid.Nil, ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return "", uuid.Nil, err
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return "", uuid.Nil, err
	}

	user := &models.FidelityUser{
		Name:         strings.TrimSpace(name),
		Email:        email,
		Phone:        utils.CleanPhone(phone),
		PasswordHash: hash,
	}
	if err := s.store.CreateFidelityUser(ctx, user); err != nil {
		return "", uuid.Nil, err
	}

	token, err = utils.GenerateToken(s.jwtSecret, user.ID, s.tokenTTL)
	if err != nil {
		return "", uuid.Nil, err
	}

	log.Printf("[Fidelity] User registered: %s", email)
	return token, user.ID, nil
}

// Login verifies credentials and returns a session token.
func (s *FidelityService) Login(ctx context.Context, email, password string) (token string, userID uuid.UUID, err error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.store.FidelityUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", uuid.Nil, ErrInvalidLogin
		}
		return "", uuid.Nil, err
	}

	if !utils.CheckPassword(user.PasswordHash, password) {
		return "", uuid.Nil, ErrInvalidLogin
	}

	token, err = utils.GenerateToken(s.jwtSecret, user.ID, s.tokenTTL)
	if err != nil {
		return "", uuid.Nil, err
	}

	log.Printf("[Fidelity] User logged in: %s", email)
	return token, user.ID, nil
}

// VerifyToken validates a session token and returns the user ID.
func (s *FidelityService) VerifyToken(token string) (uuid.UUID, error) {
	return utils.ParseToken(s.jwtSecret, token)
}

// ── Tests ───────────────────────────────────────────────────────────

// CreateTest creates a pending test and sends the opening message from
// the secondary number. A failed first send is logged, not fatal: the
// test record stays and payment can still activate it.
func (s *FidelityService) CreateTest(ctx context.Context, userID uuid.UUID, targetPhone, firstMessage string) (*models.FidelityTest, error) {
	test := &models.FidelityTest{
		UserID:       userID,
		TargetPhone:  utils.CleanPhone(targetPhone),
		FirstMessage: firstMessage,
		Status:       models.FidelityTestPending,
	}
	if err := s.store.CreateFidelityTest(ctx, test); err != nil {
		return nil, err
	}

	if err := s.transport.SendTextAs(ctx, test.TargetPhone, firstMessage, s.sendToken); err != nil {
		log.Printf("[Fidelity] Failed to send first message for test %s: %v", test.ID, err)
	}

	if err := s.store.CreateFidelityMessage(ctx, &models.FidelityMessage{
		TestID:    test.ID,
		Direction: models.DirectionOutbound,
		Content:   firstMessage,
	}); err != nil {
		log.Printf("[Fidelity] Failed to store first message for test %s: %v", test.ID, err)
	}

	log.Printf("[Fidelity] Test created: %s", test.ID)
	return test, nil
}

// IsActive reports whether a test is paid and inside its access window.
func (s *FidelityService) IsActive(test *models.FidelityTest) bool {
	if test.Status != models.FidelityTestActive || test.ExpiresAt == nil {
		return false
	}
	return time.Now().Before(*test.ExpiresAt)
}

// ListTests returns the user's tests, lazily expiring any active test
// past its window.
func (s *FidelityService) ListTests(ctx context.Context, userID uuid.UUID) ([]models.FidelityTest, error) {
	tests, err := s.store.FidelityTestsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	for i := range tests {
		if tests[i].Status == models.FidelityTestActive && !s.IsActive(&tests[i]) {
			s.expireTest(ctx, tests[i].ID)
			tests[i].Status = models.FidelityTestExpired
		}
	}
	return tests, nil
}

// Messages returns a test's conversation for its owner. Content is
// blurred unless the test is active and unexpired.
func (s *FidelityService) Messages(ctx context.Context, testID, userID uuid.UUID) ([]models.FidelityMessage, *models.FidelityTest, error) {
	test, err := s.store.FidelityTestByID(ctx, testID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, ErrTestNotFound
		}
		return nil, nil, err
	}

	if test.UserID != userID {
		return nil, nil, ErrNotOwner
	}

	active := s.IsActive(test)
	if test.Status == models.FidelityTestActive && !active {
		s.expireTest(ctx, test.ID)
		test.Status = models.FidelityTestExpired
	}

	msgs, err := s.store.FidelityMessagesByTest(ctx, testID)
	if err != nil {
		return nil, nil, err
	}

	for i := range msgs {
		msgs[i].Blurred = !active
		if !active {
			msgs[i].Content = blurContent(msgs[i].Content)
		}
	}
	return msgs, test, nil
}

func blurContent(content string) string {
	runes := []rune(content)
	if len(runes) > 3 {
		hidden := len(runes) - 3
		if hidden > 30 {
			hidden = 30
		}
		return string(runes[:3]) + strings.Repeat("█", hidden)
	}
	return strings.Repeat("█", 10)
}

// SendMessage sends a message within an active test.
func (s *FidelityService) SendMessage(ctx context.Context, testID, userID uuid.UUID, content string) error {
	test, err := s.store.FidelityTestByID(ctx, testID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrTestNotFound
		}
		return err
	}

	if test.UserID != userID {
		return ErrNotOwner
	}
	if !s.IsActive(test) {
		return ErrTestInactive
	}

	if err := s.transport.SendTextAs(ctx, test.TargetPhone, content, s.sendToken); err != nil {
		return ErrSendFailed
	}

	if err := s.store.CreateFidelityMessage(ctx, &models.FidelityMessage{
		TestID:    test.ID,
		Direction: models.DirectionOutbound,
		Content:   content,
	}); err != nil {
		log.Printf("[Fidelity] Failed to store outbound message for test %s: %v", test.ID, err)
	}

	return nil
}

// ── Payment ─────────────────────────────────────────────────────────

// ActivateByEmail activates the buyer's most recent pending test when a
// payment webhook arrives.
func (s *FidelityService) ActivateByEmail(ctx context.Context, email, saleID string) (uuid.UUID, error) {
	user, err := s.store.FidelityUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return uuid.Nil, ErrUserNotFound
		}
		return uuid.Nil, err
	}

	test, err := s.store.LatestPendingTestByUser(ctx, user.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return uuid.Nil, ErrNoPendingTest
		}
		return uuid.Nil, err
	}

	now := time.Now().UTC()
	expires := now.Add(AccessDuration)
	err = s.store.UpdateFidelityTest(ctx, test.ID, map[string]interface{}{
		"status":     models.FidelityTestActive,
		"sale_id":    saleID,
		"paid_at":    now,
		"expires_at": expires,
	})
	if err != nil {
		return uuid.Nil, err
	}

	log.Printf("[Fidelity] Test activated: %s (sale: %s)", test.ID, saleID)
	return test.ID, nil
}

// ── Inbound replies ─────────────────────────────────────────────────

// HandleInbound routes a reply from a target phone to its newest open
// test, stores it and notifies the test owner on the main number.
func (s *FidelityService) HandleInbound(ctx context.Context, senderPhone, content string) (uuid.UUID, error) {
	sender := utils.CleanPhone(senderPhone)

	test, err := s.store.LatestOpenTestByTarget(ctx, sender)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Printf("[Fidelity] No test found for phone %s...", utils.MaskPhone(sender))
			return uuid.Nil, ErrTestNotFound
		}
		return uuid.Nil, err
	}

	if err := s.store.CreateFidelityMessage(ctx, &models.FidelityMessage{
		TestID:    test.ID,
		Direction: models.DirectionInbound,
		Content:   content,
	}); err != nil {
		return uuid.Nil, err
	}

	s.notifyOwner(ctx, test, content)

	log.Printf("[Fidelity] Inbound message saved for test %s", test.ID)
	return test.ID, nil
}

// notifyOwner pings the test owner on WhatsApp when the target replies.
// Best-effort.
func (s *FidelityService) notifyOwner(ctx context.Context, test *models.FidelityTest, content string) {
	user, err := s.store.FidelityUserByID(ctx, test.UserID)
	if err != nil {
		log.Printf("[Fidelity] Owner lookup failed for test %s: %v", test.ID, err)
		return
	}

	preview := content
	if runes := []rune(preview); len(runes) > 50 {
		preview = string(runes[:50]) + "..."
	}

	chatURL := fmt.Sprintf("%s/fidelity/chat/%s", s.baseURL, test.ID)
	notification := fmt.Sprintf(
		"🔔 *Teste de Fidelidade*\n\nO numero %s respondeu!\n\n💬 _%s_\n\nAcesse o chat para ver:\n👉 %s",
		utils.MaskPhone(test.TargetPhone), preview, chatURL,
	)

	// Sent from the main number, not the secondary one.
	if err := s.transport.SendText(ctx, user.Phone, notification); err != nil {
		log.Printf("[Fidelity] Owner notification failed for test %s: %v", test.ID, err)
	}
}

func (s *FidelityService) expireTest(ctx context.Context, testID uuid.UUID) {
	err := s.store.UpdateFidelityTest(ctx, testID, map[string]interface{}{
		"status": models.FidelityTestExpired,
	})
	if err != nil {
		log.Printf("[Fidelity] Failed to expire test %s: %v", testID, err)
		return
	}
	log.Printf("[Fidelity] Test %s expired", testID)
}
