package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/cupido/internal/models"
)

// GormStore implements Store on top of gorm/Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore constructs a GormStore.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// ── Orders ──────────────────────────────────────────────────────────

func (s *GormStore) CreateOrder(ctx context.Context, order *models.Order) error {
	return s.db.WithContext(ctx).Create(order).Error
}

func (s *GormStore) OrderByToken(ctx context.Context, formToken string) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).First(&order, "form_token = ?", formToken).Error; err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

func (s *GormStore) OrderBySaleID(ctx context.Context, saleID string) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).First(&order, "sale_id = ?", saleID).Error; err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

func (s *GormStore) OrdersByBuyerPhone(ctx context.Context, phone string) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.WithContext(ctx).
		Where("buyer_phone = ?", phone).
		Order("created_at DESC").
		Find(&orders).Error
	return orders, err
}

func (s *GormStore) UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]interface{}) error {
	return s.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(updates).Error
}

func (s *GormStore) IncrementMessagesSent(ctx context.Context, orderID uuid.UUID) (int, error) {
	if err := s.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		UpdateColumn("messages_sent", gorm.Expr("messages_sent + 1")).Error; err != nil {
		return 0, err
	}

	var count int
	err := s.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Pluck("messages_sent", &count).Error
	return count, err
}

// ── Messages ────────────────────────────────────────────────────────

func (s *GormStore) CreateMessage(ctx context.Context, msg *models.Message) error {
	return s.db.WithContext(ctx).Create(msg).Error
}

func (s *GormStore) MessagesByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Message, error) {
	var msgs []models.Message
	err := s.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("message_index ASC").
		Find(&msgs).Error
	return msgs, err
}

func (s *GormStore) UndeliveredCount(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("order_id = ? AND delivered = false", orderID).
		Count(&count).Error
	return count, err
}

func (s *GormStore) MarkMessageDelivered(ctx context.Context, messageID uuid.UUID, audioURL *string) error {
	return s.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("id = ?", messageID).
		Updates(map[string]interface{}{
			"delivered":    true,
			"delivered_at": time.Now().UTC(),
			"audio_url":    audioURL,
		}).Error
}

func (s *GormStore) DueScheduledMessages(ctx context.Context, now time.Time) ([]ScheduledDelivery, error) {
	var msgs []models.Message
	err := s.db.WithContext(ctx).
		Where("scheduled_at IS NOT NULL AND scheduled_at <= ? AND delivered = false", now).
		Order("scheduled_at ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}

	deliveries := make([]ScheduledDelivery, 0, len(msgs))
	for _, msg := range msgs {
		var order models.Order
		if err := s.db.WithContext(ctx).First(&order, "id = ?", msg.OrderID).Error; err != nil {
			// Orphaned message; skip rather than abort the batch.
			continue
		}
		deliveries = append(deliveries, ScheduledDelivery{Message: msg, Order: order})
	}
	return deliveries, nil
}

// ── Presentations ───────────────────────────────────────────────────

func (s *GormStore) CreatePresentation(ctx context.Context, p *models.Presentation) error {
	return s.db.WithContext(ctx).Create(p).Error
}

func (s *GormStore) PresentationByID(ctx context.Context, id uuid.UUID) (*models.Presentation, error) {
	var p models.Presentation
	if err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *GormStore) IncrementViewCount(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).
		Model(&models.Presentation{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
}

// ── Quiz leads ──────────────────────────────────────────────────────

func (s *GormStore) CreateQuizLead(ctx context.Context, lead *models.QuizLead) error {
	return s.db.WithContext(ctx).Create(lead).Error
}

// ── Fidelity ────────────────────────────────────────────────────────

func (s *GormStore) CreateFidelityUser(ctx context.Context, user *models.FidelityUser) error {
	return s.db.WithContext(ctx).Create(user).Error
}

func (s *GormStore) FidelityUserByEmail(ctx context.Context, email string) (*models.FidelityUser, error) {
	var user models.FidelityUser
	if err := s.db.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *GormStore) FidelityUserByID(ctx context.Context, id uuid.UUID) (*models.FidelityUser, error) {
	var user models.FidelityUser
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *GormStore) CreateFidelityTest(ctx context.Context, test *models.FidelityTest) error {
	return s.db.WithContext(ctx).Create(test).Error
}

func (s *GormStore) FidelityTestByID(ctx context.Context, id uuid.UUID) (*models.FidelityTest, error) {
	var test models.FidelityTest
	if err := s.db.WithContext(ctx).First(&test, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &test, nil
}

func (s *GormStore) FidelityTestsByUser(ctx context.Context, userID uuid.UUID) ([]models.FidelityTest, error) {
	var tests []models.FidelityTest
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&tests).Error
	return tests, err
}

func (s *GormStore) UpdateFidelityTest(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	return s.db.WithContext(ctx).
		Model(&models.FidelityTest{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (s *GormStore) LatestPendingTestByUser(ctx context.Context, userID uuid.UUID) (*models.FidelityTest, error) {
	var test models.FidelityTest
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, models.FidelityTestPending).
		Order("created_at DESC").
		First(&test).Error
	if err != nil {
		return nil, translate(err)
	}
	return &test, nil
}

func (s *GormStore) LatestOpenTestByTarget(ctx context.Context, targetPhone string) (*models.FidelityTest, error) {
	var test models.FidelityTest
	err := s.db.WithContext(ctx).
		Where("target_phone = ? AND status IN ?", targetPhone,
			[]string{models.FidelityTestPending, models.FidelityTestActive}).
		Order("created_at DESC").
		First(&test).Error
	if err != nil {
		return nil, translate(err)
	}
	return &test, nil
}

func (s *GormStore) CreateFidelityMessage(ctx context.Context, msg *models.FidelityMessage) error {
	return s.db.WithContext(ctx).Create(msg).Error
}

func (s *GormStore) FidelityMessagesByTest(ctx context.Context, testID uuid.UUID) ([]models.FidelityMessage, error) {
	var msgs []models.FidelityMessage
	err := s.db.WithContext(ctx).
		Where("test_id = ?", testID).
		Order("created_at ASC").
		Find(&msgs).Error
	return msgs, err
}
