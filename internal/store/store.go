// Package store is the persistence boundary. Handlers, the delivery
// engine and the scheduler talk to these interfaces so the core logic
// can be exercised without Postgres.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/example/cupido/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: record not found")

// ScheduledDelivery is one past-due message joined with its parent
// order, as consumed by the sweep.
type ScheduledDelivery struct {
	Message models.Message
	Order   models.Order
}

// OrderStore persists orders, messages and presentations.
type OrderStore interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	OrderByToken(ctx context.Context, formToken string) (*models.Order, error)
	OrderBySaleID(ctx context.Context, saleID string) (*models.Order, error)
	OrdersByBuyerPhone(ctx context.Context, phone string) ([]models.Order, error)
	UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]interface{}) error
	// IncrementMessagesSent atomically bumps the counter and returns the
	// post-increment value.
	IncrementMessagesSent(ctx context.Context, orderID uuid.UUID) (int, error)

	CreateMessage(ctx context.Context, msg *models.Message) error
	MessagesByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Message, error)
	UndeliveredCount(ctx context.Context, orderID uuid.UUID) (int64, error)
	MarkMessageDelivered(ctx context.Context, messageID uuid.UUID, audioURL *string) error
	DueScheduledMessages(ctx context.Context, now time.Time) ([]ScheduledDelivery, error)

	CreatePresentation(ctx context.Context, p *models.Presentation) error
	PresentationByID(ctx context.Context, id uuid.UUID) (*models.Presentation, error)
	IncrementViewCount(ctx context.Context, id uuid.UUID) error

	CreateQuizLead(ctx context.Context, lead *models.QuizLead) error
}

// FidelityStore persists fidelity-test users, tests and messages.
type FidelityStore interface {
	CreateFidelityUser(ctx context.Context, user *models.FidelityUser) error
	FidelityUserByEmail(ctx context.Context, email string) (*models.FidelityUser, error)
	FidelityUserByID(ctx context.Context, id uuid.UUID) (*models.FidelityUser, error)

	CreateFidelityTest(ctx context.Context, test *models.FidelityTest) error
	FidelityTestByID(ctx context.Context, id uuid.UUID) (*models.FidelityTest, error)
	FidelityTestsByUser(ctx context.Context, userID uuid.UUID) ([]models.FidelityTest, error)
	UpdateFidelityTest(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error
	LatestPendingTestByUser(ctx context.Context, userID uuid.UUID) (*models.FidelityTest, error)
	// LatestOpenTestByTarget returns the newest pending or active test
	// whose target matches the phone.
	LatestOpenTestByTarget(ctx context.Context, targetPhone string) (*models.FidelityTest, error)

	CreateFidelityMessage(ctx context.Context, msg *models.FidelityMessage) error
	FidelityMessagesByTest(ctx context.Context, testID uuid.UUID) ([]models.FidelityMessage, error)
}

// Store is the full persistence surface.
type Store interface {
	OrderStore
	FidelityStore
}
