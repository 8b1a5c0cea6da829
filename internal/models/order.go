package models

import (
	"time"

	"github.com/google/uuid"
)

// Order status values. Transitions are monotonic
// (pending -> approved -> submitted -> delivered) except for the
// refund/cancel escape hatches.
const (
	OrderStatusPending   = "pending"
	OrderStatusApproved  = "approved"
	OrderStatusSubmitted = "submitted"
	OrderStatusDelivered = "delivered"
	OrderStatusRefunded  = "refunded"
	OrderStatusCanceled  = "canceled"
)

// Order is one purchased plan instance tied to a buyer and, once the
// form is filled, a recipient.
type Order struct {
	BaseModel
	SaleID         string     `gorm:"uniqueIndex;default:null" json:"sale_id"`
	Plan           string     `gorm:"index" json:"plan"`
	Status         string     `gorm:"index" json:"status"`
	BuyerName      string     `json:"buyer_name"`
	BuyerPhone     string     `gorm:"index" json:"buyer_phone"`
	BuyerEmail     string     `json:"buyer_email"`
	ProductName    string     `json:"product_name"`
	RecipientPhone string     `json:"recipient_phone"`
	MessagesSent   int        `json:"messages_sent"`
	IsTest         bool       `json:"is_test"`
	FormToken      string     `gorm:"uniqueIndex" json:"form_token"`
	DeliveredAt    *time.Time `json:"delivered_at"`
}

// Message belongs to exactly one order. A message is delivered at most
// once; Delivered is set only after a confirmed transport send.
type Message struct {
	BaseModel
	OrderID        uuid.UUID  `gorm:"type:uuid;index:idx_order_msg,unique" json:"order_id"`
	MessageIndex   int        `gorm:"index:idx_order_msg,unique" json:"message_index"`
	Content        string     `json:"content"`
	SenderNickname string     `json:"sender_nickname"`
	AudioText      string     `json:"audio_text"`
	ScheduledAt    *time.Time `gorm:"index" json:"scheduled_at"`
	Delivered      bool       `gorm:"index" json:"delivered"`
	DeliveredAt    *time.Time `json:"delivered_at"`
	AudioURL       *string    `json:"audio_url"`
}

// Slide is one page of a premium presentation.
type Slide struct {
	ImageURL string `json:"image_url"`
	Caption  string `json:"caption"`
}

// Presentation is the premium-plan slideshow. Read-only after creation
// except for the view counter.
type Presentation struct {
	BaseModel
	OrderID   uuid.UUID `gorm:"type:uuid;index" json:"order_id"`
	Title     string    `json:"title"`
	Slides    []Slide   `gorm:"serializer:json;type:jsonb" json:"slides"`
	ViewCount int       `json:"view_count"`
}

// QuizLead is a sales-funnel contact captured by the quiz landing flow.
type QuizLead struct {
	BaseModel
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Situation string `json:"situation"`
	Goal      string `json:"goal"`
	Source    string `json:"source"`
}
