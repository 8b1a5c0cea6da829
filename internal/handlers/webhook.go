package handlers

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/cupido/internal/models"
	"github.com/example/cupido/internal/plans"
	"github.com/example/cupido/internal/services"
	"github.com/example/cupido/internal/store"
	"github.com/example/cupido/internal/utils"
)

// approvedEventKeywords trigger order creation; anything else is
// acknowledged and ignored.
var approvedEventKeywords = []string{
	"sale.approved",
	"sale.completed",
	"approved",
	"completed",
	"paid",
}

func isApprovedEvent(event string) bool {
	eventLower := strings.ToLower(event)
	for _, keyword := range approvedEventKeywords {
		if strings.Contains(eventLower, keyword) {
			return true
		}
	}
	return false
}

// lowifyCustomer and lowifyProduct are the nested payload shapes.
type lowifyCustomer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Doc   string `json:"doc"`
}

type lowifyProduct struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// lowifyWebhookPayload covers both the nested and flat payload formats
// the payment processor emits. Fields are validated at this boundary
// before anything downstream trusts them.
type lowifyWebhookPayload struct {
	Event    string          `json:"event"`
	SaleID   string          `json:"sale_id"`
	Customer *lowifyCustomer `json:"customer"`
	Product  *lowifyProduct  `json:"product"`

	// Flat fallback fields.
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
	ProductID     string `json:"product_id"`
	ProductName   string `json:"product_name"`
}

// saleEvent is the normalized, trusted view of an approved payment.
type saleEvent struct {
	Event       string
	SaleID      string
	BuyerName   string
	BuyerEmail  string
	BuyerPhone  string
	ProductID   string
	ProductName string
}

func (p *lowifyWebhookPayload) normalize() saleEvent {
	ev := saleEvent{
		Event:       p.Event,
		SaleID:      p.SaleID,
		BuyerName:   p.CustomerName,
		BuyerEmail:  p.CustomerEmail,
		BuyerPhone:  p.CustomerPhone,
		ProductID:   p.ProductID,
		ProductName: p.ProductName,
	}
	if p.Customer != nil {
		if p.Customer.Name != "" {
			ev.BuyerName = p.Customer.Name
		}
		if p.Customer.Email != "" {
			ev.BuyerEmail = p.Customer.Email
		}
		if p.Customer.Phone != "" {
			ev.BuyerPhone = p.Customer.Phone
		}
	}
	if p.Product != nil {
		if p.Product.ID != "" {
			ev.ProductID = p.Product.ID
		}
		if p.Product.Name != "" {
			ev.ProductName = p.Product.Name
		}
	}
	return ev
}

// WebhookHandler receives payment and gateway webhooks.
type WebhookHandler struct {
	store     store.Store
	transport services.Transport
	fidelity  *services.FidelityService
	baseURL   string
	ownPhone  string
}

// NewWebhookHandler constructs WebhookHandler. ownPhone is this
// system's gateway number, used to ignore echoes of its own sends.
func NewWebhookHandler(st store.Store, transport services.Transport, fidelity *services.FidelityService, baseURL, ownPhone string) *WebhookHandler {
	return &WebhookHandler{
		store:     st,
		transport: transport,
		fidelity:  fidelity,
		baseURL:   baseURL,
		ownPhone:  ownPhone,
	}
}

// Lowify handles payment-confirmation webhooks and creates orders.
func (h *WebhookHandler) Lowify(c *fiber.Ctx) error {
	var payload lowifyWebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}

	if !isApprovedEvent(payload.Event) {
		log.Printf("[Webhook] Ignoring event: %s", payload.Event)
		return c.JSON(fiber.Map{"status": "ignored", "event": payload.Event})
	}

	ev := payload.normalize()
	if ev.BuyerPhone == "" {
		log.Println("[Webhook] Payload without buyer phone - skipping")
		return c.JSON(fiber.Map{"status": "ignored", "reason": "no_phone"})
	}

	// Idempotent on sale id: replays return the existing order.
	if ev.SaleID != "" {
		if existing, err := h.store.OrderBySaleID(c.Context(), ev.SaleID); err == nil {
			log.Printf("[Webhook] Order already exists for sale %s", ev.SaleID)
			return c.JSON(fiber.Map{
				"status":     "ok",
				"order_id":   existing.ID,
				"form_token": existing.FormToken,
			})
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
	}

	planType := plans.Resolve(ev.ProductID, ev.ProductName)

	order := &models.Order{
		SaleID:      ev.SaleID,
		Plan:        planType,
		Status:      models.OrderStatusApproved,
		BuyerName:   ev.BuyerName,
		BuyerPhone:  utils.CleanPhone(ev.BuyerPhone),
		BuyerEmail:  ev.BuyerEmail,
		ProductName: ev.ProductName,
		IsTest:      strings.Contains(strings.ToLower(ev.Event), "test"),
		FormToken:   uuid.NewString(),
	}

	if err := h.store.CreateOrder(c.Context(), order); err != nil {
		log.Printf("[Webhook] Failed to create order: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "failed to create order")
	}

	log.Printf("[Webhook] Order created: %s (plan=%s)", order.ID, planType)

	h.sendFormLink(c, order)

	return c.JSON(fiber.Map{
		"status":     "ok",
		"order_id":   order.ID,
		"form_token": order.FormToken,
	})
}

// sendFormLink messages the buyer with their form link. Best-effort.
func (h *WebhookHandler) sendFormLink(c *fiber.Ctx, order *models.Order) {
	cfg := plans.Config(order.Plan)
	formURL := fmt.Sprintf("%s/form/%s", h.baseURL, order.FormToken)
	text := fmt.Sprintf(
		"💘 *Cupido* - Pagamento confirmado!\n\nPlano: *%s*\n\nPreencha sua mensagem aqui:\n👉 %s",
		cfg.Label, formURL,
	)

	if err := h.transport.SendText(c.Context(), order.BuyerPhone, text); err != nil {
		log.Printf("[Webhook] Failed to send form link for order %s: %v", order.ID, err)
	}
}

// LowifyDebug logs the raw payload without processing it.
func (h *WebhookHandler) LowifyDebug(c *fiber.Ctx) error {
	body := c.Body()
	if len(body) > 2048 {
		body = body[:2048]
	}
	log.Printf("[Webhook] Debug payload: %s", string(body))
	return c.JSON(fiber.Map{"status": "ok", "payload_received": true})
}

// Fidelity handles the payment webhook that activates a fidelity test.
func (h *WebhookHandler) Fidelity(c *fiber.Ctx) error {
	var payload lowifyWebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}

	if !isApprovedEvent(payload.Event) {
		log.Printf("[Webhook] Fidelity: ignoring event: %s", payload.Event)
		return c.JSON(fiber.Map{"status": "ignored", "event": payload.Event})
	}

	ev := payload.normalize()
	if ev.BuyerEmail == "" {
		return fiber.NewError(fiber.StatusBadRequest, "no email in payload")
	}

	testID, err := h.fidelity.ActivateByEmail(c.Context(), ev.BuyerEmail, ev.SaleID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) || errors.Is(err, services.ErrNoPendingTest) {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return err
	}

	return c.JSON(fiber.Map{"status": "ok", "test_id": testID})
}

// uazapiKey matches the gateway's nested message envelope.
type uazapiKey struct {
	RemoteJid string `json:"remoteJid"`
	FromMe    bool   `json:"fromMe"`
}

type uazapiMessage struct {
	Conversation        string `json:"conversation"`
	ExtendedTextMessage struct {
		Text string `json:"text"`
	} `json:"extendedTextMessage"`
}

type uazapiData struct {
	Key     uazapiKey     `json:"key"`
	Message uazapiMessage `json:"message"`
	Phone   string        `json:"phone"`
	From    string        `json:"from"`
	Text    string        `json:"text"`
	Body    string        `json:"body"`
}

type uazapiWebhookPayload struct {
	Event string      `json:"event"`
	Data  *uazapiData `json:"data"`

	// Flat fallback when the gateway flattens the envelope.
	uazapiData
}

// Uazapi handles inbound reply webhooks from the messaging gateway.
func (h *WebhookHandler) Uazapi(c *fiber.Ctx) error {
	var payload uazapiWebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}

	data := payload.uazapiData
	if payload.Data != nil {
		data = *payload.Data
	}

	if data.Key.FromMe {
		return c.JSON(fiber.Map{"status": "ignored", "reason": "fromMe"})
	}

	senderPhone := utils.CleanPhone(data.Key.RemoteJid)
	if senderPhone == "" {
		senderPhone = utils.CleanPhone(data.Phone)
	}
	if senderPhone == "" {
		senderPhone = utils.CleanPhone(data.From)
	}
	if senderPhone == "" {
		return c.JSON(fiber.Map{"status": "ignored", "reason": "no_phone"})
	}

	if h.ownPhone != "" && senderPhone == utils.CleanPhone(h.ownPhone) {
		return c.JSON(fiber.Map{"status": "ignored", "reason": "own_number"})
	}

	content := data.Message.Conversation
	if content == "" {
		content = data.Message.ExtendedTextMessage.Text
	}
	if content == "" {
		content = data.Text
	}
	if content == "" {
		content = data.Body
	}
	if content == "" {
		return c.JSON(fiber.Map{"status": "ignored", "reason": "no_content"})
	}

	if _, err := h.fidelity.HandleInbound(c.Context(), senderPhone, content); err != nil {
		if errors.Is(err, services.ErrTestNotFound) {
			return c.JSON(fiber.Map{"status": "no_match"})
		}
		return err
	}

	return c.JSON(fiber.Map{"status": "ok"})
}
