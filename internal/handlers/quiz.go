package handlers

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/example/cupido/internal/models"
	"github.com/example/cupido/internal/services"
	"github.com/example/cupido/internal/store"
	"github.com/example/cupido/internal/utils"
)

// QuizHandler captures sales-funnel quiz leads and greets them on
// WhatsApp.
type QuizHandler struct {
	store     store.OrderStore
	transport services.Transport
}

// NewQuizHandler constructs QuizHandler.
func NewQuizHandler(st store.OrderStore, transport services.Transport) *QuizHandler {
	return &QuizHandler{store: st, transport: transport}
}

type quizContactRequest struct {
	Name      string `json:"nome"`
	Phone     string `json:"telefone"`
	Situation string `json:"situacao"`
	Goal      string `json:"objetivo"`
}

const quizWelcome = "💘 *Stitch Cupido — Mensagem Anônima*\n\n" +
	"Oi, %s! Vi que você quer enviar uma mensagem especial 💌\n\n" +
	"Funciona assim: você escolhe um plano, escreve sua mensagem, " +
	"e o Stitch entrega no WhatsApp da pessoa de forma anônima!\n\n" +
	"Nossos planos:\n" +
	"📝 *Básico* — 1 mensagem de texto — R$6\n" +
	"🎙️ *Com Áudio* — texto + áudio do Stitch — R$14\n" +
	"💬 *Multi* — 5 mensagens com texto e áudio — R$15\n" +
	"🎬 *Premium* — apresentação com fotos e música — R$25\n\n" +
	"Qual plano você quer? Me conta aqui que eu te ajudo! 😊"

// Contact stores the lead and sends a fire-and-forget welcome message.
func (h *QuizHandler) Contact(c *fiber.Ctx) error {
	var req quizContactRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	phone := utils.CleanPhone(req.Phone)

	lead := &models.QuizLead{
		Name:      strings.TrimSpace(req.Name),
		Phone:     phone,
		Situation: req.Situation,
		Goal:      req.Goal,
		Source:    "quiz_v2",
	}
	if err := h.store.CreateQuizLead(c.Context(), lead); err != nil {
		log.Printf("[Quiz] Failed to save lead: %v", err)
	} else {
		log.Printf("[Quiz] Lead saved: %s / %s...", lead.Name, utils.MaskPhone(phone))
	}

	name := lead.Name
	go func() {
		text := fmt.Sprintf(quizWelcome, name)
		if err := h.transport.SendText(context.Background(), phone, text); err != nil {
			log.Printf("[Quiz] Welcome send failed: %v", err)
		}
	}()

	return c.JSON(fiber.Map{"success": true})
}
