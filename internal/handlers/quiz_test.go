package handlers

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestQuizContactStoresLead(t *testing.T) {
	t.Parallel()

	e := newEnv()
	app := fiber.New()
	app.Post("/api/quiz/contact", NewQuizHandler(e.store, e.transport).Contact)

	status, body := doJSON(t, app, jsonRequest(http.MethodPost, "/api/quiz/contact", fiber.Map{
		"nome":     "Pedro",
		"telefone": "85 98888-7777",
		"situacao": "paquera",
		"objetivo": "declaracao",
	}))
	if status != http.StatusOK || body["success"] != true {
		t.Fatalf("status = %d body = %v", status, body)
	}

	if len(e.store.leads) != 1 {
		t.Fatalf("expected 1 lead, got %d", len(e.store.leads))
	}
	lead := e.store.leads[0]
	if lead.Name != "Pedro" || lead.Situation != "paquera" || lead.Goal != "declaracao" {
		t.Fatalf("lead = %+v", lead)
	}
	if lead.Phone != "5585988887777" {
		t.Fatalf("lead phone = %q, want normalized digits", lead.Phone)
	}
	if lead.Source != "quiz_v2" {
		t.Fatalf("lead source = %q", lead.Source)
	}
}
