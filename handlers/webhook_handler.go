package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"darkQuestsAPI/internal/clerk"
	"darkQuestsAPI/services"
)

const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	playerService *services.PlayerService
	secret        string
	now           func() time.Time
}

// NewWebhookHandler verifies Clerk signatures with secret. An empty secret
// disables verification, which is only meant for local development.
func NewWebhookHandler(playerService *services.PlayerService, secret string) *WebhookHandler {
	if secret == "" {
		log.Println("Warning: CLERK_WEBHOOK_SECRET not set, webhook signatures are not verified")
	}
	return &WebhookHandler{
		playerService: playerService,
		secret:        secret,
		now:           time.Now,
	}
}

// POST /webhooks/clerk
func (h *WebhookHandler) HandleClerkWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		log.Printf("Error reading webhook body: %v", err)
		respondWithError(w, http.StatusBadRequest, "Error reading body")
		return
	}

	if h.secret != "" {
		if err := clerk.VerifySignature(h.secret, r.Header, body, h.now()); err != nil {
			log.Printf("Rejected webhook: %v", err)
			respondWithError(w, http.StatusUnauthorized, "Invalid signature")
			return
		}
	}

	var event clerk.ClerkWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Printf("Error parsing webhook: %v", err)
		respondWithError(w, http.StatusBadRequest, "Error parsing webhook")
		return
	}

	log.Printf("Received webhook event: %s", event.Type)

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	switch event.Type {
	case clerk.EventUserCreated:
		err = h.handleUserCreated(ctx, event.Data)
	case clerk.EventUserUpdated:
		err = h.handleUserUpdated(ctx, event.Data)
	case clerk.EventUserDeleted:
		err = h.handleUserDeleted(ctx, event.Data)
	default:
		log.Printf("Unhandled webhook event type: %s", event.Type)
	}
	if err != nil {
		log.Printf("Error handling %s: %v", event.Type, err)
		respondWithError(w, http.StatusInternalServerError, "Error processing webhook")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *WebhookHandler) handleUserCreated(ctx context.Context, data json.RawMessage) error {
	var userData clerk.ClerkUserData
	if err := json.Unmarshal(data, &userData); err != nil {
		return fmt.Errorf("failed to unmarshal user data: %w", err)
	}

	stats, err := h.playerService.CreatePlayer(ctx, userData.ID, userData.DisplayName())
	if errors.Is(err, services.ErrValidation) {
		log.Printf("Ignoring display name for %s: %v", userData.ID, err)
		stats, err = h.playerService.CreatePlayer(ctx, userData.ID, nil)
	}
	if err != nil {
		return fmt.Errorf("failed to create player: %w", err)
	}

	log.Printf("Successfully created player %s", stats.UserID)
	return nil
}

func (h *WebhookHandler) handleUserUpdated(ctx context.Context, data json.RawMessage) error {
	var userData clerk.ClerkUserData
	if err := json.Unmarshal(data, &userData); err != nil {
		return fmt.Errorf("failed to unmarshal user data: %w", err)
	}

	if _, err := h.playerService.EnsurePlayer(ctx, userData.ID); err != nil {
		return fmt.Errorf("failed to load player: %w", err)
	}

	name := userData.DisplayName()
	if name == nil {
		return nil
	}
	_, err := h.playerService.UpdateDisplayName(ctx, userData.ID, *name)
	if errors.Is(err, services.ErrValidation) {
		log.Printf("Ignoring display name for %s: %v", userData.ID, err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to update display name: %w", err)
	}
	return nil
}

func (h *WebhookHandler) handleUserDeleted(ctx context.Context, data json.RawMessage) error {
	var deleted clerk.ClerkDeletedData
	if err := json.Unmarshal(data, &deleted); err != nil {
		return fmt.Errorf("failed to unmarshal deleted user: %w", err)
	}
	if deleted.ID == "" {
		return nil
	}

	if err := h.playerService.DeletePlayer(ctx, deleted.ID); err != nil {
		return fmt.Errorf("failed to delete player: %w", err)
	}
	log.Printf("Deleted player %s", deleted.ID)
	return nil
}
