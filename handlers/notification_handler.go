package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"darkQuestsAPI/internal/notification"
	"darkQuestsAPI/middleware"
	"darkQuestsAPI/services"
)

type NotificationHandler struct {
	notificationService *services.NotificationService
	playerService       *services.PlayerService
}

func NewNotificationHandler(notificationService *services.NotificationService, playerService *services.PlayerService) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		playerService:       playerService,
	}
}

// POST /api/v1/notifications/devices - register a push token
func (h *NotificationHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req notification.RegisterDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if _, err := h.playerService.EnsurePlayer(ctx, clerkID); err != nil {
		respondWithServiceError(w, err)
		return
	}

	device, err := h.notificationService.RegisterDevice(ctx, clerkID, &req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, device)
}
