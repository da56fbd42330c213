package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"darkQuestsAPI/internal/store"
	"darkQuestsAPI/services"
)

// AdminHandler manages the store catalogue. Routes are wrapped in
// middleware.RequireRole("admin").
type AdminHandler struct {
	storeService       *services.StoreService
	leaderboardService *services.LeaderboardService
}

func NewAdminHandler(storeService *services.StoreService, leaderboardService *services.LeaderboardService) *AdminHandler {
	return &AdminHandler{
		storeService:       storeService,
		leaderboardService: leaderboardService,
	}
}

// POST /api/v1/admin/store/items
func (h *AdminHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var req store.CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	item, err := h.storeService.CreateItem(ctx, &req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, item)
}

// PUT /api/v1/admin/store/items/{id}
func (h *AdminHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	itemID, ok := pathUUID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid item ID")
		return
	}

	var req store.UpdateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	item, err := h.storeService.UpdateItem(ctx, itemID, &req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	// Renamed titles show up on the leaderboard.
	h.invalidateLeaderboard(ctx)
	respondWithJSON(w, http.StatusOK, item)
}

// DELETE /api/v1/admin/store/items/{id}
func (h *AdminHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	itemID, ok := pathUUID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid item ID")
		return
	}

	if err := h.storeService.DeleteItem(ctx, itemID); err != nil {
		respondWithServiceError(w, err)
		return
	}

	h.invalidateLeaderboard(ctx)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) invalidateLeaderboard(ctx context.Context) {
	if h.leaderboardService == nil {
		return
	}
	if err := h.leaderboardService.Invalidate(ctx); err != nil {
		log.Printf("Failed to invalidate leaderboard after catalogue change: %v", err)
	}
}
