package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"darkQuestsAPI/internal/quest"
	"darkQuestsAPI/middleware"
	"darkQuestsAPI/services"
)

type QuestHandler struct {
	questService  *services.QuestService
	playerService *services.PlayerService
}

func NewQuestHandler(questService *services.QuestService, playerService *services.PlayerService) *QuestHandler {
	return &QuestHandler{
		questService:  questService,
		playerService: playerService,
	}
}

// GET /api/v1/quests
func (h *QuestHandler) ListQuests(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	questLog, err := h.questService.ListQuests(ctx, clerkID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, questLog)
}

// POST /api/v1/quests
func (h *QuestHandler) AddQuest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req quest.CreateQuestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if _, err := h.playerService.EnsurePlayer(ctx, clerkID); err != nil {
		respondWithServiceError(w, err)
		return
	}

	q, err := h.questService.AddQuest(ctx, clerkID, &req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, q)
}

// POST /api/v1/quests/{id}/complete
func (h *QuestHandler) CompleteQuest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	questID, ok := pathUUID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid quest ID")
		return
	}

	outcome, err := h.questService.CompleteQuest(ctx, clerkID, questID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, outcome)
}

// DELETE /api/v1/quests/{id}
func (h *QuestHandler) DeleteQuest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	questID, ok := pathUUID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid quest ID")
		return
	}

	if err := h.questService.DeleteQuest(ctx, clerkID, questID); err != nil {
		respondWithServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
