package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"darkQuestsAPI/middleware"
	"darkQuestsAPI/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type LeaderboardHandler struct {
	leaderboardService *services.LeaderboardService
	hub                *services.LeaderboardHub
}

func NewLeaderboardHandler(leaderboardService *services.LeaderboardService, hub *services.LeaderboardHub) *LeaderboardHandler {
	return &LeaderboardHandler{
		leaderboardService: leaderboardService,
		hub:                hub,
	}
}

// GET /api/v1/leaderboard
func (h *LeaderboardHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	board, err := h.leaderboardService.GetLeaderboard(ctx, clerkID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, board)
}

// GET /api/v1/leaderboard/ws - live top-N updates
func (h *LeaderboardHandler) Stream(w http.ResponseWriter, r *http.Request) {
	clerkID, ok := middleware.GetClerkID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Could not upgrade leaderboard connection: %v", err)
		return
	}

	client := services.NewLeaderboardClient(h.hub, conn, clerkID)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
