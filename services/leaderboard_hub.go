// LeaderboardHub pushes the top-N leaderboard to every connected websocket
// client. Connections go through the register/unregister channels and are
// only touched inside Run. Refresh requests are coalesced: a burst of stat
// changes produces a single rebuild.
package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Clients only send control frames.
	maxMessageSize = 512

	clientSendBuffer = 8
)

type LeaderboardHub struct {
	leaderboard *LeaderboardService
	clients     map[*LeaderboardClient]bool
	register    chan *LeaderboardClient
	unregister  chan *LeaderboardClient
	refresh     chan struct{}
	done        chan struct{}
}

func NewLeaderboardHub(leaderboard *LeaderboardService) *LeaderboardHub {
	return &LeaderboardHub{
		leaderboard: leaderboard,
		clients:     make(map[*LeaderboardClient]bool),
		register:    make(chan *LeaderboardClient),
		unregister:  make(chan *LeaderboardClient),
		refresh:     make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
}

// Run owns the client set until ctx is cancelled.
func (h *LeaderboardHub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		for client := range h.clients {
			close(client.Send)
			delete(h.clients, client)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.clients[client] = true
			log.Printf("[Leaderboard] Client %s connected. Count: %d", client.UserID, len(h.clients))
			if data, err := h.snapshot(ctx); err == nil {
				h.send(client, data)
			}

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				log.Printf("[Leaderboard] Client %s disconnected. Count: %d", client.UserID, len(h.clients))
			}

		case <-h.refresh:
			if len(h.clients) == 0 {
				continue
			}
			data, err := h.snapshot(ctx)
			if err != nil {
				log.Printf("[Leaderboard] Failed to build update: %v", err)
				continue
			}
			for client := range h.clients {
				h.send(client, data)
			}
		}
	}
}

// Refresh schedules a broadcast of the current top entries. It never blocks.
func (h *LeaderboardHub) Refresh() {
	select {
	case h.refresh <- struct{}{}:
	default:
	}
}

func (h *LeaderboardHub) Register(client *LeaderboardClient) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.Send)
	}
}

func (h *LeaderboardHub) Unregister(client *LeaderboardClient) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// send drops clients whose buffer is full; they reconnect and get a fresh snapshot.
func (h *LeaderboardHub) send(client *LeaderboardClient, data []byte) {
	select {
	case client.Send <- data:
	default:
		close(client.Send)
		delete(h.clients, client)
	}
}

func (h *LeaderboardHub) snapshot(ctx context.Context) ([]byte, error) {
	board, err := h.leaderboard.Top(ctx)
	if err != nil {
		return nil, err
	}
	return json.Marshal(map[string]any{
		"action":      "leaderboard_update",
		"entries":     board.Entries,
		"total_users": board.TotalUsers,
	})
}

// LeaderboardClient sits between one websocket connection and the hub.
type LeaderboardClient struct {
	Hub    *LeaderboardHub
	Conn   *websocket.Conn
	Send   chan []byte
	UserID string
}

func NewLeaderboardClient(hub *LeaderboardHub, conn *websocket.Conn, userID string) *LeaderboardClient {
	return &LeaderboardClient{
		Hub:    hub,
		Conn:   conn,
		Send:   make(chan []byte, clientSendBuffer),
		UserID: userID,
	}
}

// ReadPump discards inbound frames and keeps the read deadline alive.
func (c *LeaderboardClient) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[Leaderboard] Read error for %s: %v", c.UserID, err)
			}
			return
		}
	}
}

// WritePump handles messages going to the frontend.
func (c *LeaderboardClient) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
