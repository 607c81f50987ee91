package handlers

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gearbox-dev/gearbox/internal/types"
	"github.com/gearbox-dev/gearbox/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var (
	feedClients   = make(map[uint]map[*websocket.Conn]bool)
	feedClientsMu sync.RWMutex
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// BroadcastFeed tells every open feed socket for the user that new
// in-app notifications are available. The dispatcher calls this after
// writing an in-app log row.
func BroadcastFeed(userID uint) {
	feedClientsMu.RLock()
	clients, exists := feedClients[userID]
	if !exists || len(clients) == 0 {
		feedClientsMu.RUnlock()
		return
	}

	clientsCopy := make([]*websocket.Conn, 0, len(clients))
	for conn := range clients {
		clientsCopy = append(clientsCopy, conn)
	}
	feedClientsMu.RUnlock()

	for _, conn := range clientsCopy {
		if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			log.Printf("Failed to set write deadline for feed broadcast: %v", err)
			continue
		}

		err := conn.WriteJSON(map[string]string{
			"type":    "refresh",
			"message": "New notifications available",
		})

		if err != nil {
			log.Printf("Failed to broadcast feed refresh: %v", err)
			feedClientsMu.Lock()
			if clients, exists := feedClients[userID]; exists {
				delete(clients, conn)
				if len(clients) == 0 {
					delete(feedClients, userID)
				}
			}
			feedClientsMu.Unlock()
			conn.Close()
		}
	}
}

// NotificationFeed upgrades the connection and keeps it registered to
// the authenticated user's feed until it closes.
func NotificationFeed(c *gin.Context) {
	userID, err := utils.GetCurrentUserID(c)

	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			for _, allowed := range types.AllowedOrigins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Printf("Failed to set initial read deadline: %v", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			log.Printf("Failed to set read deadline in pong handler: %v", err)
		}
		return nil
	})

	feedClientsMu.Lock()
	if feedClients[userID] == nil {
		feedClients[userID] = make(map[*websocket.Conn]bool)
	}
	feedClients[userID][conn] = true
	feedClientsMu.Unlock()

	defer func() {
		feedClientsMu.Lock()

		if clients, exists := feedClients[userID]; exists {
			delete(clients, conn)

			if len(clients) == 0 {
				delete(feedClients, userID)
			}
		}

		feedClientsMu.Unlock()
		conn.Close()

		log.Printf("Feed connection closed for user %d", userID)
	}()

	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		log.Printf("Failed to set write deadline for welcome message: %v", err)
		return
	}

	err = conn.WriteJSON(map[string]string{
		"type":    "connected",
		"message": "Notification feed connected",
	})

	if err != nil {
		log.Printf("Failed to send welcome message: %v", err)
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	go func() {
		for range ticker.C {
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Printf("Failed to set write deadline for user %d: %v", userID, err)
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("Ping failed for user %d: %v", userID, err)
				return
			}
		}
	}()

	for {
		if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			log.Printf("Failed to set read deadline for user %d: %v", userID, err)
			break
		}

		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("Feed socket error for user %d: %v", userID, err)
			}
			break
		}
	}
}
