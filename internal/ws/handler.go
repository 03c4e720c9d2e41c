package ws

import (
	"context"
	"net/http"
	"os"
	"strconv"

	"ton_miner/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// AccountChecker confirms the account exists before a socket is opened.
type AccountChecker func(ctx context.Context, userID int64) error

func HandleWS(hub *Hub, exists AccountChecker) gin.HandlerFunc {
	allowedOrigin := os.Getenv("ALLOWED_ORIGIN")
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if allowedOrigin == "" {
				return true
			}
			return r.Header.Get("Origin") == allowedOrigin
		},
	}

	return func(c *gin.Context) {
		userID, err := strconv.ParseInt(c.Query("userId"), 10, 64)
		if err != nil || userID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "userId required"})
			return
		}
		if exists != nil {
			if err := exists(c.Request.Context(), userID); err != nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
				return
			}
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("ws upgrade error", "error", err)
			return
		}

		client := NewClient(userID, conn, hub)
		go client.Run()
	}
}
