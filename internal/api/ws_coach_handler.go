package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"fitagent/internal/coaching"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WebSocket connection wrapper with mutex for thread-safe writes
type safeWSConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *safeWSConn) WriteJSON(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

func (s *safeWSConn) ReadMessage() (int, []byte, error) {
	return s.conn.ReadMessage()
}

func (s *safeWSConn) Close() error {
	return s.conn.Close()
}

// WSCoachRequest is one coaching message on the live session
type WSCoachRequest struct {
	UserID         string `json:"user_id"`
	Query          string `json:"query"`
	ConversationID string `json:"conversation_id"`
}

// WSCoachHandler runs a live coaching session. Each message gets a full
// coaching response; the conversation id in the first reply lets the client
// keep the thread going.
func WSCoachHandler(engine *coaching.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawConn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Println("WebSocket upgrade failed:", err)
			return
		}
		conn := &safeWSConn{conn: rawConn}
		defer conn.Close()

		sessionID := uuid.NewString()
		conn.WriteJSON(map[string]string{"session_id": sessionID})

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var req WSCoachRequest
			if err := json.Unmarshal(msg, &req); err != nil {
				conn.WriteJSON(map[string]string{"error": "invalid JSON"})
				continue
			}
			if req.UserID == "" || req.Query == "" {
				conn.WriteJSON(map[string]string{"error": "user_id and query are required"})
				continue
			}

			resp, err := engine.PersonalizedResponse(c.Request.Context(), req.UserID, req.Query, req.ConversationID)
			if err != nil {
				log.Printf("[WSCoach] session %s request failed: %v", sessionID, err)
				conn.WriteJSON(map[string]string{"error": "coaching request failed"})
				continue
			}
			if err := conn.WriteJSON(resp); err != nil {
				return
			}
		}
	}
}
