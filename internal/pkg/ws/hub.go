package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// Message 推送给前端的消息信封
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Client 一条已认证的 WebSocket 连接
type Client struct {
	UserID int64
	Conn   *websocket.Conn

	writeMu sync.Mutex
}

// send 序列化并写入，gorilla 的 WriteMessage 不允许并发调用
func (c *Client) send(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.Conn.WriteMessage(websocket.TextMessage, payload)
}

// Hub 按用户维护在线连接。同一用户允许多条连接（多标签页、重连窗口期）。
type Hub struct {
	mu    sync.RWMutex
	users map[int64][]*Client
}

func NewHub() *Hub {
	return &Hub{users: make(map[int64][]*Client)}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.users[client.UserID] = append(h.users[client.UserID], client)
	n := len(h.users[client.UserID])
	h.mu.Unlock()

	log.Printf("User %d connected, user_conns: %d", client.UserID, n)
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	conns := h.users[client.UserID]
	for i, c := range conns {
		if c == client {
			conns = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(conns) == 0 {
		delete(h.users, client.UserID)
	} else {
		h.users[client.UserID] = conns
	}
	h.mu.Unlock()

	log.Printf("User %d disconnected", client.UserID)
}

// SendToUser 向该用户的所有在线连接推送一条消息。
// 用户不在线不算错误；单条连接写失败只记日志，由读循环负责摘除。
func (h *Hub) SendToUser(userID int64, msg *Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	h.mu.RLock()
	conns := append([]*Client(nil), h.users[userID]...)
	h.mu.RUnlock()

	for _, c := range conns {
		if err := c.send(payload); err != nil {
			log.Printf("Failed to push to user %d: %v", userID, err)
		}
	}
	return nil
}

func (h *Hub) IsOnline(userID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID]) > 0
}

func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, conns := range h.users {
		n += len(conns)
	}
	return n
}
