package server

import (
	"log"
	"net/http"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/TobiSchelling/joseph/internal/feasibility"
)

// wsRequest is the incoming WebSocket message format.
type wsRequest struct {
	Type    string `json:"type"` // "message" or "explain"
	Context string `json:"context"`
	Content string `json:"content"`
	Data    any    `json:"data,omitempty"`
}

// wsResponse is the outgoing WebSocket message format.
type wsResponse struct {
	Type     string `json:"type"` // "response", "narrative" or "error"
	Context  string `json:"context,omitempty"`
	ID       string `json:"id,omitempty"`
	Content  string `json:"content"`
	ReportID string `json:"reportId,omitempty"`
	Mode     string `json:"mode,omitempty"`
}

// client serializes writes to one connection.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(resp wsResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteJSON(resp); err != nil {
		log.Printf("websocket write: %v", err)
	}
}

// hub tracks connected clients for narrative broadcasts.
type hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
}

func newHub() *hub {
	return &hub{clients: make(map[*client]struct{})}
}

func (h *hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

func (h *hub) snapshot() []*client {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		out = append(out, c)
	}
	return out
}

// narrative pushes a freshly stored narrative to every client.
func (h *hub) narrative(reportID string, mode feasibility.Mode, text string) {
	resp := wsResponse{Type: "narrative", ReportID: reportID, Mode: string(mode), Content: text}
	for _, c := range h.snapshot() {
		c.send(resp)
	}
}

func (h *hub) closeAll() {
	for _, c := range h.snapshot() {
		c.conn.Close()
	}
}

func (s *Server) upgrader() websocket.Upgrader {
	u := websocket.Upgrader{}
	if s.cfg.AllowAllOrigins {
		u.CheckOrigin = func(r *http.Request) bool { return true }
	}
	return u
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	up := s.upgrader()
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade: %v", err)
		return
	}
	c := &client{conn: conn}
	s.hub.add(c)
	defer func() {
		s.hub.remove(c)
		conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("websocket read: %v", err)
			}
			return
		}

		var req wsRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			c.send(wsResponse{Type: "error", Content: "invalid message format"})
			continue
		}

		switch req.Type {
		case "message":
			reply, err := s.pipe.Assistant().Send(r.Context(), req.Context, req.Content)
			if err != nil {
				c.send(wsResponse{Type: "error", Context: req.Context, Content: err.Error()})
				continue
			}
			c.send(wsResponse{Type: "response", Context: reply.Context, ID: reply.ID, Content: reply.Content})
		case "explain":
			reply, err := s.pipe.Assistant().Explain(r.Context(), req.Context, req.Content, req.Data)
			if err != nil {
				c.send(wsResponse{Type: "error", Context: req.Context, Content: err.Error()})
				continue
			}
			c.send(wsResponse{Type: "response", Context: reply.Context, ID: reply.ID, Content: reply.Content})
		default:
			c.send(wsResponse{Type: "error", Context: req.Context, Content: "unknown message type: " + req.Type})
		}
	}
}
