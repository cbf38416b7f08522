package progress

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// 진행 이벤트 타입
const (
	EventDebited     = "debited"
	EventComposited  = "composited"
	EventPromptReady = "prompt_ready"
	EventSubmitted   = "submitted"
	EventGenerated   = "generated"
	EventFaceSwapped = "face_swapped"
	EventCompleted   = "completed"
	EventFailed      = "failed"
)

// Event - 클라이언트로 push 되는 파이프라인 진행 상황
type Event struct {
	Type          string    `json:"type"`
	RunID         string    `json:"runId"`
	UserID        string    `json:"userId"`
	Message       string    `json:"message,omitempty"`
	ImageURL      string    `json:"imageUrl,omitempty"`
	JobID         string    `json:"jobId,omitempty"`
	CurrentCredit *int      `json:"currentCredit,omitempty"`
	Error         string    `json:"error,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// client - 연결된 websocket 클라이언트
type client struct {
	conn   *websocket.Conn
	userID string
	send   chan []byte
}

// session - 한 사용자의 연결들 (여러 기기 가능)
type session struct {
	userID    string
	clients   map[*client]struct{}
	mutex     sync.Mutex
	createdAt time.Time
}

// Metrics - 허브 메트릭
type Metrics struct {
	TotalConnections int       `json:"totalConnections"`
	ActiveSessions   int       `json:"activeSessions"`
	EventsPublished  int       `json:"eventsPublished"`
	EventsDropped    int       `json:"eventsDropped"`
	StartTime        time.Time `json:"startTime"`
}

// Hub - userId 별 진행 상황 브로드캐스트
type Hub struct {
	sessions map[string]*session
	mutex    sync.RWMutex
	upgrader websocket.Upgrader

	metrics      Metrics
	metricsMutex sync.Mutex
}

// NewHub - allowedOrigins 가 비었거나 "*" 를 포함하면 모든 origin 허용
func NewHub(allowedOrigins []string) *Hub {
	h := &Hub{
		sessions: make(map[string]*session),
		metrics:  Metrics{StartTime: time.Now()},
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	allowAll := len(allowed) == 0
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			allowAll = true
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		if allowAll {
			return true
		}
		origin := r.Header.Get("Origin")
		// 모바일 앱은 Origin 헤더를 보내지 않음
		return origin == "" || set[origin]
	}
}

// Publish - 사용자의 모든 연결에 이벤트 전송 (연결이 없으면 무시)
func (h *Hub) Publish(userID string, event Event) {
	if h == nil || userID == "" {
		return
	}
	h.mutex.RLock()
	s, ok := h.sessions[userID]
	h.mutex.RUnlock()
	if !ok {
		return
	}

	if event.UserID == "" {
		event.UserID = userID
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("❌ [Progress] Error marshaling event: %v", err)
		return
	}

	sent, dropped := 0, 0
	s.mutex.Lock()
	for c := range s.clients {
		select {
		case c.send <- payload:
			sent++
		default:
			// 느린 클라이언트는 끊음
			close(c.send)
			delete(s.clients, c)
			dropped++
		}
	}
	s.mutex.Unlock()

	h.metricsMutex.Lock()
	h.metrics.EventsPublished += sent
	h.metrics.EventsDropped += dropped
	h.metricsMutex.Unlock()

	log.Printf("📤 [Progress] %s -> user %s (%d clients)", event.Type, userID, sent)
}

// ClientCount - 사용자의 연결 수
func (h *Hub) ClientCount(userID string) int {
	h.mutex.RLock()
	s, ok := h.sessions[userID]
	h.mutex.RUnlock()
	if !ok {
		return 0
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.clients)
}

// Snapshot - 메트릭 복사본
func (h *Hub) Snapshot() Metrics {
	h.mutex.RLock()
	active := len(h.sessions)
	h.mutex.RUnlock()

	h.metricsMutex.Lock()
	defer h.metricsMutex.Unlock()
	m := h.metrics
	m.ActiveSessions = active
	return m
}

func (h *Hub) addClient(c *client) {
	h.mutex.Lock()
	s, ok := h.sessions[c.userID]
	if !ok {
		s = &session{userID: c.userID, clients: make(map[*client]struct{}), createdAt: time.Now()}
		h.sessions[c.userID] = s
	}
	s.mutex.Lock()
	s.clients[c] = struct{}{}
	count := len(s.clients)
	s.mutex.Unlock()
	h.mutex.Unlock()

	h.metricsMutex.Lock()
	h.metrics.TotalConnections++
	h.metricsMutex.Unlock()

	log.Printf("👤 [Progress] Client joined for user %s (connections: %d)", c.userID, count)
}

func (h *Hub) removeClient(c *client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	s, ok := h.sessions[c.userID]
	if !ok {
		return
	}
	s.mutex.Lock()
	if _, exists := s.clients[c]; exists {
		close(c.send)
		delete(s.clients, c)
	}
	remaining := len(s.clients)
	s.mutex.Unlock()

	if remaining == 0 {
		delete(h.sessions, c.userID)
		log.Printf("🗑️  [Progress] Session for user %s is now empty, cleaned up", c.userID)
	} else {
		log.Printf("👋 [Progress] Client left user %s (remaining: %d)", c.userID, remaining)
	}
}

// serve - websocket 업그레이드 후 읽기/쓰기 고루틴 시작
func (h *Hub) serve(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("❌ [Progress] WebSocket upgrade failed: %v", err)
		return
	}

	c := &client{
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, 64),
	}
	h.addClient(c)

	go c.writePump()
	go c.readPump(h)
}

// readPump - 클라이언트 메시지는 무시하고 종료만 감지
func (c *client) readPump(h *Hub) {
	defer func() {
		h.removeClient(c)
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("⚠️  [Progress] WebSocket error: %v", err)
			}
			return
		}
	}
}

// writePump - send 채널을 websocket 으로 전달
func (c *client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			log.Printf("⚠️  [Progress] WebSocket write error: %v", err)
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
