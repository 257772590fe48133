// cmd/push-gateway/main.go
package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"banquet/internal/pkg/bootstrap"
	"banquet/internal/pkg/redis"
	"banquet/internal/service/payment/domain"
	"banquet/internal/service/payment/infrastructure"
)

var (
	nodeID   = "push-gateway-" + uuid.New().String()[:8]
	upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool { // 简化处理，允许所有跨域
			return true
		},
	}
)

// Hub 维护所有活跃的连接，按订阅的订单号分发支付状态变更
type Hub struct {
	clients    map[string]map[*Client]struct{} // 以 OrderID 作为 Key
	register   chan *Client
	unregister chan *Client
	events     chan *domain.PaymentStateChanged
	lock       sync.RWMutex
}

func newHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan *domain.PaymentStateChanged, 64),
	}
}

func (h *Hub) run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.lock.Lock()
			if h.clients[client.orderID] == nil {
				h.clients[client.orderID] = make(map[*Client]struct{})
			}
			h.clients[client.orderID][client] = struct{}{}
			h.lock.Unlock()
			log.Printf("Client subscribed to order %s on node %s", client.orderID, nodeID)
		case client := <-h.unregister:
			h.lock.Lock()
			if set, ok := h.clients[client.orderID]; ok {
				if _, ok := set[client]; ok {
					delete(set, client)
					close(client.send)
					if len(set) == 0 {
						delete(h.clients, client.orderID)
					}
				}
			}
			h.lock.Unlock()
		case event := <-h.events:
			payload, err := json.Marshal(event)
			if err != nil {
				continue
			}
			h.lock.RLock()
			for client := range h.clients[event.OrderID] {
				select {
				case client.send <- payload:
				default:
					// 推不动的慢客户端直接放弃本条，不阻塞广播
				}
			}
			h.lock.RUnlock()
		case <-ctx.Done():
			return
		}
	}
}

// Client 是一个 WebSocket 连接的代表
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	orderID string
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetPongHandler(func(string) error { return nil })
	for {
		// 客户端不发业务消息，读循环只负责感知断开
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func serveWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	// 1. 从 URL 参数获取要订阅的订单号
	orderID := r.URL.Query().Get("orderId")
	if orderID == "" {
		http.Error(w, "orderId is required", http.StatusBadRequest)
		return
	}

	// 2. HTTP 升级为 WebSocket
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}

	// 3. 创建客户端实例并注册到 Hub
	client := &Client{hub: hub, conn: conn, send: make(chan []byte, 256), orderID: orderID}
	client.hub.register <- client

	// 4. 启动读写 goroutine
	go client.writePump()
	go client.readPump()
}

// subscribeEvents 订阅 Redis 上的支付状态变更频道并喂给 Hub。
func subscribeEvents(ctx context.Context, client *redis.Client, hub *Hub) error {
	pubsub := client.Subscribe(ctx, infrastructure.PaymentEventsChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var event domain.PaymentStateChanged
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Printf("ERROR: bad payment event payload: %v", err)
				continue
			}
			hub.events <- &event
		case <-ctx.Done():
			return nil
		}
	}
}

func main() {
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()

	redisAddr := cfg.Infra.Redis.Addr
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	client, err := redis.NewClient(context.Background(), redisAddr)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer client.Close()

	hub := newHub()
	g, ctx := errgroup.WithContext(context.Background())
	g.Go(func() error { hub.run(ctx); return nil })
	g.Go(func() error { return subscribeEvents(ctx, client, hub) })

	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveWs(hub, w, r)
	})
	http.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	g.Go(func() error {
		log.Printf("Push Gateway (%s) started on :8088", nodeID)
		return http.ListenAndServe(":8088", nil)
	})
	if err := g.Wait(); err != nil {
		log.Fatal("push gateway exited: ", err)
	}
}
