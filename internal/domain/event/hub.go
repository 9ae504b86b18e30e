package event

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// eventsChannel is the Redis Pub/Sub channel shared by all instances
const eventsChannel = "connections:events"

// envelope is the wire format published to Redis
type envelope struct {
	Target  string          `json:"target"`
	Payload json.RawMessage `json:"payload"`
}

// Client represents one WebSocket connection of a user
type Client struct {
	Username string
	Conn     *websocket.Conn
	Send     chan []byte
}

// Hub fans connection events out to the WebSocket clients of a user.
// With a Redis client it bridges instances over Pub/Sub; without one it
// delivers to local clients only.
type Hub struct {
	clients map[string]map[*Client]bool
	mu      sync.RWMutex

	redis  *redis.Client
	pubsub *redis.PubSub

	register   chan *Client
	unregister chan *Client

	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub creates a new event hub
func NewHub(redisClient *redis.Client) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	h := &Hub{
		clients:    make(map[string]map[*Client]bool),
		redis:      redisClient,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
	}

	if redisClient != nil {
		h.pubsub = redisClient.Subscribe(ctx, eventsChannel)
	}

	return h
}

// Run processes registrations and inbound Pub/Sub messages until Stop
func (h *Hub) Run() {
	var messages <-chan *redis.Message
	if h.pubsub != nil {
		messages = h.pubsub.Channel()
	}

	for {
		select {
		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case msg, ok := <-messages:
			if !ok {
				messages = nil
				continue
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				log.Warn().Err(err).Msg("Malformed event envelope")
				continue
			}
			h.deliverLocal(env.Target, env.Payload)

		case <-h.ctx.Done():
			return
		}
	}
}

// Stop shuts the hub down
func (h *Hub) Stop() {
	h.cancel()
	if h.pubsub != nil {
		h.pubsub.Close()
	}
}

// Register attaches a client to the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister detaches a client from the hub
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Publish sends an event to every client of the target user, on every
// instance when Redis is configured.
func (h *Hub) Publish(target string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("target", target).Msg("Failed to marshal event")
		return
	}

	if h.redis == nil {
		h.deliverLocal(target, data)
		return
	}

	env, err := json.Marshal(envelope{Target: target, Payload: data})
	if err != nil {
		return
	}
	if err := h.redis.Publish(context.Background(), eventsChannel, env).Err(); err != nil {
		log.Warn().Err(err).Str("target", target).Msg("Failed to publish event, delivering locally")
		h.deliverLocal(target, data)
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.Username] == nil {
		h.clients[client.Username] = make(map[*Client]bool)
	}
	h.clients[client.Username][client] = true

	log.Debug().Str("username", client.Username).Msg("WebSocket client registered")
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if set, ok := h.clients[client.Username]; ok {
		if set[client] {
			delete(set, client)
			close(client.Send)
		}
		if len(set) == 0 {
			delete(h.clients, client.Username)
		}
	}
}

func (h *Hub) deliverLocal(target string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[target] {
		select {
		case client.Send <- data:
		default:
			// Slow consumer, drop the event rather than block the hub
			log.Warn().Str("username", target).Msg("Dropping event for slow WebSocket client")
		}
	}
}
