package websocket

import (
	"encoding/json"
	"log"
	"strconv"

	"github.com/ahmedmiske/tabaro-sub002/internal/apptypes"
)

// Hub maintains the set of connected clients and routes chat messages and
// notifications to them. One connection per user: a new connection replaces
// the old one.
type Hub struct {
	clients map[uint]*Client

	// broadcast carries frames for every connected client, used for
	// platform-wide announcements.
	broadcast chan []byte

	register   chan *Client
	unregister chan *Client

	// direct carries frames aimed at a single user.
	direct chan *apptypes.Message
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[uint]*Client),
		direct:     make(chan *apptypes.Message, 256),
	}
}

// DeliverDirectMessage hands a message to the hub for delivery to its
// receiver. The send is non-blocking so a full hub never stalls the Kafka
// consumer; an undeliverable frame is dropped, the receiver still has the
// persisted copy.
func (h *Hub) DeliverDirectMessage(msg *apptypes.Message) {
	select {
	case h.direct <- msg:
	default:
		log.Printf("hub direct channel full, dropping message for receiver %s", msg.ReceiverID)
	}
}

// Run starts the hub loop. It owns the clients map; all access goes through
// the channels.
func (h *Hub) Run() {
	log.Println("WebSocket hub started")
	for {
		select {
		case client := <-h.register:
			if existing, ok := h.clients[client.UserID]; ok {
				log.Printf("user %d reconnected, replacing previous connection", client.UserID)
				close(existing.send)
			}
			h.clients[client.UserID] = client
			log.Printf("client registered: user %d", client.UserID)

		case client := <-h.unregister:
			// Only drop the stored client if it is this exact connection;
			// a reconnect may already have replaced it.
			if stored, ok := h.clients[client.UserID]; ok && stored == client {
				delete(h.clients, client.UserID)
				close(client.send)
				log.Printf("client unregistered: user %d", client.UserID)
			}

		case frame := <-h.broadcast:
			for userID, client := range h.clients {
				select {
				case client.send <- frame:
				default:
					log.Printf("send buffer full for user %d, dropping client", userID)
					close(client.send)
					delete(h.clients, userID)
				}
			}

		case msg := <-h.direct:
			receiverID64, err := strconv.ParseUint(msg.ReceiverID, 10, 64)
			if err != nil {
				log.Printf("invalid receiver ID %q in direct message: %v", msg.ReceiverID, err)
				continue
			}
			client, ok := h.clients[uint(receiverID64)]
			if !ok {
				// Receiver not connected to this instance.
				continue
			}
			frame, err := json.Marshal(msg)
			if err != nil {
				log.Printf("failed to marshal direct message for user %d: %v", client.UserID, err)
				continue
			}
			select {
			case client.send <- frame:
			default:
				log.Printf("send buffer full for user %d, dropping client", client.UserID)
				close(client.send)
				delete(h.clients, client.UserID)
			}
		}
	}
}
