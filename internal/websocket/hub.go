package websocket

import (
	"context"
	"sort"
)

// Hub owns every room. All room state is touched only by Run.
type Hub struct {
	rooms      map[string]*Room
	register   chan *WSClient
	unregister chan *WSClient
	broadcast  chan *WSMessage
	snapshot   chan chan []RoomRes
	done       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]*Room),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
		broadcast:  make(chan *WSMessage),
		snapshot:   make(chan chan []RoomRes),
		done:       make(chan struct{}),
	}
}

// Run processes hub events until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for _, room := range h.rooms {
				for id, client := range room.Clients {
					delete(room.Clients, id)
					close(client.Message)
					decConnections()
				}
			}
			h.rooms = make(map[string]*Room)
			setRooms(0)
			return

		case client := <-h.register:
			room, ok := h.rooms[client.RoomID]
			if !ok {
				room = &Room{ID: client.RoomID, Clients: make(map[string]*WSClient)}
				h.rooms[client.RoomID] = room
				setRooms(len(h.rooms))
			}
			room.Clients[client.ID] = client
			incConnections()

		case client := <-h.unregister:
			room, ok := h.rooms[client.RoomID]
			if !ok {
				continue
			}
			if _, ok := room.Clients[client.ID]; ok {
				delete(room.Clients, client.ID)
				close(client.Message)
				decConnections()
			}
			h.dropIfEmpty(room)

		case message := <-h.broadcast:
			room, ok := h.rooms[message.RoomID]
			if !ok {
				continue
			}
			delivered := 0
			for _, client := range room.Clients {
				select {
				case client.Message <- message:
					delivered++
				default:
					close(client.Message)
					delete(room.Clients, client.ID)
					decConnections()
				}
			}
			if delivered > 0 {
				addDelivered(delivered)
			}
			h.dropIfEmpty(room)

		case reply := <-h.snapshot:
			rooms := make([]RoomRes, 0, len(h.rooms))
			for _, room := range h.rooms {
				rooms = append(rooms, RoomRes{
					ID:       room.ID,
					TenantID: tenantFromChannel(room.ID),
					Clients:  len(room.Clients),
				})
			}
			sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })
			reply <- rooms
		}
	}
}

func (h *Hub) dropIfEmpty(room *Room) {
	if len(room.Clients) > 0 {
		return
	}
	delete(h.rooms, room.ID)
	setRooms(len(h.rooms))
}

// Register adds client to its room. It reports false once the hub has stopped.
func (h *Hub) Register(client *WSClient) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(client *WSClient) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) Broadcast(message *WSMessage) {
	select {
	case h.broadcast <- message:
	case <-h.done:
	}
}

// Rooms returns the active rooms ordered by ID.
func (h *Hub) Rooms() []RoomRes {
	reply := make(chan []RoomRes, 1)
	select {
	case h.snapshot <- reply:
		return <-reply
	case <-h.done:
		return []RoomRes{}
	}
}
