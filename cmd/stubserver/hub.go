package main

// Feed fan-out for connected subscribers. One goroutine owns the
// client map; everything reaches it through the inbox channel.

type hubMsg interface{ isHubMsg() }

type join struct {
	Outbox chan []byte
	Reply  chan int
}

type leave struct{ ID int }

type broadcast struct{ Payload []byte }

type shutdown struct{}

func (join) isHubMsg()      {}
func (leave) isHubMsg()     {}
func (broadcast) isHubMsg() {}
func (shutdown) isHubMsg()  {}

type feedHub struct {
	inbox   chan hubMsg
	clients map[int]chan []byte
	nextID  int
}

func newFeedHub() *feedHub {
	h := &feedHub{
		inbox:   make(chan hubMsg, 64),
		clients: make(map[int]chan []byte),
	}
	go h.loop()
	return h
}

func (h *feedHub) Inbox() chan<- hubMsg { return h.inbox }

func (h *feedHub) loop() {
	for m := range h.inbox {
		switch msg := m.(type) {
		case join:
			id := h.nextID
			h.nextID++
			h.clients[id] = msg.Outbox
			msg.Reply <- id

		case leave:
			if ch, ok := h.clients[msg.ID]; ok {
				close(ch)
				delete(h.clients, msg.ID)
			}

		case broadcast:
			for id, ch := range h.clients {
				select {
				case ch <- msg.Payload:
					// ok
				default:
					// Client is slow/full - drop them.
					close(ch)
					delete(h.clients, id)
				}
			}

		case shutdown:
			for id, ch := range h.clients {
				close(ch)
				delete(h.clients, id)
			}
			return
		}
	}
}
