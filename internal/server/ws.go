package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/henryhwan14/DISCORDBOT/internal/market"
	"github.com/henryhwan14/DISCORDBOT/internal/metrics"
	"github.com/henryhwan14/DISCORDBOT/internal/model"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
	wsSendBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsEnvelope is one message on the quote stream: a full snapshot on
// connect, then one update per feed tick.
type wsEnvelope struct {
	Type string        `json:"type"`
	Data []model.Quote `json:"data"`
}

func envelope(typ string, quotes []model.Quote) []byte {
	msg, _ := json.Marshal(wsEnvelope{Type: typ, Data: quotes})
	return msg
}

// wsClient represents a single WebSocket peer.
type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	sub  *market.Subscription
	srv  *Server
}

// handleQuotesWS upgrades the connection and streams quote batches. The
// feed subscription is taken before the snapshot so no tick between the
// two is lost; the first update may therefore repeat the snapshot state.
func (s *Server) handleQuotesWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &wsClient{
		conn: conn,
		send: make(chan []byte, wsSendBuffer),
		sub:  s.feed.Subscribe(),
		srv:  s,
	}
	s.addClient(client)

	client.enqueue(envelope("snapshot", s.feed.Quotes()))

	go client.writePump()
	go client.forwardQuotes()
	go client.readPump()
}

// enqueue hands a message to the write pump, dropping it if the client
// cannot keep up. The stream stays live because every update carries the
// full current quote for each symbol. The registration check happens under
// the same lock removeClient closes the channel under, so enqueue can
// never write to a closed channel.
func (c *wsClient) enqueue(msg []byte) {
	c.srv.wsMu.RLock()
	defer c.srv.wsMu.RUnlock()
	if !c.srv.wsClients[c] {
		return
	}
	select {
	case c.send <- msg:
	default:
		c.srv.metrics.DroppedBatches.WithLabelValues(metrics.ConsumerWSClient).Inc()
	}
}

// forwardQuotes turns feed batches into update envelopes. It ends when
// the subscription channel closes, either because the client went away or
// because the feed stopped.
func (c *wsClient) forwardQuotes() {
	for batch := range c.sub.C {
		c.enqueue(envelope("update", batch))
	}
	c.srv.removeClient(c)
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains the connection so control frames are processed. Peers
// send nothing meaningful on this stream; any read error means they left.
func (c *wsClient) readPump() {
	defer func() {
		c.srv.removeClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (s *Server) addClient(c *wsClient) {
	s.wsMu.Lock()
	s.wsClients[c] = true
	count := len(s.wsClients)
	s.wsMu.Unlock()

	s.metrics.WSClients.Inc()
	s.log.Info().Int("clients", count).Msg("websocket client connected")
}

// removeClient unregisters a client and closes its send channel. Both the
// read pump and the quote forwarder call it, so it must be idempotent.
func (s *Server) removeClient(c *wsClient) {
	s.wsMu.Lock()
	_, registered := s.wsClients[c]
	if registered {
		delete(s.wsClients, c)
		close(c.send)
	}
	count := len(s.wsClients)
	s.wsMu.Unlock()

	if !registered {
		return
	}

	s.feed.Unsubscribe(c.sub)
	s.metrics.WSClients.Dec()
	s.log.Info().Int("clients", count).Msg("websocket client disconnected")
}

// clientCount returns the number of connected WS clients.
func (s *Server) clientCount() int {
	s.wsMu.RLock()
	defer s.wsMu.RUnlock()
	return len(s.wsClients)
}
