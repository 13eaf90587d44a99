package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	ws "github.com/coder/websocket"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
	writeTimeout   = 5 * time.Second
)

// MembershipChecker gates trip joins. Implemented by store.TripStore.
type MembershipChecker interface {
	IsMember(tripID, userID int64) (bool, error)
}

// joinFrame is the only message clients send: which trip to follow.
type joinFrame struct {
	TripID int64 `json:"trip_id"`
}

// Client is one live WebSocket session for one authenticated user.
type Client struct {
	hub     *Hub
	conn    *ws.Conn
	send    chan []byte
	userID  int64
	tripID  int64 // guarded by hub.mu; 0 means not joined
	members MembershipChecker
	logger  *slog.Logger
}

func NewClient(hub *Hub, conn *ws.Conn, userID int64, members MembershipChecker, logger *slog.Logger) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
		userID:  userID,
		members: members,
		logger:  logger,
	}
}

// Run registers the client, starts the write pump, and runs the read pump.
// It blocks until the connection closes, then unregisters, so a transport
// drop always removes the session from the registry without any explicit
// leave message from the client.
func (c *Client) Run(ctx context.Context) {
	c.hub.Register(c)
	defer c.hub.Unregister(c)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go c.writePump(ctx)
	c.readPump(ctx)
}

// readPump consumes join frames and discards anything else. It returns on
// read error (connection close), which triggers cleanup.
func (c *Client) readPump(ctx context.Context) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}

		var frame joinFrame
		if err := json.Unmarshal(data, &frame); err != nil || frame.TripID == 0 {
			continue
		}

		ok, err := c.members.IsMember(frame.TripID, c.userID)
		if err != nil {
			c.logger.Error("membership check", "trip_id", frame.TripID, "user_id", c.userID, "error", err)
			continue
		}
		if !ok {
			c.logger.Warn("join rejected", "trip_id", frame.TripID, "user_id", c.userID)
			continue
		}

		c.hub.Join(c, frame.TripID)
	}
}

// writePump drains the send channel to the socket and sends periodic pings
// to detect stale connections. Any write or ping failure ends the session;
// events are never retried.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				// Hub closed the channel
				return
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Write(wctx, ws.MessageText, msg)
			cancel()
			if err != nil {
				c.conn.Close(ws.StatusAbnormalClosure, "write failed")
				return
			}
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				c.conn.Close(ws.StatusAbnormalClosure, "ping failed")
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
