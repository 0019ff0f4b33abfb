// internal/handlers/room_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/heartboard/server/internal/game"
	"github.com/heartboard/server/internal/middleware"
	"github.com/heartboard/server/internal/room"
	"github.com/sirupsen/logrus"
)

// Subprotocol is the WebSocket subprotocol clients must request.
const Subprotocol = "heartboard"

const (
	pingInterval = 30 * time.Second
	writeTimeout = 5 * time.Second
	readLimit    = 32 << 10
)

// Client-facing messages for errors raised before the engine sees an action.
const (
	msgInvalidJSON     = "Invalid JSON format"
	msgInvalidRoomCode = "Invalid room code"
	msgUnknownType     = "Unknown message type"
	msgTileRequired    = "Tile is required"
	msgInternal        = "Internal server error"
)

// inbound is a client message. Type is one of the engine action names.
type inbound struct {
	Type         string `json:"type"`
	RoomCode     string `json:"roomCode"`
	TileID       *int   `json:"tileId"`
	HeartID      string `json:"heartId"`
	CardID       string `json:"cardId"`
	TargetTileID *int   `json:"targetTileId"`
}

// RoomWSHandler upgrades to a room socket. One socket can be in one room at a time.
func (s *Server) RoomWSHandler(w http.ResponseWriter, r *http.Request) {
	id, err := s.EnsureIdentity(w, r)
	if err != nil {
		s.logger.WithError(err).Warn("identity resolution failed")
		http.Error(w, "authentication failed", http.StatusUnauthorized)
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{Subprotocol},
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.Warnf("websocket accept error: %v", err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "handler finished")

	if c.Subprotocol() != Subprotocol {
		c.Close(BadSubprotocolError, "client must speak the heartboard subprotocol")
		return
	}
	c.SetReadLimit(readLimit)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	conn := newConnection(id, cancel)

	middleware.LogWebSocketConnect(s.logger, r.RemoteAddr, r.URL.Path)
	go s.writePump(ctx, c, conn)
	err = s.readPump(ctx, c, conn)

	s.drop(conn)
	middleware.LogWebSocketDisconnect(s.logger, r.RemoteAddr, r.URL.Path, err)
	if ctx.Err() != nil && r.Context().Err() == nil {
		c.Close(SlowConsumerError, "too slow")
		return
	}
	c.Close(websocket.StatusNormalClosure, "")
}

func (s *Server) readPump(ctx context.Context, c *websocket.Conn, conn *Connection) error {
	log := s.logger.WithField("user", conn.ID.UserID)
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			log.Warnf("ignoring non-text message type %d", typ)
			continue
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			s.hub.Deliver([]room.Event{room.ErrorEvent("", msgInvalidJSON)}, conn)
			continue
		}
		s.handle(conn, msg)
	}
}

func (s *Server) writePump(ctx context.Context, c *websocket.Conn, conn *Connection) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-conn.OutChan:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				s.logger.WithField("user", conn.ID.UserID).Debugf("write failed: %v", err)
				conn.cancel()
				return
			}
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.Ping(pctx)
			cancel()
			if err != nil {
				conn.cancel()
				return
			}
		}
	}
}

// handle runs one client message and delivers the outcome.
func (s *Server) handle(conn *Connection, msg inbound) {
	events, err := s.dispatch(conn, msg)
	if err != nil {
		s.hub.Deliver([]room.Event{room.ErrorEvent(msg.RoomCode, s.errorMessage(conn, msg, err))}, conn)
		return
	}

	code, _ := game.NormalizeRoomCode(msg.RoomCode)
	switch msg.Type {
	case room.ActionJoin:
		if prev := conn.Room(); prev != "" && prev != code {
			s.leaveQuietly(conn, prev)
		}
		s.hub.Join(code, conn)
		s.hub.Deliver(events, conn)
	case room.ActionLeave:
		s.hub.Deliver(events, conn)
		s.hub.Leave(code, conn)
	default:
		s.hub.Deliver(events, conn)
	}
}

func (s *Server) dispatch(conn *Connection, msg inbound) ([]room.Event, error) {
	e := s.Engine
	uid := conn.ID.UserID
	code := msg.RoomCode
	switch msg.Type {
	case room.ActionJoin:
		return e.JoinRoom(code, conn.ID)
	case room.ActionLeave:
		return e.LeaveRoom(code, uid)
	case room.ActionReady:
		return e.PlayerReady(code, uid)
	case room.ActionDrawHeart:
		return e.DrawHeart(code, uid)
	case room.ActionDrawMagic:
		return e.DrawMagicCard(code, uid)
	case room.ActionPlace:
		if msg.TileID == nil {
			return nil, game.NewActionError(msgTileRequired)
		}
		return e.PlaceHeart(code, uid, *msg.TileID, msg.HeartID)
	case room.ActionUseMagic:
		return e.UseMagicCard(code, uid, msg.CardID, msg.TargetTileID)
	case room.ActionEndTurn:
		return e.EndTurn(code, uid)
	case room.ActionShuffle:
		return e.ShuffleTiles(code, uid)
	default:
		return nil, game.NewActionError(msgUnknownType)
	}
}

// errorMessage maps an engine error to the text shown to the player.
func (s *Server) errorMessage(conn *Connection, msg inbound, err error) string {
	var ae *game.ActionError
	switch {
	case errors.As(err, &ae):
		return ae.Message
	case errors.Is(err, game.ErrInvalidRoomCode):
		return msgInvalidRoomCode
	case errors.Is(err, room.ErrRoomNotFound):
		return game.MsgRoomNotFound
	}
	s.logger.WithFields(logrus.Fields{
		"room":   msg.RoomCode,
		"user":   conn.ID.UserID,
		"action": msg.Type,
	}).WithError(err).Error("action failed")
	return msgInternal
}

// leaveQuietly removes conn's player from code when it switches rooms.
func (s *Server) leaveQuietly(conn *Connection, code string) {
	s.hub.Leave(code, conn)
	if s.hub.Connected(code, conn.ID.UserID, nil) {
		return
	}
	events, err := s.Engine.LeaveRoom(code, conn.ID.UserID)
	if err != nil {
		s.logger.WithField("room", code).WithError(err).Debug("leave on room switch failed")
		return
	}
	s.hub.Deliver(events, nil)
}

// drop handles a closed socket. The player stays seated while another socket of the same
// user is still in the room.
func (s *Server) drop(conn *Connection) {
	code := conn.Room()
	if code == "" {
		return
	}
	s.hub.Leave(code, conn)
	if s.hub.Connected(code, conn.ID.UserID, nil) {
		return
	}
	events, err := s.Engine.Disconnect(code, conn.ID.UserID)
	if err != nil {
		s.logger.WithFields(logrus.Fields{"room": code, "user": conn.ID.UserID}).WithError(err).Debug("disconnect cleanup failed")
		return
	}
	s.hub.Deliver(events, nil)
}
