package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dirkdd/onevice/pkg/model"
	"github.com/dirkdd/onevice/pkg/stream"
	"github.com/dirkdd/onevice/pkg/supervisor"
	"github.com/dirkdd/onevice/pkg/utils/logging"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/m-mizutani/goerr/v2"
)

const writeTimeout = 10 * time.Second

// conn owns one websocket for its whole lifetime. All writes go through
// Send under the write lock, so frames for one episode reach the client
// in the order the streaming manager produced them.
type conn struct {
	ws     *websocket.Conn
	claims *model.AuthClaims
	sup    *supervisor.Supervisor

	sessionID string

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func newConn(ws *websocket.Conn, claims *model.AuthClaims, sup *supervisor.Supervisor) *conn {
	return &conn{
		ws:        ws,
		claims:    claims,
		sup:       sup,
		sessionID: uuid.New().String(),
	}
}

// Send implements stream.Transport.
func (c *conn) Send(ctx context.Context, msg any) error {
	if err := ctx.Err(); err != nil {
		return goerr.Wrap(err, "connection context done")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.ws.WriteJSON(msg); err != nil {
		return goerr.Wrap(err, "failed to write frame")
	}
	return nil
}

func (c *conn) close() {
	c.closeOnce.Do(func() {
		_ = c.ws.Close()
	})
}

// run reads query frames until the socket closes. Each query runs in its
// own goroutine under a context canceled on disconnect, so an episode
// never outlives its client.
func (c *conn) run(ctx context.Context) {
	defer c.close()

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := logging.From(ctx).With("session_id", c.sessionID, "user_id", c.claims.UserID)
	logger.Info("websocket session opened", "role", c.claims.Role.String())

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("websocket closed unexpectedly", "error", err)
			}
			return
		}

		msg, err := model.ParseInbound(raw)
		if err != nil {
			logger.Warn("rejected inbound frame", "error", err)
			c.sendError(connCtx, "invalid_message", "message could not be parsed", 0)
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			c.handleQuery(connCtx, msg)
		}()
	}
}

func (c *conn) handleQuery(ctx context.Context, msg *model.InboundMessage) {
	state := model.NewAgentState(c.claims, c.sessionID, msg.MessageID, msg.Data.Query)
	state.NextAgent = model.AgentName(msg.Data.Agent)
	state.Context = msg.Data.Context

	chunkSize := msg.Data.Options.ChunkSize
	if chunkSize <= 0 {
		chunkSize = stream.DefaultChunkSize
	}
	mgr := stream.NewManager(c, chunkSize)

	if err := c.sup.Run(ctx, state, mgr); err != nil {
		logging.From(ctx).Error("episode failed", "query_id", state.QueryID, "error", err)
		code := "internal_error"
		retryAfter := 0
		if errors.Is(err, supervisor.ErrMemoryUnavailable) {
			code = "memory_unavailable"
			retryAfter = 30
		}
		c.sendError(ctx, code, "the query could not be processed", retryAfter)
	}
}

func (c *conn) sendError(ctx context.Context, code, message string, retryAfter int) {
	frame := model.ErrorMessage{
		Type:       model.MsgTypeError,
		ErrorCode:  code,
		Message:    message,
		RetryAfter: retryAfter,
	}
	if err := c.Send(ctx, frame); err != nil {
		logging.From(ctx).Warn("failed to send error frame", "error", err)
	}
}
