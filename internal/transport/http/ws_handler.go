package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"slices"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/supportchat-server/internal/auth"
	"github.com/vovakirdan/supportchat-server/internal/core"
	"github.com/vovakirdan/supportchat-server/internal/proto"
)

// authenticationError is the body of every refused handshake, whatever the reason.
const authenticationError = "authentication error"

// WSHandler authenticates WebSocket handshakes and bridges connections to core.Client.
type WSHandler struct {
	hub            *core.Hub
	authService    *auth.Service
	log            *zerolog.Logger
	originPatterns []string
	readLimit      int64
	eventsPerMin   int
	clientBuffer   int
}

// WSOptions tunes connection limits.
type WSOptions struct {
	OriginPatterns     []string
	MaxMessageBytes    int64
	MaxEventsPerMinute int
	ClientBuffer       int
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, authService *auth.Service, opts WSOptions, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{
		hub:            hub,
		authService:    authService,
		log:            logger,
		originPatterns: opts.OriginPatterns,
		readLimit:      opts.MaxMessageBytes,
		eventsPerMin:   opts.MaxEventsPerMinute,
		clientBuffer:   opts.ClientBuffer,
	}
}

// Handle serves GET /ws.
func (h *WSHandler) Handle(c *gin.Context) {
	token := bearerToken(c.Request)
	if token == "" {
		token = c.Query("token")
	}
	if token == "" {
		h.log.Debug().Str("remote", c.ClientIP()).Msg("ws handshake without credentials")
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: authenticationError})
		return
	}
	claims, err := h.authService.ValidateToken(token)
	if err != nil {
		h.log.Debug().Err(err).Str("remote", c.ClientIP()).Msg("ws handshake with invalid token")
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: authenticationError})
		return
	}

	h.serve(c.Writer, c.Request, claims.Identity())
}

func (h *WSHandler) serve(w http.ResponseWriter, r *http.Request, identity core.Identity) {
	acceptOpts := &websocket.AcceptOptions{OriginPatterns: h.originPatterns}
	if len(h.originPatterns) == 0 || slices.Contains(h.originPatterns, "*") {
		acceptOpts = &websocket.AcceptOptions{InsecureSkipVerify: true}
	}
	conn, err := websocket.Accept(w, r, acceptOpts)
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")
	if h.readLimit > 0 {
		conn.SetReadLimit(h.readLimit)
	}

	client := core.NewClient(uuid.NewString(), identity, h.clientBuffer)
	h.hub.RegisterClient(client)
	defer h.hub.UnregisterClient(client)

	h.log.Info().Str("client_id", client.ID).Str("user", identity.Email).Str("role", identity.Role).Msg("client connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = "connection error"
			h.log.Warn().Err(err).Str("client_id", client.ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	limiter := newRateLimiter(h.eventsPerMin)

	for {
		_, payload, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		if !limiter.allow() {
			h.log.Debug().Str("client_id", client.ID).Msg("event rate limited")
			if err := h.writeError(ctx, conn, &proto.Error{Code: core.ErrCodeRateLimited, Msg: "too many events"}); err != nil {
				return err
			}
			continue
		}

		var inbound proto.Inbound
		if err := json.Unmarshal(payload, &inbound); err != nil || inbound.Event == "" {
			h.log.Debug().Err(err).Str("client_id", client.ID).Msg("malformed ws envelope")
			if err := h.writeError(ctx, conn, badRequest("malformed envelope")); err != nil {
				return err
			}
			continue
		}

		cmd, protoErr := inboundToCommand(inbound)
		if protoErr != nil {
			if err := h.writeError(ctx, conn, protoErr); err != nil {
				return err
			}
			continue
		}

		select {
		case client.Commands <- cmd:
		case <-client.Gone():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case event, ok := <-client.Events:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("client_id", client.ID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *WSHandler) writeError(ctx context.Context, conn *websocket.Conn, protoErr *proto.Error) error {
	return wsjson.Write(ctx, conn, proto.Outbound{Event: proto.OutboundError, Error: protoErr})
}
