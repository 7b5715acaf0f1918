// Package websocket pushes live preview notifications to editor clients over
// Socket.IO. Clients join the room of a session they own and are told the new
// revision after every committed change, then fetch preview.png themselves.
package websocket

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sync"

	"apparel-studio/editor"
	"apparel-studio/handlers/auth"
	"apparel-studio/sessions"

	"github.com/sirupsen/logrus"
	"github.com/zishang520/engine.io/v2/types"
	socketio "github.com/zishang520/socket.io/v2/socket"
)

const (
	EventJoin     = "join-session"
	EventJoinAck  = "join-session-ack"
	EventLeave    = "leave-session"
	EventRendered = "design-rendered"
)

var (
	errSessionRequired = errors.New("session id is required")
	errTokenRequired   = errors.New("token is required")
)

type ackInvoker func(err error, payload map[string]any)

// emitFunc sends event to every socket in room.
type emitFunc func(room, event string, args ...any) error

// Preview relays session renders to the sockets watching them.
type Preview struct {
	reg  *sessions.Registry
	emit emitFunc

	mu       sync.RWMutex
	watchers map[string]int
}

func newPreview(reg *sessions.Registry, emit emitFunc) *Preview {
	p := &Preview{
		reg:      reg,
		emit:     emit,
		watchers: make(map[string]int),
	}
	reg.OnRender(p.onRender)
	return p
}

// Watchers returns how many sockets follow each session.
func (p *Preview) Watchers() map[string]int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make(map[string]int, len(p.watchers))
	for k, v := range p.watchers {
		out[k] = v
	}
	return out
}

func (p *Preview) onRender(sessionID string, ev editor.Rendered) {
	p.mu.RLock()
	n := p.watchers[sessionID]
	p.mu.RUnlock()
	if n == 0 {
		return
	}

	err := p.emit(sessionID, EventRendered, map[string]any{
		"sessionId": sessionID,
		"revision":  ev.Revision,
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"error":      err,
			"session_id": sessionID,
		}).Warn("Failed to push preview")
	}
}

// authorize checks that token belongs to the owner of sessionID.
func (p *Preview) authorize(args []any) (string, error) {
	if len(args) == 0 {
		return "", errSessionRequired
	}
	sessionID, ok := args[0].(string)
	if !ok || sessionID == "" {
		return "", errSessionRequired
	}
	if len(args) < 2 {
		return "", errTokenRequired
	}
	token, ok := args[1].(string)
	if !ok || token == "" {
		return "", errTokenRequired
	}

	claims, err := auth.ParseJWT(token)
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	if _, err := p.reg.Get(claims.Subject, sessionID); err != nil {
		return "", err
	}
	return sessionID, nil
}

func (p *Preview) join(sessionID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.watchers[sessionID]++
	return p.watchers[sessionID]
}

func (p *Preview) leave(sessionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.watchers[sessionID] <= 1 {
		delete(p.watchers, sessionID)
		return
	}
	p.watchers[sessionID]--
}

// SetupSocketIO builds the Socket.IO server and subscribes it to every render
// in reg.
func SetupSocketIO(reg *sessions.Registry) (*socketio.Server, *Preview) {
	opts := socketio.DefaultServerOptions()
	opts.SetMaxHttpBufferSize(1000000)
	opts.SetPath("/socket.io")
	opts.SetAllowEIO3(true)
	localhostOrigin := regexp.MustCompile(`^https?://(localhost|127\.0\.0\.1|\[::1\])(:\d+)?$`)
	opts.SetCors(&types.Cors{
		Origin:      []any{localhostOrigin},
		Credentials: true,
	})
	srv := socketio.NewServer(nil, opts)

	p := newPreview(reg, func(room, event string, args ...any) error {
		return srv.To(socketio.Room(room)).Emit(event, args...)
	})

	//nolint:errcheck // Socket.IO event handlers do not return useful errors
	srv.On("connection", func(clients ...any) {
		socket, ok := clients[0].(*socketio.Socket)
		if !ok {
			return
		}
		me := socket.Id()
		joined := make(map[string]bool)
		var joinedMu sync.Mutex

		//nolint:errcheck // Socket.IO event handlers do not return useful errors
		socket.On(EventJoin, func(datas ...any) {
			ack, args := extractAck(datas)
			sessionID, err := p.authorize(args)
			if err != nil {
				logrus.WithFields(logrus.Fields{
					"socket": me,
					"error":  err,
				}).Debug("Rejected preview subscription")
				respondWithAck(socket, ack, map[string]any{"status": "error", "error": err.Error()}, err)
				return
			}

			joinedMu.Lock()
			first := !joined[sessionID]
			joined[sessionID] = true
			joinedMu.Unlock()

			socket.Join(socketio.Room(sessionID))
			n := p.Watchers()[sessionID]
			if first {
				n = p.join(sessionID)
			}
			logrus.WithFields(logrus.Fields{
				"socket":     me,
				"session_id": sessionID,
				"watchers":   n,
			}).Debug("Socket is watching session")
			respondWithAck(socket, ack, map[string]any{"status": "ok", "sessionId": sessionID}, nil)
		})

		//nolint:errcheck // Socket.IO event handlers do not return useful errors
		socket.On(EventLeave, func(datas ...any) {
			_, args := extractAck(datas)
			if len(args) == 0 {
				return
			}
			sessionID, _ := args[0].(string)

			joinedMu.Lock()
			was := joined[sessionID]
			delete(joined, sessionID)
			joinedMu.Unlock()

			if was {
				socket.Leave(socketio.Room(sessionID))
				p.leave(sessionID)
			}
		})

		socket.On("disconnect", func(datas ...any) {
			joinedMu.Lock()
			for sessionID := range joined {
				p.leave(sessionID)
			}
			joined = map[string]bool{}
			joinedMu.Unlock()
			socket.RemoveAllListeners("")
		})
	})

	return srv, p
}

func extractAck(datas []any) (ackInvoker, []any) {
	if len(datas) == 0 {
		return nil, datas
	}
	fn := reflect.ValueOf(datas[len(datas)-1])
	if !fn.IsValid() || fn.Kind() != reflect.Func {
		return nil, datas
	}

	typ := fn.Type()
	ack := func(err error, payload map[string]any) {
		args := make([]reflect.Value, typ.NumIn())
		for i := range args {
			var v any
			switch {
			case typ.NumIn() == 1 && err != nil:
				v = err
			case typ.NumIn() == 1, i == 1:
				v = payload
			case i == 0:
				v = err
			}
			args[i] = coerce(v, typ.In(i))
		}
		fn.Call(args)
	}
	return ack, datas[:len(datas)-1]
}

func coerce(v any, target reflect.Type) reflect.Value {
	if v == nil {
		return reflect.Zero(target)
	}
	rv := reflect.ValueOf(v)
	switch {
	case rv.Type().AssignableTo(target):
		return rv
	case rv.Type().ConvertibleTo(target):
		return rv.Convert(target)
	case target.Kind() == reflect.Slice && target.Elem().Kind() == reflect.Interface:
		out := reflect.MakeSlice(target, 1, 1)
		out.Index(0).Set(rv)
		return out
	}
	return reflect.Zero(target)
}

func respondWithAck(socket *socketio.Socket, ack ackInvoker, payload map[string]any, err error) {
	if ack != nil {
		ack(err, payload)
		return
	}
	_ = socket.Emit(EventJoinAck, payload)
}
