package server

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"autumn/pkg/eval"
	"autumn/pkg/object"
)

// Result is the reply to one evaluated message. Kind is "NONE" for input
// that produced no value, such as a let statement.
type Result struct {
	Kind  string      `json:"kind"`
	Value string      `json:"value"`
	Data  interface{} `json:"data,omitempty"`
	Error bool        `json:"error"`
}

// Output carries text printed by `puts`, one frame per line.
type Output struct {
	Output string `json:"output"`
}

// session is a remote REPL bound to one websocket connection.
type session struct {
	id   int64
	conn *websocket.Conn
	wmu  sync.Mutex // gorilla allows a single concurrent writer
	intp *eval.Interpreter
}

func newSession(id int64, conn *websocket.Conn) *session {
	s := &session{id: id, conn: conn}
	s.intp = eval.New(eval.WithOutput(outputWriter{s}))
	return s
}

// serve evaluates incoming text messages until the client goes away.
func (s *session) serve() {
	defer func() {
		s.intp.Wait()
		s.conn.Close()
	}()
	for {
		msgType, msg, err := s.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				tracer().Infof("session %d: %v", s.id, err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			s.send(Result{Kind: object.KindError.String(), Value: fmt.Sprintf("unexpected message type: %d", msgType), Error: true})
			continue
		}
		tracer().Debugf("session %d: %q", s.id, msg)
		if err := s.send(resultOf(s.intp.Evaluate(string(msg)))); err != nil {
			tracer().Errorf("session %d: %v", s.id, err)
			return
		}
	}
}

func (s *session) send(v interface{}) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	return s.conn.WriteJSON(v)
}

func resultOf(obj object.Object) Result {
	if obj == nil {
		return Result{Kind: "NONE"}
	}
	if errObj, ok := obj.(*object.Error); ok {
		return Result{Kind: obj.Kind().String(), Value: errObj.Message, Error: true}
	}
	return Result{Kind: obj.Kind().String(), Value: obj.Inspect(), Data: toNative(obj)}
}

type outputWriter struct {
	s *session
}

func (w outputWriter) Write(p []byte) (int, error) {
	if err := w.s.send(Output{Output: strings.TrimSuffix(string(p), "\n")}); err != nil {
		return 0, err
	}
	return len(p), nil
}
