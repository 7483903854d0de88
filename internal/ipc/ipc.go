// Package ipc carries control commands from runvox-ctl to the running
// assistant over a unix socket.
package ipc

import (
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"net"
	"os"
	"time"
)

const DefaultSocket = "/tmp/runvox.sock"

// Commands understood by the assistant.
const (
	CommandTrigger = "trigger"
	CommandStop    = "stop"
)

type ControlMessage struct {
	Cmd string `json:"cmd"`
}

// Server accepts control messages and queues their commands. The queue is
// drained by the assistant loop between listens.
type Server struct {
	ln       net.Listener
	path     string
	commands chan string
}

func Listen(path string, queue int) (*Server, error) {
	os.Remove(path)

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}

	s := &Server{
		ln:       ln,
		path:     path,
		commands: make(chan string, queue),
	}
	go s.serve()

	log.Debug("Control socket ready", "path", path)
	return s, nil
}

func (s *Server) Commands() <-chan string { return s.commands }

func (s *Server) Close() error {
	err := s.ln.Close()
	os.Remove(s.path)
	return err
}

func (s *Server) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			continue
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg ControlMessage
	if err := json.NewDecoder(conn).Decode(&msg); err != nil {
		log.Warn("Bad control message", "err", err)
		return
	}

	select {
	case s.commands <- msg.Cmd:
		log.Info("Control command queued", "cmd", msg.Cmd)
	default:
		log.Warn("Control queue full, dropping command", "cmd", msg.Cmd)
	}
}

func SendCommand(path, cmd string) error {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return err
	}
	defer conn.Close()

	return json.NewEncoder(conn).Encode(ControlMessage{Cmd: cmd})
}
