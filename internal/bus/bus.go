// Package bus forwards announcements and answers to a websocket hub so
// other shards (dashboards, chat relays) can follow along.
package bus

import (
	"encoding/json"
	log "log/slog"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

const From = "runvox"

type Message struct {
	From    string    `json:"from"`
	To      string    `json:"to"`
	Kind    string    `json:"kind"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

type Publisher struct {
	url  string
	conn *websocket.Conn
	now  func() time.Time
}

func Dial(wsURL string) (*Publisher, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, err
	}

	p := &Publisher{url: u.String(), now: time.Now}
	if err := p.dial(); err != nil {
		return nil, err
	}

	log.Info("Connected to bus", "url", wsURL)
	return p, nil
}

func (p *Publisher) dial() error {
	conn, _, err := websocket.DefaultDialer.Dial(p.url, nil)
	if err != nil {
		return err
	}
	p.conn = conn
	return nil
}

// Publish broadcasts content to every listener on the hub. A dropped
// connection is redialled once before giving up.
func (p *Publisher) Publish(kind, content string) error {
	data, err := json.Marshal(Message{
		From:    From,
		To:      "ALL",
		Kind:    kind,
		Content: content,
		At:      p.now(),
	})
	if err != nil {
		return err
	}

	err = p.write(data)
	if err == nil {
		return nil
	}
	log.Warn("Bus write failed, redialling", "url", p.url, "err", err)

	p.conn.Close()
	if err := p.dial(); err != nil {
		return err
	}
	return p.write(data)
}

func (p *Publisher) write(data []byte) error {
	_ = p.conn.SetWriteDeadline(p.now().Add(5 * time.Second))
	return p.conn.WriteMessage(websocket.TextMessage, data)
}

func (p *Publisher) Close() error {
	_ = p.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return p.conn.Close()
}
