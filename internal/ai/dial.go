package ai

import (
	"fmt"
	log "log/slog"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"runvox/internal/proxy"
)

// Endpoint describes where and how to reach the chat API.
type Endpoint struct {
	APIKey    string
	BaseURL   string // empty = api.openai.com
	Model     string
	ProxyAddr string // optional SOCKS5 proxy
	Timeout   time.Duration
}

// Dial builds a Client for e with DefaultSampling. No request is sent.
func Dial(e Endpoint, extra ...option.RequestOption) (*Client, error) {
	opts := []option.RequestOption{option.WithAPIKey(e.APIKey)}
	if e.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(e.BaseURL))
	}
	if e.ProxyAddr != "" {
		httpClient, err := proxy.NewSocksClient(e.ProxyAddr, 2*e.Timeout)
		if err != nil {
			return nil, fmt.Errorf("dial socks proxy: %w", err)
		}
		opts = append(opts, option.WithHTTPClient(httpClient))
		log.Debug("Loaded proxy", "proxy", e.ProxyAddr)
	}
	opts = append(opts, extra...)

	return NewClient(openai.NewClient(opts...), e.Model, DefaultSampling, e.Timeout), nil
}
