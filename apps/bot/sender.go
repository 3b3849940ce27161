package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mukando-hq/storekeeper/platform/go/chat"
)

// gatewaySender posts outbound messages to the messaging gateway, which owns
// the wire protocol of the actual chat platform.
type gatewaySender struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

func newGatewaySender(url string, timeout time.Duration, logger *zap.Logger) *gatewaySender {
	return &gatewaySender{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

type outboundMessage struct {
	Identity int64      `json:"identity"`
	Text     string     `json:"text"`
	Menu     *chat.Menu `json:"menu,omitempty"`
}

func (s *gatewaySender) SendMessage(ctx context.Context, identity int64, text string, menu *chat.Menu) error {
	body, err := json.Marshal(outboundMessage{Identity: identity, Text: text, Menu: menu})
	if err != nil {
		return fmt.Errorf("encode outbound message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post to gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("gateway responded %d", resp.StatusCode)
	}
	return nil
}

// loggingSender is the fallback transport when no gateway is configured. It
// keeps local development working without a messaging platform.
type loggingSender struct {
	logger *zap.Logger
}

func (s *loggingSender) SendMessage(ctx context.Context, identity int64, text string, menu *chat.Menu) error {
	fields := []zap.Field{
		zap.Int64("identity", identity),
		zap.String("text", text),
	}
	if menu != nil {
		tokens := make([]string, 0, len(menu.Rows))
		for _, row := range menu.Rows {
			tokens = append(tokens, row.Token)
		}
		fields = append(fields, zap.Strings("menu", tokens))
	}
	s.logger.Info("outbound message", fields...)
	return nil
}
