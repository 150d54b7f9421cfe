package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	reconnectBase = time.Second
	reconnectMax  = 30 * time.Second
)

// Subscriber consumes the intermediary's websocket event feed, decodes the
// three contract event kinds into tagged Event values, and acknowledges each
// delivery. Delivery is at-least-once in ledger order; the feed survives
// connection drops by reconnecting with backoff.
type Subscriber struct {
	cfg    Config
	name   string // server-side subscription name
	events chan Event
	log    *zap.Logger
}

func NewSubscriber(cfg Config, subscriptionName string, log *zap.Logger) *Subscriber {
	return &Subscriber{
		cfg:    cfg,
		name:   subscriptionName,
		events: make(chan Event, 64),
		log:    log,
	}
}

// Events is the ordered feed of decoded ledger events. It is closed when Run
// returns.
func (s *Subscriber) Events() <-chan Event {
	return s.events
}

// Run connects and pumps events until ctx is cancelled. Decode failures and
// unknown signatures are logged and skipped, never fatal; the message is
// still acknowledged so the feed keeps moving.
func (s *Subscriber) Run(ctx context.Context) {
	defer close(s.events)

	backoff := reconnectBase
	for {
		if err := s.pump(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Warn("event feed disconnected, reconnecting",
				zap.Error(err),
				zap.Duration("backoff", backoff))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, reconnectMax)
	}
}

func (s *Subscriber) pump(ctx context.Context) error {
	wsURL := strings.Replace(strings.TrimRight(s.cfg.Host, "/"), "http", "ws", 1) + "/ws"

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial event feed: %w", err)
	}
	defer conn.Close()

	start := map[string]any{
		"type":      "start",
		"namespace": s.cfg.Namespace,
		"name":      s.name,
		"autoack":   false,
		"filter":    map[string]any{"events": "blockchain_event_received"},
	}
	if err := conn.WriteJSON(start); err != nil {
		return fmt.Errorf("start subscription: %w", err)
	}
	s.log.Info("ledger event feed connected", zap.String("subscription", s.name))

	// Unblock ReadMessage on cancellation.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var msg wsMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.log.Warn("malformed feed message", zap.Error(err))
			continue
		}

		if msg.BlockchainEvent != nil {
			if ev, ok := decodeEvent(msg.BlockchainEvent.Info.Signature, msg.BlockchainEvent.Output); ok {
				select {
				case s.events <- ev:
				case <-ctx.Done():
					return ctx.Err()
				}
			} else {
				s.log.Debug("skipping unrecognized event",
					zap.String("signature", msg.BlockchainEvent.Info.Signature))
			}
		}

		if msg.ID != "" {
			if err := conn.WriteJSON(map[string]string{"type": "ack", "id": msg.ID}); err != nil {
				return fmt.Errorf("ack %s: %w", msg.ID, err)
			}
		}
	}
}

type wsMessage struct {
	ID              string `json:"id"`
	Type            string `json:"type"`
	BlockchainEvent *struct {
		Info struct {
			Signature string `json:"signature"`
		} `json:"info"`
		Output map[string]json.RawMessage `json:"output"`
	} `json:"blockchainEvent"`
}

// decodeEvent maps a contract event signature plus its output fields onto
// one of the Event variants. Hex hash fields arrive 0x-prefixed and are
// stripped here, so everything downstream compares plain hex.
func decodeEvent(signature string, output map[string]json.RawMessage) (Event, bool) {
	switch {
	case strings.Contains(signature, "ImageRegistered"):
		return ImageRegistered{
			ImageID:        intField(output, "imageId"),
			SHA256:         Strip0x(strField(output, "sha256Hash")),
			PHash:          Strip0x(strField(output, "pHash")),
			IPFSHash:       strField(output, "ipfsHash"),
			Artist:         strField(output, "artist"),
			RequireRoyalty: boolField(output, "requireRoyalty"),
			IsDerivative:   boolField(output, "isDerivative"),
		}, true
	case strings.Contains(signature, "PostLiked"):
		return PostLiked{
			ImageID:    intField(output, "imageId"),
			Liker:      strField(output, "liker"),
			TotalLikes: intField(output, "totalLikes"),
		}, true
	case strings.Contains(signature, "RoyaltyPaid"):
		return RoyaltyPaid{
			ImageID: intField(output, "imageId"),
			Payer:   strField(output, "payer"),
		}, true
	}
	return nil, false
}

// EVM connectors deliver numeric outputs as JSON strings; tolerate both.
func intField(m map[string]json.RawMessage, key string) int64 {
	raw, ok := m[key]
	if !ok {
		return 0
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

func strField(m map[string]json.RawMessage, key string) string {
	raw, ok := m[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func boolField(m map[string]json.RawMessage, key string) bool {
	raw, ok := m[key]
	if !ok {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		b, _ := strconv.ParseBool(s)
		return b
	}
	return false
}
