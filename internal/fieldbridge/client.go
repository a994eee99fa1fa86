package fieldbridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vexide/autons/compete"
)

// Client posts field controller events to a running bridge.
type Client struct {
	baseURL string
	http    *http.Client
	clock   func() time.Time

	mu      sync.Mutex
	lastSeq int64
}

// NewClient targets the bridge at baseURL (scheme + host:port).
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: 5 * time.Second},
		clock:   time.Now,
	}
}

// Send reports a phase change.
func (c *Client) Send(ctx context.Context, phase compete.Phase) error {
	return c.post(ctx, Event{Type: TypePhase, Phase: phase.String()})
}

// Disconnect tells the robot the controller is gone.
func (c *Client) Disconnect(ctx context.Context) error {
	return c.post(ctx, Event{Type: TypeDisconnect})
}

// Health fetches the bridge health report.
func (c *Client) Health(ctx context.Context) (HealthResponse, error) {
	var health HealthResponse
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return health, fmt.Errorf("fieldbridge: build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return health, fmt.Errorf("fieldbridge: health: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return health, fmt.Errorf("fieldbridge: health: unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return health, fmt.Errorf("fieldbridge: decode health: %w", err)
	}
	return health, nil
}

func (c *Client) post(ctx context.Context, evt Event) error {
	now := c.clock().UTC()
	evt.Version = EventSchemaVersion
	evt.EventID = uuid.NewString()
	evt.Sequence = c.nextSequence(now)
	evt.ClientTime = now

	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("fieldbridge: encode event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/events", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("fieldbridge: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("fieldbridge: post %s: %w", evt.Type, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		var msg struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = json.Unmarshal(data, &msg)
		return fmt.Errorf("fieldbridge: post %s: status %d: %s", evt.Type, resp.StatusCode, msg.Error)
	}
	return nil
}

// nextSequence derives sequences from the wall clock so separate client
// processes still produce increasing values.
func (c *Client) nextSequence(now time.Time) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	seq := now.UnixNano()
	if seq <= c.lastSeq {
		seq = c.lastSeq + 1
	}
	c.lastSeq = seq
	return seq
}
