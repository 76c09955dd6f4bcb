// Package webhook posts notification payloads to a configured HTTP endpoint.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	notificationdomain "github.com/uplinelabs/upline/internal/notification/domain"
)

type Provider struct {
	url    string
	client *http.Client
}

func New(url string) *Provider {
	return &Provider{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (p *Provider) Name() string { return "webhook" }

func (p *Provider) Send(ctx context.Context, n notificationdomain.Notification) error {
	body, err := json.Marshal(map[string]any{
		"user_id":    n.UserID.String(),
		"event_type": n.EventType,
		"data":       n.Data,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

var _ notificationdomain.Provider = (*Provider)(nil)
