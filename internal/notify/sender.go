// Package notify dispatches push notifications through an FCM-compatible
// gateway, one call per recipient.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/elevate-app/elevate-backend/internal/config"
	"github.com/elevate-app/elevate-backend/internal/logging"
)

// Recipient is one delivery target: a device push token plus the distance
// between the device's last location and the alert, for display only.
type Recipient struct {
	Token      string
	DistanceKm float64
}

type payload struct {
	To           string       `json:"to"`
	Notification notification `json:"notification"`
}

type notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type gatewayResponse struct {
	Success int64 `json:"success"`
	Failure int64 `json:"failure"`
}

// Sender performs sequential, paced dispatch to the push gateway. Pacing
// keeps us under the gateway's rate limits; each send is independent and a
// failure is logged and skipped, never retried.
type Sender struct {
	serverKey string
	endpoint  string
	pacing    time.Duration
	http      *http.Client
	logger    *logging.Logger
}

func NewSender(cfg config.PushConfig, logger *logging.Logger) *Sender {
	return &Sender{
		serverKey: cfg.ServerKey,
		endpoint:  cfg.Endpoint,
		pacing:    cfg.PacingInterval,
		http:      &http.Client{Timeout: cfg.SendTimeout},
		logger:    logger,
	}
}

// SendAlertNotification notifies every recipient about an alert and returns
// the number of successful deliveries. The gateway being unconfigured counts
// as zero deliveries, not an error.
func (s *Sender) SendAlertNotification(ctx context.Context, alertType, place string, recipients []Recipient) int {
	if s.serverKey == "" {
		s.logger.Warn("push gateway not configured, skipping notification fanout")
		return 0
	}

	sent := 0
	for i, recipient := range recipients {
		if i > 0 {
			time.Sleep(s.pacing)
		}

		if err := s.send(ctx, alertType, place, recipient); err != nil {
			s.logger.Warn("failed to deliver push notification",
				"error", err,
				"distance_km", recipient.DistanceKm,
			)
			continue
		}
		sent++
	}

	return sent
}

func (s *Sender) send(ctx context.Context, alertType, place string, recipient Recipient) error {
	body := payload{
		To: recipient.Token,
		Notification: notification{
			Title: alertType,
			Body: fmt.Sprintf("%s reported near %s! (%.1f km away)",
				alertType, place, recipient.DistanceKm),
		},
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("failed to build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.serverKey)

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("push request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("push gateway returned status %d", resp.StatusCode)
	}

	var gw gatewayResponse
	if err := json.NewDecoder(resp.Body).Decode(&gw); err != nil {
		return fmt.Errorf("failed to decode push gateway response: %w", err)
	}
	if gw.Failure > 0 || gw.Success == 0 {
		return fmt.Errorf("push gateway rejected the message")
	}

	return nil
}
