// Package notify delivers a rendered digest to Slack, Telegram or, when no
// channel is configured, a local preview file.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/deusflow/trafficwatch/internal/digest"
	"github.com/deusflow/trafficwatch/internal/fileutil"
	"github.com/deusflow/trafficwatch/internal/logger"
	"github.com/deusflow/trafficwatch/internal/metrics"
)

// Notifier sends one digest report.
type Notifier interface {
	Name() string
	Send(ctx context.Context, r digest.Report) error
}

// SendAll delivers to every notifier and returns the number that succeeded.
// A failing channel does not stop the others.
func SendAll(ctx context.Context, notifiers []Notifier, r digest.Report) int {
	sent := 0
	for _, n := range notifiers {
		if err := n.Send(ctx, r); err != nil {
			logger.Error("Digest delivery failed", "channel", n.Name(), "error", err)
			metrics.DigestsSent.WithLabelValues(n.Name(), "error").Inc()
			continue
		}
		logger.Info("Digest delivered", "channel", n.Name(), "issues", len(r.Entries))
		metrics.DigestsSent.WithLabelValues(n.Name(), "ok").Inc()
		sent++
	}
	return sent
}

// Preview writes the Slack payload to a JSON file instead of sending it.
type Preview struct {
	path         string
	dashboardURL string
}

func NewPreview(path, dashboardURL string) *Preview {
	return &Preview{path: path, dashboardURL: dashboardURL}
}

func (p *Preview) Name() string { return "preview" }

func (p *Preview) Path() string { return p.path }

func (p *Preview) Send(_ context.Context, r digest.Report) error {
	data, err := json.MarshalIndent(digest.Slack(r, p.dashboardURL), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal preview: %w", err)
	}
	if err := fileutil.WriteAtomic(p.path, data, 0o644); err != nil {
		return fmt.Errorf("write preview: %w", err)
	}
	logger.Info("Digest preview written", "path", p.path)
	return nil
}

const defaultTimeout = 30 * time.Second
