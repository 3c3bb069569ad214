package notify

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/c360/semmodel/errors"
	"github.com/c360/semmodel/metric"
)

// DefaultSubjectPrefix is the root of every published subject.
const DefaultSubjectPrefix = "semmodel.model"

// Publisher is the slice of a NATS client the publisher needs.
// *natsclient.Client satisfies it.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// NATSPublisher publishes each event as JSON on "<prefix>.<kind>.<action>".
// Event type "model:form:add" goes to "semmodel.model.form.add".
type NATSPublisher struct {
	pub     Publisher
	prefix  string
	metrics *metric.Metrics
}

// NewNATSPublisher creates a publisher. An empty prefix uses DefaultSubjectPrefix.
func NewNATSPublisher(pub Publisher, prefix string, metrics *metric.Metrics) *NATSPublisher {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATSPublisher{pub: pub, prefix: strings.TrimSuffix(prefix, "."), metrics: metrics}
}

// Subject maps an event type to its subject.
func (p *NATSPublisher) Subject(eventType string) string {
	parts := strings.Split(eventType, ":")
	if len(parts) > 0 && parts[0] == "model" {
		parts = parts[1:]
	}
	if len(parts) == 0 {
		return p.prefix
	}
	return p.prefix + "." + strings.Join(parts, ".")
}

// Notify implements Notifier.
func (p *NATSPublisher) Notify(ctx context.Context, evt Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return errors.WrapInvalid(err, "notify.NATSPublisher", "Notify", "marshal event")
	}
	if err := p.pub.Publish(ctx, p.Subject(evt.Type), data); err != nil {
		if p.metrics != nil {
			p.metrics.RecordEventDropped("nats")
		}
		return errors.WrapTransient(err, "notify.NATSPublisher", "Notify", "publish event")
	}
	if p.metrics != nil {
		p.metrics.RecordEventPublished("nats")
	}
	return nil
}
