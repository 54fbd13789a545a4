// Package metrics abstracts the statsd client so store adapters can count
// operations without caring whether Datadog is reachable.
package metrics

import (
	"fmt"

	"github.com/DataDog/datadog-go/v5/statsd"

	"github.com/santoshpalla27/user-app-redis-mysql/pkg/config"
)

// Provider is the metrics contract used across the adapters.
type Provider interface {
	Count(name string, value int64, tags []string) error
	Gauge(name string, value float64, tags []string) error
	Timing(name string, ms float64, tags []string) error
}

// NoopProvider is used when metrics are disabled.
type NoopProvider struct{}

func (n *NoopProvider) Count(name string, value int64, tags []string) error   { return nil }
func (n *NoopProvider) Gauge(name string, value float64, tags []string) error { return nil }
func (n *NoopProvider) Timing(name string, ms float64, tags []string) error   { return nil }

// DatadogProvider adapts the official statsd client to Provider.
type DatadogProvider struct {
	client *statsd.Client
}

func (d *DatadogProvider) Count(name string, value int64, tags []string) error {
	return d.client.Count(name, value, tags, 1)
}

func (d *DatadogProvider) Gauge(name string, value float64, tags []string) error {
	return d.client.Gauge(name, value, tags, 1)
}

func (d *DatadogProvider) Timing(name string, ms float64, tags []string) error {
	return d.client.TimeInMilliseconds(name, ms, tags, 1)
}

// Setup picks the provider from configuration.
func Setup(cfg config.MetricsConfig) (Provider, error) {
	if !cfg.Enabled {
		return &NoopProvider{}, nil
	}

	client, err := statsd.New(cfg.AgentAddr, statsd.WithNamespace(cfg.Namespace))
	if err != nil {
		return nil, fmt.Errorf("metrics: connecting to statsd agent: %w", err)
	}
	return &DatadogProvider{client: client}, nil
}
