package config

import (
	"fmt"
)

func (c *Config) validate() error {
	if c.Collector.BatchSize < 1 {
		return fmt.Errorf("invalid batch size: %d", c.Collector.BatchSize)
	}
	if c.Collector.FlushInterval <= 0 {
		return fmt.Errorf("invalid flush interval: %s", c.Collector.FlushInterval)
	}
	if c.Collector.MaxRetries < 0 {
		return fmt.Errorf("invalid max retries: %d", c.Collector.MaxRetries)
	}
	if c.Collector.MaxRetryBatches < 1 {
		return fmt.Errorf("invalid max retry batches: %d", c.Collector.MaxRetryBatches)
	}
	if c.Collector.SamplingRate < 0 || c.Collector.SamplingRate > 1 {
		return fmt.Errorf("sampling rate must be in [0,1]: %f", c.Collector.SamplingRate)
	}
	if c.Transport.SendTimeout <= 0 {
		return fmt.Errorf("invalid send timeout: %s", c.Transport.SendTimeout)
	}
	if c.Journeys.Retention <= 0 {
		return fmt.Errorf("invalid journey retention: %s", c.Journeys.Retention)
	}
	if c.Ops.Enabled && (c.Ops.Port < 1 || c.Ops.Port > 65535) {
		return fmt.Errorf("invalid ops port: %d", c.Ops.Port)
	}
	return nil
}
