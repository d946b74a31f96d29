package broker

import (
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// WithWriteTimeout - overwrites default write timeout of connections.
// A peer which can not take a record within the timeout counts as failed.
func WithWriteTimeout(timeout time.Duration) brokerOption {
	return func(b *Broker) error {
		if timeout <= 0 {
			return errors.Errorf("broker.WithWriteTimeout: invalid timeout (%v)", timeout)
		}
		b.writeTimeout = timeout
		return nil
	}
}

// WithLogger - attaches logger, the standard logrus logger is used by default.
func WithLogger(logger logrus.FieldLogger) brokerOption {
	return func(b *Broker) error {
		if logger == nil {
			return errors.New("broker.WithLogger: logger is nil")
		}
		b.logger = logger
		return nil
	}
}
