package chat

import (
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/wtask/synchat/internal/chat/broker"
)

// BrokerBuilder - helps to build custom broker.Broker with required dependencies.
type BrokerBuilder func() (*broker.Broker, error)

// DefaultBroker - returns builder of broker.Broker with given write timeout and logger.
func DefaultBroker(writeTimeout time.Duration, logger logrus.FieldLogger) BrokerBuilder {
	return func() (*broker.Broker, error) {
		if logger == nil {
			logger = logrus.StandardLogger()
		}
		b, err := broker.New(
			broker.WithWriteTimeout(writeTimeout),
			broker.WithLogger(logger),
		)
		if err != nil {
			return nil, errors.Wrap(err, "chat.DefaultBroker: build broker failed")
		}
		return b, nil
	}
}
