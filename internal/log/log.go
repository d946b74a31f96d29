// Package log add logging utilities.
package log

import (
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wtask/synchat/internal/chat/message"
)

// SetLogger configures the standard logger level and format.
// Unknown level falls back to info, format is "text" or "json".
func SetLogger(level, format string, out io.Writer) {
	if out != nil {
		logrus.SetOutput(out)
	}
	switch strings.ToLower(format) {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	default:
		customFormatter := new(logrus.TextFormatter)
		customFormatter.TimestampFormat = time.RFC3339
		customFormatter.FullTimestamp = true
		logrus.SetFormatter(customFormatter)
	}
	logrus.SetLevel(ParseLevel(level))
}

// ParseLevel maps level name to logrus level.
func ParseLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// MessageFields turns message into log fields, absent stamps are left out.
func MessageFields(m message.Message) logrus.Fields {
	fields := logrus.Fields{
		"type": string(m.Type),
	}
	if m.From != "" {
		fields["from"] = m.From
	}
	if m.ClientTS != nil {
		fields["client_ts"] = *m.ClientTS
	}
	if m.ServerTS != nil {
		fields["server_ts"] = *m.ServerTS
	}
	if m.ServerTime != nil {
		fields["server_time"] = *m.ServerTime
	}
	return fields
}
