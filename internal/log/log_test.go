package log

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wtask/synchat/internal/chat/message"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]logrus.Level{
		"trace":   logrus.TraceLevel,
		"DEBUG":   logrus.DebugLevel,
		"info":    logrus.InfoLevel,
		"warn":    logrus.WarnLevel,
		"error":   logrus.ErrorLevel,
		"verbose": logrus.InfoLevel,
		"":        logrus.InfoLevel,
	}
	for name, level := range cases {
		assert.Equal(t, level, ParseLevel(name), name)
	}
}

func TestSetLogger_JSON(t *testing.T) {
	defer SetLogger("info", "text", os.Stderr)
	buf := &bytes.Buffer{}
	SetLogger("debug", "json", buf)

	logrus.WithFields(MessageFields(message.SyncReply(12.5))).Debug("reply")

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "reply", record["msg"])
	assert.Equal(t, "sync_reply", record["type"])
	assert.Equal(t, 12.5, record["server_time"])
}

func TestMessageFields(t *testing.T) {
	fields := MessageFields(message.Chat("alice", "secret text", nil))
	assert.Equal(t, logrus.Fields{"type": "chat", "from": "alice"}, fields)

	m := message.Chat("bob", "x", message.Float(1))
	m.ServerTS = message.Float(2)
	fields = MessageFields(m)
	assert.Equal(t, 1.0, fields["client_ts"])
	assert.Equal(t, 2.0, fields["server_ts"])
}
