package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigure_ProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	Configure("production", &buf)
	t.Cleanup(func() { Configure(os.Getenv("ENVIRONMENT"), nil) })

	Info("session restored", "user_id", "u1")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "session restored", entry["msg"])
	assert.Equal(t, "u1", entry["user_id"])
}

func TestConfigure_ProductionDropsDebug(t *testing.T) {
	var buf bytes.Buffer
	Configure("production", &buf)
	t.Cleanup(func() { Configure(os.Getenv("ENVIRONMENT"), nil) })

	Debug("noisy")

	assert.Empty(t, buf.String())
}

func TestConfigure_DevelopmentKeepsDebug(t *testing.T) {
	var buf bytes.Buffer
	Configure("development", &buf)
	t.Cleanup(func() { Configure(os.Getenv("ENVIRONMENT"), nil) })

	Debug("request sent", "path", "/auth/me")

	assert.Contains(t, buf.String(), "request sent")
	assert.Contains(t, buf.String(), "path=/auth/me")
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger("development", &buf)

	ctx := WithContext(context.Background(), l)
	assert.Same(t, l, FromContext(ctx))
	assert.Same(t, Default(), FromContext(context.Background()))
}
