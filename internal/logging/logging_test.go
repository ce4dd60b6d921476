package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsUnknownFormat(t *testing.T) {
	_, err := New(&bytes.Buffer{}, "xml")
	assert.Error(t, err)
}

func TestLogErrorIncludesOopsContext(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "json")
	require.NoError(t, err)

	cause := oops.Code("DB_QUERY_FAILED").With("operation", "append token").Wrap(errors.New("conn reset"))
	LogError(logger, "login failed", cause, "route", "/api/user/login")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "login failed", entry["msg"])
	assert.Equal(t, "DB_QUERY_FAILED", entry["code"])
	assert.Equal(t, "/api/user/login", entry["route"])
	ctx, ok := entry["context"].(map[string]any)
	require.True(t, ok, "context should be a JSON object")
	assert.Equal(t, "append token", ctx["operation"])
}

func TestLogErrorPlainError(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "json")
	require.NoError(t, err)

	LogError(logger, "send failed", errors.New("smtp down"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "smtp down", entry["error"])
	assert.NotContains(t, entry, "code")
}
