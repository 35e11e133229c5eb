package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintfRoutesLevel(t *testing.T) {
	var buf bytes.Buffer
	logf := Printf(zerolog.New(&buf))

	logf("level=error msg=refund failed booking_id=%d", 7)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "refund failed booking_id=7", entry["message"])
}

func TestPrintfDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logf := Printf(zerolog.New(&buf))

	logf("plain line %s", "here")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "plain line here", entry["message"])
}
