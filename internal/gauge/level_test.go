package gauge

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelZeroValueIsNone(t *testing.T) {
	var l Level
	assert.Equal(t, LevelNone, l)
	assert.Equal(t, "none", l.String())
}

func TestLevelOrdering(t *testing.T) {
	assert.Less(t, LevelNone, LevelLow)
	assert.Less(t, LevelLow, LevelMed)
	assert.Less(t, LevelMed, LevelHigh)
}

func TestParseLevel(t *testing.T) {
	for _, l := range []Level{LevelNone, LevelLow, LevelMed, LevelHigh} {
		parsed, err := ParseLevel(l.String())
		require.NoError(t, err)
		assert.Equal(t, l, parsed)
	}

	_, err := ParseLevel("critical")
	assert.ErrorIs(t, err, ErrUnknownLevel)
}

func TestLevelJSON(t *testing.T) {
	data, err := json.Marshal(map[string]Level{"cpu": LevelMed})
	require.NoError(t, err)
	assert.JSONEq(t, `{"cpu":"med"}`, string(data))

	var out struct {
		Level Level `json:"level"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"level":"high"}`), &out))
	assert.Equal(t, LevelHigh, out.Level)

	assert.Error(t, json.Unmarshal([]byte(`{"level":"urgent"}`), &out))
}
