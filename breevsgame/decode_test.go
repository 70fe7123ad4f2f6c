package breevsgame

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeGameSnapshot(t *testing.T) {
	raw := json.RawMessage(`{
		"creator": "ST1HOST",
		"players": ["ST1HOST", "ST2AAA"],
		"stake": "u1000000",
		"prize-pool": 2000000,
		"status": 0,
		"current-round": 0,
		"round-end": 0,
		"round-duration": "60",
		"total-rounds": 5,
		"winner": null
	}`)
	g, err := DecodeGameSnapshot(12, raw)
	require.NoError(t, err)
	assert.Equal(t, uint64(12), g.GameID)
	assert.Equal(t, "ST1HOST", g.Creator)
	assert.Equal(t, []string{"ST1HOST", "ST2AAA"}, g.Players)
	assert.Equal(t, uint64(1_000_000), g.Stake)
	assert.Equal(t, uint64(2_000_000), g.PrizePool)
	assert.Equal(t, StatusActive, g.Status)
	assert.Equal(t, uint64(60), g.RoundDuration)
	assert.Equal(t, uint32(5), g.TotalRounds)
	assert.Empty(t, g.Winner)
}

func TestDecodeGameSnapshotWrapped(t *testing.T) {
	// Some node serializers nest every field under a type/value wrapper.
	raw := json.RawMessage(`{
		"creator": {"type": "principal", "value": "ST1HOST"},
		"players": {"type": "list", "value": [{"value": "ST1HOST"}]},
		"stake": {"type": "uint", "value": "u500000"},
		"prize-pool": {"value": "500000"},
		"status": {"value": 2},
		"current-round": {"value": 5},
		"round-end": {"value": 900},
		"round-duration": {"value": 60},
		"total-rounds": {"value": 5},
		"winner": {"type": "some", "value": {"value": "ST1HOST"}}
	}`)
	g, err := DecodeGameSnapshot(3, raw)
	require.NoError(t, err)
	assert.Equal(t, StatusEnded, g.Status)
	assert.Equal(t, "ST1HOST", g.Winner)
	assert.Equal(t, uint64(500_000), g.Stake)
}

func TestDecodeGameSnapshotNoneWinner(t *testing.T) {
	raw := json.RawMessage(`{
		"creator": "ST1HOST",
		"players": ["ST1HOST"],
		"stake": 100000,
		"prize-pool": 100000,
		"status": 1,
		"current-round": 1,
		"round-end": 120,
		"round-duration": 60,
		"total-rounds": 5,
		"winner": {"type": "none"}
	}`)
	g, err := DecodeGameSnapshot(1, raw)
	require.NoError(t, err)
	assert.Empty(t, g.Winner)
}

func TestDecodeGameSnapshotFailsClosed(t *testing.T) {
	base := map[string]any{
		"creator":        "ST1HOST",
		"players":        []string{"ST1HOST"},
		"stake":          100000,
		"prize-pool":     100000,
		"status":         0,
		"current-round":  0,
		"round-end":      0,
		"round-duration": 60,
		"total-rounds":   5,
	}
	mutate := func(field string, v any) json.RawMessage {
		m := make(map[string]any, len(base))
		for k, val := range base {
			m[k] = val
		}
		if v == nil {
			delete(m, field)
		} else {
			m[field] = v
		}
		raw, err := json.Marshal(m)
		require.NoError(t, err)
		return raw
	}

	// The well-formed base decodes.
	_, err := DecodeGameSnapshot(1, mutate("status", 0))
	require.NoError(t, err)

	cases := []struct {
		name string
		raw  json.RawMessage
	}{
		{"missing creator", mutate("creator", nil)},
		{"missing stake", mutate("stake", nil)},
		{"garbage stake", mutate("stake", "not-a-number")},
		{"negative stake", mutate("stake", -5)},
		{"status out of range", mutate("status", 3)},
		{"players not a list", mutate("players", "ST1HOST")},
		{"too many players", mutate("players", []string{"a", "b", "c", "d", "e", "f", "g"})},
		{"winner on active game", mutate("winner", "ST1HOST")},
		{"not a tuple", json.RawMessage(`"just a string"`)},
	}
	for _, tc := range cases {
		g, err := DecodeGameSnapshot(1, tc.raw)
		assert.Error(t, err, tc.name)
		assert.Nil(t, g, tc.name)
	}

	// Ended without a winner is rejected too.
	m := mutate("status", 2)
	g, err := DecodeGameSnapshot(1, m)
	assert.Error(t, err)
	assert.Nil(t, g)
}
