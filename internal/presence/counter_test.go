package presence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func examplePayload(t *testing.T) Payload {
	t.Helper()
	p, err := ParsePayload([]byte(`{"vmess1":{"aliveips":["1.1.1.1_1","2.2.2.2_1"],"lastupdateAt":1700000000},"trojan3":{"aliveips":["1.1.1.1_3"],"lastupdateAt":1700000005},"alive_ip":3}`))
	require.NoError(t, err)
	return p
}

func TestCountModes(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		connections int
		distinct    int
	}{
		{
			name:        "same ip on one node",
			raw:         `{"vmess1":{"aliveips":["1.1.1.1_1","1.1.1.1_2","2.2.2.2_1"]}}`,
			connections: 3,
			distinct:    2,
		},
		{
			name:        "same ip across nodes",
			raw:         `{"vmess1":{"aliveips":["1.1.1.1_1","2.2.2.2_1"],"lastupdateAt":1700000000},"trojan3":{"aliveips":["1.1.1.1_3"],"lastupdateAt":1700000005},"alive_ip":3}`,
			connections: 3,
			distinct:    2,
		},
		{
			name:        "entry without aliveips",
			raw:         `{"vmess1":{"lastupdateAt":1700000000},"trojan3":{"aliveips":["3.3.3.3_3"]}}`,
			connections: 1,
			distinct:    1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePayload([]byte(tt.raw))
			require.NoError(t, err)

			n, err := CountConnections.Count(p)
			require.NoError(t, err)
			assert.Equal(t, tt.connections, n)

			n, err = CountDistinctIPs.Count(p)
			require.NoError(t, err)
			assert.Equal(t, tt.distinct, n)
		})
	}
}

func TestCountEmptyPayload(t *testing.T) {
	for _, mode := range []CountMode{CountConnections, CountDistinctIPs} {
		n, err := mode.Count(Payload{})
		require.NoError(t, err)
		assert.Zero(t, n)
	}
}

func TestCountDistinctSkipsEmptyIP(t *testing.T) {
	p := Payload{Entries: []NodeEntry{{Token: "vmess1", AliveIPs: []string{"_1", "1.1.1.1", "1.1.1.1_2"}}}}
	n, err := CountDistinctIPs.Count(p)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestInvalidCountMode(t *testing.T) {
	_, err := ParseCountMode(2)
	assert.ErrorIs(t, err, ErrInvalidCountMode)

	_, err = ParseCountModeString("abc")
	assert.ErrorIs(t, err, ErrInvalidCountMode)

	mode, err := ParseCountModeString(" 1 ")
	require.NoError(t, err)
	assert.Equal(t, CountDistinctIPs, mode)

	_, err = CountMode(2).Count(examplePayload(t))
	assert.ErrorIs(t, err, ErrInvalidCountMode)

	_, err = CountMode(-1).CountMany(map[int64]Payload{1: {}})
	assert.ErrorIs(t, err, ErrInvalidCountMode)
}

func TestCountMany(t *testing.T) {
	got, err := CountDistinctIPs.CountMany(map[int64]Payload{1: examplePayload(t), 2: {}})
	require.NoError(t, err)
	assert.Equal(t, map[int64]int{1: 2, 2: 0}, got)
}
