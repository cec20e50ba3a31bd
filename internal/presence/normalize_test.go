package presence

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeExample(t *testing.T) {
	p, err := ParsePayload([]byte(`{"vmess1":{"aliveips":["1.1.1.1_1","2.2.2.2_1"],"lastupdateAt":1700000000},"trojan3":{"aliveips":["1.1.1.1_3"],"lastupdateAt":1700000005},"alive_ip":3}`))
	require.NoError(t, err)

	got := Normalize(p, DefaultRegistry())
	assert.Equal(t, []DeviceRecord{
		{IP: "1.1.1.1", NodeType: "vmess", NodeID: 1, NodeKey: "vmess1", LastSeen: 1700000000},
		{IP: "2.2.2.2", NodeType: "vmess", NodeID: 1, NodeKey: "vmess1", LastSeen: 1700000000},
		{IP: "1.1.1.1", NodeType: "trojan", NodeID: 3, NodeKey: "trojan3", LastSeen: 1700000005},
	}, got)
}

func TestNormalizePayloadIDWins(t *testing.T) {
	p := Payload{Entries: []NodeEntry{{Token: "vmess1", AliveIPs: []string{"9.9.9.9_5"}}}}
	got := Normalize(p, DefaultRegistry())
	require.Len(t, got, 1)
	assert.Equal(t, int64(5), got[0].NodeID)
	assert.Equal(t, "vmess5", got[0].NodeKey)
	assert.Equal(t, "vmess", got[0].NodeType)
}

func TestNormalizeFallbacks(t *testing.T) {
	p := Payload{Entries: []NodeEntry{
		{Token: "vmess4", AliveIPs: []string{"1.1.1.1", "2.2.2.2_x", "3.3.3.3_0", "_7", ""}},
		{Token: "unknown9", AliveIPs: []string{"5.5.5.5_2"}},
		{Token: "trojan", AliveIPs: []string{"6.6.6.6"}},
	}}
	got := Normalize(p, DefaultRegistry())
	assert.Equal(t, []DeviceRecord{
		{IP: "1.1.1.1", NodeType: "vmess", NodeID: 4, NodeKey: "vmess4"},
		{IP: "2.2.2.2", NodeType: "vmess", NodeID: 4, NodeKey: "vmess4"},
		{IP: "3.3.3.3", NodeType: "vmess", NodeID: 4, NodeKey: "vmess4"},
		{IP: "5.5.5.5", NodeID: 2},
		{IP: "6.6.6.6", NodeType: "trojan"},
	}, got)
}

func TestNormalizeEmpty(t *testing.T) {
	got := Normalize(Payload{}, DefaultRegistry())
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestDeviceRecordJSON(t *testing.T) {
	data, err := json.Marshal([]DeviceRecord{
		{IP: "1.1.1.1", NodeType: "vmess", NodeID: 1, NodeKey: "vmess1", LastSeen: 9},
		{IP: "2.2.2.2", NodeType: "trojan"},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"ip":"1.1.1.1","node_type":"vmess","node_id":1,"node_key":"vmess1","last_seen":9},
		{"ip":"2.2.2.2","node_type":"trojan","node_id":null,"node_key":null,"last_seen":0}
	]`, string(data))
}
