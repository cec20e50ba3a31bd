package presence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildDeviceMapDedupAndOrder(t *testing.T) {
	records := []DeviceRecord{
		{IP: "1.1.1.1", NodeKey: "vmess1"},
		{IP: "1.1.1.1", NodeKey: "vmess1"},
		{IP: "2.2.2.2", NodeKey: "vmess1"},
		{IP: "1.1.1.1", NodeKey: "trojan3"},
	}
	got := BuildDeviceMap(records)
	assert.Equal(t, DeviceMap{
		"vmess1":  {"1.1.1.1", "2.2.2.2"},
		"trojan3": {"1.1.1.1"},
	}, got)
}

func TestBuildDeviceMapTypeAndIDShape(t *testing.T) {
	records := []DeviceRecord{
		{IP: "1.1.1.1", NodeType: "VMess", NodeID: 1},
		{IP: "2.2.2.2", NodeType: "trojan"},
		{IP: "3.3.3.3"},
		{IP: " ", NodeKey: "vmess1"},
	}
	got := BuildDeviceMap(records)
	assert.Equal(t, DeviceMap{
		"vmess1": {"1.1.1.1"},
		"trojan": {"2.2.2.2"},
	}, got)
}

func TestBuildDeviceMapFromNormalized(t *testing.T) {
	p := Payload{Entries: []NodeEntry{
		{Token: "vmess1", AliveIPs: []string{"1.1.1.1_1", "2.2.2.2_1"}},
		{Token: "trojan3", AliveIPs: []string{"1.1.1.1_3"}},
	}}
	got := BuildDeviceMap(Normalize(p, DefaultRegistry()))
	assert.Equal(t, []string{"1.1.1.1", "2.2.2.2"}, got.IPs("vmess1"))
	assert.Equal(t, []string{"1.1.1.1"}, got.IPs("trojan3"))
	assert.Equal(t, []string{}, got.IPs("vless9"))
}

func TestBuildDeviceMapEmpty(t *testing.T) {
	assert.Empty(t, BuildDeviceMap(nil))
}
