package presence

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePayloadKeepsDocumentOrder(t *testing.T) {
	p, err := ParsePayload([]byte(`{
		"vmess2": {"aliveips": ["2.2.2.2_2"], "lastupdateAt": 20},
		"alive_ip": 3,
		"trojan1": {"aliveips": ["1.1.1.1_1", "3.3.3.3_1"], "lastupdateAt": "10"}
	}`))
	require.NoError(t, err)

	require.Len(t, p.Entries, 2)
	assert.Equal(t, "vmess2", p.Entries[0].Token)
	assert.Equal(t, int64(20), p.Entries[0].LastUpdateAt)
	assert.Equal(t, "trojan1", p.Entries[1].Token)
	assert.Equal(t, []string{"1.1.1.1_1", "3.3.3.3_1"}, p.Entries[1].AliveIPs)
	assert.Equal(t, int64(10), p.Entries[1].LastUpdateAt)
	assert.Equal(t, 3, p.AliveIP)
}

func TestParsePayloadSkipsMalformedEntries(t *testing.T) {
	p, err := ParsePayload([]byte(`{
		"vmess1": "oops",
		"vmess2": {"aliveips": "1.1.1.1_2"},
		"vmess3": {"lastupdateAt": 5},
		"vmess4": {"aliveips": ["4.4.4.4_4", 7, null, {"ip": "x"}]},
		"vmess5": {"aliveips": []}
	}`))
	require.NoError(t, err)

	require.Len(t, p.Entries, 2)
	assert.Equal(t, NodeEntry{Token: "vmess4", AliveIPs: []string{"4.4.4.4_4"}}, p.Entries[0])
	assert.Equal(t, "vmess5", p.Entries[1].Token)
	assert.Empty(t, p.Entries[1].AliveIPs)
}

func TestParsePayloadRejectsNonObject(t *testing.T) {
	for _, doc := range []string{``, `[]`, `"x"`, `{broken`} {
		_, err := ParsePayload([]byte(doc))
		assert.ErrorIs(t, err, ErrMalformedPayload, doc)
	}
}

func TestPayloadMarshalLayout(t *testing.T) {
	p := Payload{
		Entries: []NodeEntry{
			{Token: "vmess1", AliveIPs: []string{"1.1.1.1_1"}, LastUpdateAt: 100},
			{Token: "trojan2", LastUpdateAt: 90},
		},
		AliveIP: 1,
	}
	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"vmess1": {"aliveips": ["1.1.1.1_1"], "lastupdateAt": 100},
		"trojan2": {"aliveips": [], "lastupdateAt": 90},
		"alive_ip": 1
	}`, string(data))

	back, err := ParsePayload(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"vmess1", "trojan2"}, []string{back.Entries[0].Token, back.Entries[1].Token})
}

func TestEscapePathKey(t *testing.T) {
	assert.Equal(t, "vmess1", escapePathKey("vmess1"))
	assert.Equal(t, `a\.b\*c`, escapePathKey("a.b*c"))
}
