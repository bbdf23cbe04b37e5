package market_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoetl/pkg/market"
)

func TestDecodeRawQuotePreservesOrder(t *testing.T) {
	body := `{"solana":{"inr":12000.5},"bitcoin":{"inr":9500000,"inr_24h_change":-1.25},"ether":{}}`

	raw, err := market.DecodeRawQuoteBytes([]byte(body))
	require.NoError(t, err)
	require.Len(t, raw, 3)
	assert.Equal(t, []string{"solana", "bitcoin", "ether"}, raw.IDs())

	btc, ok := raw[1].Values.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, json.Number("9500000"), btc["inr"])
	assert.Equal(t, json.Number("-1.25"), btc["inr_24h_change"])

	ether, ok := raw[2].Values.(map[string]any)
	require.True(t, ok)
	assert.Empty(t, ether)
}

func TestDecodeRawQuoteKeepsOddValues(t *testing.T) {
	raw, err := market.DecodeRawQuote(strings.NewReader(`{"a":[1,2],"b":null,"a":{"inr":1}}`))
	require.NoError(t, err)
	require.Len(t, raw, 3)
	assert.Equal(t, []any{json.Number("1"), json.Number("2")}, raw[0].Values)
	assert.Nil(t, raw[1].Values)
	assert.Equal(t, "a", raw[2].AssetID)
}

func TestDecodeRawQuoteErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "array", body: `[{"bitcoin":{}}]`},
		{name: "empty", body: ``},
		{name: "truncated", body: `{"bitcoin":{"inr":1}`},
		{name: "bad value", body: `{"bitcoin":{"inr":}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := market.DecodeRawQuoteBytes([]byte(tt.body))
			require.Error(t, err)
		})
	}
}

func TestDecodeRawQuoteEmptyObject(t *testing.T) {
	raw, err := market.DecodeRawQuoteBytes([]byte(`{}`))
	require.NoError(t, err)
	assert.Empty(t, raw)
}
