package market

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Quote is one upstream entry: an asset id and its metrics object as decoded
// from JSON. Values is normally a map[string]any whose numbers are
// json.Number; anything else is left for the normalizer to reject.
type Quote struct {
	AssetID string
	Values  any
}

// RawQuote is the ordered quote set of a single fetch.
type RawQuote []Quote

// IDs returns the asset ids in order.
func (q RawQuote) IDs() []string {
	out := make([]string, len(q))
	for i, entry := range q {
		out[i] = entry.AssetID
	}
	return out
}

// DecodeRawQuote reads a JSON object of asset id to metrics object and keeps
// the upstream key order. Repeated keys are kept as separate entries.
func DecodeRawQuote(r io.Reader) (RawQuote, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode quotes: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("decode quotes: expected object, got %v", tok)
	}

	var out RawQuote
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode quotes: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("decode quotes: unexpected key %v", keyTok)
		}
		var values any
		if err := dec.Decode(&values); err != nil {
			return nil, fmt.Errorf("decode quotes: asset %s: %w", key, err)
		}
		out = append(out, Quote{AssetID: key, Values: values})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("decode quotes: %w", err)
	}
	return out, nil
}

// DecodeRawQuoteBytes is DecodeRawQuote over a byte slice.
func DecodeRawQuoteBytes(data []byte) (RawQuote, error) {
	return DecodeRawQuote(bytes.NewReader(data))
}
