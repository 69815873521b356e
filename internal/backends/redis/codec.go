package redis

import (
	"folio/internal/types"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"
)

var enc, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
var dec, _ = zstd.NewReader(nil)

// encodeDocument stores documents as zstd compressed JSON.
func encodeDocument(doc types.Document) ([]byte, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return enc.EncodeAll(b, nil), nil
}

func decodeDocument(raw []byte) (types.Document, error) {
	b, err := dec.DecodeAll(raw, nil)
	if err != nil {
		return nil, err
	}
	var doc types.Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
