// Package encoding provides the msgpack codec used for persisted catalog
// records and for row payloads published by append-only connectors.
//
// Thread Safety: all functions are safe for concurrent use.
package encoding

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Marshal encodes a value to msgpack format.
func Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)

	if err := enc.Encode(v); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Unmarshal decodes msgpack data using loose interface decoding.
// When decoding into interface{}, strings stay Go strings instead of []byte.
func Unmarshal(data []byte, v interface{}) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.UseLooseInterfaceDecoding(true)

	return dec.Decode(v)
}

// EncodeRow encodes a single row as a msgpack map of column name to value.
// Columns without a name are keyed by their ordinal ("col0", "col1", ...).
func EncodeRow(columns []string, values []interface{}) ([]byte, error) {
	if len(columns) != 0 && len(columns) != len(values) {
		return nil, fmt.Errorf("row has %d values for %d columns", len(values), len(columns))
	}

	row := make(map[string]interface{}, len(values))
	for i, v := range values {
		key := fmt.Sprintf("col%d", i)
		if len(columns) != 0 && columns[i] != "" {
			key = columns[i]
		}
		row[key] = v
	}

	return Marshal(row)
}

// DecodeRow is the inverse of EncodeRow.
func DecodeRow(data []byte) (map[string]interface{}, error) {
	var row map[string]interface{}
	if err := Unmarshal(data, &row); err != nil {
		return nil, err
	}
	return row, nil
}
