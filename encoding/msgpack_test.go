package encoding

import (
	"bytes"
	"strings"
	"sync"
	"testing"
)

type record struct {
	Name string `msgpack:"name"`
	Mode int32  `msgpack:"mode"`
}

func TestMarshal_Struct(t *testing.T) {
	data, err := Marshal(record{Name: "debug_db", Mode: 2})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var got record
	if err := Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got.Name != "debug_db" || got.Mode != 2 {
		t.Errorf("unexpected record: %+v", got)
	}
}

func TestUnmarshal_StringsStayStrings(t *testing.T) {
	data, err := Marshal(map[string]interface{}{"k": "v"})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var got map[string]interface{}
	if err := Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if _, ok := got["k"].(string); !ok {
		t.Errorf("expected string, got %T", got["k"])
	}
}

func TestEncodeRow(t *testing.T) {
	tests := []struct {
		name    string
		columns []string
		values  []interface{}
		wantKey []string
		wantErr bool
	}{
		{"named columns", []string{"id", "name"}, []interface{}{int64(1), "alice"}, []string{"id", "name"}, false},
		{"positional", nil, []interface{}{int64(1), "alice"}, []string{"col0", "col1"}, false},
		{"mismatch", []string{"id"}, []interface{}{int64(1), "alice"}, nil, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data, err := EncodeRow(tc.columns, tc.values)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("EncodeRow failed: %v", err)
			}

			row, err := DecodeRow(data)
			if err != nil {
				t.Fatalf("DecodeRow failed: %v", err)
			}
			for _, k := range tc.wantKey {
				if _, ok := row[k]; !ok {
					t.Errorf("missing key %q in %v", k, row)
				}
			}
		})
	}
}

func TestMarshal_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				data, err := EncodeRow([]string{"g", "i"}, []interface{}{id, j})
				if err != nil {
					t.Errorf("EncodeRow failed: %v", err)
					return
				}
				if _, err := DecodeRow(data); err != nil {
					t.Errorf("DecodeRow failed: %v", err)
					return
				}
			}
		}(i)
	}
	wg.Wait()
}

func TestCompressRoundTrip(t *testing.T) {
	payload, err := EncodeRow([]string{"id", "note"}, []interface{}{int64(7), strings.Repeat("x", 512)})
	if err != nil {
		t.Fatalf("EncodeRow failed: %v", err)
	}

	compressed := Compress(payload)
	if len(compressed) >= len(payload) {
		t.Errorf("expected compression, got %d >= %d bytes", len(compressed), len(payload))
	}

	out, err := Decompress(compressed)
	if err != nil {
		t.Fatalf("Decompress failed: %v", err)
	}
	if !bytes.Equal(out, payload) {
		t.Errorf("round trip mismatch")
	}

	if _, err := Decompress([]byte("not zstd")); err == nil {
		t.Errorf("expected error for invalid payload")
	}
}

func TestParseCompression(t *testing.T) {
	for in, want := range map[string]string{"": CompressionNone, "none": CompressionNone, "ZSTD": CompressionZstd} {
		got, err := ParseCompression(in)
		if err != nil || got != want {
			t.Errorf("ParseCompression(%q) = %q, %v; want %q", in, got, err, want)
		}
	}

	if _, err := ParseCompression("gzip"); err == nil {
		t.Errorf("expected error for gzip")
	}
}
