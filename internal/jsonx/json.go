// Package jsonx provides a configurable JSON encoding/decoding layer.
// It defaults to github.com/bytedance/sonic's standard-compatible config;
// SetConfig replaces it, for example with encoding/json in tests.
package jsonx

import (
	stdjson "encoding/json"
	"io"

	"github.com/bytedance/sonic"
)

// Encoder is the interface for streaming JSON encoding.
type Encoder interface {
	Encode(v any) error
}

// Decoder is the interface for streaming JSON decoding.
type Decoder interface {
	Decode(v any) error
}

// Config holds the JSON encoding/decoding functions in use.
type Config struct {
	Marshal   func(v any) ([]byte, error)
	Unmarshal func(data []byte, v any) error
	NewEncoder func(w io.Writer) Encoder
	NewDecoder func(r io.Reader) Decoder
}

func sonicConfig() Config {
	api := sonic.ConfigStd
	return Config{
		Marshal:   api.Marshal,
		Unmarshal: api.Unmarshal,
		NewEncoder: func(w io.Writer) Encoder {
			return api.NewEncoder(w)
		},
		NewDecoder: func(r io.Reader) Decoder {
			return api.NewDecoder(r)
		},
	}
}

var config = sonicConfig()

// SetConfig overrides the global JSON configuration, primarily for tests
// that need encoding/json's stricter number handling.
func SetConfig(c Config) { config = c }

// Marshal returns the JSON encoding of v.
func Marshal(v any) ([]byte, error) { return config.Marshal(v) }

// Unmarshal parses the JSON-encoded data and stores the result in v.
func Unmarshal(data []byte, v any) error { return config.Unmarshal(data, v) }

// NewEncoder returns a new Encoder that writes to w.
func NewEncoder(w io.Writer) Encoder { return config.NewEncoder(w) }

// NewDecoder returns a new Decoder that reads from r.
func NewDecoder(r io.Reader) Decoder { return config.NewDecoder(r) }

// RawMessage delays JSON decoding of a field.
type RawMessage = stdjson.RawMessage
