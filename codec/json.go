package codec

import (
	"encoding/json"
)

// JSON is the standard-library JSON codec.
//
// Template data is plain structs of numeric slices, which JSON round-trips
// exactly for float32 values. If you need a custom encoding (e.g. protobuf,
// msgpack), implement Codec and pass it where snapshots are written.
type JSON struct{}

// Marshal encodes the value to JSON.
func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal decodes the JSON data into v.
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Name returns the unique name of the codec ("json").
func (JSON) Name() string { return "json" }

// Default is the codec used for newly-written snapshots.
//
// Existing snapshots are self-describing (they store the codec name in their
// header) and are opened by selecting the appropriate codec by name.
var Default Codec = JSON{}
