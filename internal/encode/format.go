// Package encode implements the CSV, newline-delimited JSON, and binary
// codecs used by snapshot export and the async log sink. The binary encoding
// round-trips losslessly to the same JSON representation.
package encode

import (
	"fmt"
	"strings"
	"time"
)

// Format selects an export/serialization format.
type Format string

// Supported formats.
const (
	FormatCSV    Format = "csv"
	FormatJSON   Format = "json"
	FormatBinary Format = "binary"
)

// ParseFormat parses a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatBinary:
		return FormatBinary, nil
	}
	return "", fmt.Errorf("unknown format %q", s)
}

// Ext returns the file extension conventionally used for the format.
func (f Format) Ext() string {
	switch f {
	case FormatCSV:
		return ".csv"
	case FormatBinary:
		return ".bin"
	default:
		return ".jsonl"
	}
}

// Timestamps cross the wire as float64 seconds since the Unix epoch, matching
// the JSON contract {"timestamp": f64}.

func toUnixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func fromUnixSeconds(s float64) time.Time {
	return time.Unix(0, int64(s*float64(time.Second)))
}
