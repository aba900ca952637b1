package report

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Encode serializes r as zstd-compressed JSON.
func Encode(r Report) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("report: failed to create zstd encoder: %w", err)
	}
	if err := json.NewEncoder(zw).Encode(r); err != nil {
		_ = zw.Close()
		return nil, fmt.Errorf("report: JSON encode failed: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("report: zstd close failed: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode reverses Encode.
func Decode(data []byte) (Report, error) {
	zr, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return Report{}, fmt.Errorf("report: failed to create zstd decoder: %w", err)
	}
	defer zr.Close()

	var r Report
	if err := json.NewDecoder(zr).Decode(&r); err != nil {
		return Report{}, fmt.Errorf("report: failed to decode: %w", err)
	}
	return r, nil
}
