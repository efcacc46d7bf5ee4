package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatFileSize(t *testing.T) {
	tests := []struct {
		name     string
		bytes    int64
		decimals int
		want     string
	}{
		{"zero", 0, 2, "0 Bytes"},
		{"bytes", 512, 2, "512 Bytes"},
		{"exact kilobyte", 1000, 2, "1 KB"},
		{"fractional kilobytes", 1500, 2, "1.5 KB"},
		{"trailing zeros trimmed", 1250, 2, "1.25 KB"},
		{"megabytes", 2_500_000, 2, "2.5 MB"},
		{"gigabytes", 3_000_000_000, 2, "3 GB"},
		{"default decimals", 1500, 0, "1.5 KB"},
		{"one decimal rounds", 1260, 1, "1.3 KB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatFileSize(tt.bytes, tt.decimals))
		})
	}
}
