package services

import (
	"math"
	"strconv"
	"strings"
)

var fileSizeUnits = []string{"Bytes", "KB", "MB", "GB", "TB", "PB", "EB", "ZB", "YB"}

// FormatFileSize renders a byte count in base-1000 units with at most
// the given number of decimals, trailing zeros trimmed: 1500 with two
// decimals is "1.5 KB".
func FormatFileSize(bytes int64, decimals int) string {
	if bytes == 0 {
		return "0 Bytes"
	}
	if decimals <= 0 {
		decimals = 2
	}

	index := int(math.Floor(math.Log(float64(bytes)) / math.Log(1000)))
	if index >= len(fileSizeUnits) {
		index = len(fileSizeUnits) - 1
	}

	value := float64(bytes) / math.Pow(1000, float64(index))
	formatted := strconv.FormatFloat(value, 'f', decimals, 64)
	formatted = strings.TrimRight(formatted, "0")
	formatted = strings.TrimRight(formatted, ".")

	return formatted + " " + fileSizeUnits[index]
}
