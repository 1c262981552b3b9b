package utils

import "fmt"

const bytesPerKilobyte = 1024

var sizeUnits = []string{"KB", "MB", "GB"}

// FormatDocumentSize renders a document length the way merge summaries report it:
// whole bytes below one kilobyte, two decimals above.
func FormatDocumentSize(byteCount int64) string {
	if byteCount < bytesPerKilobyte {
		if byteCount < 0 {
			byteCount = 0
		}
		return fmt.Sprintf("%d B", byteCount)
	}
	value := float64(byteCount) / bytesPerKilobyte
	unitIndex := 0
	for value >= bytesPerKilobyte && unitIndex < len(sizeUnits)-1 {
		value /= bytesPerKilobyte
		unitIndex++
	}
	return fmt.Sprintf("%.2f %s", value, sizeUnits[unitIndex])
}
