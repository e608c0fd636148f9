package ai

import (
	"errors"
	"fmt"
)

// ssdRowWidth is the row layout of an SSD DetectionOutput blob:
// [batch, class, confidence, x1, y1, x2, y2] with normalized coordinates.
const ssdRowWidth = 7

// ErrUnsupportedOutput is returned when a network's output is not laid out
// as SSD detection rows.
var ErrUnsupportedOutput = errors.New("unsupported model output layout")

// ssdRows returns the number of detection rows in an output blob of the
// given shape and element count, e.g. [1, 1, N, 7].
func ssdRows(shape []int, total int) (int, error) {
	if len(shape) == 0 || shape[len(shape)-1] != ssdRowWidth || total%ssdRowWidth != 0 {
		return 0, fmt.Errorf("%w: shape %v, expected rows of %d values", ErrUnsupportedOutput, shape, ssdRowWidth)
	}
	return total / ssdRowWidth, nil
}
