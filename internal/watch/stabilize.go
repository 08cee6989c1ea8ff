package watch

import (
	"fmt"
	"os"
	"time"
)

// waitForFile polls path's size up to polls times, interval apart, and
// succeeds once two consecutive reads report the same non-zero size (§4.1).
// Screenshot tools write in multiple steps; this ensures the image is
// stable before OCR reads it.
func waitForFile(path string, polls int, interval time.Duration) error {
	var lastSize int64 = -1

	for i := 0; i < polls; i++ {
		info, err := os.Stat(path)
		if err == nil {
			size := info.Size()
			if size > 0 && size == lastSize {
				return nil
			}
			lastSize = size
		} else {
			lastSize = -1
		}
		time.Sleep(interval)
	}
	return fmt.Errorf("watch: %s did not stabilize within %d polls", path, polls)
}
