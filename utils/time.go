package utils

import (
	"fmt"
	"time"
)

// FormatYtDuration formats a duration as HH:MM:SS. Hours are not wrapped into days.
func FormatYtDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
