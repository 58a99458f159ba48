package platform

import "time"

// unixTime converts a header's Unix-epoch-seconds timestamp (0 meaning
// "absent") into a time.Time, leaving absent timestamps at the zero
// value rather than guessing "now".
func unixTime(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}
