package service

import "time"

// RetentionExpired reports whether a trashed document has sat in the trash
// for at least the retention window. A nil trashedAt means the document is
// active and can never be retention-expired. This is the single place the
// retention comparison is made.
func RetentionExpired(trashedAt *time.Time, retention time.Duration, now time.Time) bool {
	if trashedAt == nil {
		return false
	}
	return now.Sub(*trashedAt) >= retention
}
