package books

import "time"

// startedPrefix precedes the start date MarkAsReading writes to the comment.
const startedPrefix = "Comenzado el "

// FormatDateCL renders t the way Chilean Spanish short dates are written:
// day-month-year, zero padded, dash separated. The locale is fixed.
func FormatDateCL(t time.Time) string {
	return t.Format("02-01-2006")
}

// StartedComment is the comment MarkAsReading stores for a start at t.
func StartedComment(t time.Time) string {
	return startedPrefix + FormatDateCL(t)
}
