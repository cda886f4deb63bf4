package domain

const (
	// MinReadingsForAnalysis is the history size below which pattern analysis is refused.
	MinReadingsForAnalysis = 5

	// DefaultRetentionDays is the default history retention. Zero or less keeps everything.
	DefaultRetentionDays = 90
)
