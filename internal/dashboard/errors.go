package dashboard

import "errors"

var (
	ErrReportNotFound = errors.New("report not found")

	ErrMissingUpload = errors.New("missing upload")
)

// PromptMessage is shown instead of a report while required files are missing.
const PromptMessage = "Please upload all required CSV files to proceed."
