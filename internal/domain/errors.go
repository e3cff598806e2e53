package domain

import "errors"

var (
	// ErrJobNotFound is returned when a job cannot be found by ID.
	ErrJobNotFound = errors.New("job not found")

	// ErrSiteNotFound is returned when a site cannot be found by ID.
	ErrSiteNotFound = errors.New("site not found")

	// ErrArticleNotFound is returned when an article cannot be found by ID.
	ErrArticleNotFound = errors.New("article not found")

	// ErrProductNotFound is returned when a product cannot be found by ID.
	ErrProductNotFound = errors.New("product not found")

	// ErrScheduleNotFound is returned when a schedule cannot be found by ID.
	ErrScheduleNotFound = errors.New("schedule not found")

	// ErrCredentialNotFound is returned when a site has no stored credential.
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrSlugTaken is returned when a site slug violates the uniqueness constraint.
	ErrSlugTaken = errors.New("subdomain slug already taken")

	// ErrInvalidSlug is returned when a slug fails validation or is reserved.
	ErrInvalidSlug = errors.New("invalid or reserved subdomain slug")

	// ErrInvalidKind is returned when an unknown job kind is submitted.
	ErrInvalidKind = errors.New("invalid or unsupported job kind")

	// ErrConstraintViolation marks record-store integrity violations; the
	// orchestrator treats these as fatal, never retried.
	ErrConstraintViolation = errors.New("record store constraint violation")

	// ErrPublishFailed is returned when the message broker publish fails.
	ErrPublishFailed = errors.New("failed to publish event to message queue")
)

// ErrorCode classifies expected workflow failures. These travel inside
// tagged results, never as thrown errors, so callers handle both branches
// explicitly.
type ErrorCode string

const (
	CodeSiteExists  ErrorCode = "SITE_EXISTS"
	CodeWPCLIError  ErrorCode = "WP_CLI_ERROR"
	CodeSSHError    ErrorCode = "SSH_ERROR"
	CodeAuthError   ErrorCode = "AUTH_ERROR"
	CodeAPIError    ErrorCode = "API_ERROR"
	CodeUploadError ErrorCode = "UPLOAD_ERROR"
	CodeUnknown     ErrorCode = "UNKNOWN"
)

// Retryable reports whether a failure with this code is worth retrying.
// Precondition violations and credential rejections will not heal on
// their own; transport-level faults might.
func (c ErrorCode) Retryable() bool {
	switch c {
	case CodeSiteExists, CodeAuthError:
		return false
	}
	return true
}
