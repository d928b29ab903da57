package fetcher

// ProviderErrorKind classifies a save-fetch failure for mapping into the
// service's error taxonomy.
type ProviderErrorKind string

const (
	ErrUnauthorized      ProviderErrorKind = "Unauthorized"
	ErrForbidden         ProviderErrorKind = "Forbidden"
	ErrNotFound          ProviderErrorKind = "NotFound"
	ErrRateLimited       ProviderErrorKind = "RateLimited"
	ErrUpstream5xx       ProviderErrorKind = "Upstream5xx"
	ErrBlobTooLarge      ProviderErrorKind = "BlobTooLarge"
	ErrMalformedMetadata ProviderErrorKind = "MalformedMetadata"
	ErrNetwork           ProviderErrorKind = "Network"
)

// ProviderError is a save-fetch failure tagged with its kind.
type ProviderError struct {
	Kind  ProviderErrorKind
	cause error
}

// NewProviderError wraps cause under the given kind.
func NewProviderError(kind ProviderErrorKind, cause error) *ProviderError {
	return &ProviderError{Kind: kind, cause: cause}
}

func (e *ProviderError) Error() string {
	if e.cause != nil {
		return string(e.Kind) + ": " + e.cause.Error()
	}
	return string(e.Kind)
}

func (e *ProviderError) Unwrap() error { return e.cause }
