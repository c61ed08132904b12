package domain

// RawDocument represents uploaded bytes before normalisation.
type RawDocument struct {
	// Owner is the uploading user.
	Owner string

	// URI is the original location (file path, URL, etc).
	URI string

	// Title overrides the title derived from the URI when set.
	Title string

	// MIMEType is the content type (e.g., "application/pdf").
	MIMEType string

	// Content is the raw bytes.
	Content []byte
}
