// Package storage defines the object storage collaborator used to persist
// finished clips, and the retrying HTTP downloader shared by its
// implementations.
package storage

import "context"

// UploadInput describes one object to write.
type UploadInput struct {
	Key         string
	Body        []byte
	ContentType string
	Metadata    map[string]string
}

// DownloadOptions tune a download. A zero ExpectedSize skips the size
// check.
type DownloadOptions struct {
	ExpectedSize int64
}

// Download is a fetched body and its hex SHA-256 checksum.
type Download struct {
	Body        []byte
	Checksum    string
	ContentType string
}

// Storage uploads objects and downloads provider output.
type Storage interface {
	// UploadFile writes the object and returns its public URL.
	UploadFile(ctx context.Context, in *UploadInput) (string, error)

	// DownloadBufferWithRetry fetches url into memory, retrying
	// transient failures.
	DownloadBufferWithRetry(ctx context.Context, url string, opts DownloadOptions) (*Download, error)
}
