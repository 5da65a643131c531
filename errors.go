package main

import "errors"

// Error kinds reported by URL parsing, connection setup, and response
// handling. Values are wrapped with fmt.Errorf("%w: ...") so callers can
// match the kind with errors.Is while the message keeps the detail.
// File loading does not add a kind of its own; it propagates the
// *fs.PathError from the os package so fs.ErrNotExist and
// fs.ErrPermission stay matchable.
var (
	// ErrMalformedURL marks input that cannot be parsed into a supported URL.
	ErrMalformedURL = errors.New("malformed URL")

	// ErrConnect marks a failure to establish a usable connection
	// (DNS, TCP dial, or TLS handshake).
	ErrConnect = errors.New("connection failed")

	// ErrProtocol marks a response that violates HTTP/1.1 framing.
	ErrProtocol = errors.New("malformed HTTP response")

	// ErrUnsupportedEncoding marks a response using a transfer or content
	// encoding this client does not implement.
	ErrUnsupportedEncoding = errors.New("unsupported encoding")
)
