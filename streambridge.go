// Package streambridge provides top-level convenience entry points for turning
// a blocking byte source into a demand-driven chunk stream.
//
// Usage:
//
//	import "github.com/BaSui01/streambridge"
//
//	p, err := streambridge.FromFile(f, streambridge.WithChunkSize(4096))
//	n, err := streambridge.Copy(os.Stdout, p)
//
// These are thin wrappers around the stream and sink packages; use those
// directly for custom sources or subscribers.
package streambridge

import (
	"bytes"
	"io"
	"os"

	"github.com/BaSui01/streambridge/sink"
	"github.com/BaSui01/streambridge/stream"
)

// DefaultChunkSize is the default maximum chunk length.
const DefaultChunkSize = stream.DefaultChunkSize

// RequestAll requests an unbounded number of chunks.
const RequestAll = stream.RequestAll

// Option configures a publisher.
type Option = stream.Option

// Publisher is a single-subscriber chunk stream.
type Publisher = stream.Publisher

// Subscriber receives chunks and exactly one terminal signal.
type Subscriber = stream.Subscriber

// Subscription controls demand for a subscriber.
type Subscription = stream.Subscription

// Re-export publisher options so callers never need to import stream/.

// WithChunkSize sets the maximum chunk length.
var WithChunkSize = stream.WithChunkSize

// WithLogger sets a custom zap logger.
var WithLogger = stream.WithLogger

// WithObserver attaches a lifecycle observer.
var WithObserver = stream.WithObserver

// WithStreamID overrides the generated stream ID.
var WithStreamID = stream.WithStreamID

// FromReader streams any io.Reader. r is closed on termination if it is an io.Closer.
func FromReader(r io.Reader, opts ...Option) (*Publisher, error) {
	return stream.NewPublisher(stream.NewReaderSource(r), opts...)
}

// FromFile streams f, probing readable bytes with the platform ioctl where available.
// f is closed on termination.
func FromFile(f *os.File, opts ...Option) (*Publisher, error) {
	return stream.NewPublisher(stream.NewFileSource(f), opts...)
}

// FromBytes streams an in-memory buffer.
func FromBytes(b []byte, opts ...Option) (*Publisher, error) {
	return stream.NewPublisher(stream.NewBytesSource(b), opts...)
}

// Copy writes every chunk of p to w and returns the number of bytes written.
var Copy = sink.Copy

// Collect gathers every chunk of p into one buffer.
var Collect = sink.Collect

// ReadAll streams r with the given options and returns its full content.
func ReadAll(r io.Reader, opts ...Option) ([]byte, error) {
	p, err := FromReader(r, opts...)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := Copy(&buf, p); err != nil {
		return buf.Bytes(), err
	}
	return buf.Bytes(), nil
}
