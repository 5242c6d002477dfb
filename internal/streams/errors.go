package streams

import "errors"

// Error taxonomy shared by the stream, cache and disk group layers. Callers
// match these with errors.Is; wrapping adds the failing component, extent or
// disk to the message.
var (
	// ErrFormat indicates malformed or unrecognized metadata handed in by a
	// collaborator.
	ErrFormat = errors.New("malformed metadata")

	// ErrNonContiguousExtents indicates a concatenated component whose
	// extents do not tile the volume address space exactly.
	ErrNonContiguousExtents = errors.New("non-contiguous extents")

	// ErrUnsupportedVariant indicates an unknown merge type or stream kind.
	ErrUnsupportedVariant = errors.New("unsupported variant")

	// ErrNoHealthyComponents indicates a volume whose every component is
	// missing a backing disk.
	ErrNoHealthyComponents = errors.New("no healthy components")

	// ErrSourceUnavailable indicates a builder extent whose backing source
	// could not be opened or decoded.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrCorruptData indicates a codec collaborator rejected its input.
	ErrCorruptData = errors.New("corrupt data")

	// ErrUnsupportedOperation indicates an operation the variant does not
	// support, such as writing a read-only composition or seeking backward
	// on a sequential-only decoder.
	ErrUnsupportedOperation = errors.New("unsupported operation")
)
