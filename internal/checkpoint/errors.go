package checkpoint

import "errors"

// Sentinel errors returned by the checkpoint reader and importer.
var (
	// ErrInvalidMagic means the file does not start with the quill magic bytes.
	ErrInvalidMagic = errors.New("invalid magic bytes")

	// ErrUnsupportedVersion means the file uses a format version this build
	// does not understand.
	ErrUnsupportedVersion = errors.New("unsupported format version")

	// ErrCorrupt means the header and data section disagree: a tensor
	// extends past the data section, overlaps another tensor, or has a size
	// inconsistent with its shape and dtype.
	ErrCorrupt = errors.New("corrupt checkpoint")

	// ErrIncompatibleCheckpoint means the file is well-formed but does not
	// match the model being loaded: wrong parameter names, wrong shapes, or
	// an architecture mismatch. Loads never apply partially — on this error
	// the model is unchanged.
	ErrIncompatibleCheckpoint = errors.New("incompatible checkpoint")
)
