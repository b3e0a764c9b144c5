package config

import "errors"

// Failure taxonomy for sources, parsers, and the manager. Test with errors.Is.
var (
	ErrUnsupportedSchema = errors.New("unsupported schema")
	ErrUnparseableURL    = errors.New("unparseable url")
	ErrConstruct         = errors.New("could not construct")
	ErrIO                = errors.New("source not accessible")
	ErrTooLarge          = errors.New("source exceeds maximum buffer size")
	ErrDecode            = errors.New("source not using expected encoding")
	ErrInvalidInput      = errors.New("invalid config input")
)
