package config

import "errors"

var (
	ErrParsingConfig = errors.New("config.parse_failed")
	ErrReadingFile   = errors.New("config.read_file_failed")
	ErrNilPointer    = errors.New("config.nil_pointer")
)
