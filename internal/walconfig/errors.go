package walconfig

import "errors"

var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrConfigFileRead     = errors.New("cannot read config file")
	ErrConfigInvalid      = errors.New("invalid config file")
	ErrDevicePathEmpty    = errors.New("device_path cannot be empty")
	ErrGeometryInvalid    = errors.New("bsize, logsize, and maxopblocks must all be positive")
	ErrHeaderTooLarge     = errors.New("logsize*4+4 must be less than bsize")
)
