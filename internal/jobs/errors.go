package jobs

import "errors"

var (
	ErrJobNotFound        = errors.New("job not found")
	ErrInvalidURL         = errors.New("invalid url")
	ErrOutsideDownloadDir = errors.New("save file is outside the download directory")
	ErrAlreadyRunning     = errors.New("job is already running")
)
