package remoteconfig

import "errors"

var (
	// ErrInvalidEnv indicates an unknown environment name.
	ErrInvalidEnv = errors.New("invalid environment")

	// ErrSourceUnavailable indicates the snapshot source could not be reached.
	ErrSourceUnavailable = errors.New("remote config source unavailable")

	// ErrPublishFailed indicates the external publish call failed.
	ErrPublishFailed = errors.New("remote config publish failed")
)
