package keys

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownKey is returned when a key ID has no key material on disk
	ErrUnknownKey = errors.New("unknown_signing_key")

	// ErrNoCurrentKey is returned when a key store would be left without a current key
	ErrNoCurrentKey = errors.New("no_current_signing_key")

	// ErrNoPreviousKey is returned when retiring a previous key that is not present
	ErrNoPreviousKey = errors.New("no_previous_signing_key")

	// ErrDuplicateKey is returned when rotating to a key that is already current
	ErrDuplicateKey = errors.New("duplicate_signing_key")

	// ErrAlgorithmMismatch is returned when a rotation would mix signing algorithms
	ErrAlgorithmMismatch = errors.New("signing_algorithm_mismatch")

	// ErrUnsupportedAlgorithm is returned for algorithms other than HS256 and RS256
	ErrUnsupportedAlgorithm = errors.New("unsupported_signing_algorithm")

	// ErrSecretTooShort is returned when an HMAC secret is shorter than MinSecretLength
	ErrSecretTooShort = errors.New("signing_secret_too_short")

	// ErrKeyExists is returned when generating key material for an ID that already exists
	ErrKeyExists = errors.New("signing_key_exists")
)

// ErrKeysDirectoryNotAccessible is returned when the keys directory cannot be stat'ed
type ErrKeysDirectoryNotAccessible struct {
	Path string
	Err  error
}

func (e *ErrKeysDirectoryNotAccessible) Error() string {
	return fmt.Sprintf("keys directory %s is not accessible: %v", e.Path, e.Err)
}

func (e *ErrKeysDirectoryNotAccessible) Unwrap() error { return e.Err }

// ErrKeysPathNotDirectory is returned when the keys path points at a file
type ErrKeysPathNotDirectory struct {
	Path string
}

func (e *ErrKeysPathNotDirectory) Error() string {
	return fmt.Sprintf("keys path %s is not a directory", e.Path)
}

// ErrFailedToReadKeyFile is returned when a key file exists but cannot be read
type ErrFailedToReadKeyFile struct {
	FileName string
	Err      error
}

func (e *ErrFailedToReadKeyFile) Error() string {
	return fmt.Sprintf("failed to read key file %s: %v", e.FileName, e.Err)
}

func (e *ErrFailedToReadKeyFile) Unwrap() error { return e.Err }

// ErrFailedToDecodePEM is returned when a key file holds no PEM block
type ErrFailedToDecodePEM struct {
	FileName string
}

func (e *ErrFailedToDecodePEM) Error() string {
	return fmt.Sprintf("failed to decode PEM block in %s", e.FileName)
}

// ErrFailedToParseKey is returned when a PEM block does not hold a usable RSA key
type ErrFailedToParseKey struct {
	FileName string
	Err      error
}

func (e *ErrFailedToParseKey) Error() string {
	return fmt.Sprintf("failed to parse RSA key in %s: %v", e.FileName, e.Err)
}

func (e *ErrFailedToParseKey) Unwrap() error { return e.Err }
