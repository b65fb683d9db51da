// Package payload validates uploaded webcam frames before they reach storage.
package payload

import (
	"bytes"
	"errors"
	"fmt"
)

// Signature is the fixed 8-byte PNG file header.
var Signature = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

var (
	// ErrFormatInvalid means the body does not start with the PNG signature. Permanent; do not retry.
	ErrFormatInvalid = errors.New("payload is not a png")
	// ErrTooLarge means the body exceeds the configured size cap.
	ErrTooLarge = errors.New("payload too large")
)

// Validator checks that a body looks like a PNG and respects a size cap.
// Only the signature is checked; the image is not decoded.
type Validator struct {
	maxBytes int
}

// NewValidator returns a Validator rejecting bodies larger than maxBytes.
// A non-positive maxBytes disables the size check.
func NewValidator(maxBytes int) *Validator {
	return &Validator{maxBytes: maxBytes}
}

// MaxBytes returns the configured cap.
func (v *Validator) MaxBytes() int { return v.maxBytes }

// Validate returns body unchanged when it passes, or an error wrapping ErrTooLarge or ErrFormatInvalid.
func (v *Validator) Validate(body []byte) ([]byte, error) {
	if v.maxBytes > 0 && len(body) > v.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrTooLarge, len(body), v.maxBytes)
	}
	if !bytes.HasPrefix(body, Signature) {
		return nil, fmt.Errorf("%w: %d bytes without signature", ErrFormatInvalid, len(body))
	}
	return body, nil
}
