package domain

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Envelope is one encrypted field value: the GCM nonce, the authentication tag and
// the ciphertext without the tag.
//
// Its string form is "enc:v1:" + b64(IV) + ":" + b64(Tag) + ":" + b64(Ciphertext)
// using standard padded base64.
type Envelope struct {
	IV         []byte
	Tag        []byte
	Ciphertext []byte
}

// String encodes the envelope in its wire format.
func (e Envelope) String() string {
	enc := base64.StdEncoding
	return EnvelopePrefix +
		enc.EncodeToString(e.IV) + ":" +
		enc.EncodeToString(e.Tag) + ":" +
		enc.EncodeToString(e.Ciphertext)
}

// IsEnvelope reports whether s carries the envelope prefix.
func IsEnvelope(s string) bool {
	return strings.HasPrefix(s, EnvelopePrefix)
}

// ParseEnvelope decodes the wire format.
//
// It rejects values without the prefix, with other than three non-empty parts,
// with invalid base64, or whose decoded IV is not 12 bytes or tag is not 16 bytes.
// All of these return ErrMalformedEnvelope before any cipher is involved.
func ParseEnvelope(s string) (Envelope, error) {
	if !IsEnvelope(s) {
		return Envelope{}, fmt.Errorf("%w: missing prefix", ErrMalformedEnvelope)
	}

	parts := strings.Split(strings.TrimPrefix(s, EnvelopePrefix), ":")
	if len(parts) != 3 {
		return Envelope{}, fmt.Errorf("%w: expected 3 parts, got %d", ErrMalformedEnvelope, len(parts))
	}

	decoded := make([][]byte, 3)
	for i, p := range parts {
		if p == "" {
			return Envelope{}, fmt.Errorf("%w: empty part %d", ErrMalformedEnvelope, i)
		}
		b, err := base64.StdEncoding.DecodeString(p)
		if err != nil {
			return Envelope{}, fmt.Errorf("%w: part %d is not base64", ErrMalformedEnvelope, i)
		}
		decoded[i] = b
	}

	env := Envelope{IV: decoded[0], Tag: decoded[1], Ciphertext: decoded[2]}
	if len(env.IV) != IVSize {
		return Envelope{}, fmt.Errorf("%w: iv must be %d bytes, got %d", ErrMalformedEnvelope, IVSize, len(env.IV))
	}
	if len(env.Tag) != TagSize {
		return Envelope{}, fmt.Errorf(
			"%w: tag must be %d bytes, got %d",
			ErrMalformedEnvelope,
			TagSize,
			len(env.Tag),
		)
	}
	return env, nil
}
