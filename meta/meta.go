// Package meta carries the identity of an inbound request through a
// context.Context: the source address, the authenticated user (if any) and the
// route being hit. Admission key derivation and quota lookups both read from it.
package meta

import (
	"context"

	"github.com/rs/zerolog/log"
)

// identityKey is the private key type used for context.WithValue.
// Using a private type prevents collisions with other context keys.
type identityKey struct{}

// UnknownSource is the sentinel used when no source address can be determined.
// Unidentifiable clients share this key and are rate limited together.
const UnknownSource = "unknown"

// Identity describes the subject of a request for admission and quota purposes.
type Identity struct {
	SourceIP string // client address, without port
	UserID   string // authenticated user, empty when anonymous
	Route    string // logical route or method name, informational
}

// Normalize returns a copy of the identity with an empty source replaced by
// the UnknownSource sentinel. Limiting stays effective for clients we cannot
// identify instead of failing open.
func (id Identity) Normalize() Identity {
	if id.SourceIP == "" {
		id.SourceIP = UnknownSource
	}
	return id
}

// WithContext returns a new context derived from ctx that carries the identity.
// A nil ctx is replaced by context.Background with an error log, matching the
// defensive posture of the rest of the library.
func (id Identity) WithContext(ctx context.Context) context.Context {
	if ctx == nil {
		log.Error().Msg("attempted to attach identity to a nil context, using background context")
		ctx = context.Background()
	}
	return context.WithValue(ctx, identityKey{}, id.Normalize())
}

// FromContext extracts the Identity from ctx. If the context is nil or carries
// no identity, a zero identity normalized to the unknown source is returned so
// callers never have to nil-check.
func FromContext(ctx context.Context) Identity {
	if ctx == nil {
		log.Debug().Msg("attempted to get identity from nil context, returning unknown identity")
		return Identity{}.Normalize()
	}

	value := ctx.Value(identityKey{})
	if value == nil {
		return Identity{}.Normalize()
	}

	id, ok := value.(Identity)
	if !ok {
		log.Error().Msgf("identity key found in context but value has type %T, returning unknown identity", value)
		return Identity{}.Normalize()
	}
	return id.Normalize()
}
