package admission

import (
	"time"

	"github.com/storyloom/gate/meta"
)

// Class names a group of routes that share one rate-limit policy and one
// counter map. Each class is served by its own Controller.
type Class string

// Route classes.
const (
	ClassAuth       Class = "auth"
	ClassAPI        Class = "api"
	ClassWidget     Class = "widget"
	ClassEmail      Class = "email"
	ClassUpload     Class = "upload"
	ClassNewsletter Class = "newsletter"
	ClassDonation   Class = "donation"
	ClassHealth     Class = "health"
)

// Classes lists every known route class in a stable order.
func Classes() []Class {
	return []Class{
		ClassAuth,
		ClassAPI,
		ClassWidget,
		ClassEmail,
		ClassUpload,
		ClassNewsletter,
		ClassDonation,
		ClassHealth,
	}
}

// KeyFunc derives the counter key for a request identity.
type KeyFunc func(meta.Identity) string

// Policy defines the admission rules for one route class.
type Policy struct {
	MaxRequests   int           // requests allowed per window before blocking
	Window        time.Duration // rolling window length
	BlockDuration time.Duration // how long a key stays blocked after exceeding the limit
	KeyFunc       KeyFunc       // defaults to IPKey when nil
}

// IPKey keys the counter by source address alone.
func IPKey(id meta.Identity) string {
	return id.Normalize().SourceIP
}

// IPUserKey keys the counter by source address salted with the user id when
// one is present, so authenticated users behind a shared NAT do not exhaust
// each other's allowance.
func IPUserKey(id meta.Identity) string {
	id = id.Normalize()
	if id.UserID == "" {
		return id.SourceIP
	}
	return id.SourceIP + "|" + id.UserID
}

// DefaultPolicies returns the built-in policy table. Callers may overlay
// individual fields via config before constructing controllers.
func DefaultPolicies() map[Class]Policy {
	return map[Class]Policy{
		ClassAuth:       {MaxRequests: 5, Window: 15 * time.Minute, BlockDuration: 30 * time.Minute},
		ClassAPI:        {MaxRequests: 100, Window: 15 * time.Minute, BlockDuration: 15 * time.Minute},
		ClassWidget:     {MaxRequests: 200, Window: 15 * time.Minute, BlockDuration: 5 * time.Minute},
		ClassEmail:      {MaxRequests: 10, Window: time.Hour, BlockDuration: time.Hour},
		ClassUpload:     {MaxRequests: 20, Window: time.Hour, BlockDuration: 30 * time.Minute},
		ClassNewsletter: {MaxRequests: 5, Window: time.Hour, BlockDuration: 2 * time.Hour},
		ClassDonation:   {MaxRequests: 10, Window: 15 * time.Minute, BlockDuration: 30 * time.Minute},
		ClassHealth:     {MaxRequests: 1000, Window: 15 * time.Minute, BlockDuration: 5 * time.Minute},
	}
}
