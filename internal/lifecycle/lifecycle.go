// Package lifecycle implements the donation offer state machine shared by the
// blood and general donation variants: transition guards, actor permissions,
// contact disclosure, read-time expiry and the duplicate-offer check.
//
// The package is pure: it never touches storage or the real clock, so every
// rule here is a function of its arguments and can be applied identically by
// services, repositories and tests. Both request variants share this single
// lifecycle, including the reject transition.
package lifecycle

import (
	"errors"
	"time"
)

// Status is the lifecycle state of a donation offer.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusFulfilled Status = "fulfilled"
	StatusRated     Status = "rated"
)

var (
	// ErrInvalidTransition signals a state-conflict: the offer's current
	// status does not permit the requested transition.
	ErrInvalidTransition = errors.New("offer status does not permit this transition")
	// ErrNotOwner signals that the actor is not the request owner.
	ErrNotOwner = errors.New("only the request owner may perform this transition")
	// ErrNotDonor signals that the actor is not the offer's donor.
	ErrNotDonor = errors.New("only the offer's donor may cancel it")
	// ErrNotCancellable signals a cancellation attempt past pending.
	ErrNotCancellable = errors.New("offer can only be cancelled while pending")
	// ErrOwnRequest signals a donor offering on their own request.
	ErrOwnRequest = errors.New("cannot make an offer on your own request")
	// ErrRequestExpired signals an offer against a request past its deadline.
	ErrRequestExpired = errors.New("request deadline has passed")
	// ErrRequestInactive signals an offer against a deactivated request.
	ErrRequestInactive = errors.New("request is not active")
	// ErrDuplicateOffer signals an open offer already exists for this donor.
	ErrDuplicateOffer = errors.New("an open offer already exists for this request")
)

// transitions is the complete edge set of the state machine. Anything not
// listed is a state conflict.
var transitions = map[Status]map[Status]bool{
	StatusPending:   {StatusAccepted: true, StatusRejected: true},
	StatusAccepted:  {StatusFulfilled: true},
	StatusFulfilled: {StatusRated: true},
}

// Valid reports whether s is a known status.
func Valid(s Status) bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected, StatusFulfilled, StatusRated:
		return true
	}
	return false
}

// Terminal reports whether no further transition can leave s.
func Terminal(s Status) bool {
	return s == StatusRejected || s == StatusRated
}

// Open reports whether s blocks the donor from submitting another offer on
// the same request. Terminal offers (rejected, rated) free the slot.
func Open(s Status) bool {
	return Valid(s) && !Terminal(s)
}

// CanTransition reports whether the edge from -> to exists.
func CanTransition(from, to Status) bool {
	return transitions[from][to]
}

// Transition validates an owner-driven status change. All forward transitions
// (accept, reject, fulfill, rate) are privileged to the request owner; the
// actor check runs first so a non-owner probing an offer learns nothing about
// its state.
func Transition(from, to Status, actorID, ownerID uint) error {
	if actorID != ownerID {
		return ErrNotOwner
	}
	if !CanTransition(from, to) {
		return ErrInvalidTransition
	}
	return nil
}

// Cancel validates a donor deleting their own offer, permitted only while
// the offer is still pending.
func Cancel(status Status, actorID, donorID uint) error {
	if actorID != donorID {
		return ErrNotDonor
	}
	if status != StatusPending {
		return ErrNotCancellable
	}
	return nil
}

// IsActive reports whether a request still admits new offers at instant now.
// Expiry is soft: the request keeps existing and stays visible, it just stops
// accepting offers. Monotone non-increasing in now.
func IsActive(now, deadline time.Time) bool {
	return !now.After(deadline)
}

// ContactVisible decides whether a request's contact methods are disclosed to
// viewer. Disclosure holds for the owner, and for a donor whose offer has
// progressed past pending. viewerOffer is the viewer's own offer status on
// this request, nil when they have none.
func ContactVisible(viewerID, ownerID uint, viewerOffer *Status) bool {
	if viewerID == ownerID {
		return true
	}
	if viewerOffer == nil {
		return false
	}
	switch *viewerOffer {
	case StatusAccepted, StatusFulfilled, StatusRated:
		return true
	}
	return false
}

// CheckNewOffer validates the creation of a new offer: the donor must not be
// the owner, the request must be active and within its deadline, and the
// donor must not already hold an open offer. existing is the donor's current
// offer status on this request, nil when they have none. The database's
// partial unique index backs the same rule against races.
func CheckNewOffer(now, deadline time.Time, donorID, ownerID uint, active bool, existing *Status) error {
	if donorID == ownerID {
		return ErrOwnRequest
	}
	if !active {
		return ErrRequestInactive
	}
	if !IsActive(now, deadline) {
		return ErrRequestExpired
	}
	if existing != nil && Open(*existing) {
		return ErrDuplicateOffer
	}
	return nil
}
