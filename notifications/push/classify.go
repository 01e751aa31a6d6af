// SPDX-License-Identifier: MIT

package push

import (
	fcm "firebase.google.com/go/v4/messaging"
)

//nolint:gochecknoglobals // Swappable seams, the SDK's error types are private.
var (
	isPermanentInvalidFailure = func(err error) bool {
		return fcm.IsUnregistered(err) || fcm.IsInvalidArgument(err)
	}
	isTransientFailure = func(err error) bool {
		return fcm.IsUnavailable(err) || fcm.IsInternal(err) || fcm.IsQuotaExceeded(err)
	}
)

// classifyFailure decides what a per-token delivery failure means for the
// device token itself. Only failurePermanentInvalid may trigger removal of
// the token from the registration store; anything ambiguous stays
// failureUnknown so a healthy token is never evicted on a guess.
func classifyFailure(err error) failureKind {
	switch {
	case err == nil:
		return failureUnknown
	case isPermanentInvalidFailure(err):
		return failurePermanentInvalid
	case isTransientFailure(err):
		return failureTransient
	default:
		return failureUnknown
	}
}
