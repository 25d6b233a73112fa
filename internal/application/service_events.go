package application

const (
	// eventTypeIdentityRegistered is emitted when a registration creates an identity.
	eventTypeIdentityRegistered = "identity.registered"
	// eventTypeIdentityBlocked is emitted when the block policy flags an identity.
	eventTypeIdentityBlocked   = "identity.blocked"
	eventTypeIdentityUnblocked = "identity.unblocked"
	// eventTypeAttemptCreated is emitted for every scored check, blocked ones included.
	eventTypeAttemptCreated  = "attempt.created"
	eventTypeAttemptResolved = "attempt.resolved"
)
