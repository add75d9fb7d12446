package redis

// Key prefixes for primary entity storage.
const (
	prefixEventType    = "hookline:evtype:"
	prefixSubscription = "hookline:wh:"
	prefixAttempt      = "hookline:wa:"
)

// Key prefixes for sorted set indexes.
const (
	zEventTypeAll = "hookline:z:evtype:all"
	zSubSurvey    = "hookline:z:wh:survey:" // + survey ID
	zAttemptAll   = "hookline:z:wa:all"
	zAttemptHook  = "hookline:z:wa:wh:" // + webhook ID

	// zAttemptDue holds retryable attempt IDs scored by when they become
	// claimable. Claiming bumps the score by the lease; MarkRetried
	// removes the member for good.
	zAttemptDue = "hookline:z:wa:due"
)

// entityKey returns the primary key for an entity.
func entityKey(prefix, id string) string {
	return prefix + id
}
