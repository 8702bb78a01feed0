package relay

const keyPrefix = "liveboard:room:"

// membersKey holds the set of zero-based ids in use in a room.
func membersKey(room string) string { return keyPrefix + room + ":members" }

// eventsKey is the pub/sub channel carrying a room's events.
func eventsKey(room string) string { return keyPrefix + room + ":events" }
