package notify

import "time"

// Evict returns the ids to drop so that list holds at most limit entries.
// Unprotected notifications go first, oldest-first in list order. Protected
// notifications are never selected, so the result may leave list over limit.
func Evict(list []Notification, limit int, persistentTypes []Type) []string {
	excess := len(list) - limit
	if excess <= 0 {
		return nil
	}

	var ids []string
	for _, n := range list {
		if excess == 0 {
			break
		}
		if n.Protected(persistentTypes) {
			continue
		}
		ids = append(ids, n.ID)
		excess--
	}
	return ids
}

// Expired returns the ids of unprotected notifications older than maxAge.
func Expired(list []Notification, now time.Time, maxAge time.Duration, persistentTypes []Type) []string {
	var ids []string
	for _, n := range list {
		if n.Protected(persistentTypes) {
			continue
		}
		if n.Age(now) > maxAge {
			ids = append(ids, n.ID)
		}
	}
	return ids
}
