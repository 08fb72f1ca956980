// Package jobs holds the listing and subscriber types shared by the store,
// the dispatcher and the broadcaster.
package jobs

// Job is a single listing. Values are free-form and never validated.
// A Job has no id; its identity is its position in the collection.
type Job struct {
	Title    string `json:"title"`
	Location string `json:"location"`
	Deadline string `json:"deadline"`
	Link     string `json:"link"`
	Type     string `json:"type"`
}

// SubscriberID is the Telegram chat id a subscriber receives broadcasts in.
type SubscriberID = int64

// NewestFirst returns a reversed copy of list. Storage order is oldest first;
// display order is newest first.
func NewestFirst(list []Job) []Job {
	out := make([]Job, len(list))
	for i, j := range list {
		out[len(list)-1-i] = j
	}
	return out
}

// ContainsSubscriber reports whether id is in set.
func ContainsSubscriber(set []SubscriberID, id SubscriberID) bool {
	for _, s := range set {
		if s == id {
			return true
		}
	}
	return false
}

// AddSubscriber appends id unless present. It reports whether set changed.
func AddSubscriber(set []SubscriberID, id SubscriberID) ([]SubscriberID, bool) {
	if ContainsSubscriber(set, id) {
		return set, false
	}
	return append(set, id), true
}

// RemoveSubscriber drops every occurrence of id. It reports whether set changed.
func RemoveSubscriber(set []SubscriberID, id SubscriberID) ([]SubscriberID, bool) {
	out := set[:0:0]
	removed := false
	for _, s := range set {
		if s == id {
			removed = true
			continue
		}
		out = append(out, s)
	}
	if !removed {
		return set, false
	}
	return out, true
}
