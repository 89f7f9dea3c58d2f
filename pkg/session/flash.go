package session

import "encoding/json"

const flashKey = "_flashes"

// Flash categories.
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashWarning = "warning"
)

// Flash is a one-shot message shown on the next page view.
type Flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// AddFlash queues a message for the next page view.
func (s *Session) AddFlash(category, message string) {
	s.Set(flashKey, append(s.peekFlashes(), Flash{Category: category, Message: message}))
}

// Flashes returns and clears queued messages. It never returns nil.
func (s *Session) Flashes() []Flash {
	out := s.peekFlashes()
	s.Delete(flashKey)
	return out
}

// peekFlashes normalises whatever the store handed back (a []Flash within
// one request, a []interface{} of maps after a JSON round trip).
func (s *Session) peekFlashes() []Flash {
	out := []Flash{}
	v, ok := s.data[flashKey]
	if !ok {
		return out
	}
	if typed, ok := v.([]Flash); ok {
		return append(out, typed...)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return out
	}
	_ = json.Unmarshal(raw, &out)
	return out
}
