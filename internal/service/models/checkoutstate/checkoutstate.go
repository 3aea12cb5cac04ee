package checkoutstate

import (
	"time"
)

// State is the checkout context of one draft order, keyed by the order
// hash and living exactly as long as the draft. It replaces ad-hoc
// session state: step messages, acceptance flags and the last rendered
// step are all persisted here.
type State struct {
	OrderHash   string              `json:"hash"`
	CurrentStep string              `json:"currentStep"`
	// Messages queues per-step notices, delivered one-shot the next time
	// the target step renders.
	Messages map[string][]string `json:"messages"`
	// Flags holds step acceptance markers, e.g. accepted terms.
	Flags map[string]bool `json:"flags"`

	UpdatedAt time.Time `json:"updatedAt"`
}

// New returns an empty state for a draft.
func New(hash string) *State {
	return &State{
		OrderHash: hash,
		Messages:  map[string][]string{},
		Flags:     map[string]bool{},
	}
}

// AddMessage queues a notice for a step.
func (s *State) AddMessage(step, msg string) {
	if s.Messages == nil {
		s.Messages = map[string][]string{}
	}
	s.Messages[step] = append(s.Messages[step], msg)
}

// PopMessages returns and removes the queued notices of a step.
func (s *State) PopMessages(step string) []string {
	msgs := s.Messages[step]
	delete(s.Messages, step)

	return msgs
}
