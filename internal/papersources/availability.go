package papersources

// SourceAvailability remembers, for one aggregation run, which providers failed and how
// many times each was attempted. A provider marked unavailable stays unavailable for the
// rest of the run; there is no half-open state and no reset timer. A fresh value is
// created per run and discarded afterwards, so it needs no locking.
type SourceAvailability struct {
	disabled map[string]bool
	attempts map[string]int
}

// NewSourceAvailability creates an empty tracker.
func NewSourceAvailability() *SourceAvailability {
	return &SourceAvailability{
		disabled: make(map[string]bool),
		attempts: make(map[string]int),
	}
}

// MarkUnavailable disables the provider for the remainder of the run.
func (a *SourceAvailability) MarkUnavailable(provider string) {
	a.disabled[provider] = true
}

// IsUnavailable reports whether the provider has been disabled.
func (a *SourceAvailability) IsUnavailable(provider string) bool {
	return a.disabled[provider]
}

// Increment records one attempt against the provider.
func (a *SourceAvailability) Increment(provider string) {
	a.attempts[provider]++
}

// AttemptCount returns the number of recorded attempts against the provider.
func (a *SourceAvailability) AttemptCount(provider string) int {
	return a.attempts[provider]
}

// Unavailable returns the disabled providers in the given order.
func (a *SourceAvailability) Unavailable(order []string) []string {
	var out []string
	for _, p := range order {
		if a.disabled[p] {
			out = append(out, p)
		}
	}
	return out
}
