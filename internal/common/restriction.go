package common

import "time"

// A restriction means that only the specified number of requests
// are allowed for a specific time duration
type Restriction struct {
	Requests int
	Duration time.Duration
}

// Analyse the recent history of requests and find out
// if a new request at the provided time should be allowed or not
func (rest *Restriction) Analyse(history []time.Time, now time.Time) Analysis {

	// Compute the number of requests that have been served in my duration.
	// Start counting from the end.
	// If one request is too old, the rest will be too
	if rest.Requests <= 0 {
		return Analysis{allowed: true}
	}
	count := 0
	for i := len(history) - 1; i >= 0; i-- {
		if now.Sub(history[i]) >= rest.Duration {
			break
		}
		count++
	}
	if count < rest.Requests {
		return Analysis{allowed: true}
	}

	// The oldest request inside the window decides when a slot frees up
	oldestRequestTime := history[len(history)-count]
	return Analysis{allowed: false, wait: oldestRequestTime.Add(rest.Duration).Sub(now)}
}
