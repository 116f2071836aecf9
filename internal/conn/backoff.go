package conn

import "time"

// Backoff returns the reconnect delay for the given attempt (1-based):
// base doubled per prior attempt, clamped to cap. The clamp also
// covers shift overflow on absurd attempt counts.
func Backoff(base, cap time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base << (attempt - 1)
	if d <= 0 || d > cap {
		return cap
	}
	return d
}
