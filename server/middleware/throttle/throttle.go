// Package throttle provides an HTTP middleware which limits the request rate, returning 429 (too many requests)
//
// Every hardware call opens and closes a driver task, a client polling in a
// tight loop can starve everyone else of the device.
package throttle

import (
	"net/http"

	"golang.org/x/time/rate"
)

// Throttle holds a token bucket shared by every request it guards
type Throttle struct {
	limiter *rate.Limiter
}

// New returns a Throttle allowing perSecond requests per second on average
// and bursts of up to burst requests.  perSecond <= 0 disables the limit.
func New(perSecond float64, burst int) *Throttle {
	lim := rate.Inf
	if perSecond > 0 {
		lim = rate.Limit(perSecond)
	}
	if burst < 1 {
		burst = 1
	}
	return &Throttle{limiter: rate.NewLimiter(lim, burst)}
}

// Check is an HTTP middleware that returns http.StatusTooManyRequests when
// the bucket is empty, otherwise passes down the line
func (t *Throttle) Check(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !t.limiter.Allow() {
			http.Error(w, "request rate exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
