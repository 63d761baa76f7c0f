package mw

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"
)

// handlerPanic carries a panic value with the stack captured at the point
// it was recovered, so the re-panic on the request goroutine keeps the
// original trace.
type handlerPanic struct {
	value any
	stack []byte
}

// TimeoutConfig maps path patterns to request deadlines.
type TimeoutConfig struct {
	// Default applies to every route not matched below.
	Default time.Duration
	// Extended applies to routes that wait on upstream LLM or ad-platform
	// calls, e.g. GEO analysis.
	Extended time.Duration
	// ExtendedPatterns are substring matches against the request path that
	// select the Extended deadline.
	ExtendedPatterns []string
	// SkipPatterns select routes that run with no deadline at all.
	SkipPatterns []string
}

// Timeout enforces a per-route deadline. The handler runs on its own
// goroutine; when the deadline fires first the client gets a 504 and the
// handler's context is cancelled. A panic inside the handler is re-raised
// on the request goroutine so the outer recoverer still sees it.
func Timeout(cfg TimeoutConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, pattern := range cfg.SkipPatterns {
				if strings.Contains(r.URL.Path, pattern) {
					next.ServeHTTP(w, r)
					return
				}
			}

			deadline := cfg.Default
			for _, pattern := range cfg.ExtendedPatterns {
				if strings.Contains(r.URL.Path, pattern) {
					deadline = cfg.Extended
					break
				}
			}

			ctx, cancel := context.WithTimeout(r.Context(), deadline)
			defer cancel()

			done := make(chan struct{})
			panicked := make(chan *handlerPanic, 1)

			go func() {
				defer func() {
					if p := recover(); p != nil {
						panicked <- &handlerPanic{value: p, stack: debug.Stack()}
					}
				}()
				next.ServeHTTP(w, r.WithContext(ctx))
				close(done)
			}()

			select {
			case <-done:
				return
			case p := <-panicked:
				panic(fmt.Sprintf("%v\n\nOriginal stack trace:\n%s", p.value, p.stack))
			case <-ctx.Done():
				if ctx.Err() == context.DeadlineExceeded {
					w.WriteHeader(http.StatusGatewayTimeout)
					return
				}
			}
		})
	}
}
