package middleware

import (
	"context"
	"net/http"

	"golang.org/x/sync/singleflight"

	"github.com/memovault/memovault/internal/service"
)

// Sweeper is the cleanup entry point fired by request traffic.
type Sweeper interface {
	RunIfDue(ctx context.Context, force bool) service.CleanupReport
}

// CleanupTrigger opportunistically fires the share cleanup sweep in the
// background on qualifying traffic. The host has no reliable timer, so
// ordinary requests stand in for one. The sweep runs detached from the
// response: it never blocks, and whatever it does (including panicking)
// is invisible to the client. Concurrent triggers within one process
// coalesce into a single in-flight run.
func CleanupTrigger(sweeper Sweeper) func(http.Handler) http.Handler {
	var group singleflight.Group
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			go func() {
				defer func() { _ = recover() }()
				_, _, _ = group.Do("share_cleanup", func() (any, error) {
					return sweeper.RunIfDue(context.Background(), false), nil
				})
			}()
			next.ServeHTTP(w, r)
		})
	}
}
