// Package resource bounds what a reader or writer may consume.
//
// A Controller caps three things:
//
//   - memory held by the decoded-chunk cache (fail-fast, never blocks)
//   - the number of chunk fetches in flight (blocking semaphore)
//   - storage throughput in bytes per second (token bucket)
//
// A nil *Controller imposes no limit, so callers never need to check for one.
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 256 << 20,
//	    MaxConcurrentIO:  8,
//	    IOLimitBytesPerSec: 64 << 20,
//	})
//	if err := rc.AcquireIO(ctx, len(chunk)); err != nil { ... }
package resource
