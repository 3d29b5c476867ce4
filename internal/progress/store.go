package progress

import "context"

// Store persists the set of successfully downloaded source URLs so a
// rerun can skip completed work.
//
// Implementations MUST make every Add durable before returning: a process
// killed between two downloads loses at most the in-flight one, never a
// previously completed URL.
type Store interface {
	// Contains reports whether the URL was already completed.
	Contains(url string) bool
	// Add records the URL as completed and persists the updated set.
	Add(ctx context.Context, url string) error

	Close() error
}
