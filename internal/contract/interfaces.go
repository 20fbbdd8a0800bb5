package contract

import (
	"context"
	"time"

	"github.com/gitbeacon/beacon/schema"
)

// GitClient is the Repository Access Layer's contract: a single windowed
// query over local repository history. Implemented by
// internal/gitclient.LocalGitClient; kept as an interface so core packages
// can be tested without a real git binary.
type GitClient interface {
	// Query walks commits reachable from local branches whose CommittedAt
	// falls in window and returns them unsorted but UTC-normalized. An
	// empty window is not an error.
	Query(ctx context.Context, repoPath string, window schema.Window) (*schema.RawLog, error)

	// Resolve returns the committed-at time of a single commit reference,
	// used to validate/expand a user-supplied commit identifier.
	Resolve(ctx context.Context, repoPath, ref string) (time.Time, error)
}

// CacheStore is the persistence contract for the Analytics Engine's durable,
// opt-in result cache across invocations, implemented by the backends in
// internal/iocache. The engine's always-active in-process LRU is a separate
// type and does not implement this interface.
type CacheStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}
