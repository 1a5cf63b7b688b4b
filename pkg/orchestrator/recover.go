package orchestrator

import (
	"context"

	"github.com/feedforward/feedforward/ent"
	"github.com/feedforward/feedforward/pkg/queue"
)

// RecoverAbandonedRuns transitions any running or stopping run this pod was
// driving when it last crashed or restarted to failed, with an "orphaned"
// error_summary entry whose message begins "abandoned". It must run
// once at startup, before the worker pool begins claiming new runs.
func RecoverAbandonedRuns(ctx context.Context, client *ent.Client, podID string) error {
	return queue.CleanupStartupOrphans(ctx, client, podID)
}
