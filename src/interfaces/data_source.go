package interfaces

import (
	"context"

	"live-stats/src/models"
)

// -----------------------------------------------------------------------------
// ISnapshotSource returns full snapshots on demand (initial load and polling).
// -----------------------------------------------------------------------------

type ISnapshotSource interface {

	// FetchSnapshot returns a complete snapshot for the given scope.
	FetchSnapshot(ctx context.Context, params models.MParams) (*models.MSnapshot, error)
}

// -----------------------------------------------------------------------------
// IMoodSubmitter sends a mood, the mutation behind an optimistic overlay.
// -----------------------------------------------------------------------------

type IMoodSubmitter interface {
	SubmitMood(ctx context.Context, req models.MSubmitMoodRequest, locale string) (*models.MSubmitMoodResponse, error)
}
