// Package core implements the chart import pipeline: validation,
// archive extraction, parsing, aggregate mapping, asset uploads, and
// persistence orchestration. It depends on collaborator interfaces only
// and has no HTTP surface of its own.
package core

import (
	"context"
	"fmt"

	"github.com/wasd09090030/chartvault/internal/assetstore"
	"github.com/wasd09090030/chartvault/internal/database"
)

// Gateway is the persistence contract the service writes and reads
// aggregates through. *database.Queries is the production implementation.
type Gateway interface {
	SaveAggregate(ctx context.Context, set *database.ChartSet, diffs []database.Difficulty) (*database.ChartSet, error)
	GetAllSets(ctx context.Context) ([]database.ChartSet, error)
	GetDifficultyByID(ctx context.Context, id int64) (*database.Difficulty, error)
	GetSetWithDifficulties(ctx context.Context, id int64) (*database.ChartSet, []database.Difficulty, error)
	DeleteSet(ctx context.Context, id int64) error
}

// Service orchestrates chart imports and deletions.
type Service struct {
	gateway  Gateway
	store    assetstore.Store
	storeCfg assetstore.Config
}

// NewService creates a Service over its collaborators.
func NewService(gateway Gateway, store assetstore.Store, storeCfg assetstore.Config) *Service {
	return &Service{
		gateway:  gateway,
		store:    store,
		storeCfg: storeCfg,
	}
}

// ListSets returns every imported set.
func (s *Service) ListSets(ctx context.Context) ([]database.ChartSet, error) {
	return s.gateway.GetAllSets(ctx)
}

// GetSet returns one set with its difficulties.
func (s *Service) GetSet(ctx context.Context, id int64) (*database.ChartSet, []database.Difficulty, error) {
	set, diffs, err := s.gateway.GetSetWithDifficulties(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if set == nil {
		return nil, nil, ErrNotFound("chart set %d not found", id)
	}
	return set, diffs, nil
}

// GetDifficulty returns one difficulty including its chart data blob.
func (s *Service) GetDifficulty(ctx context.Context, id int64) (*database.Difficulty, error) {
	d, err := s.gateway.GetDifficultyByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, ErrNotFound("difficulty %d not found", id)
	}
	return d, nil
}

// Delete removes a set's remote asset folder and then the persisted
// aggregate. The database delete runs last: a failed remote deletion
// must never leave the database unaware of a folder that may still
// exist remotely.
func (s *Service) Delete(ctx context.Context, id int64) error {
	set, _, err := s.gateway.GetSetWithDifficulties(ctx, id)
	if err != nil {
		return err
	}
	if set == nil {
		return ErrNotFound("chart set %d not found", id)
	}

	folder := ResolveFolderPathForDeletion(set, s.storeCfg)
	if err := s.store.Delete(ctx, folder, true); err != nil {
		return fmt.Errorf("delete remote folder %q: %w", folder, err)
	}
	return s.gateway.DeleteSet(ctx, set.ID)
}
