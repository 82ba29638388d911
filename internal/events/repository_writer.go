package events

import (
	"context"

	"millionaire-bot/internal/domain"
	"millionaire-bot/internal/repository"
)

// RepositoryWriter пишет события напрямую в PostgreSQL.
type RepositoryWriter struct {
	repo repository.EventRepository
}

// NewRepositoryWriter создаёт Writer поверх репозитория событий.
func NewRepositoryWriter(repo repository.EventRepository) *RepositoryWriter {
	return &RepositoryWriter{repo: repo}
}

func (w *RepositoryWriter) Write(ctx context.Context, event domain.GameEvent) error {
	return w.repo.Insert(ctx, event)
}
