package mocks

import (
	"context"

	"millionaire-bot/internal/domain"

	"github.com/stretchr/testify/mock"
)

// Messenger - мок service.Messenger.
type Messenger struct {
	mock.Mock
}

func (m *Messenger) Send(ctx context.Context, reply domain.Reply) error {
	args := m.Called(ctx, reply)
	return args.Error(0)
}
