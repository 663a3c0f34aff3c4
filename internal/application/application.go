package application

import "context"

// UseCase is a single command handler, e.g. booking one ledger movement.
type UseCase[C any, R any] interface {
	Execute(ctx context.Context, cmd C) (R, error)
}
