package middleware

import (
	"context"
	"fmt"

	"sawa/internal/app/commands"
	"sawa/internal/app/outbox"
	"sawa/internal/app/uow"
)

// TxOptionsProvider picks the unit-of-work options for a command. A nil
// provider means ReadOnlyCommands.
type TxOptionsProvider func(cmd commands.Command) uow.TxOptions

// ReadOnlyCommands opens read-only units for commands that report
// ReadOnly() == true and read-write units for the rest.
func ReadOnlyCommands(cmd commands.Command) uow.TxOptions {
	ro, ok := cmd.(interface{ ReadOnly() bool })
	return uow.TxOptions{ReadOnly: ok && ro.ReadOnly()}
}

// Transaction dispatches inside a unit of work. Handlers find the unit with
// uow.FromContext; it commits when the handler succeeds.
func Transaction(factory uow.UoWFactory, provider TxOptionsProvider) CommandMiddleware {
	if factory == nil {
		panic("middleware: uow factory required")
	}
	if provider == nil {
		provider = ReadOnlyCommands
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (res any, err error) {
			err = uow.Run(ctx, factory, provider(cmd), func(ctx context.Context, _ uow.UnitOfWork) error {
				res, err = next.Dispatch(ctx, cmd)
				return err
			})
			if err != nil {
				return nil, err
			}
			return res, nil
		})
	}
}

// OutboxFlush publishes the events a command staged. It belongs outside
// Transaction so nothing is flushed for a rolled back unit.
func OutboxFlush(box outbox.Outbox) CommandMiddleware {
	if box == nil {
		panic("middleware: outbox required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			res, err := next.Dispatch(ctx, cmd)
			if err != nil {
				return nil, err
			}
			if ferr := box.Flush(ctx); ferr != nil {
				return nil, fmt.Errorf("middleware: flush outbox after %s: %w", cmd.Key(), ferr)
			}
			return res, nil
		})
	}
}
