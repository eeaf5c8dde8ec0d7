package notify

import (
	"context"
	"errors"

	"github.com/ignite/leadflow/internal/domain"
	"github.com/ignite/leadflow/internal/service/sending"
)

// Fanout delivers every notification to all of its notifiers.
type Fanout []sending.Notifier

// Notify calls each notifier in order and joins their errors.
func (f Fanout) Notify(ctx context.Context, n domain.Notification) error {
	var errs []error
	for _, notifier := range f {
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
