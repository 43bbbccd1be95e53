package notifier

import (
	"context"

	"atm/app/models"
)

type Service interface {
	Subscribe(ctx context.Context, subscription *models.NewSubscription) error
	Notify(ctx context.Context, notification *models.Notification)
	Render(ctx context.Context, chart *models.Chart)
}
