package projection

import (
	"context"

	"atm/app/models"
)

// Sink renders a chart. Nothing is returned to the caller.
type Sink interface {
	Render(ctx context.Context, chart *models.Chart)
}

type Service interface {
	Project(ctx context.Context, in *models.NewProjection) (*models.Projection, error)
}
