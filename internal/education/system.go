package education

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/adherence/intervention"
	"github.com/JaimeStill/adherence/pkg/pagination"
)

// System defines the public contract for education content operations.
// It satisfies intervention.EducationSource.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Content], error)

	Find(ctx context.Context, id uuid.UUID) (*Content, error)
	Create(ctx context.Context, cmd CreateCommand) (*Content, error)
	Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*Content, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Activate(ctx context.Context, id uuid.UUID) (*Content, error)
	Deactivate(ctx context.Context, id uuid.UUID) (*Content, error)

	// Content returns the active override for topic, or the built-in text.
	Content(ctx context.Context, topic intervention.Topic) (string, error)
}
