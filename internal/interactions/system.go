package interactions

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/adherence/intervention"
	"github.com/JaimeStill/adherence/pkg/lifecycle"
)

// System defines the contract for driving dialogues.
type System interface {
	Handler() *Handler
	// Start launches idle eviction, stopping when the lifecycle shuts down.
	Start(lc *lifecycle.Coordinator) error

	Begin(ctx context.Context) (Interaction, error)
	Find(ctx context.Context, id uuid.UUID) (Interaction, error)
	// Respond applies one answer. Invalid answers are reported in the Turn,
	// not as errors.
	Respond(ctx context.Context, id uuid.UUID, in intervention.Input) (Response, error)
	// Save retries persistence of a finalized interaction.
	Save(ctx context.Context, id uuid.UUID) (Interaction, error)
	// Abandon discards an interaction without persisting it.
	Abandon(ctx context.Context, id uuid.UUID) error
}
