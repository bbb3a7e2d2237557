package patients

import (
	"context"

	"github.com/JaimeStill/adherence/pkg/pagination"
)

// Cleanup runs after a patient is deleted, releasing data held outside the
// database. Failures are logged and do not undo the deletion.
type Cleanup func(ctx context.Context, patientID string) error

// System defines the public contract for patient directory operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Patient], error)

	Find(ctx context.Context, id string) (*Patient, error)
	// FindActive matches identifier against pairing codes first, then patient
	// ids, among active patients only.
	FindActive(ctx context.Context, identifier string) (*Patient, error)
	Create(ctx context.Context, cmd CreateCommand) (*Patient, error)
	Update(ctx context.Context, id string, cmd UpdateCommand) (*Patient, error)
	// Delete removes the patient along with their medications and sessions.
	Delete(ctx context.Context, id string) error
}
