package medications

import (
	"context"

	"github.com/JaimeStill/adherence/pkg/pagination"
)

// System defines the public contract for medication directory operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Medication], error)

	// ListForPatient returns every medication for the patient in creation order.
	ListForPatient(ctx context.Context, patientID string) ([]Medication, error)
	Find(ctx context.Context, id string) (*Medication, error)
	Create(ctx context.Context, patientID string, cmd CreateCommand) (*Medication, error)
	Update(ctx context.Context, id string, cmd UpdateCommand) (*Medication, error)
	// Delete removes a medication only if it belongs to patientID.
	Delete(ctx context.Context, patientID, id string) error
}
