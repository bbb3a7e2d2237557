package sessions

import (
	"context"
	"io"

	"github.com/JaimeStill/adherence/intervention"
	"github.com/JaimeStill/adherence/pkg/pagination"
)

// System defines the public contract for session persistence. It satisfies
// intervention.Store.
type System interface {
	Handler() *Handler

	// Save stores the session and its records, replacing an open session
	// with the same id. Sessions stored as completed reject writes with
	// ErrCompleted.
	Save(ctx context.Context, session *intervention.Session) error
	Find(ctx context.Context, id string) (*intervention.Session, error)
	// ListForPatient returns the patient's sessions newest first.
	ListForPatient(ctx context.Context, patientID string) ([]intervention.Session, error)

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Summary], error)

	// DeleteForPatient removes every session of the patient and their archives.
	DeleteForPatient(ctx context.Context, patientID string) (int, error)
	// Archive streams the archived wire record of a session. The caller
	// must close the reader.
	Archive(ctx context.Context, id string) (io.ReadCloser, error)
	// DeleteArchive removes every archived session blob of the patient.
	DeleteArchive(ctx context.Context, patientID string) error
}
