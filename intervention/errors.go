// Package intervention implements the medication adherence dialogue: input
// normalization, the per-session state machine, administration record
// construction, and session finalization.
//
// A Machine is stateless between turns. Callers own a Flow for each dialogue
// and pass it to Machine.Handle with every normalized input.
package intervention

import "errors"

// Sentinel errors for intervention operations.
var (
	ErrPatientNotFound  = errors.New("patient not found")
	ErrSaveFailed       = errors.New("session could not be saved")
	ErrAlreadyPersisted = errors.New("session already persisted as completed")
	ErrSessionConflict  = errors.New("session id held by a different session")
	ErrSessionClosed    = errors.New("session is completed")
	ErrFlowClosed       = errors.New("flow has finished")
	ErrNotFinalized     = errors.New("flow has not reached finalize")
)

// Rejection reasons surfaced to the caller when input does not advance the flow.
const (
	ReasonIdentifierRequired = "Identifier is required."
	ReasonPatientNotFound    = "No active patient found for the provided identifier."
	ReasonInvalidYesNo       = "Please answer yes or no."
	ReasonInvalidResponse    = "Please answer yes, no, or unable."
	ReasonInvalidTopic       = "Please choose 1, 2, 3, or 4."
)

// UnresolvedDescription is recorded on administration records whose answer
// could not be registered.
const UnresolvedDescription = "Input could not be registered"
