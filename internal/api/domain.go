package api

import (
	"github.com/JaimeStill/adherence/internal/education"
	"github.com/JaimeStill/adherence/internal/interactions"
	"github.com/JaimeStill/adherence/internal/medications"
	"github.com/JaimeStill/adherence/internal/patients"
	"github.com/JaimeStill/adherence/internal/sessions"
	"github.com/JaimeStill/adherence/intervention"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Patients     patients.System
	Medications  medications.System
	Sessions     sessions.System
	Education    education.System
	Interactions interactions.System
}

// NewDomain creates all domain systems from the API runtime. Deleting a
// patient removes their archived sessions from blob storage.
func NewDomain(runtime *Runtime) (*Domain, error) {
	db := runtime.Database.Connection()

	sessionsSystem := sessions.New(
		db,
		runtime.Storage,
		runtime.Logger,
		runtime.Pagination,
		runtime.Location,
	)

	patientsSystem := patients.New(
		db,
		runtime.Logger,
		runtime.Pagination,
		sessionsSystem.DeleteArchive,
	)

	medicationsSystem := medications.New(
		db,
		runtime.Logger,
		runtime.Pagination,
	)

	educationSystem := education.New(
		db,
		runtime.Logger,
		runtime.Pagination,
	)

	machine := intervention.NewMachine(
		interactions.NewDirectory(patientsSystem, medicationsSystem),
		sessionsSystem,
		educationSystem,
		runtime.Intervention,
		runtime.Logger,
	)

	interactionsSystem, err := interactions.New(
		machine,
		runtime.Interactions,
		runtime.Telemetry.MeterProvider(),
		runtime.Telemetry.TracerProvider(),
		runtime.Logger,
	)
	if err != nil {
		return nil, err
	}

	return &Domain{
		Patients:     patientsSystem,
		Medications:  medicationsSystem,
		Sessions:     sessionsSystem,
		Education:    educationSystem,
		Interactions: interactionsSystem,
	}, nil
}
