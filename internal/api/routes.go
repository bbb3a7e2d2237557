package api

import (
	"net/http"

	"github.com/JaimeStill/adherence/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	runtime *Runtime,
) {
	patterns := routes.Register(
		mux,
		domain.Patients.Handler().Routes(),
		domain.Medications.Handler().Routes(),
		domain.Sessions.Handler().Routes(),
		domain.Education.Handler().Routes(),
		domain.Interactions.Handler().Routes(),
		newStorageHandler(runtime.Storage, runtime.Logger, runtime.MaxListSize).routes(),
	)

	runtime.Logger.Debug("routes registered", "count", len(patterns))
}
