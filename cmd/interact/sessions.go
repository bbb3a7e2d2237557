package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/adherence/intervention"
)

var errNoSessions = errors.New("no sessions recorded")

var sessionsCmd = &cobra.Command{
	Use:   "sessions <patient_id>",
	Short: "Report stored sessions for a patient, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := newClient(cmd).patientSessions(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("load sessions: %w", err)
		}
		if len(list) == 0 {
			return fmt.Errorf("patient %s: %w", args[0], errNoSessions)
		}
		return writeReport(cmd.OutOrStdout(), list)
	},
}

func writeReport(w io.Writer, list []intervention.Session) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	for _, s := range list {
		fmt.Fprintf(tw, "%s\tcreated %s\tcompleted %s\n",
			s.SessionID,
			s.CreatedAt.Format(time.DateTime),
			yesNo(s.InteractionCompleted),
		)
		if s.MedicationChangeReported {
			fmt.Fprintf(tw, "\tmedication change\t%s\n", s.MedicationChangeDetails)
		}
		fmt.Fprintf(tw, "\teducation delivered\t%s\n", yesNo(s.EducationalPromptDelivered))
		fmt.Fprintf(tw, "\tnurse contact\t%s\n", yesNo(s.NurseContactRequired()))

		for _, r := range s.MedicationAdministration {
			status := "taken " + yesNo(r.PatientConfirmed)
			if r.ErrorFlag {
				status = "unresolved: " + r.ErrorDescription
			}
			fmt.Fprintf(tw, "\t%d. %s (%s)\t%s\n",
				r.AdministrationID,
				r.MedicationName,
				r.MedicationFrequency,
				status,
			)
		}
	}

	return tw.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
