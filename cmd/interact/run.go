package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/adherence/internal/interactions"
	"github.com/JaimeStill/adherence/intervention"
)

const saveAttempts = 3

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one adherence dialogue interactively",
	RunE: func(cmd *cobra.Command, args []string) error {
		d := &dialogue{
			client:  newClient(cmd),
			in:      bufio.NewScanner(cmd.InOrStdin()),
			out:     cmd.OutOrStdout(),
			backoff: time.Second,
		}
		return d.run(cmd.Context())
	},
}

type dialogue struct {
	client  *client
	in      *bufio.Scanner
	out     io.Writer
	backoff time.Duration
}

// run starts an interaction and relays answers until the session is saved.
// End of input abandons the interaction.
func (d *dialogue) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	current, err := d.client.begin(ctx)
	if err != nil {
		return fmt.Errorf("begin interaction: %w", err)
	}

	for !current.Saved {
		if current.State.Step == intervention.StepFinalize {
			current, err = d.save(ctx, current)
			if err != nil {
				return err
			}
			break
		}

		d.prompt(current.Prompt)
		text, ok := d.read()
		if !ok {
			d.client.abandon(ctx, current.ID)
			fmt.Fprintln(d.out, "Session abandoned.")
			return nil
		}

		in := intervention.Input{Text: text}
		if current.State.Step == intervention.StepMedicationChangeCheck &&
			intervention.ParseYesNo(text) == intervention.Yes {
			fmt.Fprint(d.out, "Describe the change: ")
			in.Details, _ = d.read()
		}

		resp, err := d.client.respond(ctx, current.ID, in)
		if err != nil {
			return fmt.Errorf("submit answer: %w", err)
		}

		turn := resp.Turn
		if !turn.Accepted {
			fmt.Fprintln(d.out, turn.Reason)
		}
		if turn.Notice != "" {
			fmt.Fprintln(d.out, turn.Notice)
		}
		if resp.SaveError != "" {
			fmt.Fprintln(d.out, "Session could not be saved:", resp.SaveError)
		}

		current = resp.Interaction
	}

	d.report(current)
	return nil
}

func (d *dialogue) save(ctx context.Context, current interactions.Interaction) (interactions.Interaction, error) {
	var err error
	for attempt := 1; attempt <= saveAttempts; attempt++ {
		var saved interactions.Interaction
		saved, err = d.client.save(ctx, current.ID)
		if err == nil {
			return saved, nil
		}
		if !retryable(err) {
			break
		}
		fmt.Fprintf(d.out, "Save attempt %d failed, retrying.\n", attempt)
		time.Sleep(d.backoff)
	}
	return current, fmt.Errorf("save session %s: %w", current.SessionID, err)
}

func (d *dialogue) prompt(p intervention.Prompt) {
	fmt.Fprintln(d.out, p.Text)
	if p.Hint != "" {
		fmt.Fprintf(d.out, "(%s)\n", p.Hint)
	}
	fmt.Fprint(d.out, "> ")
}

func (d *dialogue) read() (string, bool) {
	if !d.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(d.in.Text()), true
}

func (d *dialogue) report(v interactions.Interaction) {
	fmt.Fprintln(d.out, v.Prompt.Text)
	if v.Outcome == nil {
		return
	}
	o := v.Outcome
	fmt.Fprintf(d.out, "Session %s saved: %d medication(s), %d unresolved.\n", o.SessionID, o.Records, o.Unresolved)
	if o.NurseContactRequired {
		fmt.Fprintln(d.out, "A nurse will contact you.")
	}
}
