package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"waypoint/internal/agent"
	"waypoint/internal/email"
	"waypoint/internal/session"
)

var (
	sessionID string
	emailTo   string
	emailFrom string
	subject   string
	assumeYes bool
)

func newTravelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "travel [request]",
		Short: "Search flights, hotels, trains and rentals",
		Example: `  waypoint travel "Paris to Lisbon from 2025-12-12 to 2025-12-15, hotel near the center"
  waypoint travel "cheapest train Paris to Lyon tomorrow morning" --email-to me@example.com`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, agent.DomainTravel, strings.Join(args, " "))
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "Continue an existing session")
	cmd.Flags().StringVar(&emailTo, "email-to", "", "Send the summary to this address")
	cmd.Flags().StringVar(&emailFrom, "email-from", "", "Sender address (default: email.from)")
	cmd.Flags().StringVar(&subject, "subject", "", "Email subject (default: email.subject)")
	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Send the email without asking for confirmation")
	return cmd
}

func newJobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "jobs [request]",
		Short:   "Search job postings",
		Example: `  waypoint jobs "Go backend freelance missions in Paris, remote friendly"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, agent.DomainJobs, strings.Join(args, " "))
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "Continue an existing session")
	return cmd
}

// newEmailCmd resumes a paused travel session kept in a persistent store.
func newEmailCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "email [session-id]",
		Short: "Email the summary of a paused travel session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if emailTo == "" {
				return errors.New("--email-to is required")
			}
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, appOptions{interactive: true, skipEmailConfirm: assumeYes})
			if err != nil {
				return err
			}
			defer a.close()

			receipt, err := a.agent.Resume(ctx, args[0], emailRequest())
			if err != nil {
				return err
			}
			newRenderer(cmd).Receipt(receipt)
			return nil
		},
	}
	cmd.Flags().StringVar(&emailTo, "email-to", "", "Recipient address")
	cmd.Flags().StringVar(&emailFrom, "email-from", "", "Sender address (default: email.from)")
	cmd.Flags().StringVar(&subject, "subject", "", "Email subject (default: email.subject)")
	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Send the email without asking for confirmation")
	return cmd
}

func emailRequest() email.Request {
	return email.Request{From: emailFrom, To: emailTo, Subject: subject}
}

func runSearch(cmd *cobra.Command, domain, text string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, appOptions{
		interactive:      true,
		skipEmailConfirm: assumeYes,
		mountMCP:         domain == agent.DomainTravel,
	})
	if err != nil {
		return err
	}
	defer a.close()

	id := sessionID
	if id == "" {
		id = session.NewID()
	}

	turn, err := a.agent.Start(ctx, agent.StartRequest{
		SessionID: id,
		Domain:    domain,
		Text:      text,
	})
	if err != nil {
		a.log.Error("Agent execution failed: %v", err)
		return err
	}
	newRenderer(cmd).Turn(turn)

	if !turn.Paused {
		return nil
	}
	if a.cfg.Email.APIKey == "" {
		a.log.Debug("Email step disabled: no SendGrid API key configured")
		return nil
	}

	req := emailRequest()
	if req.To == "" {
		if durableStore(a.cfg.Store.Type) {
			a.log.Info("Session paused before the email step; use `waypoint email %s --email-to <address>` to send the summary", turn.SessionID)
			return nil
		}
		// an in-memory session ends with this process, so ask now
		req.To, err = askRecipient(cmd.InOrStdin(), cmd.OutOrStdout())
		if err != nil {
			return err
		}
		if req.To == "" {
			return nil
		}
	}

	receipt, err := a.agent.Resume(ctx, turn.SessionID, req)
	if err != nil {
		return err
	}
	newRenderer(cmd).Receipt(receipt)
	return nil
}

func durableStore(storeType string) bool {
	return storeType == "sqlite" || storeType == "postgres"
}

// askRecipient reads one line from in. It reads byte by byte so that later
// prompts on the same input still see their answers.
func askRecipient(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Email the summary to (empty to skip): ")

	var line []byte
	buf := make([]byte, 1)
	for {
		n, err := in.Read(buf)
		if n == 1 {
			if buf[0] == '\n' {
				break
			}
			line = append(line, buf[0])
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read recipient: %w", err)
		}
	}
	return strings.TrimSpace(string(line)), nil
}
