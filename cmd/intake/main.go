// Command intake walks a practitioner through the patient intake wizard of
// a running clinic desk API from the terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/charmbracelet/huh"

	"clinicdesk/internal/model"
	"clinicdesk/internal/service"
	"clinicdesk/internal/wizard"
)

func main() {
	baseURL := flag.String("url", envOr("CLINICDESK_URL", "http://localhost:8080"), "clinic desk API base URL")
	token := flag.String("token", os.Getenv("CLINICDESK_TOKEN"), "access token (prompts for sign-in when empty)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, newDeskClient(*baseURL), *token); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			os.Exit(130)
		}
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func run(ctx context.Context, c *deskClient, token string) error {
	c.token = token
	if c.token == "" {
		var cred model.Credentials
		if err := signInForm(&cred).Run(); err != nil {
			return err
		}
		res, err := c.SignIn(ctx, cred)
		if err != nil {
			return fmt.Errorf("sign in: %w", err)
		}
		fmt.Println(subtitleStyle.Render("Signed in as " + res.Username))
	}

	v, err := c.CreateWizard(ctx)
	if err != nil {
		return fmt.Errorf("start wizard: %w", err)
	}

	for {
		if v.State == wizard.StateDone {
			fmt.Println(renderNotification(v.Notification))
			return nil
		}
		if n := renderNotification(v.Notification); n != "" {
			fmt.Println(n)
		}
		fmt.Println(renderHeader(v.Step))

		in, err := newStepForm(v.Step, v.Values, v.Errors).Run()
		if err != nil {
			return err
		}
		if v, err = apply(ctx, c, v, in); err != nil {
			return err
		}
		if v == nil {
			return nil
		}
	}
}

// apply performs the chosen action and returns the view to render next, or
// nil once the wizard was discarded.
func apply(ctx context.Context, c *deskClient, v *service.WizardView, in stepInput) (*service.WizardView, error) {
	switch in.Action {
	case actionQuit:
		return nil, c.DeleteWizard(ctx, v.ID)
	case actionBack:
		return c.Retreat(ctx, v.ID)
	}

	for _, up := range []struct {
		cat   model.Category
		paths []string
	}{{model.CategoryReports, in.Reports}, {model.CategoryImages, in.Images}} {
		for _, p := range up.paths {
			dup, err := c.Upload(ctx, v.ID, up.cat, p)
			var de *deskError
			switch {
			case errors.As(err, &de):
				fmt.Println(errorStyle.Render(fmt.Sprintf("  %s: %s", p, de.Message)))
			case err != nil:
				return nil, err
			case dup:
				fmt.Println(subtitleStyle.Render("  already attached: " + p))
			}
		}
	}

	next, err := c.Advance(ctx, v.ID, in.Values)
	var de *deskError
	if errors.As(err, &de) && len(de.Fields) > 0 {
		return c.GetWizard(ctx, v.ID)
	}
	return next, err
}
