package slimmerkopen

import (
	"context"
	"fmt"
	"log/slog"

	"offerwatch/lib/browser"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// LoadLoginForm opens the home page and waits until the login button is
// rendered. The error wraps browser.ErrTimeout if it never shows up.
func (c *Client) LoadLoginForm(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "client:LoadLoginForm")
	defer span.End()
	span.SetAttributes(attribute.String("url", c.homeURL))

	slog.InfoContext(ctx, "getting page", "url", c.homeURL)
	err := c.driver.Navigate(ctx, c.homeURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load home page")
		return fmt.Errorf("load login form: %w", err)
	}
	_, err = browser.WaitFor(ctx, c.driver, loginTrigger, c.waitTimeout)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "login button never rendered")
		return fmt.Errorf("load login form: %w", err)
	}
	return nil
}

// Login fills in and submits the login form, then waits for the marker
// that is only rendered for logged in users. It must follow LoadLoginForm.
func (c *Client) Login(ctx context.Context, creds Credentials) error {
	ctx, span := tracer.Start(ctx, "client:Login")
	defer span.End()

	err := c.login(ctx, creds)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to login")
		return fmt.Errorf("login: %w", err)
	}
	return nil
}

func (c *Client) login(ctx context.Context, creds Credentials) error {
	slog.InfoContext(ctx, "trying to get the login form")

	trigger, err := browser.FindOne(ctx, c.driver, loginTrigger)
	if err != nil {
		return err
	}
	err = trigger.Click(ctx)
	if err != nil {
		return fmt.Errorf("open login form: %w", err)
	}

	form, err := browser.FindOne(ctx, c.driver, browser.Attr("action", c.loginAction))
	if err != nil {
		return err
	}
	username, err := browser.FindOne(ctx, form, usernameInput)
	if err != nil {
		return err
	}
	err = username.SendKeys(ctx, creds.Username)
	if err != nil {
		return fmt.Errorf("type username: %w", err)
	}
	password, err := browser.FindOne(ctx, form, passwordInput)
	if err != nil {
		return err
	}
	err = password.SendKeys(ctx, creds.Password)
	if err != nil {
		return fmt.Errorf("type password: %w", err)
	}

	// the submit button sits below the fold and must be visible to be clicked
	err = c.driver.ExecuteScript(ctx, scrollToBottom)
	if err != nil {
		return fmt.Errorf("scroll to submit: %w", err)
	}
	submit, err := browser.FindOne(ctx, form, submitButton)
	if err != nil {
		return err
	}
	err = submit.Click(ctx)
	if err != nil {
		return fmt.Errorf("submit login form: %w", err)
	}

	_, err = browser.WaitFor(ctx, c.driver, loggedInMarker, c.waitTimeout)
	return err
}
