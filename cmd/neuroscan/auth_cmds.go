package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"

	"golang.org/x/crypto/ssh/terminal"

	"neuroscan/internal/session"
	"neuroscan/internal/validate"
)

// promptPassword reads a password without echo, falling back to a plain
// line read when stdin is not a terminal (tests, pipes).
func promptPassword(label string) (string, error) {
	fmt.Fprintf(os.Stderr, "%s: ", label)
	fd := int(os.Stdin.Fd())
	if terminal.IsTerminal(fd) {
		raw, err := terminal.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func outcomeErr(out session.Outcome) error {
	if out.Success {
		return nil
	}
	return errors.New(out.Err)
}

func (a *app) cmdLogin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := validate.Email(*email); err != nil {
		return err
	}
	password, err := promptPassword("Password")
	if err != nil {
		return err
	}
	out := a.session.Login(ctx, *email, password)
	if !out.Success {
		return outcomeErr(out)
	}
	user, _ := a.session.User()
	fmt.Printf("Signed in as %s <%s>\n", user.FullName, user.Email)

	// Warm the results cache in the background of this invocation; a
	// failure only costs the optimization.
	a.engine.Prime(ctx, user.ID)
	return nil
}

func (a *app) cmdLogout(context.Context) error {
	a.session.Logout()
	fmt.Println("Signed out.")
	return nil
}

func (a *app) cmdRegister(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	name := fs.String("name", "", "full name")
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := validate.FullName(*name); err != nil {
		return err
	}
	if err := validate.Email(*email); err != nil {
		return err
	}
	password, err := promptPassword("Password")
	if err != nil {
		return err
	}
	if err := validate.Password(password); err != nil {
		return err
	}
	out := a.session.Register(ctx, *name, *email, password)
	if !out.Success {
		return a.reportErr(outcomeErr(out))
	}
	if out.RequiresVerification {
		fmt.Println("Account created. Check your email for the verification code, then run 'neuroscan verify-otp'.")
	} else {
		fmt.Println("Account created.")
	}
	return nil
}

func (a *app) cmdVerifyOTP(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("verify-otp", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	code := fs.String("code", "", "verification code")
	if err := fs.Parse(args); err != nil {
		return err
	}
	out := a.session.VerifyOTP(ctx, *email, *code)
	if !out.Success {
		return a.reportErr(outcomeErr(out))
	}
	user, _ := a.session.User()
	fmt.Printf("Email verified. Signed in as %s.\n", user.Email)
	return nil
}

func (a *app) cmdResendOTP(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("resend-otp", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return err
	}
	out := a.session.ResendOTP(ctx, *email)
	if !out.Success {
		return a.reportErr(outcomeErr(out))
	}
	fmt.Println("Verification code sent.")
	return nil
}

func (a *app) cmdForgotPassword(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("forgot-password", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := validate.Email(*email); err != nil {
		return err
	}
	out := a.session.ForgotPassword(ctx, *email)
	if !out.Success {
		if out.StatusCode == http.StatusNotFound {
			return fmt.Errorf("no account found for %s", *email)
		}
		return a.reportErr(outcomeErr(out))
	}
	fmt.Println("Reset code sent. Continue with 'neuroscan verify-reset-otp'.")
	return nil
}

func (a *app) cmdVerifyResetOTP(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("verify-reset-otp", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	code := fs.String("code", "", "reset code")
	if err := fs.Parse(args); err != nil {
		return err
	}
	out := a.session.VerifyResetOTP(ctx, *email, *code)
	if !out.Success {
		// A 404 means the reset request itself is gone; restart the flow.
		if out.StatusCode == http.StatusNotFound {
			return errors.New("reset request not found or expired, start again with 'neuroscan forgot-password'")
		}
		return a.reportErr(outcomeErr(out))
	}
	fmt.Println("Code verified. Set the new password with 'neuroscan reset-password'.")
	return nil
}

func (a *app) cmdResetPassword(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reset-password", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	code := fs.String("code", "", "reset code")
	if err := fs.Parse(args); err != nil {
		return err
	}
	password, err := promptPassword("New password")
	if err != nil {
		return err
	}
	if err := validate.Password(password); err != nil {
		return err
	}
	out := a.session.ResetPassword(ctx, *email, *code, password)
	if !out.Success {
		if out.StatusCode == http.StatusNotFound {
			return errors.New("reset request not found or expired, start again with 'neuroscan forgot-password'")
		}
		return a.reportErr(outcomeErr(out))
	}
	fmt.Println("Password reset. Sign in with 'neuroscan login'.")
	return nil
}

func (a *app) cmdResendResetOTP(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("resend-reset-otp", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return err
	}
	out := a.session.ResendResetOTP(ctx, *email)
	if !out.Success {
		if out.StatusCode == http.StatusNotFound {
			return errors.New("reset request not found or expired, start again with 'neuroscan forgot-password'")
		}
		return a.reportErr(outcomeErr(out))
	}
	fmt.Println("Reset code re-sent.")
	return nil
}

func (a *app) cmdWhoami(ctx context.Context) error {
	if err := a.requireAuth(ctx); err != nil {
		return err
	}
	user, _ := a.session.User()
	fmt.Printf("%s <%s>\n", user.FullName, user.Email)
	if !user.IsVerified {
		fmt.Println("Email not verified.")
	}
	if exp, ok := a.session.TokenExpiry(); ok {
		fmt.Printf("Session valid until %s\n", exp.Local().Format("Jan 2 15:04"))
	}
	return nil
}

func (a *app) cmdUpdateProfile(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("update-profile", flag.ContinueOnError)
	name := fs.String("name", "", "new full name")
	email := fs.String("email", "", "new email")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.requireAuth(ctx); err != nil {
		return err
	}
	if *name == "" && *email == "" {
		return errors.New("nothing to update: pass --name and/or --email")
	}
	if *name != "" {
		if err := validate.FullName(*name); err != nil {
			return err
		}
	}
	if *email != "" {
		if err := validate.Email(*email); err != nil {
			return err
		}
	}
	out := a.session.UpdateProfile(ctx, *name, *email)
	if !out.Success {
		return a.reportErr(outcomeErr(out))
	}
	fmt.Println("Profile updated.")
	return nil
}

func (a *app) cmdChangePassword(ctx context.Context, args []string) error {
	if err := a.requireAuth(ctx); err != nil {
		return err
	}
	current, err := promptPassword("Current password")
	if err != nil {
		return err
	}
	next, err := promptPassword("New password")
	if err != nil {
		return err
	}
	if err := validate.Password(next); err != nil {
		return err
	}
	out := a.session.ChangePassword(ctx, current, next)
	if !out.Success {
		return a.reportErr(outcomeErr(out))
	}
	fmt.Println("Password changed.")
	return nil
}
