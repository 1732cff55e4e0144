package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"neuroscan/internal/api"
	"neuroscan/internal/archive"
	"neuroscan/internal/authclient"
	"neuroscan/internal/config"
	"neuroscan/internal/historyclient"
	"neuroscan/internal/prefs"
	"neuroscan/internal/results"
	"neuroscan/internal/session"
	"neuroscan/internal/shareclient"
	"neuroscan/internal/store"
	"neuroscan/internal/uploadclient"
)

// app wires the durable store, the backend clients and the stateful
// managers together, and routes subcommands to handlers.
type app struct {
	cfg     config.FileConfig
	store   store.Store
	session *session.Manager
	prefs   *prefs.Manager
	history *historyclient.Client
	upload  *uploadclient.Client
	share   *shareclient.Client
	engine  *results.Engine
	archive *archive.Archive
}

func newApp(cfg config.FileConfig) (*app, error) {
	var st store.Store
	var err error
	if cfg.RedisAddr != "" {
		st = store.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, "neuroscan:")
	} else {
		st, err = store.NewFileStore(cfg.DataDir)
		if err != nil {
			return nil, err
		}
	}

	timeout, err := config.ParseHTTPTimeout(cfg.HTTPTimeout)
	if err != nil {
		return nil, err
	}
	cacheTTL, err := config.ParseCacheTTL(cfg.CacheTTL)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, store: st}

	// The HTTP client pulls the token from the session manager, which is
	// built right after; the closure only dereferences at request time.
	apiClient := api.New(cfg.BackendURL, timeout, func() string {
		if a.session == nil {
			return ""
		}
		return a.session.Token()
	})

	a.session = session.New(authclient.New(apiClient), st)
	a.prefs = prefs.New(st)
	a.history = historyclient.New(apiClient)
	a.upload = uploadclient.New(apiClient)
	a.share = shareclient.New(apiClient)

	loc, err := time.LoadLocation(cfg.DisplayTimezone)
	if err != nil {
		slog.Warn("unknown display timezone, using UTC", "tz", cfg.DisplayTimezone)
		loc = time.UTC
	}
	a.engine = results.NewEngine(a.history, st, results.Config{
		TTL:       cacheTTL,
		PageSize:  cfg.PageSize,
		PrimeSize: cfg.CachePrimeSize,
	}, loc)

	if cfg.ArchiveEndpoint != "" {
		arc, err := archive.New(cfg.ArchiveEndpoint, cfg.ArchiveAccessKey,
			cfg.ArchiveSecretKey, cfg.ArchiveBucket, cfg.ArchiveUseSSL)
		if err != nil {
			slog.Warn("scan archive unavailable", "err", err)
		} else {
			a.archive = arc
		}
	}
	return a, nil
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		usage()
		return nil
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "login":
		return a.cmdLogin(ctx, rest)
	case "logout":
		return a.cmdLogout(ctx)
	case "register":
		return a.cmdRegister(ctx, rest)
	case "verify-otp":
		return a.cmdVerifyOTP(ctx, rest)
	case "resend-otp":
		return a.cmdResendOTP(ctx, rest)
	case "forgot-password":
		return a.cmdForgotPassword(ctx, rest)
	case "verify-reset-otp":
		return a.cmdVerifyResetOTP(ctx, rest)
	case "reset-password":
		return a.cmdResetPassword(ctx, rest)
	case "resend-reset-otp":
		return a.cmdResendResetOTP(ctx, rest)
	case "whoami":
		return a.cmdWhoami(ctx)
	case "update-profile":
		return a.cmdUpdateProfile(ctx, rest)
	case "change-password":
		return a.cmdChangePassword(ctx, rest)
	case "upload":
		return a.cmdUpload(ctx, rest)
	case "results":
		return a.cmdResults(ctx, rest)
	case "result":
		return a.cmdResult(ctx, rest)
	case "stats":
		return a.cmdStats(ctx)
	case "patients":
		return a.cmdPatients(ctx, rest)
	case "patient":
		return a.cmdPatient(ctx, rest)
	case "share":
		return a.cmdShare(ctx, rest)
	case "theme":
		return a.cmdTheme(rest)
	case "help", "-h", "--help":
		usage()
		return nil
	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// requireAuth bootstraps the session and fails commands that need a signed
// in user, mirroring the protected-route behavior of the web client.
func (a *app) requireAuth(ctx context.Context) error {
	a.session.Init(ctx)
	if !a.session.Authenticated() {
		return errors.New("not signed in: run 'neuroscan login' first")
	}
	return nil
}

// reportErr translates request failures into user-facing messages:
// connectivity problems get a generic retry hint, 401s force a logout.
func (a *app) reportErr(err error) error {
	if err == nil {
		return nil
	}
	if a.session.HandleAuthError(err) {
		return errors.New("session expired, sign in again")
	}
	if errors.Is(err, api.ErrConnectivity) {
		return errors.New("could not reach the analysis server, please try again")
	}
	return err
}

func usage() {
	fmt.Fprint(os.Stderr, `neuroscan - medical image analysis client

Usage: neuroscan <command> [flags]

Account:
  register          create an account (OTP verification follows by email)
  verify-otp        confirm the signup code
  resend-otp        re-send the signup code
  login             sign in
  logout            sign out locally
  whoami            show the signed-in user
  update-profile    edit name/email
  change-password   rotate the password
  forgot-password   start the password reset flow
  verify-reset-otp  check a reset code
  reset-password    set a new password with the reset code
  resend-reset-otp  re-send the reset code

Analysis:
  upload            submit a scan for analysis
  results           browse/search prediction history
  result            show or annotate a single result
  stats             aggregate prediction statistics
  patients          list/search patients
  patient           show/create/update/delete a patient
  share             email a report to a doctor

Preferences:
  theme             show or toggle the light/dark preference
`)
}
