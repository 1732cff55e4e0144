// Package authclient calls the remote authentication service.
package authclient

import (
	"context"

	"neuroscan/internal/api"
	"neuroscan/pkg/domain"
)

// Client wraps the auth endpoints with typed request/response pairs.
type Client struct {
	api *api.Client
}

// New constructs an auth client on top of the shared HTTP client.
func New(apiClient *api.Client) *Client {
	return &Client{api: apiClient}
}

// RegisterResponse reports whether the new account still needs an OTP step.
type RegisterResponse struct {
	Email                string `json:"email"`
	RequiresVerification bool   `json:"requires_verification"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

type verifyTokenResponse struct {
	User domain.User `json:"user"`
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	payload := map[string]string{"email": email, "password": password}
	var resp tokenResponse
	if err := c.api.Post(ctx, "/auth/login-json", payload, &resp); err != nil {
		return "", err
	}
	return resp.AccessToken, nil
}

// Me fetches the profile behind the current token.
func (c *Client) Me(ctx context.Context) (domain.User, error) {
	var user domain.User
	if err := c.api.Get(ctx, "/auth/me", &user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// VerifyToken asks the backend whether the persisted token is still good.
func (c *Client) VerifyToken(ctx context.Context) (domain.User, error) {
	var resp verifyTokenResponse
	if err := c.api.Get(ctx, "/auth/verify-token", &resp); err != nil {
		return domain.User{}, err
	}
	return resp.User, nil
}

// Register creates an account; verification continues over OTP by email.
func (c *Client) Register(ctx context.Context, fullName, email, password string) (RegisterResponse, error) {
	payload := map[string]string{
		"full_name": fullName,
		"email":     email,
		"password":  password,
	}
	var resp RegisterResponse
	if err := c.api.Post(ctx, "/auth/register", payload, &resp); err != nil {
		return RegisterResponse{}, err
	}
	return resp, nil
}

// VerifyOTP confirms the signup code and returns the issued token.
func (c *Client) VerifyOTP(ctx context.Context, email, code string) (string, error) {
	payload := map[string]string{"email": email, "otp_code": code}
	var resp tokenResponse
	if err := c.api.Post(ctx, "/auth/verify-otp", payload, &resp); err != nil {
		return "", err
	}
	return resp.AccessToken, nil
}

// ResendOTP re-sends the signup verification code.
func (c *Client) ResendOTP(ctx context.Context, email string) error {
	return c.api.Post(ctx, "/auth/resend-otp", map[string]string{"email": email}, nil)
}

// ForgotPassword starts the reset flow by mailing a code.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.api.Post(ctx, "/auth/forgot-password", map[string]string{"email": email}, nil)
}

// VerifyResetOTP checks a reset code without consuming it.
func (c *Client) VerifyResetOTP(ctx context.Context, email, code string) error {
	payload := map[string]string{"email": email, "otp_code": code}
	return c.api.Post(ctx, "/auth/verify-reset-otp", payload, nil)
}

// ResetPassword submits the new password together with the reset code.
func (c *Client) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	payload := map[string]string{
		"email":        email,
		"otp_code":     code,
		"new_password": newPassword,
	}
	return c.api.Post(ctx, "/auth/reset-password", payload, nil)
}

// ResendResetOTP re-sends the reset code.
func (c *Client) ResendResetOTP(ctx context.Context, email string) error {
	return c.api.Post(ctx, "/auth/resend-reset-otp", map[string]string{"email": email}, nil)
}

// ChangePassword rotates the password of the signed-in account.
func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	payload := map[string]string{
		"current_password": current,
		"new_password":     next,
	}
	return c.api.Post(ctx, "/auth/change-password", payload, nil)
}

// UpdateProfile edits the signed-in account's profile fields.
func (c *Client) UpdateProfile(ctx context.Context, fullName, email string) (domain.User, error) {
	payload := map[string]string{}
	if fullName != "" {
		payload["full_name"] = fullName
	}
	if email != "" {
		payload["email"] = email
	}
	var user domain.User
	if err := c.api.Put(ctx, "/auth/update-profile", payload, &user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}
