package phpapi

import (
	"context"
	"net/http"

	"github.com/korenlms/portal/internal/model"
)

const (
	pathSignUp      = "/signup.php"
	pathSignIn      = "/signin.php"
	pathLogout      = "/userlogout.php"
	pathUserProfile = "/userprofile.php"
)

// SignInResult is a successful sign-in: the user payload plus the
// credentials later calls must forward.
type SignInResult struct {
	Data        model.SignInData
	Credentials Credentials
}

// SignUp creates an account. It returns the server's confirmation message.
func (c *Client) SignUp(ctx context.Context, req model.SignUpRequest) (string, error) {
	return c.send(ctx, http.MethodPost, pathSignUp, nil, req)
}

// SignIn authenticates with email and password and captures the session
// token and cookies the server hands out.
func (c *Client) SignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	body := map[string]string{"email": email, "password": password}

	var data model.SignInData
	res, err := c.do(ctx, http.MethodPost, pathSignIn, nil, body, &data)
	if err != nil {
		return nil, err
	}

	creds := Credentials{SessionToken: data.SessionToken}
	creds.merge(res.cookies)
	return &SignInResult{Data: data, Credentials: creds}, nil
}

// Logout destroys the server-side PHP session.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.send(ctx, http.MethodPost, pathLogout, nil, nil)
	return err
}

// Profile fetches the signed-in user's profile.
func (c *Client) Profile(ctx context.Context) (*model.User, error) {
	var u model.User
	if err := c.Do(ctx, http.MethodGet, pathUserProfile, nil, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateProfile edits the signed-in user's profile and returns the stored version.
func (c *Client) UpdateProfile(ctx context.Context, req model.UpdateProfileRequest) (*model.User, error) {
	var u model.User
	if err := c.Do(ctx, http.MethodPut, pathUserProfile, nil, req, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
