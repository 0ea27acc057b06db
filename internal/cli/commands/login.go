package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"CocoStock/internal/cli/api"
	"CocoStock/internal/config"
)

type credentials struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type loginCmd struct{}

func (loginCmd) Name() string        { return "login" }
func (loginCmd) Description() string { return "Login and store auth cookie" }
func (loginCmd) Usage() string       { return "login <login> <password>" }

func (loginCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 2 {
		return ErrUsage
	}
	resp, body, err := api.NewClient(cfg.ServerURL, "").PostJSON(ctx, "/api/user/login", credentials{Login: args[0], Password: args[1]})
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return errors.New("invalid login or password")
	}
	if err := api.CheckStatus(resp, body); err != nil {
		return err
	}
	if err := persistSession(cfg, resp, args[0]); err != nil {
		return err
	}
	fmt.Fprintln(Out, "Logged in successfully")
	return nil
}

// persistSession сохраняет токен из cookie и логин пользователя.
func persistSession(cfg *config.Config, resp *http.Response, login string) error {
	store := tokenStore(cfg)
	if err := api.PersistAuthFromResponse(resp, store); err != nil {
		return fmt.Errorf("saving auth: %w", err)
	}
	if err := store.SaveLogin(login); err != nil {
		return fmt.Errorf("saving login: %w", err)
	}
	return nil
}

type logoutCmd struct{}

func (logoutCmd) Name() string        { return "logout" }
func (logoutCmd) Description() string { return "Forget stored auth token" }
func (logoutCmd) Usage() string       { return "logout" }

func (logoutCmd) Run(_ context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	if err := tokenStore(cfg).Clear(); err != nil {
		return err
	}
	fmt.Fprintln(Out, "Logged out")
	return nil
}

func init() {
	RegisterIn(SectionAccount, loginCmd{})
	RegisterIn(SectionAccount, logoutCmd{})
}
