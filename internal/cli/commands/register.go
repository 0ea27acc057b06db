package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"CocoStock/internal/cli/api"
	"CocoStock/internal/config"
)

type registerCmd struct{}

func (registerCmd) Name() string        { return "register" }
func (registerCmd) Description() string { return "Create account and log in" }
func (registerCmd) Usage() string       { return "register <login> <password>" }

func (registerCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 2 {
		return ErrUsage
	}
	resp, body, err := api.NewClient(cfg.ServerURL, "").PostJSON(ctx, "/api/user/register", credentials{Login: args[0], Password: args[1]})
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusConflict {
		return errors.New("login already in use")
	}
	if err := api.CheckStatus(resp, body); err != nil {
		return err
	}
	if err := persistSession(cfg, resp, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(Out, "Registered as %s\n", args[0])
	return nil
}

func init() { RegisterIn(SectionAccount, registerCmd{}) }
