package commands

import (
	"context"
	"fmt"

	"CocoStock/internal/config"
)

type statusResponse struct {
	Authenticated bool  `json:"authenticated"`
	UserID        int64 `json:"userId"`
}

type statusCmd struct{}

func (statusCmd) Name() string        { return "status" }
func (statusCmd) Description() string { return "Check authorization on the server" }
func (statusCmd) Usage() string       { return "status" }

func (statusCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	resp, body, err := newClient(cfg).Get(ctx, "/api/user/status")
	if err != nil {
		return err
	}
	var st statusResponse
	if err := decodeOK(resp, body, &st); err != nil {
		return err
	}
	if !st.Authenticated {
		fmt.Fprintln(Out, "Status: anonymous (run `login` first)")
		return nil
	}
	if login, err := tokenStore(cfg).LoadLogin(); err == nil {
		fmt.Fprintln(Out, "Login:", login)
	}
	fmt.Fprintf(Out, "Status: authorized as user %d\n", st.UserID)
	return nil
}

func init() { RegisterIn(SectionAccount, statusCmd{}) }
