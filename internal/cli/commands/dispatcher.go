package commands

import (
	"CocoStock/internal/cli/api"
	"CocoStock/internal/config"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Коды выхода CLI.
const (
	ExitOK           = 0
	ExitFailure      = 1
	ExitUsage        = 2
	ExitUnauthorized = 3
	ExitInterrupted  = 130
)

// Dispatch выполняет команду из args (после глобальных флагов) и возвращает код выхода.
func Dispatch(ctx context.Context, cfg *config.Config, args []string) int {
	if len(args) == 0 {
		fmt.Fprint(Out, FormatGlobalUsage())
		return ExitUsage
	}

	name := strings.ToLower(args[0])
	switch name {
	case "help", "-h", "--help": // cscli help [command]
		if len(args) == 1 {
			fmt.Fprint(Out, FormatGlobalUsage())
			return ExitOK
		}
		if c, ok := Get(args[1]); ok {
			fmt.Fprintf(Out, "Usage: %s\n  %s\n", c.Usage(), c.Description())
			return ExitOK
		}
		fmt.Fprintf(Out, "Unknown command: %s\n\n", args[1])
		fmt.Fprint(Out, FormatGlobalUsage())
		return ExitUsage
	}

	c, ok := Get(name)
	if !ok {
		fmt.Fprintf(Out, "Unknown command: %s\n\n", name)
		fmt.Fprint(Out, FormatGlobalUsage())
		return ExitUsage
	}

	return exitCode(name, c, c.Run(ctx, cfg, args[1:]))
}

func exitCode(name string, c Command, err error) int {
	var se *api.StatusError
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrUsage):
		fmt.Fprintf(Out, "Usage: %s\n", c.Usage())
		return ExitUsage
	case errors.Is(err, context.Canceled):
		fmt.Fprintf(Out, "%s: interrupted\n", name)
		return ExitInterrupted
	case errors.As(err, &se) && se.Code == http.StatusUnauthorized:
		fmt.Fprintf(Out, "%s error: %v\n", name, err)
		return ExitUnauthorized
	default:
		fmt.Fprintf(Out, "%s error: %v\n", name, err)
		return ExitFailure
	}
}
