package commands

import (
	"CocoStock/internal/config"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// ErrUsage is returned by a command when arguments are invalid and usage should be shown.
var ErrUsage = errors.New("usage")

// Command represents a CLI subcommand.
type Command interface {
	Name() string
	Description() string
	// Usage returns the exact usage string, e.g. "item-get <id>".
	Usage() string
	// Run executes the command with provided args (without the command name).
	Run(ctx context.Context, cfg *config.Config, args []string) error
}

// Section groups commands in help output.
type Section string

const (
	SectionAccount   Section = "Account"
	SectionInventory Section = "Inventory"
	SectionOther     Section = "Other"
)

var sectionOrder = []Section{SectionAccount, SectionInventory, SectionOther}

type entry struct {
	cmd     Command
	section Section
}

var registry = map[string]entry{}

// Out: общий writer для вывода CLI, в тестах подменяется.
var Out io.Writer = os.Stdout

// RegisterCmd adds a command to the Other section. Called from init().
func RegisterCmd(cmd Command) {
	RegisterIn(SectionOther, cmd)
}

// RegisterIn adds a command under the given help section.
func RegisterIn(s Section, cmd Command) {
	registry[cmd.Name()] = entry{cmd: cmd, section: s}
}

func Get(name string) (Command, bool) {
	e, ok := registry[name]
	return e.cmd, ok
}

// List returns commands of a section sorted by name; empty section means all.
func List(s Section) []Command {
	list := make([]Command, 0, len(registry))
	for _, e := range registry {
		if s == "" || e.section == s {
			list = append(list, e.cmd)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name() < list[j].Name() })
	return list
}

// FormatGlobalUsage builds a help text grouped by section.
func FormatGlobalUsage() string {
	lines := []string{
		"CocoStock CLI",
		"",
		"Usage:",
		"  cscli [--base-url <host:port>] [--https] [--token-file <path>] <command> [args]",
	}
	for _, s := range sectionOrder {
		cmds := List(s)
		if len(cmds) == 0 {
			continue
		}
		lines = append(lines, "", string(s)+" commands:")
		for _, c := range cmds {
			lines = append(lines, fmt.Sprintf("  %-58s %s", c.Usage(), c.Description()))
		}
	}
	return strings.Join(lines, "\n") + "\n"
}
