package commands

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"CocoStock/internal/config"
)

// editableFields: ключи, которые принимает item-edit.
var editableFields = map[string]struct{}{
	"itemName":        {},
	"type":            {},
	"quantity":        {},
	"unit":            {},
	"storageLocation": {},
	"status":          {},
}

type itemEditCmd struct{}

func (itemEditCmd) Name() string { return "item-edit" }
func (itemEditCmd) Description() string {
	return "Изменить поля позиции: itemName|type|quantity|unit|storageLocation|status, image=<path>"
}
func (itemEditCmd) Usage() string {
	return "item-edit <id> key=value... [image=path]"
}

func (itemEditCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 2 {
		return ErrUsage
	}
	id := args[0]
	fields, image, err := parseAssignments(args[1:])
	if err != nil {
		fmt.Fprintln(Out, err)
		return ErrUsage
	}

	resp, body, err := newClient(cfg).SendForm(ctx, http.MethodPut, itemPath(id), fields, image)
	if err != nil {
		return err
	}
	var res mutationResult
	if err := decodeOK(resp, body, &res); err != nil {
		return err
	}
	fmt.Fprintln(Out, "Updated:")
	printItem(res.Item)
	printDiagnostics(res.Diagnostics)
	return nil
}

// parseAssignments разбирает key=value; image уходит отдельной частью формы.
func parseAssignments(args []string) (map[string]string, string, error) {
	fields := map[string]string{}
	image := ""
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		if !ok || k == "" {
			return nil, "", fmt.Errorf("bad assignment %q, want key=value", a)
		}
		if k == "image" {
			if v == "" {
				return nil, "", fmt.Errorf("empty image path")
			}
			image = v
			continue
		}
		if _, known := editableFields[k]; !known {
			return nil, "", fmt.Errorf("unknown field %q", k)
		}
		fields[k] = v
	}
	return fields, image, nil
}

func init() { RegisterIn(SectionInventory, itemEditCmd{}) }
