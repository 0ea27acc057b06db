package commands

import (
	"context"
	"fmt"
	"net/http"

	"CocoStock/internal/config"
)

type itemAddCmd struct{}

func (itemAddCmd) Name() string { return "item-add" }
func (itemAddCmd) Description() string {
	return "Добавить позицию (опционально с изображением)"
}
func (itemAddCmd) Usage() string {
	return "item-add <name> <type> <qty> <unit> <location> [image]"
}

func (itemAddCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 5 && len(args) != 6 {
		return ErrUsage
	}
	fields := map[string]string{
		"itemName":        args[0],
		"type":            args[1],
		"quantity":        args[2],
		"unit":            args[3],
		"storageLocation": args[4],
	}
	image := ""
	if len(args) == 6 {
		image = args[5]
	}

	resp, body, err := newClient(cfg).SendForm(ctx, http.MethodPost, "/api/items", fields, image)
	if err != nil {
		return err
	}
	var res mutationResult
	if err := decodeOK(resp, body, &res); err != nil {
		return err
	}
	fmt.Fprintln(Out, "Created:")
	printItem(res.Item)
	printDiagnostics(res.Diagnostics)
	return nil
}

func init() { RegisterIn(SectionInventory, itemAddCmd{}) }
