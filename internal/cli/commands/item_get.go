package commands

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"CocoStock/internal/config"
)

func itemPath(id string) string { return "/api/items/" + url.PathEscape(id) }

type itemGetCmd struct{}

func (itemGetCmd) Name() string        { return "item-get" }
func (itemGetCmd) Description() string { return "Показать позицию по id" }
func (itemGetCmd) Usage() string       { return "item-get <id>" }

func (itemGetCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return ErrUsage
	}
	resp, body, err := newClient(cfg).Get(ctx, itemPath(args[0]))
	if err != nil {
		return err
	}
	var it item
	if err := decodeOK(resp, body, &it); err != nil {
		return err
	}
	printItem(it)
	return nil
}

type itemDeleteCmd struct{}

func (itemDeleteCmd) Name() string        { return "item-delete" }
func (itemDeleteCmd) Description() string { return "Удалить позицию вместе с изображением" }
func (itemDeleteCmd) Usage() string       { return "item-delete <id>" }

func (itemDeleteCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return ErrUsage
	}
	resp, body, err := newClient(cfg).Delete(ctx, itemPath(args[0]))
	if err != nil {
		return err
	}
	var res mutationResult
	if err := decodeOK(resp, body, &res); err != nil {
		return err
	}
	fmt.Fprintf(Out, "Deleted: %s\n", args[0])
	printDiagnostics(res.Diagnostics)
	return nil
}

type assetCmd struct{}

func (assetCmd) Name() string        { return "asset" }
func (assetCmd) Description() string { return "Скачать изображение позиции в файл" }
func (assetCmd) Usage() string       { return "asset <id> <out-file>" }

func (assetCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 2 {
		return ErrUsage
	}
	out := args[1]
	tmp, err := os.CreateTemp(filepath.Dir(out), ".asset-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	n, err := newClient(cfg).Download(ctx, itemPath(args[0])+"/asset", tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), out); err != nil {
		return err
	}
	fmt.Fprintf(Out, "Saved %d bytes to %s\n", n, out)
	return nil
}

func init() {
	RegisterIn(SectionInventory, itemGetCmd{})
	RegisterIn(SectionInventory, itemDeleteCmd{})
	RegisterIn(SectionInventory, assetCmd{})
}
