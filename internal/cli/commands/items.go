package commands

import (
	"context"
	"net/url"
	"strconv"

	"CocoStock/internal/config"
)

type itemsCmd struct{}

func (itemsCmd) Name() string        { return "items" }
func (itemsCmd) Description() string { return "Показать все позиции склада" }
func (itemsCmd) Usage() string       { return "items" }

func (itemsCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	resp, body, err := newClient(cfg).Get(ctx, "/api/items")
	if err != nil {
		return err
	}
	var list []item
	if err := decodeOK(resp, body, &list); err != nil {
		return err
	}
	printList(list)
	return nil
}

type lowStockCmd struct{}

func (lowStockCmd) Name() string { return "low-stock" }
func (lowStockCmd) Description() string {
	return "Позиции с количеством ниже порога (по умолчанию берётся серверный порог)"
}
func (lowStockCmd) Usage() string { return "low-stock [threshold]" }

func (lowStockCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) > 1 {
		return ErrUsage
	}
	path := "/api/items/lowStock"
	if len(args) == 1 {
		v, err := strconv.ParseFloat(args[0], 64)
		if err != nil || v <= 0 {
			return ErrUsage
		}
		path += "?" + url.Values{"threshold": {args[0]}}.Encode()
	}
	resp, body, err := newClient(cfg).Get(ctx, path)
	if err != nil {
		return err
	}
	var list []item
	if err := decodeOK(resp, body, &list); err != nil {
		return err
	}
	printList(list)
	return nil
}

func init() {
	RegisterIn(SectionInventory, itemsCmd{})
	RegisterIn(SectionInventory, lowStockCmd{})
}
