package commands

import (
	"encoding/json"
	"fmt"
	"net/http"

	"CocoStock/internal/cli/api"
	"CocoStock/internal/cli/auth"
	"CocoStock/internal/config"
)

// item: позиция склада в ответах сервера.
type item struct {
	ID               string  `json:"id"`
	ItemName         string  `json:"itemName"`
	Type             string  `json:"type"`
	Quantity         float64 `json:"quantity"`
	Unit             string  `json:"unit"`
	StorageLocation  string  `json:"storageLocation"`
	Status           string  `json:"status"`
	AssetRef         *string `json:"assetRef"`
	LowStockNotified bool    `json:"lowStockNotified"`
	Version          int64   `json:"version"`
}

type diagnostic struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Refs    []string `json:"refs"`
}

// mutationResult: ответ create/update/delete.
type mutationResult struct {
	Item        item         `json:"item"`
	Diagnostics []diagnostic `json:"diagnostics"`
}

func tokenStore(cfg *config.Config) auth.Store { return auth.NewStore(cfg.TokenFile) }

// newClient: клиент с сохранённым токеном; без токена запросы уйдут анонимно.
func newClient(cfg *config.Config) *api.Client {
	token, _ := tokenStore(cfg).LoadToken()
	return api.NewClient(cfg.ServerURL, token)
}

// decodeOK проверяет статус и разбирает JSON-тело в v.
func decodeOK(resp *http.Response, body []byte, v any) error {
	if err := api.CheckStatus(resp, body); err != nil {
		if resp.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("%w (run `login` first)", err)
		}
		return err
	}
	if v == nil {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

func printItem(it item) {
	fmt.Fprintf(Out, "id:        %s\n", it.ID)
	fmt.Fprintf(Out, "name:      %s\n", it.ItemName)
	fmt.Fprintf(Out, "type:      %s\n", it.Type)
	fmt.Fprintf(Out, "quantity:  %g %s\n", it.Quantity, it.Unit)
	fmt.Fprintf(Out, "location:  %s\n", it.StorageLocation)
	fmt.Fprintf(Out, "status:    %s\n", it.Status)
	asset := "-"
	if it.AssetRef != nil {
		asset = *it.AssetRef
	}
	fmt.Fprintf(Out, "asset:     %s\n", asset)
	fmt.Fprintf(Out, "low stock: %t\n", it.LowStockNotified)
	fmt.Fprintf(Out, "version:   %d\n", it.Version)
}

func printList(list []item) {
	if len(list) == 0 {
		fmt.Fprintln(Out, "Нет записей")
		return
	}
	for _, it := range list {
		img := ""
		if it.AssetRef != nil {
			img = "  [image]"
		}
		fmt.Fprintf(Out, "- %s  %s  %s  %g %s  @%s  %s%s\n",
			it.ID, it.ItemName, it.Type, it.Quantity, it.Unit, it.StorageLocation, it.Status, img)
	}
	fmt.Fprintf(Out, "Всего: %d\n", len(list))
}

func printDiagnostics(ds []diagnostic) {
	for _, d := range ds {
		fmt.Fprintf(Out, "! %s: %s\n", d.Code, d.Message)
	}
}
