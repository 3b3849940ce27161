package flow

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	approvalsvc "github.com/mukando-hq/storekeeper/domains/approvals/be/service"
	"github.com/mukando-hq/storekeeper/platform/go/chat"
	"github.com/mukando-hq/storekeeper/platform/go/persistence"
	"github.com/mukando-hq/storekeeper/platform/go/tenant"
)

// StockAddState names the receive-stock steps.
type StockAddState string

const (
	StockAddSelectShop StockAddState = "select_shop"
	StockAddSearch     StockAddState = "search"
	StockAddSelect     StockAddState = "select"
	StockAddQuantity   StockAddState = "quantity"
)

// StockAddData is the receive-stock flow's accumulated state.
type StockAddData struct {
	State      StockAddState `json:"state"`
	ShopID     uuid.UUID     `json:"shop_id"`
	Candidates []ProductPick `json:"candidates,omitempty"`
	Current    *ProductPick  `json:"current,omitempty"`
}

func (d *Dispatcher) startStockAdd(ctx context.Context, ev chat.Event, space tenant.Space, account persistence.Account) error {
	data := &StockAddData{}

	shopID, selectShops, err := d.shopForFlow(ctx, space, account)
	if err != nil {
		d.send(ctx, ev.Identity, "Set up a shop first.", MainMenu(account.Role))
		return nil
	}
	if selectShops != nil {
		data.State = StockAddSelectShop
		if err := d.saveState(ctx, ev.Identity, flowStockAdd, data); err != nil {
			return err
		}
		d.send(ctx, ev.Identity, "Which shop received the stock?", shopMenu(selectShops))
		return nil
	}

	data.ShopID = shopID
	data.State = StockAddSearch
	if err := d.saveState(ctx, ev.Identity, flowStockAdd, data); err != nil {
		return err
	}
	d.send(ctx, ev.Identity, "Which product arrived? Type its name.", nil)
	return nil
}

func (d *Dispatcher) handleStockAdd(ctx context.Context, ev chat.Event, space tenant.Space, account persistence.Account, data *StockAddData) error {
	input := strings.TrimSpace(ev.Payload)

	switch data.State {
	case StockAddSelectShop:
		shopID, err := uuid.Parse(ev.Payload)
		if err != nil {
			d.send(ctx, ev.Identity, "Pick a shop from the list.", nil)
			return nil
		}
		data.ShopID = shopID
		data.State = StockAddSearch
		if err := d.saveState(ctx, ev.Identity, flowStockAdd, data); err != nil {
			return err
		}
		d.send(ctx, ev.Identity, "Which product arrived? Type its name.", nil)
		return nil

	case StockAddSearch:
		if input == "" {
			d.send(ctx, ev.Identity, "Type the product name to search.", nil)
			return nil
		}
		matches, err := d.catalog.Search(ctx, space, data.ShopID, input)
		if err != nil {
			return err
		}
		switch len(matches) {
		case 0:
			d.send(ctx, ev.Identity, fmt.Sprintf("No products match %q. Try another name.", input), nil)
			return nil
		case 1:
			pick := pickFromProduct(matches[0])
			data.Current = &pick
			data.State = StockAddQuantity
			if err := d.saveState(ctx, ev.Identity, flowStockAdd, data); err != nil {
				return err
			}
			d.send(ctx, ev.Identity, fmt.Sprintf("%s currently has %d. How many arrived?", pick.Name, pick.Available), nil)
			return nil
		}
		data.Candidates = data.Candidates[:0]
		menu := &chat.Menu{}
		for _, match := range matches {
			pick := pickFromProduct(match)
			data.Candidates = append(data.Candidates, pick)
			menu.Rows = append(menu.Rows, chat.MenuRow{Label: pick.Name, Token: pick.ProductID.String()})
		}
		data.State = StockAddSelect
		if err := d.saveState(ctx, ev.Identity, flowStockAdd, data); err != nil {
			return err
		}
		d.send(ctx, ev.Identity, "Several products match. Pick one.", menu)
		return nil

	case StockAddSelect:
		productID, err := uuid.Parse(ev.Payload)
		if err == nil {
			for _, pick := range data.Candidates {
				if pick.ProductID == productID {
					selected := pick
					data.Current = &selected
					data.Candidates = nil
					data.State = StockAddQuantity
					if err := d.saveState(ctx, ev.Identity, flowStockAdd, data); err != nil {
						return err
					}
					d.send(ctx, ev.Identity, fmt.Sprintf("%s currently has %d. How many arrived?", selected.Name, selected.Available), nil)
					return nil
				}
			}
		}
		d.send(ctx, ev.Identity, "Pick a product from the list.", nil)
		return nil

	case StockAddQuantity:
		quantity, err := strconv.Atoi(input)
		if err != nil || quantity <= 0 {
			d.send(ctx, ev.Identity, "Enter a whole number greater than zero.", nil)
			return nil
		}
		return d.commitStockAdd(ctx, ev, space, account, data, quantity)
	}

	return fmt.Errorf("stock flow in unknown state %q", data.State)
}

// commitStockAdd applies the delta directly for owners; everyone else's
// adjustment becomes a pending approval.
func (d *Dispatcher) commitStockAdd(ctx context.Context, ev chat.Event, space tenant.Space, account persistence.Account, data *StockAddData, quantity int) error {
	if data.Current == nil {
		return d.finishFlow(ctx, ev.Identity)
	}

	if account.Role != "owner" {
		_, err := d.approvals.ProposeStockUpdate(ctx, space, account, approvalsvc.StockUpdatePayload{
			ShopID:    data.ShopID,
			ProductID: data.Current.ProductID,
			Delta:     quantity,
		})
		if err != nil {
			return err
		}
		if err := d.finishFlow(ctx, ev.Identity); err != nil {
			return err
		}
		d.send(ctx, ev.Identity, "Sent to the owner for approval.", MainMenu(account.Role))
		return nil
	}

	if err := d.catalog.Receive(ctx, space, data.Current.ProductID, data.ShopID, quantity); err != nil {
		return err
	}

	if err := d.finishFlow(ctx, ev.Identity); err != nil {
		return err
	}
	d.send(ctx, ev.Identity,
		fmt.Sprintf("%s stock is now %d.", data.Current.Name, data.Current.Available+quantity),
		MainMenu(account.Role),
	)
	return nil
}
