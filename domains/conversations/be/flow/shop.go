package flow

import (
	"context"
	"fmt"
	"strings"

	shopsvc "github.com/mukando-hq/storekeeper/domains/shops/be/service"
	"github.com/mukando-hq/storekeeper/platform/go/chat"
	"github.com/mukando-hq/storekeeper/platform/go/persistence"
	"github.com/mukando-hq/storekeeper/platform/go/tenant"
)

// ShopSetupState names the shop setup steps.
type ShopSetupState string

const (
	ShopSetupName     ShopSetupState = "name"
	ShopSetupLocation ShopSetupState = "location"
	ShopSetupContact  ShopSetupState = "contact"
)

// ShopSetupData is the shop setup flow's accumulated state.
type ShopSetupData struct {
	State    ShopSetupState `json:"state"`
	Name     string         `json:"name,omitempty"`
	Location string         `json:"location,omitempty"`
}

func (d *Dispatcher) startShopSetup(ctx context.Context, ev chat.Event, account persistence.Account) error {
	data := &ShopSetupData{State: ShopSetupName}
	if err := d.saveState(ctx, ev.Identity, flowShopSetup, data); err != nil {
		return err
	}
	d.send(ctx, ev.Identity, "What is the shop called?", nil)
	return nil
}

func (d *Dispatcher) handleShopSetup(ctx context.Context, ev chat.Event, space tenant.Space, account persistence.Account, data *ShopSetupData) error {
	input := strings.TrimSpace(ev.Payload)

	switch data.State {
	case ShopSetupName:
		if input == "" {
			d.send(ctx, ev.Identity, "Type the shop's name.", nil)
			return nil
		}
		data.Name = input
		data.State = ShopSetupLocation
		if err := d.saveState(ctx, ev.Identity, flowShopSetup, data); err != nil {
			return err
		}
		d.send(ctx, ev.Identity, "Where is it located?", nil)
		return nil

	case ShopSetupLocation:
		if input == "" {
			d.send(ctx, ev.Identity, "Type the shop's location.", nil)
			return nil
		}
		data.Location = input
		data.State = ShopSetupContact
		if err := d.saveState(ctx, ev.Identity, flowShopSetup, data); err != nil {
			return err
		}
		d.send(ctx, ev.Identity, "Contact number for the shop? Type skip if none.", nil)
		return nil

	case ShopSetupContact:
		contact := input
		if strings.EqualFold(contact, "skip") {
			contact = ""
		}

		shop, err := d.shops.Create(ctx, space, shopsvc.CreateParams{
			Name:     data.Name,
			Location: data.Location,
			Contact:  contact,
		})
		if err != nil {
			return err
		}

		if err := d.finishFlow(ctx, ev.Identity); err != nil {
			return err
		}

		text := fmt.Sprintf("%s is set up.", shop.Name)
		if shop.IsMain {
			text = fmt.Sprintf("%s is set up as your main shop.", shop.Name)
		}
		d.send(ctx, ev.Identity, text, MainMenu(account.Role))
		return nil
	}

	return fmt.Errorf("shop flow in unknown state %q", data.State)
}
