package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	accountsvc "github.com/mukando-hq/storekeeper/domains/accounts/be/service"
	"github.com/mukando-hq/storekeeper/platform/go/chat"
	"github.com/mukando-hq/storekeeper/platform/go/persistence"
	"github.com/mukando-hq/storekeeper/platform/go/tenant"
)

// StaffCreateState names the staff creation steps.
type StaffCreateState string

const (
	StaffCreateRole       StaffCreateState = "role"
	StaffCreateSelectShop StaffCreateState = "select_shop"
	StaffCreateName       StaffCreateState = "name"
)

// StaffCreateData is the staff creation flow's accumulated state.
type StaffCreateData struct {
	State    StaffCreateState `json:"state"`
	Role     string           `json:"role,omitempty"`
	ShopID   uuid.UUID        `json:"shop_id"`
	ShopName string           `json:"shop_name,omitempty"`
}

func (d *Dispatcher) startStaffCreate(ctx context.Context, ev chat.Event, space tenant.Space, account persistence.Account) error {
	// Admin accounts can only be created by the owner; admins create
	// shopkeepers directly.
	if account.Role != "owner" {
		data := &StaffCreateData{State: StaffCreateSelectShop, Role: accountsvc.RoleShopkeeper}
		return d.staffAskShop(ctx, ev, space, account, data)
	}

	data := &StaffCreateData{State: StaffCreateRole}
	if err := d.saveState(ctx, ev.Identity, flowStaffCreate, data); err != nil {
		return err
	}
	d.send(ctx, ev.Identity, "What kind of account?", chat.NewMenu(
		chat.MenuRow{Label: "Admin", Token: accountsvc.RoleAdmin},
		chat.MenuRow{Label: "Shopkeeper", Token: accountsvc.RoleShopkeeper},
	))
	return nil
}

func (d *Dispatcher) staffAskShop(ctx context.Context, ev chat.Event, space tenant.Space, account persistence.Account, data *StaffCreateData) error {
	shops, err := d.shops.List(ctx, space)
	if err != nil {
		return err
	}
	if len(shops) == 0 {
		d.send(ctx, ev.Identity, "Set up a shop before creating staff accounts.", MainMenu(account.Role))
		return nil
	}
	if len(shops) == 1 {
		data.ShopID = shops[0].ShopID
		data.ShopName = shops[0].Name
		data.State = StaffCreateName
		if err := d.saveState(ctx, ev.Identity, flowStaffCreate, data); err != nil {
			return err
		}
		d.send(ctx, ev.Identity, "Display name for this person? Type skip for none.", nil)
		return nil
	}

	data.State = StaffCreateSelectShop
	if err := d.saveState(ctx, ev.Identity, flowStaffCreate, data); err != nil {
		return err
	}
	d.send(ctx, ev.Identity, "Which shop will they work in?", shopMenu(shops))
	return nil
}

func (d *Dispatcher) handleStaffCreate(ctx context.Context, ev chat.Event, space tenant.Space, account persistence.Account, data *StaffCreateData) error {
	switch data.State {
	case StaffCreateRole:
		switch eventToken(ev) {
		case accountsvc.RoleAdmin, accountsvc.RoleShopkeeper:
			data.Role = eventToken(ev)
			return d.staffAskShop(ctx, ev, space, account, data)
		}
		d.send(ctx, ev.Identity, "Pick admin or shopkeeper.", nil)
		return nil

	case StaffCreateSelectShop:
		shopID, err := uuid.Parse(ev.Payload)
		if err != nil {
			d.send(ctx, ev.Identity, "Pick a shop from the list.", nil)
			return nil
		}
		shop, err := d.shops.Get(ctx, space, shopID)
		if err != nil {
			d.send(ctx, ev.Identity, "Pick a shop from the list.", nil)
			return nil
		}
		data.ShopID = shop.ShopID
		data.ShopName = shop.Name
		data.State = StaffCreateName
		if err := d.saveState(ctx, ev.Identity, flowStaffCreate, data); err != nil {
			return err
		}
		d.send(ctx, ev.Identity, "Display name for this person? Type skip for none.", nil)
		return nil

	case StaffCreateName:
		var displayName *string
		input := strings.TrimSpace(ev.Payload)
		if input != "" && !strings.EqualFold(input, "skip") {
			displayName = &input
		}

		shopID := data.ShopID
		_, creds, err := d.accounts.CreateAccount(ctx, accountsvc.CreateInput{
			Role:        data.Role,
			ShopID:      &shopID,
			ShopName:    data.ShopName,
			DisplayName: displayName,
			SchemaName:  space.SchemaName,
		})
		if err != nil {
			return err
		}

		if err := d.finishFlow(ctx, ev.Identity); err != nil {
			return err
		}
		// The plaintext is shown exactly once and never retrievable again.
		d.send(ctx, ev.Identity, fmt.Sprintf(
			"Account created.\nUsername: %s\nPassword: %s\nShare these with them now; the password cannot be shown again.",
			creds.Username, creds.Password,
		), MainMenu(account.Role))
		return nil
	}

	return fmt.Errorf("staff create flow in unknown state %q", data.State)
}

// StaffResetData is the password reset flow's accumulated state.
type StaffResetData struct {
	Requested bool `json:"requested"`
}

func (d *Dispatcher) startStaffReset(ctx context.Context, ev chat.Event) error {
	if err := d.saveState(ctx, ev.Identity, flowStaffReset, &StaffResetData{Requested: true}); err != nil {
		return err
	}
	d.send(ctx, ev.Identity, "Whose password should be reset? Type the username.", nil)
	return nil
}

func (d *Dispatcher) handleStaffReset(ctx context.Context, ev chat.Event, account persistence.Account, data *StaffResetData) error {
	username := strings.TrimSpace(ev.Payload)
	if username == "" {
		d.send(ctx, ev.Identity, "Type the username.", nil)
		return nil
	}

	password, err := d.accounts.ResetPassword(ctx, username)
	if err != nil {
		if errors.Is(err, accountsvc.ErrNotFound) {
			d.send(ctx, ev.Identity, fmt.Sprintf("No account called %q. Type the username.", username), nil)
			return nil
		}
		return err
	}

	if err := d.finishFlow(ctx, ev.Identity); err != nil {
		return err
	}
	d.send(ctx, ev.Identity, fmt.Sprintf(
		"New password for %s: %s\nShare it now; it cannot be shown again.", username, password,
	), MainMenu(account.Role))
	return nil
}

// StaffDeleteState names the staff deletion steps.
type StaffDeleteState string

const (
	StaffDeleteUsername StaffDeleteState = "username"
	StaffDeleteConfirm  StaffDeleteState = "confirm"
)

// StaffDeleteData is the staff deletion flow's accumulated state.
type StaffDeleteData struct {
	State    StaffDeleteState `json:"state"`
	Username string           `json:"username,omitempty"`
}

func (d *Dispatcher) startStaffDelete(ctx context.Context, ev chat.Event) error {
	if err := d.saveState(ctx, ev.Identity, flowStaffDelete, &StaffDeleteData{State: StaffDeleteUsername}); err != nil {
		return err
	}
	d.send(ctx, ev.Identity, "Whose account should be deleted? Type the username.", nil)
	return nil
}

func (d *Dispatcher) handleStaffDelete(ctx context.Context, ev chat.Event, account persistence.Account, data *StaffDeleteData) error {
	switch data.State {
	case StaffDeleteUsername:
		username := strings.TrimSpace(ev.Payload)
		if username == "" {
			d.send(ctx, ev.Identity, "Type the username.", nil)
			return nil
		}
		data.Username = username
		data.State = StaffDeleteConfirm
		if err := d.saveState(ctx, ev.Identity, flowStaffDelete, data); err != nil {
			return err
		}
		d.send(ctx, ev.Identity, fmt.Sprintf("Delete %s? This cannot be undone.", username), yesNoMenu())
		return nil

	case StaffDeleteConfirm:
		switch eventToken(ev) {
		case "yes":
			err := d.accounts.DeleteAccount(ctx, data.Username)
			switch {
			case errors.Is(err, accountsvc.ErrOwnerProtected):
				if clearErr := d.finishFlow(ctx, ev.Identity); clearErr != nil {
					return clearErr
				}
				d.send(ctx, ev.Identity, "The owner account cannot be deleted.", MainMenu(account.Role))
				return nil
			case errors.Is(err, accountsvc.ErrNotFound):
				if clearErr := d.finishFlow(ctx, ev.Identity); clearErr != nil {
					return clearErr
				}
				d.send(ctx, ev.Identity, fmt.Sprintf("No account called %q.", data.Username), MainMenu(account.Role))
				return nil
			case err != nil:
				return err
			}

			if err := d.finishFlow(ctx, ev.Identity); err != nil {
				return err
			}
			d.send(ctx, ev.Identity, data.Username+" deleted.", MainMenu(account.Role))
			return nil
		case "no":
			if err := d.finishFlow(ctx, ev.Identity); err != nil {
				return err
			}
			d.send(ctx, ev.Identity, "Nothing deleted.", MainMenu(account.Role))
			return nil
		}
		d.send(ctx, ev.Identity, "Answer yes or no.", yesNoMenu())
		return nil
	}

	return fmt.Errorf("staff delete flow in unknown state %q", data.State)
}
