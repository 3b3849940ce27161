package flow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	approvalsvc "github.com/mukando-hq/storekeeper/domains/approvals/be/service"
	catalogsvc "github.com/mukando-hq/storekeeper/domains/catalog/be/service"
	"github.com/mukando-hq/storekeeper/platform/go/chat"
	"github.com/mukando-hq/storekeeper/platform/go/persistence"
	"github.com/mukando-hq/storekeeper/platform/go/tenant"
)

// keepSentinel in an update step means "keep the existing value".
const keepSentinel = "-"

// ProductCreateState names the product creation steps.
type ProductCreateState string

const (
	ProductCreateSelectShop   ProductCreateState = "select_shop"
	ProductCreateName         ProductCreateState = "name"
	ProductCreateQuantity     ProductCreateState = "quantity"
	ProductCreateUnit         ProductCreateState = "unit"
	ProductCreatePrice        ProductCreateState = "price"
	ProductCreateMinStock     ProductCreateState = "min_stock"
	ProductCreateLowThreshold ProductCreateState = "low_threshold"
)

// ProductCreateData is the product creation flow's accumulated state.
type ProductCreateData struct {
	State    ProductCreateState `json:"state"`
	ShopID   uuid.UUID          `json:"shop_id"`
	Name     string             `json:"name,omitempty"`
	Quantity int                `json:"quantity"`
	Unit     string             `json:"unit,omitempty"`
	Price    decimal.Decimal    `json:"price"`
	MinStock int                `json:"min_stock"`
}

func (d *Dispatcher) startProductCreate(ctx context.Context, ev chat.Event, space tenant.Space, account persistence.Account) error {
	data := &ProductCreateData{Price: decimal.Zero}

	shopID, selectShops, err := d.shopForFlow(ctx, space, account)
	if err != nil {
		d.send(ctx, ev.Identity, "Set up a shop first.", MainMenu(account.Role))
		return nil
	}
	if selectShops != nil {
		data.State = ProductCreateSelectShop
		if err := d.saveState(ctx, ev.Identity, flowProductCreate, data); err != nil {
			return err
		}
		d.send(ctx, ev.Identity, "Which shop gets the new product?", shopMenu(selectShops))
		return nil
	}

	data.ShopID = shopID
	data.State = ProductCreateName
	if err := d.saveState(ctx, ev.Identity, flowProductCreate, data); err != nil {
		return err
	}
	d.send(ctx, ev.Identity, "What is the product called?", nil)
	return nil
}

func (d *Dispatcher) handleProductCreate(ctx context.Context, ev chat.Event, space tenant.Space, account persistence.Account, data *ProductCreateData) error {
	input := strings.TrimSpace(ev.Payload)

	switch data.State {
	case ProductCreateSelectShop:
		shopID, err := uuid.Parse(ev.Payload)
		if err != nil {
			d.send(ctx, ev.Identity, "Pick a shop from the list.", nil)
			return nil
		}
		if _, err := d.shops.Get(ctx, space, shopID); err != nil {
			d.send(ctx, ev.Identity, "Pick a shop from the list.", nil)
			return nil
		}
		data.ShopID = shopID
		data.State = ProductCreateName
		if err := d.saveState(ctx, ev.Identity, flowProductCreate, data); err != nil {
			return err
		}
		d.send(ctx, ev.Identity, "What is the product called?", nil)
		return nil

	case ProductCreateName:
		if input == "" {
			d.send(ctx, ev.Identity, "Type the product's name.", nil)
			return nil
		}
		data.Name = input
		data.State = ProductCreateQuantity
		if err := d.saveState(ctx, ev.Identity, flowProductCreate, data); err != nil {
			return err
		}
		d.send(ctx, ev.Identity, "How many are in stock right now?", nil)
		return nil

	case ProductCreateQuantity:
		quantity, err := strconv.Atoi(input)
		if err != nil || quantity < 0 {
			d.send(ctx, ev.Identity, "Enter the stock count as a whole number.", nil)
			return nil
		}
		data.Quantity = quantity
		data.State = ProductCreateUnit
		if err := d.saveState(ctx, ev.Identity, flowProductCreate, data); err != nil {
			return err
		}
		d.send(ctx, ev.Identity, "What unit is it sold in? (e.g. each, kg, loaf)", nil)
		return nil

	case ProductCreateUnit:
		if input == "" {
			d.send(ctx, ev.Identity, "Type the unit, e.g. each.", nil)
			return nil
		}
		data.Unit = input
		data.State = ProductCreatePrice
		if err := d.saveState(ctx, ev.Identity, flowProductCreate, data); err != nil {
			return err
		}
		d.send(ctx, ev.Identity, "Price per "+data.Unit+"?", nil)
		return nil

	case ProductCreatePrice:
		price, err := decimal.NewFromString(input)
		if err != nil || !price.IsPositive() {
			d.send(ctx, ev.Identity, "Enter the price as a number greater than zero.", nil)
			return nil
		}
		data.Price = price
		data.State = ProductCreateMinStock
		if err := d.saveState(ctx, ev.Identity, flowProductCreate, data); err != nil {
			return err
		}
		d.send(ctx, ev.Identity, "Minimum stock to keep on hand? (0 for none)", nil)
		return nil

	case ProductCreateMinStock:
		minStock, err := strconv.Atoi(input)
		if err != nil || minStock < 0 {
			d.send(ctx, ev.Identity, "Enter a whole number, 0 for none.", nil)
			return nil
		}
		data.MinStock = minStock
		data.State = ProductCreateLowThreshold
		if err := d.saveState(ctx, ev.Identity, flowProductCreate, data); err != nil {
			return err
		}
		d.send(ctx, ev.Identity, "Warn when stock falls to? (0 to disable)", nil)
		return nil

	case ProductCreateLowThreshold:
		threshold, err := strconv.Atoi(input)
		if err != nil || threshold < 0 {
			d.send(ctx, ev.Identity, "Enter a whole number, 0 to disable.", nil)
			return nil
		}
		return d.commitProductCreate(ctx, ev, space, account, data, threshold)
	}

	return fmt.Errorf("product create flow in unknown state %q", data.State)
}

// commitProductCreate applies the new product directly for owners and turns
// it into a pending approval for everyone else.
func (d *Dispatcher) commitProductCreate(ctx context.Context, ev chat.Event, space tenant.Space, account persistence.Account, data *ProductCreateData, threshold int) error {
	if account.Role != "owner" {
		_, err := d.approvals.ProposeAddProduct(ctx, space, account, approvalsvc.AddProductPayload{
			ShopID:            data.ShopID,
			Name:              data.Name,
			Price:             data.Price,
			Unit:              data.Unit,
			InitialQuantity:   data.Quantity,
			LowStockThreshold: threshold,
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

	_, err := d.catalog.Create(ctx, space, catalogsvc.CreateParams{
		ShopID:            data.ShopID,
		Name:              data.Name,
		Price:             data.Price,
		Unit:              data.Unit,
		InitialQuantity:   data.Quantity,
		MinStock:          data.MinStock,
		LowStockThreshold: threshold,
	})
	if err != nil {
		if errors.Is(err, catalogsvc.ErrConflict) {
			if clearErr := d.finishFlow(ctx, ev.Identity); clearErr != nil {
				return clearErr
			}
			d.send(ctx, ev.Identity, fmt.Sprintf("A product called %q already exists.", data.Name), MainMenu(account.Role))
			return nil
		}
		return err
	}

	if err := d.finishFlow(ctx, ev.Identity); err != nil {
		return err
	}
	d.send(ctx, ev.Identity, fmt.Sprintf("%s added with %d in stock.", data.Name, data.Quantity), MainMenu(account.Role))
	return nil
}

// ProductUpdateState names the product update steps. Every value step
// accepts "-" to keep what is stored.
type ProductUpdateState string

const (
	ProductUpdateSelectShop ProductUpdateState = "select_shop"
	ProductUpdateSearch     ProductUpdateState = "search"
	ProductUpdateSelect     ProductUpdateState = "select"
	ProductUpdateName       ProductUpdateState = "name"
	ProductUpdatePrice      ProductUpdateState = "price"
	ProductUpdateQuantity   ProductUpdateState = "quantity"
	ProductUpdateUnit       ProductUpdateState = "unit"
	ProductUpdateMinStock   ProductUpdateState = "min_stock"
	ProductUpdateThreshold  ProductUpdateState = "low_threshold"
)

// ProductUpdateData is the product update flow's accumulated state.
type ProductUpdateData struct {
	State      ProductUpdateState `json:"state"`
	ShopID     uuid.UUID          `json:"shop_id"`
	Candidates []ProductPick      `json:"candidates,omitempty"`
	ProductID  uuid.UUID          `json:"product_id"`
	Name       *string            `json:"name,omitempty"`
	Price      *decimal.Decimal   `json:"price,omitempty"`
	Quantity   *int               `json:"quantity,omitempty"`
	Unit       *string            `json:"unit,omitempty"`
	MinStock   *int               `json:"min_stock,omitempty"`
}

func (d *Dispatcher) startProductUpdate(ctx context.Context, ev chat.Event, space tenant.Space, account persistence.Account) error {
	data := &ProductUpdateData{}

	shopID, selectShops, err := d.shopForFlow(ctx, space, account)
	if err != nil {
		d.send(ctx, ev.Identity, "Set up a shop first.", MainMenu(account.Role))
		return nil
	}
	if selectShops != nil {
		data.State = ProductUpdateSelectShop
		if err := d.saveState(ctx, ev.Identity, flowProductUpdate, data); err != nil {
			return err
		}
		d.send(ctx, ev.Identity, "Which shop's product?", shopMenu(selectShops))
		return nil
	}

	data.ShopID = shopID
	data.State = ProductUpdateSearch
	if err := d.saveState(ctx, ev.Identity, flowProductUpdate, data); err != nil {
		return err
	}
	d.send(ctx, ev.Identity, "Type the product name to search.", nil)
	return nil
}

func (d *Dispatcher) handleProductUpdate(ctx context.Context, ev chat.Event, space tenant.Space, account persistence.Account, data *ProductUpdateData) error {
	input := strings.TrimSpace(ev.Payload)

	switch data.State {
	case ProductUpdateSelectShop:
		shopID, err := uuid.Parse(ev.Payload)
		if err != nil {
			d.send(ctx, ev.Identity, "Pick a shop from the list.", nil)
			return nil
		}
		data.ShopID = shopID
		data.State = ProductUpdateSearch
		if err := d.saveState(ctx, ev.Identity, flowProductUpdate, data); err != nil {
			return err
		}
		d.send(ctx, ev.Identity, "Type the product name to search.", nil)
		return nil

	case ProductUpdateSearch:
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
			data.ProductID = matches[0].ProductID
			data.State = ProductUpdateName
			if err := d.saveState(ctx, ev.Identity, flowProductUpdate, data); err != nil {
				return err
			}
			d.send(ctx, ev.Identity, updatePrompt("name", matches[0].Name), nil)
			return nil
		}
		data.Candidates = data.Candidates[:0]
		menu := &chat.Menu{}
		for _, match := range matches {
			pick := pickFromProduct(match)
			data.Candidates = append(data.Candidates, pick)
			menu.Rows = append(menu.Rows, chat.MenuRow{Label: pick.Name, Token: pick.ProductID.String()})
		}
		data.State = ProductUpdateSelect
		if err := d.saveState(ctx, ev.Identity, flowProductUpdate, data); err != nil {
			return err
		}
		d.send(ctx, ev.Identity, "Several products match. Pick one.", menu)
		return nil

	case ProductUpdateSelect:
		productID, err := uuid.Parse(ev.Payload)
		if err == nil {
			for _, pick := range data.Candidates {
				if pick.ProductID == productID {
					data.ProductID = productID
					data.Candidates = nil
					data.State = ProductUpdateName
					if err := d.saveState(ctx, ev.Identity, flowProductUpdate, data); err != nil {
						return err
					}
					d.send(ctx, ev.Identity, updatePrompt("name", pick.Name), nil)
					return nil
				}
			}
		}
		d.send(ctx, ev.Identity, "Pick a product from the list.", nil)
		return nil

	case ProductUpdateName:
		if input != keepSentinel {
			if input == "" {
				d.send(ctx, ev.Identity, "Type the new name, or - to keep it.", nil)
				return nil
			}
			data.Name = &input
		}
		data.State = ProductUpdatePrice
		if err := d.saveState(ctx, ev.Identity, flowProductUpdate, data); err != nil {
			return err
		}
		d.send(ctx, ev.Identity, "New price? Type - to keep it.", nil)
		return nil

	case ProductUpdatePrice:
		if input != keepSentinel {
			price, err := decimal.NewFromString(input)
			if err != nil || !price.IsPositive() {
				d.send(ctx, ev.Identity, "Enter the new price, or - to keep it.", nil)
				return nil
			}
			data.Price = &price
		}
		data.State = ProductUpdateQuantity
		if err := d.saveState(ctx, ev.Identity, flowProductUpdate, data); err != nil {
			return err
		}
		d.send(ctx, ev.Identity, "New stock count? Type - to keep it.", nil)
		return nil

	case ProductUpdateQuantity:
		if input != keepSentinel {
			quantity, err := strconv.Atoi(input)
			if err != nil || quantity < 0 {
				d.send(ctx, ev.Identity, "Enter the new stock count, or - to keep it.", nil)
				return nil
			}
			data.Quantity = &quantity
		}
		data.State = ProductUpdateUnit
		if err := d.saveState(ctx, ev.Identity, flowProductUpdate, data); err != nil {
			return err
		}
		d.send(ctx, ev.Identity, "New unit? Type - to keep it.", nil)
		return nil

	case ProductUpdateUnit:
		if input != keepSentinel {
			if input == "" {
				d.send(ctx, ev.Identity, "Type the new unit, or - to keep it.", nil)
				return nil
			}
			data.Unit = &input
		}
		data.State = ProductUpdateMinStock
		if err := d.saveState(ctx, ev.Identity, flowProductUpdate, data); err != nil {
			return err
		}
		d.send(ctx, ev.Identity, "New minimum stock? Type - to keep it.", nil)
		return nil

	case ProductUpdateMinStock:
		if input != keepSentinel {
			minStock, err := strconv.Atoi(input)
			if err != nil || minStock < 0 {
				d.send(ctx, ev.Identity, "Enter the new minimum stock, or - to keep it.", nil)
				return nil
			}
			data.MinStock = &minStock
		}
		data.State = ProductUpdateThreshold
		if err := d.saveState(ctx, ev.Identity, flowProductUpdate, data); err != nil {
			return err
		}
		d.send(ctx, ev.Identity, "New low-stock warning level? Type - to keep it.", nil)
		return nil

	case ProductUpdateThreshold:
		var threshold *int
		if input != keepSentinel {
			value, err := strconv.Atoi(input)
			if err != nil || value < 0 {
				d.send(ctx, ev.Identity, "Enter the new warning level, or - to keep it.", nil)
				return nil
			}
			threshold = &value
		}
		return d.commitProductUpdate(ctx, ev, space, account, data, threshold)
	}

	return fmt.Errorf("product update flow in unknown state %q", data.State)
}

func (d *Dispatcher) commitProductUpdate(ctx context.Context, ev chat.Event, space tenant.Space, account persistence.Account, data *ProductUpdateData, threshold *int) error {
	_, err := d.catalog.Update(ctx, space, data.ProductID, data.ShopID, catalogsvc.UpdateParams{
		Name:              data.Name,
		Price:             data.Price,
		Quantity:          data.Quantity,
		Unit:              data.Unit,
		MinStock:          data.MinStock,
		LowStockThreshold: threshold,
	})
	if err != nil {
		if errors.Is(err, catalogsvc.ErrNotFound) {
			if clearErr := d.finishFlow(ctx, ev.Identity); clearErr != nil {
				return clearErr
			}
			d.send(ctx, ev.Identity, "That product no longer exists.", MainMenu(account.Role))
			return nil
		}
		return err
	}

	if err := d.finishFlow(ctx, ev.Identity); err != nil {
		return err
	}
	d.send(ctx, ev.Identity, "Product updated.", MainMenu(account.Role))
	return nil
}

// shopForFlow resolves which shop a flow targets. Accounts with an assigned
// shop use it; owners with one shop use that shop; owners with several get a
// selection list back.
func (d *Dispatcher) shopForFlow(ctx context.Context, space tenant.Space, account persistence.Account) (uuid.UUID, []persistence.Shop, error) {
	if account.ShopID != nil {
		return *account.ShopID, nil, nil
	}

	shops, err := d.shops.List(ctx, space)
	if err != nil {
		return uuid.Nil, nil, err
	}
	switch len(shops) {
	case 0:
		return uuid.Nil, nil, errors.New("no shops provisioned")
	case 1:
		return shops[0].ShopID, nil, nil
	}
	return uuid.Nil, shops, nil
}

func updatePrompt(field, current string) string {
	return fmt.Sprintf("New %s? Current: %s. Type - to keep it.", field, current)
}
