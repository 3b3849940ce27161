package flow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mukando-hq/storekeeper/domains/sales/be/cart"
	salesvc "github.com/mukando-hq/storekeeper/domains/sales/be/service"
	"github.com/mukando-hq/storekeeper/platform/go/chat"
	"github.com/mukando-hq/storekeeper/platform/go/persistence"
	"github.com/mukando-hq/storekeeper/platform/go/tenant"
)

// SaleState names each node of the sale conversation. The states are an
// explicit tagged union: confirm-without-contact and collect-contact paths
// are distinct states, never one step doing double duty.
type SaleState string

const (
	SaleSelectShop      SaleState = "select_shop"
	SaleSearchProduct   SaleState = "search_product"
	SaleSelectProduct   SaleState = "select_product"
	SaleSelectQuantity  SaleState = "select_quantity"
	SaleRemoveLine      SaleState = "remove_line"
	SaleCheckout        SaleState = "checkout"
	SaleSaleType        SaleState = "sale_type"
	SaleCreditType      SaleState = "credit_type"
	SaleAmountTendered  SaleState = "amount_tendered"
	SaleChangeAvailable SaleState = "change_available"
	SaleCustomerName    SaleState = "customer_name"
	SaleCustomerContact SaleState = "customer_contact"
	SaleContactOptional SaleState = "contact_optional"
	SaleConfirm         SaleState = "confirm"
)

// ProductPick is the stock and price snapshot taken when a product is
// selected. The cart line is built from this snapshot, not re-read at
// checkout.
type ProductPick struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Unit      string          `json:"unit"`
	Price     decimal.Decimal `json:"price"`
	Available int             `json:"available"`
}

// SaleData is the sale flow's accumulated state.
type SaleData struct {
	State           SaleState       `json:"state"`
	ShopID          uuid.UUID       `json:"shop_id"`
	Cart            cart.Cart       `json:"cart"`
	Candidates      []ProductPick   `json:"candidates,omitempty"`
	Current         *ProductPick    `json:"current,omitempty"`
	PaymentMethod   string          `json:"payment_method,omitempty"`
	PaymentType     string          `json:"payment_type,omitempty"`
	AmountPaid      decimal.Decimal `json:"amount_paid"`
	LeaveChange     bool            `json:"leave_change,omitempty"`
	CustomerName    string          `json:"customer_name,omitempty"`
	CustomerContact string          `json:"customer_contact,omitempty"`
}

// startSale opens the sale flow. Owners with several shops pick one first;
// staff are bound to their assigned shop, falling back to the main shop.
func (d *Dispatcher) startSale(ctx context.Context, ev chat.Event, space tenant.Space, account persistence.Account) error {
	data := &SaleData{AmountPaid: decimal.Zero}

	if account.Role == "owner" {
		shops, err := d.shops.List(ctx, space)
		if err != nil {
			return err
		}
		if len(shops) == 0 {
			d.send(ctx, ev.Identity, "Set up a shop before recording sales.", MainMenu(account.Role))
			return nil
		}
		if len(shops) > 1 {
			data.State = SaleSelectShop
			if err := d.saveState(ctx, ev.Identity, flowSale, data); err != nil {
				return err
			}
			d.send(ctx, ev.Identity, "Which shop is this sale for?", shopMenu(shops))
			return nil
		}
		data.ShopID = shops[0].ShopID
	} else {
		shopID, err := d.defaultShop(ctx, space, account)
		if err != nil {
			d.send(ctx, ev.Identity, "No shop is set up yet.", MainMenu(account.Role))
			return nil
		}
		data.ShopID = shopID
	}

	data.State = SaleSearchProduct
	if err := d.saveState(ctx, ev.Identity, flowSale, data); err != nil {
		return err
	}
	d.send(ctx, ev.Identity, "Type the product name to search.", nil)
	return nil
}

func (d *Dispatcher) handleSale(ctx context.Context, ev chat.Event, space tenant.Space, account persistence.Account, data *SaleData) error {
	switch data.State {
	case SaleSelectShop:
		return d.saleSelectShop(ctx, ev, space, account, data)
	case SaleSearchProduct:
		return d.saleSearchProduct(ctx, ev, space, account, data)
	case SaleSelectProduct:
		return d.saleSelectProduct(ctx, ev, data)
	case SaleSelectQuantity:
		return d.saleSelectQuantity(ctx, ev, data)
	case SaleRemoveLine:
		return d.saleRemoveLine(ctx, ev, data)
	case SaleCheckout:
		return d.saleCheckout(ctx, ev, data)
	case SaleSaleType:
		return d.saleSaleType(ctx, ev, data)
	case SaleCreditType:
		return d.saleCreditType(ctx, ev, data)
	case SaleAmountTendered:
		return d.saleAmountTendered(ctx, ev, data)
	case SaleChangeAvailable:
		return d.saleChangeAvailable(ctx, ev, data)
	case SaleCustomerName:
		return d.saleCustomerName(ctx, ev, data)
	case SaleCustomerContact:
		return d.saleCustomerContact(ctx, ev, data)
	case SaleContactOptional:
		return d.saleContactOptional(ctx, ev, data)
	case SaleConfirm:
		return d.saleConfirm(ctx, ev, space, account, data)
	}
	return fmt.Errorf("sale flow in unknown state %q", data.State)
}

func (d *Dispatcher) saleSelectShop(ctx context.Context, ev chat.Event, space tenant.Space, account persistence.Account, data *SaleData) error {
	shopID, err := uuid.Parse(ev.Payload)
	if err != nil {
		d.send(ctx, ev.Identity, "Pick a shop from the list.", nil)
		return nil
	}

	if err := salesvc.AuthorizeShop(account, shopID); err != nil {
		d.send(ctx, ev.Identity, "You can only record sales for your own shop.", nil)
		return nil
	}

	if _, err := d.shops.Get(ctx, space, shopID); err != nil {
		d.send(ctx, ev.Identity, "Pick a shop from the list.", nil)
		return nil
	}

	data.ShopID = shopID
	data.State = SaleSearchProduct
	if err := d.saveState(ctx, ev.Identity, flowSale, data); err != nil {
		return err
	}
	d.send(ctx, ev.Identity, "Type the product name to search.", nil)
	return nil
}

func (d *Dispatcher) saleSearchProduct(ctx context.Context, ev chat.Event, space tenant.Space, account persistence.Account, data *SaleData) error {
	if handled, err := d.saleSideTokens(ctx, ev, account, data); handled || err != nil {
		return err
	}

	fragment := strings.TrimSpace(ev.Payload)
	if fragment == "" {
		d.send(ctx, ev.Identity, "Type the product name to search.", saleLoopMenu(data))
		return nil
	}

	matches, err := d.catalog.Search(ctx, space, data.ShopID, fragment)
	if err != nil {
		return err
	}

	switch len(matches) {
	case 0:
		d.send(ctx, ev.Identity, fmt.Sprintf("No products match %q. Try another name.", fragment), saleLoopMenu(data))
		return nil
	case 1:
		pick := pickFromProduct(matches[0])
		data.Current = &pick
		data.State = SaleSelectQuantity
		if err := d.saveState(ctx, ev.Identity, flowSale, data); err != nil {
			return err
		}
		d.send(ctx, ev.Identity, quantityPrompt(pick), nil)
		return nil
	}

	data.Candidates = data.Candidates[:0]
	menu := &chat.Menu{}
	for _, match := range matches {
		pick := pickFromProduct(match)
		data.Candidates = append(data.Candidates, pick)
		menu.Rows = append(menu.Rows, chat.MenuRow{
			Label: fmt.Sprintf("%s (%s)", pick.Name, pick.Price.StringFixed(2)),
			Token: pick.ProductID.String(),
		})
	}
	data.State = SaleSelectProduct
	if err := d.saveState(ctx, ev.Identity, flowSale, data); err != nil {
		return err
	}
	d.send(ctx, ev.Identity, "Several products match. Pick one.", menu)
	return nil
}

func (d *Dispatcher) saleSelectProduct(ctx context.Context, ev chat.Event, data *SaleData) error {
	productID, err := uuid.Parse(ev.Payload)
	if err == nil {
		for _, pick := range data.Candidates {
			if pick.ProductID == productID {
				selected := pick
				data.Current = &selected
				data.Candidates = nil
				data.State = SaleSelectQuantity
				if err := d.saveState(ctx, ev.Identity, flowSale, data); err != nil {
					return err
				}
				d.send(ctx, ev.Identity, quantityPrompt(selected), nil)
				return nil
			}
		}
	}

	d.send(ctx, ev.Identity, "Pick a product from the list.", nil)
	return nil
}

func (d *Dispatcher) saleSelectQuantity(ctx context.Context, ev chat.Event, data *SaleData) error {
	if data.Current == nil {
		data.State = SaleSearchProduct
		if err := d.saveState(ctx, ev.Identity, flowSale, data); err != nil {
			return err
		}
		d.send(ctx, ev.Identity, "Type the product name to search.", nil)
		return nil
	}

	quantity, err := strconv.Atoi(strings.TrimSpace(ev.Payload))
	if err != nil || quantity <= 0 {
		d.send(ctx, ev.Identity, "Enter a whole number greater than zero.", nil)
		return nil
	}

	pick := *data.Current
	addErr := data.Cart.AddLine(cart.Line{
		ProductID: pick.ProductID,
		Name:      pick.Name,
		Unit:      pick.Unit,
		UnitPrice: pick.Price,
		Quantity:  quantity,
		Available: pick.Available,
	})
	if addErr != nil {
		if errors.Is(addErr, cart.ErrStockInsufficient) {
			d.send(ctx, ev.Identity, fmt.Sprintf("Insufficient stock: available %d.", pick.Available), nil)
			return nil
		}
		d.send(ctx, ev.Identity, "Enter a whole number greater than zero.", nil)
		return nil
	}

	data.Current = nil
	data.State = SaleSearchProduct
	if err := d.saveState(ctx, ev.Identity, flowSale, data); err != nil {
		return err
	}
	d.send(ctx, ev.Identity,
		fmt.Sprintf("Added %d x %s. Cart total: %s.\nSearch for another product, or check out.", quantity, pick.Name, data.Cart.Total().StringFixed(2)),
		saleLoopMenu(data),
	)
	return nil
}

// saleSideTokens handles the cart actions available throughout the add-item
// loop: view cart, remove an item, check out. Quantity entry always lands the
// flow back on the search state, so handling the tokens here makes them
// reachable after every added line.
func (d *Dispatcher) saleSideTokens(ctx context.Context, ev chat.Event, account persistence.Account, data *SaleData) (bool, error) {
	switch eventToken(ev) {
	case "view_cart":
		d.send(ctx, ev.Identity, renderCart(&data.Cart), saleLoopMenu(data))
		return true, nil
	case "remove_item":
		if data.Cart.IsEmpty() {
			d.send(ctx, ev.Identity, "The cart is empty.", saleLoopMenu(data))
			return true, nil
		}
		data.State = SaleRemoveLine
		if err := d.saveState(ctx, ev.Identity, flowSale, data); err != nil {
			return true, err
		}
		d.send(ctx, ev.Identity, renderCart(&data.Cart)+"\nEnter the number of the item to remove.", nil)
		return true, nil
	case "checkout":
		if data.Cart.IsEmpty() {
			d.send(ctx, ev.Identity, "The cart is empty. Add an item first.", saleLoopMenu(data))
			return true, nil
		}
		data.State = SaleCheckout
		if err := d.saveState(ctx, ev.Identity, flowSale, data); err != nil {
			return true, err
		}
		d.send(ctx, ev.Identity,
			fmt.Sprintf("Cart total: %s. How is the customer paying?", data.Cart.Total().StringFixed(2)),
			paymentMenu(),
		)
		return true, nil
	}
	return false, nil
}

func (d *Dispatcher) saleRemoveLine(ctx context.Context, ev chat.Event, data *SaleData) error {
	position, err := strconv.Atoi(strings.TrimSpace(ev.Payload))
	if err != nil || data.Cart.RemoveLine(position) != nil {
		d.send(ctx, ev.Identity, "Enter the number of the item to remove.", nil)
		return nil
	}

	data.State = SaleSearchProduct
	if err := d.saveState(ctx, ev.Identity, flowSale, data); err != nil {
		return err
	}
	d.send(ctx, ev.Identity, "Removed.\n"+renderCart(&data.Cart), saleLoopMenu(data))
	return nil
}

func (d *Dispatcher) saleCheckout(ctx context.Context, ev chat.Event, data *SaleData) error {
	switch eventToken(ev) {
	case salesvc.MethodEcocash:
		data.PaymentMethod = salesvc.MethodEcocash
		data.PaymentType = salesvc.TypeFull
		grand, surcharge := salesvc.Quote(&data.Cart, salesvc.MethodEcocash)
		data.AmountPaid = grand
		data.State = SaleConfirm
		if err := d.saveState(ctx, ev.Identity, flowSale, data); err != nil {
			return err
		}
		d.send(ctx, ev.Identity,
			fmt.Sprintf("EcoCash total: %s (includes %s surcharge). Confirm the sale?", grand.StringFixed(2), surcharge.StringFixed(2)),
			yesNoMenu(),
		)
		return nil
	case salesvc.MethodSwipe:
		data.PaymentMethod = salesvc.MethodSwipe
		data.PaymentType = salesvc.TypeFull
		data.AmountPaid = data.Cart.Total()
		data.State = SaleConfirm
		if err := d.saveState(ctx, ev.Identity, flowSale, data); err != nil {
			return err
		}
		d.send(ctx, ev.Identity,
			fmt.Sprintf("Swipe total: %s. Confirm the sale?", data.AmountPaid.StringFixed(2)),
			yesNoMenu(),
		)
		return nil
	case salesvc.MethodCash:
		data.PaymentMethod = salesvc.MethodCash
		data.State = SaleSaleType
		if err := d.saveState(ctx, ev.Identity, flowSale, data); err != nil {
			return err
		}
		d.send(ctx, ev.Identity, "Is this a cash sale or a credit sale?", chat.NewMenu(
			chat.MenuRow{Label: "Cash", Token: "cash"},
			chat.MenuRow{Label: "Credit", Token: "credit"},
		))
		return nil
	}

	d.send(ctx, ev.Identity, "Pick a payment method.", paymentMenu())
	return nil
}

func (d *Dispatcher) saleSaleType(ctx context.Context, ev chat.Event, data *SaleData) error {
	switch eventToken(ev) {
	case "cash":
		data.PaymentType = salesvc.TypeFull
		data.State = SaleAmountTendered
		if err := d.saveState(ctx, ev.Identity, flowSale, data); err != nil {
			return err
		}
		d.send(ctx, ev.Identity, fmt.Sprintf("Total is %s. How much did the customer hand over?", data.Cart.Total().StringFixed(2)), nil)
		return nil
	case "credit":
		data.PaymentType = salesvc.TypeCredit
		data.State = SaleCreditType
		if err := d.saveState(ctx, ev.Identity, flowSale, data); err != nil {
			return err
		}
		d.send(ctx, ev.Identity, "Full credit, or a partial payment now?", chat.NewMenu(
			chat.MenuRow{Label: "Full credit", Token: "full"},
			chat.MenuRow{Label: "Partial payment", Token: "partial"},
		))
		return nil
	}

	d.send(ctx, ev.Identity, "Pick cash or credit.", nil)
	return nil
}

func (d *Dispatcher) saleCreditType(ctx context.Context, ev chat.Event, data *SaleData) error {
	switch eventToken(ev) {
	case "full":
		// Full credit: nothing paid now, the whole total is owed, and the
		// customer must be identifiable for follow-up.
		data.AmountPaid = decimal.Zero
		data.State = SaleCustomerName
		if err := d.saveState(ctx, ev.Identity, flowSale, data); err != nil {
			return err
		}
		d.send(ctx, ev.Identity, "Customer's name?", nil)
		return nil
	case "partial":
		data.State = SaleAmountTendered
		if err := d.saveState(ctx, ev.Identity, flowSale, data); err != nil {
			return err
		}
		d.send(ctx, ev.Identity, fmt.Sprintf("Total is %s. How much is the customer paying now?", data.Cart.Total().StringFixed(2)), nil)
		return nil
	}

	d.send(ctx, ev.Identity, "Pick full credit or partial payment.", nil)
	return nil
}

func (d *Dispatcher) saleAmountTendered(ctx context.Context, ev chat.Event, data *SaleData) error {
	amount, err := decimal.NewFromString(strings.TrimSpace(ev.Payload))
	if err != nil || amount.IsNegative() {
		d.send(ctx, ev.Identity, "Enter the amount as a number, e.g. 5 or 5.50.", nil)
		return nil
	}

	total := data.Cart.Total()
	data.AmountPaid = amount

	if data.PaymentType == salesvc.TypeCredit {
		if !amount.LessThan(total) {
			d.send(ctx, ev.Identity, fmt.Sprintf("A partial payment must be less than the total (%s).", total.StringFixed(2)), nil)
			return nil
		}
		data.State = SaleCustomerName
		if err := d.saveState(ctx, ev.Identity, flowSale, data); err != nil {
			return err
		}
		d.send(ctx, ev.Identity, "Customer's name?", nil)
		return nil
	}

	if amount.LessThan(total) {
		// A short cash tender is accepted as a partial payment: the balance
		// goes on credit so the shortfall is recorded, never dropped.
		data.PaymentType = salesvc.TypeCredit
		data.State = SaleCustomerName
		if err := d.saveState(ctx, ev.Identity, flowSale, data); err != nil {
			return err
		}
		d.send(ctx, ev.Identity, fmt.Sprintf(
			"That covers %s of the %s total. The remaining %s goes on credit. Customer's name?",
			amount.StringFixed(2), total.StringFixed(2), total.Sub(amount).StringFixed(2),
		), nil)
		return nil
	}

	change := amount.Sub(total)
	if change.IsPositive() {
		data.State = SaleChangeAvailable
		if err := d.saveState(ctx, ev.Identity, flowSale, data); err != nil {
			return err
		}
		d.send(ctx, ev.Identity, fmt.Sprintf("Change due: %s. Do you have change to hand over now?", change.StringFixed(2)), yesNoMenu())
		return nil
	}

	data.State = SaleConfirm
	if err := d.saveState(ctx, ev.Identity, flowSale, data); err != nil {
		return err
	}
	d.send(ctx, ev.Identity, fmt.Sprintf("Cash sale, total %s, paid in full. Confirm?", total.StringFixed(2)), yesNoMenu())
	return nil
}

func (d *Dispatcher) saleChangeAvailable(ctx context.Context, ev chat.Event, data *SaleData) error {
	switch eventToken(ev) {
	case "yes":
		data.LeaveChange = false
		data.State = SaleConfirm
		if err := d.saveState(ctx, ev.Identity, flowSale, data); err != nil {
			return err
		}
		d.send(ctx, ev.Identity, confirmPrompt(data), yesNoMenu())
		return nil
	case "no":
		// Change owed but not handed over: the shop keeps it and needs the
		// customer's details for follow-up.
		data.LeaveChange = true
		data.State = SaleCustomerName
		if err := d.saveState(ctx, ev.Identity, flowSale, data); err != nil {
			return err
		}
		d.send(ctx, ev.Identity, "Customer's name, so the change can be returned later?", nil)
		return nil
	}

	d.send(ctx, ev.Identity, "Answer yes or no.", yesNoMenu())
	return nil
}

func (d *Dispatcher) saleCustomerName(ctx context.Context, ev chat.Event, data *SaleData) error {
	name := strings.TrimSpace(ev.Payload)
	if name == "" || ev.Kind == chat.KindToken {
		d.send(ctx, ev.Identity, "Customer's name is required. Type the name.", nil)
		return nil
	}

	data.CustomerName = name
	if data.PaymentType == salesvc.TypeCredit {
		data.State = SaleCustomerContact
		if err := d.saveState(ctx, ev.Identity, flowSale, data); err != nil {
			return err
		}
		d.send(ctx, ev.Identity, "Customer's phone number? Type skip if you don't have it.", nil)
		return nil
	}

	data.State = SaleContactOptional
	if err := d.saveState(ctx, ev.Identity, flowSale, data); err != nil {
		return err
	}
	d.send(ctx, ev.Identity, "Phone number, or type skip.", nil)
	return nil
}

func (d *Dispatcher) saleCustomerContact(ctx context.Context, ev chat.Event, data *SaleData) error {
	contact := strings.TrimSpace(ev.Payload)
	if strings.EqualFold(contact, "skip") {
		contact = ""
	}

	data.CustomerContact = contact
	data.State = SaleConfirm
	if err := d.saveState(ctx, ev.Identity, flowSale, data); err != nil {
		return err
	}
	d.send(ctx, ev.Identity, confirmPrompt(data), yesNoMenu())
	return nil
}

func (d *Dispatcher) saleContactOptional(ctx context.Context, ev chat.Event, data *SaleData) error {
	// Same handling as the credit contact step; a distinct state keeps the
	// change-due path from being confused with a confirmation answer.
	return d.saleCustomerContact(ctx, ev, data)
}

func (d *Dispatcher) saleConfirm(ctx context.Context, ev chat.Event, space tenant.Space, account persistence.Account, data *SaleData) error {
	switch eventToken(ev) {
	case "yes":
		var customer *salesvc.CustomerDetails
		if data.CustomerName != "" {
			customer = &salesvc.CustomerDetails{Name: data.CustomerName, Contact: data.CustomerContact}
		}

		receipt, err := d.sales.Checkout(ctx, space, account, data.ShopID, &data.Cart, salesvc.Payment{
			Method:      data.PaymentMethod,
			Type:        data.PaymentType,
			AmountPaid:  data.AmountPaid,
			LeaveChange: data.LeaveChange,
		}, customer)
		if err != nil {
			if errors.Is(err, salesvc.ErrStockInsufficient) {
				// Nothing was written. Keep the flow alive so the operator
				// can trim the cart instead of starting over.
				data.State = SaleSearchProduct
				if saveErr := d.saveState(ctx, ev.Identity, flowSale, data); saveErr != nil {
					return saveErr
				}
				d.send(ctx, ev.Identity, "Stock changed while you were selling: not enough left to cover the cart. Remove the affected item and try again.", saleLoopMenu(data))
				return nil
			}
			return err
		}

		if err := d.finishFlow(ctx, ev.Identity); err != nil {
			return err
		}
		d.send(ctx, ev.Identity, receiptMessage(receipt), MainMenu(account.Role))
		return nil
	case "no":
		if err := d.finishFlow(ctx, ev.Identity); err != nil {
			return err
		}
		d.send(ctx, ev.Identity, "Sale cancelled.", MainMenu(account.Role))
		return nil
	}

	d.send(ctx, ev.Identity, "Answer yes to record the sale, or no to cancel.", yesNoMenu())
	return nil
}

func pickFromProduct(item persistence.ProductWithStock) ProductPick {
	return ProductPick{
		ProductID: item.ProductID,
		Name:      item.Name,
		Unit:      item.Unit,
		Price:     item.Price,
		Available: item.Stock.Quantity,
	}
}

func quantityPrompt(pick ProductPick) string {
	return fmt.Sprintf("%s at %s. How many? (%d available)", pick.Name, pick.Price.StringFixed(2), pick.Available)
}

func confirmPrompt(data *SaleData) string {
	grand, _ := salesvc.Quote(&data.Cart, data.PaymentMethod)
	return fmt.Sprintf("Total %s, paid %s. Confirm the sale?", grand.StringFixed(2), data.AmountPaid.StringFixed(2))
}

func renderCart(c *cart.Cart) string {
	if c.IsEmpty() {
		return "The cart is empty."
	}

	var b strings.Builder
	b.WriteString("Cart:\n")
	for i, line := range c.Lines {
		b.WriteString(fmt.Sprintf("%d. %s x%d = %s\n", i+1, line.Name, line.Quantity, line.Subtotal().StringFixed(2)))
	}
	b.WriteString("Total: " + c.Total().StringFixed(2))
	return b.String()
}

func receiptMessage(receipt salesvc.Receipt) string {
	var b strings.Builder
	b.WriteString("Sale recorded. Total: " + receipt.Total.StringFixed(2))
	if receipt.Surcharge.IsPositive() {
		b.WriteString(" (incl. " + receipt.Surcharge.StringFixed(2) + " surcharge)")
	}
	if receipt.Pending.IsPositive() {
		b.WriteString("\nOwed on credit: " + receipt.Pending.StringFixed(2))
	}
	if receipt.ChangeLeft.IsPositive() {
		b.WriteString("\nChange kept for customer: " + receipt.ChangeLeft.StringFixed(2))
	} else if receipt.Change.IsPositive() {
		b.WriteString("\nChange given: " + receipt.Change.StringFixed(2))
	}
	return b.String()
}

func saleLoopMenu(data *SaleData) *chat.Menu {
	menu := &chat.Menu{}
	if !data.Cart.IsEmpty() {
		menu.Rows = append(menu.Rows,
			chat.MenuRow{Label: "View cart", Token: "view_cart"},
			chat.MenuRow{Label: "Remove item", Token: "remove_item"},
			chat.MenuRow{Label: "Check out", Token: "checkout"},
		)
	}
	menu.Rows = append(menu.Rows, chat.MenuRow{Label: "Cancel", Token: TokenCancel})
	return menu
}

func paymentMenu() *chat.Menu {
	return chat.NewMenu(
		chat.MenuRow{Label: "Cash", Token: salesvc.MethodCash},
		chat.MenuRow{Label: "EcoCash", Token: salesvc.MethodEcocash},
		chat.MenuRow{Label: "Swipe", Token: salesvc.MethodSwipe},
	)
}

func shopMenu(shops []persistence.Shop) *chat.Menu {
	menu := &chat.Menu{}
	for _, shop := range shops {
		menu.Rows = append(menu.Rows, chat.MenuRow{Label: shop.Name, Token: shop.ShopID.String()})
	}
	return menu
}
