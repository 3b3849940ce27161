// Package flow implements the conversational core: the dispatcher that routes
// inbound chat events and the per-flow state machines for recording sales,
// managing the catalog, shops, and staff. Flow state lives in the
// conversation store keyed by chat identity; everything else goes through the
// domain services.
package flow

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	accountsvc "github.com/mukando-hq/storekeeper/domains/accounts/be/service"
	approvalsvc "github.com/mukando-hq/storekeeper/domains/approvals/be/service"
	catalogsvc "github.com/mukando-hq/storekeeper/domains/catalog/be/service"
	"github.com/mukando-hq/storekeeper/domains/sales/be/cart"
	salesvc "github.com/mukando-hq/storekeeper/domains/sales/be/service"
	shopsvc "github.com/mukando-hq/storekeeper/domains/shops/be/service"
	tenantsvc "github.com/mukando-hq/storekeeper/domains/tenants/be/service"
	"github.com/mukando-hq/storekeeper/platform/go/chat"
	"github.com/mukando-hq/storekeeper/platform/go/conversation"
	"github.com/mukando-hq/storekeeper/platform/go/persistence"
	"github.com/mukando-hq/storekeeper/platform/go/tenant"
)

// Accounts is the slice of the accounts service the dispatcher needs.
type Accounts interface {
	FindByIdentity(ctx context.Context, identity int64) (persistence.Account, error)
	FindByUsername(ctx context.Context, username string) (persistence.Account, error)
	RegisterOwner(ctx context.Context, identity int64) (persistence.Account, accountsvc.Credentials, error)
	Authenticate(ctx context.Context, username, password string) (persistence.Account, error)
	LinkIdentity(ctx context.Context, account persistence.Account, identity int64, switchDevice bool) (persistence.Account, error)
	CreateAccount(ctx context.Context, input accountsvc.CreateInput) (persistence.Account, accountsvc.Credentials, error)
	ResetPassword(ctx context.Context, username string) (string, error)
	DeleteAccount(ctx context.Context, username string) error
}

// Tenants resolves and provisions data partitions.
type Tenants interface {
	Ensure(ctx context.Context, ownerIdentity int64) (tenant.Space, error)
	SpaceForAccount(ctx context.Context, account persistence.Account, corrector tenantsvc.SchemaCorrector) (tenant.Space, error)
}

// Shops is the slice of the shops service the flows need.
type Shops interface {
	Create(ctx context.Context, space tenant.Space, params shopsvc.CreateParams) (persistence.Shop, error)
	List(ctx context.Context, space tenant.Space) ([]persistence.Shop, error)
	Get(ctx context.Context, space tenant.Space, shopID uuid.UUID) (persistence.Shop, error)
	Main(ctx context.Context, space tenant.Space) (persistence.Shop, error)
}

// Catalog is the slice of the catalog service the flows need.
type Catalog interface {
	Create(ctx context.Context, space tenant.Space, params catalogsvc.CreateParams) (persistence.Product, error)
	Search(ctx context.Context, space tenant.Space, shopID uuid.UUID, fragment string) ([]persistence.ProductWithStock, error)
	Update(ctx context.Context, space tenant.Space, productID, shopID uuid.UUID, params catalogsvc.UpdateParams) (persistence.ProductWithStock, error)
	Receive(ctx context.Context, space tenant.Space, productID, shopID uuid.UUID, quantity int) error
	LowStock(ctx context.Context, space tenant.Space, shopID uuid.UUID) ([]persistence.ProductWithStock, error)
}

// Sales commits checkouts and answers day summaries.
type Sales interface {
	Checkout(ctx context.Context, space tenant.Space, account persistence.Account, shopID uuid.UUID, c *cart.Cart, payment salesvc.Payment, customer *salesvc.CustomerDetails) (salesvc.Receipt, error)
	SummarizeDay(ctx context.Context, space tenant.Space, account persistence.Account, shopID uuid.UUID, at time.Time) (persistence.DaySummary, error)
}

// Approvals is the slice of the approvals service the flows need.
type Approvals interface {
	ProposeAddProduct(ctx context.Context, space tenant.Space, proposer persistence.Account, payload approvalsvc.AddProductPayload) (persistence.PendingApproval, error)
	ProposeStockUpdate(ctx context.Context, space tenant.Space, proposer persistence.Account, payload approvalsvc.StockUpdatePayload) (persistence.PendingApproval, error)
	ListPending(ctx context.Context, space tenant.Space) ([]persistence.PendingApproval, error)
	Approve(ctx context.Context, space tenant.Space, resolver persistence.Account, approvalID uuid.UUID) (persistence.PendingApproval, error)
	Reject(ctx context.Context, space tenant.Space, resolver persistence.Account, approvalID uuid.UUID) (persistence.PendingApproval, error)
}

// Deps bundles everything the dispatcher needs.
type Deps struct {
	States    conversation.Store
	Accounts  Accounts
	Tenants   Tenants
	Shops     Shops
	Catalog   Catalog
	Sales     Sales
	Approvals Approvals
	Corrector tenantsvc.SchemaCorrector
	Sender    chat.Sender
	Logger    *zap.Logger
}

// Dispatcher routes inbound events: active flows get the event first, then
// menu tokens, then the unknown-action fallback.
type Dispatcher struct {
	states    conversation.Store
	accounts  Accounts
	tenants   Tenants
	shops     Shops
	catalog   Catalog
	sales     Sales
	approvals Approvals
	corrector tenantsvc.SchemaCorrector
	sender    chat.Sender
	logger    *zap.Logger
}

// NewDispatcher constructs a Dispatcher. All dependencies except Corrector
// and Logger are required.
func NewDispatcher(deps Deps) *Dispatcher {
	if deps.States == nil {
		panic("conversation store is required")
	}
	if deps.Accounts == nil || deps.Tenants == nil || deps.Shops == nil || deps.Catalog == nil || deps.Sales == nil || deps.Approvals == nil {
		panic("all domain services are required")
	}
	if deps.Sender == nil {
		panic("chat sender is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		states:    deps.States,
		accounts:  deps.Accounts,
		tenants:   deps.Tenants,
		shops:     deps.Shops,
		catalog:   deps.Catalog,
		sales:     deps.Sales,
		approvals: deps.Approvals,
		corrector: deps.Corrector,
		sender:    deps.Sender,
		logger:    logger,
	}
}

// HandleEvent processes one inbound chat event end to end. Infrastructure
// failures are logged and answered with a generic message so the identity is
// never left without a response.
func (d *Dispatcher) HandleEvent(ctx context.Context, ev chat.Event) {
	if err := d.handle(ctx, ev); err != nil {
		d.logger.Error("event handling failed",
			zap.Int64("identity", ev.Identity),
			zap.String("kind", string(ev.Kind)),
			zap.Error(err),
		)
		d.send(ctx, ev.Identity, "Something went wrong. Please try again.", nil)
	}
}

func (d *Dispatcher) handle(ctx context.Context, ev chat.Event) error {
	account, err := d.accounts.FindByIdentity(ctx, ev.Identity)
	if errors.Is(err, accountsvc.ErrNotFound) {
		return d.handleUnknownIdentity(ctx, ev)
	}
	if err != nil {
		return err
	}

	space, err := d.tenants.SpaceForAccount(ctx, account, d.corrector)
	if err != nil {
		return err
	}
	// Lazy provisioning is idempotent and guards against a registered but
	// never-provisioned partition.
	if _, err := d.tenants.Ensure(ctx, space.OwnerIdentity); err != nil {
		return err
	}

	if isCancel(ev) {
		if err := d.states.Clear(ctx, ev.Identity); err != nil {
			return err
		}
		d.send(ctx, ev.Identity, "Cancelled.", MainMenu(account.Role))
		return nil
	}

	state, active, err := d.states.Get(ctx, ev.Identity)
	if err != nil {
		return err
	}
	if active {
		return d.routeFlow(ctx, ev, space, account, state)
	}

	return d.handleMenu(ctx, ev, space, account)
}

func (d *Dispatcher) routeFlow(ctx context.Context, ev chat.Event, space tenant.Space, account persistence.Account, state conversation.FlowState) error {
	switch state.Flow {
	case flowSale:
		if data, ok := state.Data.(*SaleData); ok {
			return d.handleSale(ctx, ev, space, account, data)
		}
	case flowProductCreate:
		if data, ok := state.Data.(*ProductCreateData); ok {
			return d.handleProductCreate(ctx, ev, space, account, data)
		}
	case flowProductUpdate:
		if data, ok := state.Data.(*ProductUpdateData); ok {
			return d.handleProductUpdate(ctx, ev, space, account, data)
		}
	case flowStockAdd:
		if data, ok := state.Data.(*StockAddData); ok {
			return d.handleStockAdd(ctx, ev, space, account, data)
		}
	case flowShopSetup:
		if data, ok := state.Data.(*ShopSetupData); ok {
			return d.handleShopSetup(ctx, ev, space, account, data)
		}
	case flowStaffCreate:
		if data, ok := state.Data.(*StaffCreateData); ok {
			return d.handleStaffCreate(ctx, ev, space, account, data)
		}
	case flowStaffReset:
		if data, ok := state.Data.(*StaffResetData); ok {
			return d.handleStaffReset(ctx, ev, account, data)
		}
	case flowStaffDelete:
		if data, ok := state.Data.(*StaffDeleteData); ok {
			return d.handleStaffDelete(ctx, ev, account, data)
		}
	}

	// A stored flow the binary no longer understands. Clear it rather than
	// trapping the identity forever.
	if err := d.states.Clear(ctx, ev.Identity); err != nil {
		return err
	}
	d.send(ctx, ev.Identity, "Let's start over.", MainMenu(account.Role))
	return nil
}

func (d *Dispatcher) handleMenu(ctx context.Context, ev chat.Event, space tenant.Space, account persistence.Account) error {
	token := eventToken(ev)

	if rest, ok := strings.CutPrefix(token, tokenApprovePrefix); ok {
		return d.resolveApproval(ctx, ev, space, account, rest, true)
	}
	if rest, ok := strings.CutPrefix(token, tokenRejectPrefix); ok {
		return d.resolveApproval(ctx, ev, space, account, rest, false)
	}

	if !Allowed(account.Role, token) {
		d.send(ctx, ev.Identity, "Unknown action. Pick an option from the menu.", MainMenu(account.Role))
		return nil
	}

	switch token {
	case TokenMenu:
		d.send(ctx, ev.Identity, "What would you like to do?", MainMenu(account.Role))
		return nil
	case TokenMenuSale:
		return d.startSale(ctx, ev, space, account)
	case TokenMenuAddProduct:
		return d.startProductCreate(ctx, ev, space, account)
	case TokenMenuUpdateProduct:
		return d.startProductUpdate(ctx, ev, space, account)
	case TokenMenuStock:
		return d.startStockAdd(ctx, ev, space, account)
	case TokenMenuSummary:
		return d.sendDaySummary(ctx, ev, space, account)
	case TokenMenuLowStock:
		return d.sendLowStock(ctx, ev, space, account)
	case TokenMenuShop:
		return d.startShopSetup(ctx, ev, account)
	case TokenMenuStaffCreate:
		return d.startStaffCreate(ctx, ev, space, account)
	case TokenMenuStaffReset:
		return d.startStaffReset(ctx, ev)
	case TokenMenuStaffDelete:
		return d.startStaffDelete(ctx, ev)
	case TokenMenuApprovals:
		return d.sendPendingApprovals(ctx, ev, space, account)
	}

	d.send(ctx, ev.Identity, "Unknown action. Pick an option from the menu.", MainMenu(account.Role))
	return nil
}

// handleUnknownIdentity covers first contact: a brand-new store owner
// registers a partition, staff log in with issued credentials.
func (d *Dispatcher) handleUnknownIdentity(ctx context.Context, ev chat.Event) error {
	if isCancel(ev) {
		if err := d.states.Clear(ctx, ev.Identity); err != nil {
			return err
		}
		d.send(ctx, ev.Identity, "Cancelled.", welcomeMenu())
		return nil
	}

	state, active, err := d.states.Get(ctx, ev.Identity)
	if err != nil {
		return err
	}
	if active && state.Flow == flowLogin {
		if data, ok := state.Data.(*LoginData); ok {
			return d.handleLogin(ctx, ev, data)
		}
	}

	token := eventToken(ev)
	switch token {
	case TokenRegisterOwner:
		return d.registerOwner(ctx, ev)
	case TokenLogin:
		if err := d.states.Set(ctx, ev.Identity, conversation.FlowState{Flow: flowLogin, Data: &LoginData{State: LoginUsername}}); err != nil {
			return err
		}
		d.send(ctx, ev.Identity, "Enter your username.", nil)
		return nil
	}

	d.send(ctx, ev.Identity, "Welcome to Storekeeper. Are you a new store owner, or staff with an account?", welcomeMenu())
	return nil
}

func (d *Dispatcher) registerOwner(ctx context.Context, ev chat.Event) error {
	account, _, err := d.accounts.RegisterOwner(ctx, ev.Identity)
	if err != nil {
		if errors.Is(err, accountsvc.ErrConflict) {
			d.send(ctx, ev.Identity, "An account already exists for this chat.", nil)
			return nil
		}
		return err
	}

	if _, err := d.tenants.Ensure(ctx, ev.Identity); err != nil {
		return err
	}

	d.send(ctx, ev.Identity,
		"Your store is ready. Start by setting up your first shop.",
		MainMenu(account.Role),
	)
	return nil
}

func (d *Dispatcher) resolveApproval(ctx context.Context, ev chat.Event, space tenant.Space, account persistence.Account, rawID string, approve bool) error {
	approvalID, err := uuid.Parse(rawID)
	if err != nil {
		d.send(ctx, ev.Identity, "Unknown action. Pick an option from the menu.", MainMenu(account.Role))
		return nil
	}

	if approve {
		_, err = d.approvals.Approve(ctx, space, account, approvalID)
	} else {
		_, err = d.approvals.Reject(ctx, space, account, approvalID)
	}
	switch {
	case errors.Is(err, approvalsvc.ErrOwnerOnly):
		d.send(ctx, ev.Identity, "Only the store owner can decide approvals.", MainMenu(account.Role))
		return nil
	case errors.Is(err, approvalsvc.ErrAlreadyResolved):
		d.send(ctx, ev.Identity, "That request was already decided.", MainMenu(account.Role))
		return nil
	case errors.Is(err, approvalsvc.ErrNotFound):
		d.send(ctx, ev.Identity, "That request no longer exists.", MainMenu(account.Role))
		return nil
	case err != nil:
		return err
	}

	if approve {
		d.send(ctx, ev.Identity, "Approved and applied.", MainMenu(account.Role))
	} else {
		d.send(ctx, ev.Identity, "Rejected.", MainMenu(account.Role))
	}
	return nil
}

func (d *Dispatcher) sendPendingApprovals(ctx context.Context, ev chat.Event, space tenant.Space, account persistence.Account) error {
	pending, err := d.approvals.ListPending(ctx, space)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		d.send(ctx, ev.Identity, "No pending approvals.", MainMenu(account.Role))
		return nil
	}

	for _, approval := range pending {
		menu := chat.NewMenu(
			chat.MenuRow{Label: "Approve", Token: tokenApprovePrefix + approval.ApprovalID.String()},
			chat.MenuRow{Label: "Reject", Token: tokenRejectPrefix + approval.ApprovalID.String()},
		)
		d.send(ctx, ev.Identity, approvalsvc.Describe(approval), menu)
	}
	return nil
}

func (d *Dispatcher) sendDaySummary(ctx context.Context, ev chat.Event, space tenant.Space, account persistence.Account) error {
	shopID, err := d.defaultShop(ctx, space, account)
	if err != nil {
		if errors.Is(err, shopsvc.ErrNotFound) {
			d.send(ctx, ev.Identity, "No shop is set up yet.", MainMenu(account.Role))
			return nil
		}
		return err
	}

	summary, err := d.sales.SummarizeDay(ctx, space, account, shopID, time.Now())
	if err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString("Today's summary\n")
	b.WriteString("Sales: " + strconv.Itoa(summary.SaleCount) + "\n")
	b.WriteString("Total: " + summary.TotalAmount.StringFixed(2) + "\n")
	if summary.TotalPending.IsPositive() {
		b.WriteString("Owed on credit: " + summary.TotalPending.StringFixed(2) + "\n")
	}
	for method, amount := range summary.ByMethod {
		b.WriteString(method + ": " + amount.StringFixed(2) + "\n")
	}
	d.send(ctx, ev.Identity, strings.TrimRight(b.String(), "\n"), MainMenu(account.Role))
	return nil
}

func (d *Dispatcher) sendLowStock(ctx context.Context, ev chat.Event, space tenant.Space, account persistence.Account) error {
	shopID, err := d.defaultShop(ctx, space, account)
	if err != nil {
		if errors.Is(err, shopsvc.ErrNotFound) {
			d.send(ctx, ev.Identity, "No shop is set up yet.", MainMenu(account.Role))
			return nil
		}
		return err
	}

	items, err := d.catalog.LowStock(ctx, space, shopID)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		d.send(ctx, ev.Identity, "No products are running low.", MainMenu(account.Role))
		return nil
	}

	var b strings.Builder
	b.WriteString("Running low:\n")
	for _, item := range items {
		b.WriteString(item.Name + ": " + strconv.Itoa(item.Stock.Quantity) + " left\n")
	}
	d.send(ctx, ev.Identity, strings.TrimRight(b.String(), "\n"), MainMenu(account.Role))
	return nil
}

// defaultShop picks the shop an immediate action applies to: shopkeepers and
// admins use their assigned shop, everyone else the main shop.
func (d *Dispatcher) defaultShop(ctx context.Context, space tenant.Space, account persistence.Account) (uuid.UUID, error) {
	if account.ShopID != nil {
		return *account.ShopID, nil
	}
	shop, err := d.shops.Main(ctx, space)
	if err != nil {
		return uuid.Nil, err
	}
	return shop.ShopID, nil
}

// send delivers an outbound message. Transport failures are logged, not
// propagated: a failed delivery must not roll back state transitions that
// already happened.
func (d *Dispatcher) send(ctx context.Context, identity int64, text string, menu *chat.Menu) {
	if err := d.sender.SendMessage(ctx, identity, text, menu); err != nil {
		d.logger.Warn("outbound message failed",
			zap.Int64("identity", identity),
			zap.Error(err),
		)
	}
}

func (d *Dispatcher) saveState(ctx context.Context, identity int64, flow string, data any) error {
	return d.states.Set(ctx, identity, conversation.FlowState{Flow: flow, Data: data})
}

func (d *Dispatcher) finishFlow(ctx context.Context, identity int64) error {
	return d.states.Clear(ctx, identity)
}

func isCancel(ev chat.Event) bool {
	return strings.EqualFold(strings.TrimSpace(ev.Payload), TokenCancel)
}

// eventToken normalizes typed commands and button presses into one token
// space: tokens pass through, text is lowercased and trimmed.
func eventToken(ev chat.Event) string {
	if ev.Kind == chat.KindToken {
		return ev.Payload
	}
	return strings.ToLower(strings.TrimSpace(ev.Payload))
}

