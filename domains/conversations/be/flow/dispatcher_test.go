package flow

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

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

type mockAccounts struct {
	findByIdentityFn func(ctx context.Context, identity int64) (persistence.Account, error)
	findByUsernameFn func(ctx context.Context, username string) (persistence.Account, error)
	registerOwnerFn  func(ctx context.Context, identity int64) (persistence.Account, accountsvc.Credentials, error)
	authenticateFn   func(ctx context.Context, username, password string) (persistence.Account, error)
	linkIdentityFn   func(ctx context.Context, account persistence.Account, identity int64, switchDevice bool) (persistence.Account, error)
	createAccountFn  func(ctx context.Context, input accountsvc.CreateInput) (persistence.Account, accountsvc.Credentials, error)
	resetPasswordFn  func(ctx context.Context, username string) (string, error)
	deleteAccountFn  func(ctx context.Context, username string) error
}

func (m *mockAccounts) FindByIdentity(ctx context.Context, identity int64) (persistence.Account, error) {
	if m.findByIdentityFn == nil {
		panic("unexpected FindByIdentity call")
	}
	return m.findByIdentityFn(ctx, identity)
}

func (m *mockAccounts) FindByUsername(ctx context.Context, username string) (persistence.Account, error) {
	if m.findByUsernameFn == nil {
		panic("unexpected FindByUsername call")
	}
	return m.findByUsernameFn(ctx, username)
}

func (m *mockAccounts) RegisterOwner(ctx context.Context, identity int64) (persistence.Account, accountsvc.Credentials, error) {
	if m.registerOwnerFn == nil {
		panic("unexpected RegisterOwner call")
	}
	return m.registerOwnerFn(ctx, identity)
}

func (m *mockAccounts) Authenticate(ctx context.Context, username, password string) (persistence.Account, error) {
	if m.authenticateFn == nil {
		panic("unexpected Authenticate call")
	}
	return m.authenticateFn(ctx, username, password)
}

func (m *mockAccounts) LinkIdentity(ctx context.Context, account persistence.Account, identity int64, switchDevice bool) (persistence.Account, error) {
	if m.linkIdentityFn == nil {
		panic("unexpected LinkIdentity call")
	}
	return m.linkIdentityFn(ctx, account, identity, switchDevice)
}

func (m *mockAccounts) CreateAccount(ctx context.Context, input accountsvc.CreateInput) (persistence.Account, accountsvc.Credentials, error) {
	if m.createAccountFn == nil {
		panic("unexpected CreateAccount call")
	}
	return m.createAccountFn(ctx, input)
}

func (m *mockAccounts) ResetPassword(ctx context.Context, username string) (string, error) {
	if m.resetPasswordFn == nil {
		panic("unexpected ResetPassword call")
	}
	return m.resetPasswordFn(ctx, username)
}

func (m *mockAccounts) DeleteAccount(ctx context.Context, username string) error {
	if m.deleteAccountFn == nil {
		panic("unexpected DeleteAccount call")
	}
	return m.deleteAccountFn(ctx, username)
}

type mockTenants struct {
	ensureFn          func(ctx context.Context, ownerIdentity int64) (tenant.Space, error)
	spaceForAccountFn func(ctx context.Context, account persistence.Account, corrector tenantsvc.SchemaCorrector) (tenant.Space, error)
}

func (m *mockTenants) Ensure(ctx context.Context, ownerIdentity int64) (tenant.Space, error) {
	if m.ensureFn == nil {
		panic("unexpected Ensure call")
	}
	return m.ensureFn(ctx, ownerIdentity)
}

func (m *mockTenants) SpaceForAccount(ctx context.Context, account persistence.Account, corrector tenantsvc.SchemaCorrector) (tenant.Space, error) {
	if m.spaceForAccountFn == nil {
		panic("unexpected SpaceForAccount call")
	}
	return m.spaceForAccountFn(ctx, account, corrector)
}

type mockShops struct {
	createFn func(ctx context.Context, space tenant.Space, params shopsvc.CreateParams) (persistence.Shop, error)
	listFn   func(ctx context.Context, space tenant.Space) ([]persistence.Shop, error)
	getFn    func(ctx context.Context, space tenant.Space, shopID uuid.UUID) (persistence.Shop, error)
	mainFn   func(ctx context.Context, space tenant.Space) (persistence.Shop, error)
}

func (m *mockShops) Create(ctx context.Context, space tenant.Space, params shopsvc.CreateParams) (persistence.Shop, error) {
	if m.createFn == nil {
		panic("unexpected shops Create call")
	}
	return m.createFn(ctx, space, params)
}

func (m *mockShops) List(ctx context.Context, space tenant.Space) ([]persistence.Shop, error) {
	if m.listFn == nil {
		panic("unexpected shops List call")
	}
	return m.listFn(ctx, space)
}

func (m *mockShops) Get(ctx context.Context, space tenant.Space, shopID uuid.UUID) (persistence.Shop, error) {
	if m.getFn == nil {
		panic("unexpected shops Get call")
	}
	return m.getFn(ctx, space, shopID)
}

func (m *mockShops) Main(ctx context.Context, space tenant.Space) (persistence.Shop, error) {
	if m.mainFn == nil {
		panic("unexpected shops Main call")
	}
	return m.mainFn(ctx, space)
}

type mockCatalog struct {
	createFn   func(ctx context.Context, space tenant.Space, params catalogsvc.CreateParams) (persistence.Product, error)
	searchFn   func(ctx context.Context, space tenant.Space, shopID uuid.UUID, fragment string) ([]persistence.ProductWithStock, error)
	updateFn   func(ctx context.Context, space tenant.Space, productID, shopID uuid.UUID, params catalogsvc.UpdateParams) (persistence.ProductWithStock, error)
	receiveFn  func(ctx context.Context, space tenant.Space, productID, shopID uuid.UUID, quantity int) error
	lowStockFn func(ctx context.Context, space tenant.Space, shopID uuid.UUID) ([]persistence.ProductWithStock, error)
}

func (m *mockCatalog) Create(ctx context.Context, space tenant.Space, params catalogsvc.CreateParams) (persistence.Product, error) {
	if m.createFn == nil {
		panic("unexpected catalog Create call")
	}
	return m.createFn(ctx, space, params)
}

func (m *mockCatalog) Search(ctx context.Context, space tenant.Space, shopID uuid.UUID, fragment string) ([]persistence.ProductWithStock, error) {
	if m.searchFn == nil {
		panic("unexpected catalog Search call")
	}
	return m.searchFn(ctx, space, shopID, fragment)
}

func (m *mockCatalog) Update(ctx context.Context, space tenant.Space, productID, shopID uuid.UUID, params catalogsvc.UpdateParams) (persistence.ProductWithStock, error) {
	if m.updateFn == nil {
		panic("unexpected catalog Update call")
	}
	return m.updateFn(ctx, space, productID, shopID, params)
}

func (m *mockCatalog) Receive(ctx context.Context, space tenant.Space, productID, shopID uuid.UUID, quantity int) error {
	if m.receiveFn == nil {
		panic("unexpected catalog Receive call")
	}
	return m.receiveFn(ctx, space, productID, shopID, quantity)
}

func (m *mockCatalog) LowStock(ctx context.Context, space tenant.Space, shopID uuid.UUID) ([]persistence.ProductWithStock, error) {
	if m.lowStockFn == nil {
		panic("unexpected catalog LowStock call")
	}
	return m.lowStockFn(ctx, space, shopID)
}

type mockSales struct {
	checkoutFn     func(ctx context.Context, space tenant.Space, account persistence.Account, shopID uuid.UUID, c *cart.Cart, payment salesvc.Payment, customer *salesvc.CustomerDetails) (salesvc.Receipt, error)
	summarizeDayFn func(ctx context.Context, space tenant.Space, account persistence.Account, shopID uuid.UUID, at time.Time) (persistence.DaySummary, error)
}

func (m *mockSales) Checkout(ctx context.Context, space tenant.Space, account persistence.Account, shopID uuid.UUID, c *cart.Cart, payment salesvc.Payment, customer *salesvc.CustomerDetails) (salesvc.Receipt, error) {
	if m.checkoutFn == nil {
		panic("unexpected Checkout call")
	}
	return m.checkoutFn(ctx, space, account, shopID, c, payment, customer)
}

func (m *mockSales) SummarizeDay(ctx context.Context, space tenant.Space, account persistence.Account, shopID uuid.UUID, at time.Time) (persistence.DaySummary, error) {
	if m.summarizeDayFn == nil {
		panic("unexpected SummarizeDay call")
	}
	return m.summarizeDayFn(ctx, space, account, shopID, at)
}

type mockApprovals struct {
	proposeAddProductFn  func(ctx context.Context, space tenant.Space, proposer persistence.Account, payload approvalsvc.AddProductPayload) (persistence.PendingApproval, error)
	proposeStockUpdateFn func(ctx context.Context, space tenant.Space, proposer persistence.Account, payload approvalsvc.StockUpdatePayload) (persistence.PendingApproval, error)
	listPendingFn        func(ctx context.Context, space tenant.Space) ([]persistence.PendingApproval, error)
	approveFn            func(ctx context.Context, space tenant.Space, resolver persistence.Account, approvalID uuid.UUID) (persistence.PendingApproval, error)
	rejectFn             func(ctx context.Context, space tenant.Space, resolver persistence.Account, approvalID uuid.UUID) (persistence.PendingApproval, error)
}

func (m *mockApprovals) ProposeAddProduct(ctx context.Context, space tenant.Space, proposer persistence.Account, payload approvalsvc.AddProductPayload) (persistence.PendingApproval, error) {
	if m.proposeAddProductFn == nil {
		panic("unexpected ProposeAddProduct call")
	}
	return m.proposeAddProductFn(ctx, space, proposer, payload)
}

func (m *mockApprovals) ProposeStockUpdate(ctx context.Context, space tenant.Space, proposer persistence.Account, payload approvalsvc.StockUpdatePayload) (persistence.PendingApproval, error) {
	if m.proposeStockUpdateFn == nil {
		panic("unexpected ProposeStockUpdate call")
	}
	return m.proposeStockUpdateFn(ctx, space, proposer, payload)
}

func (m *mockApprovals) ListPending(ctx context.Context, space tenant.Space) ([]persistence.PendingApproval, error) {
	if m.listPendingFn == nil {
		panic("unexpected ListPending call")
	}
	return m.listPendingFn(ctx, space)
}

func (m *mockApprovals) Approve(ctx context.Context, space tenant.Space, resolver persistence.Account, approvalID uuid.UUID) (persistence.PendingApproval, error) {
	if m.approveFn == nil {
		panic("unexpected Approve call")
	}
	return m.approveFn(ctx, space, resolver, approvalID)
}

func (m *mockApprovals) Reject(ctx context.Context, space tenant.Space, resolver persistence.Account, approvalID uuid.UUID) (persistence.PendingApproval, error) {
	if m.rejectFn == nil {
		panic("unexpected Reject call")
	}
	return m.rejectFn(ctx, space, resolver, approvalID)
}

type sentMessage struct {
	identity int64
	text     string
	menu     *chat.Menu
}

type recordingSender struct {
	sent []sentMessage
}

func (s *recordingSender) SendMessage(ctx context.Context, identity int64, text string, menu *chat.Menu) error {
	s.sent = append(s.sent, sentMessage{identity: identity, text: text, menu: menu})
	return nil
}

func (s *recordingSender) last() sentMessage {
	if len(s.sent) == 0 {
		panic("no messages sent")
	}
	return s.sent[len(s.sent)-1]
}

const testIdentity = int64(42)

var testSpace = tenant.Space{OwnerIdentity: testIdentity, SchemaName: "tenant_42"}

type fixture struct {
	dispatcher *Dispatcher
	states     *conversation.MemoryStore
	sender     *recordingSender
	accounts   *mockAccounts
	tenants    *mockTenants
	shops      *mockShops
	catalog    *mockCatalog
	sales      *mockSales
	approvals  *mockApprovals
}

func ownerAccount() persistence.Account {
	identity := testIdentity
	return persistence.Account{
		AccountID:  uuid.New(),
		Username:   "owner42",
		Role:       "owner",
		Identity:   &identity,
		SchemaName: "tenant_42",
		Active:     true,
	}
}

func newFixture(account persistence.Account) *fixture {
	f := &fixture{
		states:    conversation.NewMemoryStore(),
		sender:    &recordingSender{},
		accounts:  &mockAccounts{},
		tenants:   &mockTenants{},
		shops:     &mockShops{},
		catalog:   &mockCatalog{},
		sales:     &mockSales{},
		approvals: &mockApprovals{},
	}
	f.accounts.findByIdentityFn = func(ctx context.Context, identity int64) (persistence.Account, error) {
		if identity != testIdentity {
			return persistence.Account{}, accountsvc.ErrNotFound
		}
		return account, nil
	}
	f.tenants.spaceForAccountFn = func(ctx context.Context, a persistence.Account, corrector tenantsvc.SchemaCorrector) (tenant.Space, error) {
		return testSpace, nil
	}
	f.tenants.ensureFn = func(ctx context.Context, ownerIdentity int64) (tenant.Space, error) {
		return testSpace, nil
	}
	f.dispatcher = NewDispatcher(Deps{
		States:    f.states,
		Accounts:  f.accounts,
		Tenants:   f.tenants,
		Shops:     f.shops,
		Catalog:   f.catalog,
		Sales:     f.sales,
		Approvals: f.approvals,
		Sender:    f.sender,
	})
	return f
}

func text(payload string) chat.Event {
	return chat.Event{Identity: testIdentity, Kind: chat.KindText, Payload: payload}
}

func press(token string) chat.Event {
	return chat.Event{Identity: testIdentity, Kind: chat.KindToken, Payload: token}
}

func breadProduct(shopID uuid.UUID) persistence.ProductWithStock {
	return persistence.ProductWithStock{
		Product: persistence.Product{
			ProductID: uuid.New(),
			ShopID:    &shopID,
			Name:      "Bread",
			Price:     decimal.RequireFromString("2.00"),
			Unit:      "loaf",
		},
		Stock: persistence.StockLevel{Quantity: 10},
	}
}

func singleShop(f *fixture) persistence.Shop {
	shop := persistence.Shop{ShopID: uuid.New(), Name: "Main Street", IsMain: true}
	f.shops.listFn = func(ctx context.Context, space tenant.Space) ([]persistence.Shop, error) {
		return []persistence.Shop{shop}, nil
	}
	f.shops.mainFn = func(ctx context.Context, space tenant.Space) (persistence.Shop, error) {
		return shop, nil
	}
	return shop
}

// buildCart drives the sale flow to the payment-method prompt with
// 3 x Bread at 2.00 in the cart.
func buildCart(t *testing.T, f *fixture) {
	t.Helper()
	ctx := context.Background()

	shop := singleShop(f)
	bread := breadProduct(shop.ShopID)
	f.catalog.searchFn = func(ctx context.Context, space tenant.Space, shopID uuid.UUID, fragment string) ([]persistence.ProductWithStock, error) {
		return []persistence.ProductWithStock{bread}, nil
	}

	f.dispatcher.HandleEvent(ctx, press(TokenMenuSale))
	require.Equal(t, "Type the product name to search.", f.sender.last().text)

	f.dispatcher.HandleEvent(ctx, text("bread"))
	require.Contains(t, f.sender.last().text, "How many?")

	f.dispatcher.HandleEvent(ctx, text("3"))
	require.Contains(t, f.sender.last().text, "Cart total: 6.00")

	f.dispatcher.HandleEvent(ctx, press("checkout"))
	require.Contains(t, f.sender.last().text, "How is the customer paying?")
}

func TestCashSaleExactTenderSkipsCustomerPrompt(t *testing.T) {
	t.Parallel()

	f := newFixture(ownerAccount())
	ctx := context.Background()
	buildCart(t, f)

	var got salesvc.Payment
	var gotCustomer *salesvc.CustomerDetails
	f.sales.checkoutFn = func(ctx context.Context, space tenant.Space, account persistence.Account, shopID uuid.UUID, c *cart.Cart, payment salesvc.Payment, customer *salesvc.CustomerDetails) (salesvc.Receipt, error) {
		got = payment
		gotCustomer = customer
		return salesvc.Receipt{Total: c.Total(), AmountPaid: payment.AmountPaid}, nil
	}

	f.dispatcher.HandleEvent(ctx, press(salesvc.MethodCash))
	f.dispatcher.HandleEvent(ctx, press("cash"))
	f.dispatcher.HandleEvent(ctx, text("6.00"))

	// Exact tender means no change and no customer details step.
	require.Contains(t, f.sender.last().text, "paid in full. Confirm?")

	f.dispatcher.HandleEvent(ctx, press("yes"))
	require.Contains(t, f.sender.last().text, "Sale recorded. Total: 6.00")
	require.Equal(t, salesvc.MethodCash, got.Method)
	require.Equal(t, salesvc.TypeFull, got.Type)
	require.True(t, got.AmountPaid.Equal(decimal.RequireFromString("6.00")))
	require.Nil(t, gotCustomer)

	_, active, err := f.states.Get(ctx, testIdentity)
	require.NoError(t, err)
	require.False(t, active)
}

func TestEcocashAppliesSurchargeAndSkipsSaleType(t *testing.T) {
	t.Parallel()

	f := newFixture(ownerAccount())
	ctx := context.Background()
	buildCart(t, f)

	var got salesvc.Payment
	f.sales.checkoutFn = func(ctx context.Context, space tenant.Space, account persistence.Account, shopID uuid.UUID, c *cart.Cart, payment salesvc.Payment, customer *salesvc.CustomerDetails) (salesvc.Receipt, error) {
		got = payment
		return salesvc.Receipt{Total: payment.AmountPaid, Surcharge: decimal.RequireFromString("0.60")}, nil
	}

	f.dispatcher.HandleEvent(ctx, press(salesvc.MethodEcocash))
	require.Contains(t, f.sender.last().text, "EcoCash total: 6.60 (includes 0.60 surcharge)")

	f.dispatcher.HandleEvent(ctx, press("yes"))
	require.Contains(t, f.sender.last().text, "Sale recorded. Total: 6.60")
	require.Equal(t, salesvc.MethodEcocash, got.Method)
	require.Equal(t, salesvc.TypeFull, got.Type)
	require.True(t, got.AmountPaid.Equal(decimal.RequireFromString("6.60")))
}

func TestFullCreditRequiresCustomerName(t *testing.T) {
	t.Parallel()

	f := newFixture(ownerAccount())
	ctx := context.Background()
	buildCart(t, f)

	f.dispatcher.HandleEvent(ctx, press(salesvc.MethodCash))
	f.dispatcher.HandleEvent(ctx, press("credit"))
	f.dispatcher.HandleEvent(ctx, press("full"))
	require.Equal(t, "Customer's name?", f.sender.last().text)

	// Blank input and button presses must re-prompt, never advance.
	f.dispatcher.HandleEvent(ctx, text("   "))
	require.Contains(t, f.sender.last().text, "name is required")
	f.dispatcher.HandleEvent(ctx, press("yes"))
	require.Contains(t, f.sender.last().text, "name is required")

	var got salesvc.Payment
	var gotCustomer *salesvc.CustomerDetails
	f.sales.checkoutFn = func(ctx context.Context, space tenant.Space, account persistence.Account, shopID uuid.UUID, c *cart.Cart, payment salesvc.Payment, customer *salesvc.CustomerDetails) (salesvc.Receipt, error) {
		got = payment
		gotCustomer = customer
		return salesvc.Receipt{Total: c.Total(), Pending: c.Total()}, nil
	}

	f.dispatcher.HandleEvent(ctx, text("Mrs Moyo"))
	f.dispatcher.HandleEvent(ctx, text("skip"))
	f.dispatcher.HandleEvent(ctx, press("yes"))

	require.Contains(t, f.sender.last().text, "Owed on credit: 6.00")
	require.Equal(t, salesvc.TypeCredit, got.Type)
	require.True(t, got.AmountPaid.IsZero())
	require.NotNil(t, gotCustomer)
	require.Equal(t, "Mrs Moyo", gotCustomer.Name)
}

func TestShortCashTenderRollsBalanceToCredit(t *testing.T) {
	t.Parallel()

	f := newFixture(ownerAccount())
	ctx := context.Background()
	buildCart(t, f)

	f.dispatcher.HandleEvent(ctx, press(salesvc.MethodCash))
	f.dispatcher.HandleEvent(ctx, press("cash"))
	f.dispatcher.HandleEvent(ctx, text("4.00"))

	// A tender below the total is accepted and the shortfall is recorded as
	// credit, which requires the customer's details.
	require.Contains(t, f.sender.last().text, "The remaining 2.00 goes on credit")
	require.Contains(t, f.sender.last().text, "Customer's name?")

	var got salesvc.Payment
	var gotCustomer *salesvc.CustomerDetails
	f.sales.checkoutFn = func(ctx context.Context, space tenant.Space, account persistence.Account, shopID uuid.UUID, c *cart.Cart, payment salesvc.Payment, customer *salesvc.CustomerDetails) (salesvc.Receipt, error) {
		got = payment
		gotCustomer = customer
		return salesvc.Receipt{Total: c.Total(), AmountPaid: payment.AmountPaid, Pending: c.Total().Sub(payment.AmountPaid)}, nil
	}

	f.dispatcher.HandleEvent(ctx, text("Mrs Moyo"))
	f.dispatcher.HandleEvent(ctx, text("skip"))
	f.dispatcher.HandleEvent(ctx, press("yes"))

	require.Contains(t, f.sender.last().text, "Owed on credit: 2.00")
	require.Equal(t, salesvc.MethodCash, got.Method)
	require.Equal(t, salesvc.TypeCredit, got.Type)
	require.True(t, got.AmountPaid.Equal(decimal.RequireFromString("4.00")))
	require.NotNil(t, gotCustomer)
	require.Equal(t, "Mrs Moyo", gotCustomer.Name)
}

func TestAmbiguousSearchOffersSelectionMenu(t *testing.T) {
	t.Parallel()

	f := newFixture(ownerAccount())
	ctx := context.Background()

	shop := singleShop(f)
	bread := breadProduct(shop.ShopID)
	rolls := breadProduct(shop.ShopID)
	rolls.Name = "Bread Rolls"
	f.catalog.searchFn = func(ctx context.Context, space tenant.Space, shopID uuid.UUID, fragment string) ([]persistence.ProductWithStock, error) {
		require.Equal(t, "brea", fragment)
		return []persistence.ProductWithStock{bread, rolls}, nil
	}

	f.dispatcher.HandleEvent(ctx, press(TokenMenuSale))
	f.dispatcher.HandleEvent(ctx, text("brea"))

	last := f.sender.last()
	require.Contains(t, last.text, "Several products match")
	require.Len(t, last.menu.Rows, 2)
	require.Equal(t, bread.ProductID.String(), last.menu.Rows[0].Token)
	require.Equal(t, rolls.ProductID.String(), last.menu.Rows[1].Token)

	// Picking from the menu lands on the quantity prompt for that product.
	f.dispatcher.HandleEvent(ctx, press(rolls.ProductID.String()))
	require.Contains(t, f.sender.last().text, "Bread Rolls")
	require.Contains(t, f.sender.last().text, "How many?")
}

func TestOverstockedQuantityKeepsFlowAlive(t *testing.T) {
	t.Parallel()

	f := newFixture(ownerAccount())
	ctx := context.Background()

	shop := singleShop(f)
	bread := breadProduct(shop.ShopID)
	f.catalog.searchFn = func(ctx context.Context, space tenant.Space, shopID uuid.UUID, fragment string) ([]persistence.ProductWithStock, error) {
		return []persistence.ProductWithStock{bread}, nil
	}

	f.dispatcher.HandleEvent(ctx, press(TokenMenuSale))
	f.dispatcher.HandleEvent(ctx, text("bread"))
	f.dispatcher.HandleEvent(ctx, text("11"))
	require.Equal(t, "Insufficient stock: available 10.", f.sender.last().text)

	// The prompt repeats on the same product; a valid quantity still works.
	f.dispatcher.HandleEvent(ctx, text("10"))
	require.Contains(t, f.sender.last().text, "Added 10 x Bread")
}

func TestCancelClearsActiveFlow(t *testing.T) {
	t.Parallel()

	f := newFixture(ownerAccount())
	ctx := context.Background()
	singleShop(f)

	f.dispatcher.HandleEvent(ctx, press(TokenMenuSale))
	_, active, err := f.states.Get(ctx, testIdentity)
	require.NoError(t, err)
	require.True(t, active)

	f.dispatcher.HandleEvent(ctx, text("Cancel"))
	require.Equal(t, "Cancelled.", f.sender.last().text)

	_, active, err = f.states.Get(ctx, testIdentity)
	require.NoError(t, err)
	require.False(t, active)
}

func TestShopkeeperCannotReachOwnerActions(t *testing.T) {
	t.Parallel()

	shopID := uuid.New()
	account := ownerAccount()
	account.Role = "shopkeeper"
	account.ShopID = &shopID

	f := newFixture(account)
	ctx := context.Background()

	f.dispatcher.HandleEvent(ctx, press(TokenMenuStaffDelete))
	require.Contains(t, f.sender.last().text, "Unknown action")

	f.dispatcher.HandleEvent(ctx, press(TokenMenuApprovals))
	require.Contains(t, f.sender.last().text, "Unknown action")
}

func TestMainMenuFollowsRole(t *testing.T) {
	t.Parallel()

	ownerTokens := map[string]bool{}
	for _, row := range MainMenu("owner").Rows {
		ownerTokens[row.Token] = true
	}
	require.True(t, ownerTokens[TokenMenuApprovals])
	require.True(t, ownerTokens[TokenMenuStaffDelete])

	keeperTokens := map[string]bool{}
	for _, row := range MainMenu("shopkeeper").Rows {
		keeperTokens[row.Token] = true
	}
	require.True(t, keeperTokens[TokenMenuSale])
	require.False(t, keeperTokens[TokenMenuApprovals])
	require.False(t, keeperTokens[TokenMenuUpdateProduct])
}

func TestUnknownIdentityGetsWelcomeMenu(t *testing.T) {
	t.Parallel()

	f := newFixture(ownerAccount())
	ctx := context.Background()

	f.dispatcher.HandleEvent(ctx, chat.Event{Identity: 99, Kind: chat.KindText, Payload: "hello"})

	last := f.sender.last()
	require.Equal(t, int64(99), last.identity)
	require.Contains(t, last.text, "Welcome to Storekeeper")
	require.Len(t, last.menu.Rows, 2)
}

func TestRegisterOwnerProvisionsPartition(t *testing.T) {
	t.Parallel()

	f := newFixture(ownerAccount())
	ctx := context.Background()

	var registered, ensured int64
	f.accounts.registerOwnerFn = func(ctx context.Context, identity int64) (persistence.Account, accountsvc.Credentials, error) {
		registered = identity
		account := ownerAccount()
		account.Identity = &identity
		return account, accountsvc.Credentials{Username: "owner99"}, nil
	}
	f.tenants.ensureFn = func(ctx context.Context, ownerIdentity int64) (tenant.Space, error) {
		ensured = ownerIdentity
		return tenant.Space{OwnerIdentity: ownerIdentity, SchemaName: "tenant_99"}, nil
	}

	f.dispatcher.HandleEvent(ctx, chat.Event{Identity: 99, Kind: chat.KindToken, Payload: TokenRegisterOwner})

	require.Equal(t, int64(99), registered)
	require.Equal(t, int64(99), ensured)
	require.Contains(t, f.sender.last().text, "Your store is ready")
}

func TestStaffLoginLinksIdentity(t *testing.T) {
	t.Parallel()

	f := newFixture(ownerAccount())
	ctx := context.Background()

	staff := persistence.Account{AccountID: uuid.New(), Username: "keeper_main", Role: "shopkeeper", SchemaName: "tenant_42", Active: true}
	f.accounts.authenticateFn = func(ctx context.Context, username, password string) (persistence.Account, error) {
		require.Equal(t, "keeper_main", username)
		require.Equal(t, "s3cret", password)
		return staff, nil
	}
	f.accounts.findByUsernameFn = func(ctx context.Context, username string) (persistence.Account, error) {
		return staff, nil
	}
	var linkedTo int64
	f.accounts.linkIdentityFn = func(ctx context.Context, account persistence.Account, identity int64, switchDevice bool) (persistence.Account, error) {
		linkedTo = identity
		linked := account
		linked.Identity = &identity
		return linked, nil
	}

	f.dispatcher.HandleEvent(ctx, chat.Event{Identity: 7, Kind: chat.KindToken, Payload: TokenLogin})
	require.Equal(t, "Enter your username.", f.sender.last().text)

	f.dispatcher.HandleEvent(ctx, chat.Event{Identity: 7, Kind: chat.KindText, Payload: "keeper_main"})
	f.dispatcher.HandleEvent(ctx, chat.Event{Identity: 7, Kind: chat.KindText, Payload: "s3cret"})

	require.Equal(t, int64(7), linkedTo)
	require.Contains(t, f.sender.last().text, "You're in, keeper_main.")
}

func TestStaffCreateShowsOneTimeCredentials(t *testing.T) {
	t.Parallel()

	f := newFixture(ownerAccount())
	ctx := context.Background()
	shop := singleShop(f)

	var input accountsvc.CreateInput
	f.accounts.createAccountFn = func(ctx context.Context, in accountsvc.CreateInput) (persistence.Account, accountsvc.Credentials, error) {
		input = in
		return persistence.Account{Username: "keeper_main_street"}, accountsvc.Credentials{Username: "keeper_main_street", Password: "xK4mPq9wTz"}, nil
	}

	f.dispatcher.HandleEvent(ctx, press(TokenMenuStaffCreate))
	require.Contains(t, f.sender.last().text, "What kind of account?")

	f.dispatcher.HandleEvent(ctx, press(accountsvc.RoleShopkeeper))
	require.Contains(t, f.sender.last().text, "Display name")

	f.dispatcher.HandleEvent(ctx, text("Tendai"))

	require.Equal(t, accountsvc.RoleShopkeeper, input.Role)
	require.Equal(t, shop.ShopID, *input.ShopID)
	require.Equal(t, "Tendai", *input.DisplayName)
	require.Equal(t, testSpace.SchemaName, input.SchemaName)

	last := f.sender.last().text
	require.Contains(t, last, "keeper_main_street")
	require.Contains(t, last, "xK4mPq9wTz")
	require.Contains(t, last, "cannot be shown again")
}

func TestAdminCreatesShopkeepersOnly(t *testing.T) {
	t.Parallel()

	shopID := uuid.New()
	account := ownerAccount()
	account.Role = "admin"
	account.ShopID = &shopID

	f := newFixture(account)
	ctx := context.Background()
	singleShop(f)

	f.dispatcher.HandleEvent(ctx, press(TokenMenuStaffCreate))

	// No role question for admins; straight to the display name.
	require.Contains(t, f.sender.last().text, "Display name")

	state, active, err := f.states.Get(ctx, testIdentity)
	require.NoError(t, err)
	require.True(t, active)
	data, ok := state.Data.(*StaffCreateData)
	require.True(t, ok)
	require.Equal(t, accountsvc.RoleShopkeeper, data.Role)
}

func TestApprovalDecisionMessages(t *testing.T) {
	t.Parallel()

	f := newFixture(ownerAccount())
	ctx := context.Background()
	approvalID := uuid.New()

	f.approvals.approveFn = func(ctx context.Context, space tenant.Space, resolver persistence.Account, id uuid.UUID) (persistence.PendingApproval, error) {
		require.Equal(t, approvalID, id)
		return persistence.PendingApproval{ApprovalID: id, Status: "approved"}, nil
	}
	f.dispatcher.HandleEvent(ctx, press("approve:"+approvalID.String()))
	require.Equal(t, "Approved and applied.", f.sender.last().text)

	f.approvals.approveFn = func(ctx context.Context, space tenant.Space, resolver persistence.Account, id uuid.UUID) (persistence.PendingApproval, error) {
		return persistence.PendingApproval{}, approvalsvc.ErrAlreadyResolved
	}
	f.dispatcher.HandleEvent(ctx, press("approve:"+approvalID.String()))
	require.Equal(t, "That request was already decided.", f.sender.last().text)
}

func TestDaySummaryRendersTotals(t *testing.T) {
	t.Parallel()

	f := newFixture(ownerAccount())
	ctx := context.Background()
	shop := singleShop(f)

	f.sales.summarizeDayFn = func(ctx context.Context, space tenant.Space, account persistence.Account, shopID uuid.UUID, at time.Time) (persistence.DaySummary, error) {
		require.Equal(t, shop.ShopID, shopID)
		return persistence.DaySummary{
			SaleCount:    3,
			TotalAmount:  decimal.RequireFromString("21.40"),
			TotalPending: decimal.RequireFromString("4.00"),
			ByMethod:     map[string]decimal.Decimal{"cash": decimal.RequireFromString("21.40")},
		}, nil
	}

	f.dispatcher.HandleEvent(ctx, press(TokenMenuSummary))

	last := f.sender.last().text
	require.Contains(t, last, "Sales: 3")
	require.Contains(t, last, "Total: 21.40")
	require.Contains(t, last, "Owed on credit: 4.00")
	require.Contains(t, last, "cash: 21.40")
}

func TestServiceFailureAnswersGenerically(t *testing.T) {
	t.Parallel()

	f := newFixture(ownerAccount())
	ctx := context.Background()

	f.shops.listFn = func(ctx context.Context, space tenant.Space) ([]persistence.Shop, error) {
		return nil, context.DeadlineExceeded
	}

	f.dispatcher.HandleEvent(ctx, press(TokenMenuSale))
	require.Equal(t, "Something went wrong. Please try again.", f.sender.last().text)
}
