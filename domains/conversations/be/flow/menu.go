package flow

import "github.com/mukando-hq/storekeeper/platform/go/chat"

// Flow names stored in conversation state.
const (
	flowLogin         = "login"
	flowSale          = "sale"
	flowProductCreate = "product_create"
	flowProductUpdate = "product_update"
	flowStockAdd      = "stock_add"
	flowShopSetup     = "shop_setup"
	flowStaffCreate   = "staff_create"
	flowStaffReset    = "staff_reset"
	flowStaffDelete   = "staff_delete"
)

// Menu and global action tokens.
const (
	TokenMenu              = "menu"
	TokenCancel            = "cancel"
	TokenLogin             = "login"
	TokenRegisterOwner     = "register_owner"
	TokenMenuSale          = "menu_sale"
	TokenMenuAddProduct    = "menu_add_product"
	TokenMenuUpdateProduct = "menu_update_product"
	TokenMenuStock         = "menu_receive_stock"
	TokenMenuSummary       = "menu_day_summary"
	TokenMenuLowStock      = "menu_low_stock"
	TokenMenuShop          = "menu_shop_setup"
	TokenMenuStaffCreate   = "menu_staff_create"
	TokenMenuStaffReset    = "menu_staff_reset"
	TokenMenuStaffDelete   = "menu_staff_delete"
	TokenMenuApprovals     = "menu_approvals"

	tokenApprovePrefix = "approve:"
	tokenRejectPrefix  = "reject:"
)

// capability is one menu entry plus the roles allowed to use it. Permissions
// are data: adding a role or an action is a table edit, not a new branch.
type capability struct {
	label string
	token string
	roles map[string]bool
}

var allRoles = map[string]bool{"owner": true, "admin": true, "shopkeeper": true}
var ownerAdmin = map[string]bool{"owner": true, "admin": true}
var ownerOnly = map[string]bool{"owner": true}

var capabilities = []capability{
	{label: "Record a sale", token: TokenMenuSale, roles: allRoles},
	{label: "Add product", token: TokenMenuAddProduct, roles: allRoles},
	{label: "Update product", token: TokenMenuUpdateProduct, roles: ownerAdmin},
	{label: "Receive stock", token: TokenMenuStock, roles: allRoles},
	{label: "Day summary", token: TokenMenuSummary, roles: allRoles},
	{label: "Low stock", token: TokenMenuLowStock, roles: ownerAdmin},
	{label: "Set up shop", token: TokenMenuShop, roles: ownerAdmin},
	{label: "Create staff account", token: TokenMenuStaffCreate, roles: ownerAdmin},
	{label: "Reset staff password", token: TokenMenuStaffReset, roles: ownerAdmin},
	{label: "Delete staff account", token: TokenMenuStaffDelete, roles: ownerOnly},
	{label: "Pending approvals", token: TokenMenuApprovals, roles: ownerOnly},
}

// MainMenu builds the role's main menu from the capability table.
func MainMenu(role string) *chat.Menu {
	menu := &chat.Menu{}
	for _, c := range capabilities {
		if c.roles[role] {
			menu.Rows = append(menu.Rows, chat.MenuRow{Label: c.label, Token: c.token})
		}
	}
	return menu
}

// Allowed reports whether the role may trigger the token. The bare menu
// token is always allowed.
func Allowed(role, token string) bool {
	if token == TokenMenu {
		return true
	}
	for _, c := range capabilities {
		if c.token == token {
			return c.roles[role]
		}
	}
	return false
}

func welcomeMenu() *chat.Menu {
	return chat.NewMenu(
		chat.MenuRow{Label: "I'm a new store owner", Token: TokenRegisterOwner},
		chat.MenuRow{Label: "Staff login", Token: TokenLogin},
	)
}

func yesNoMenu() *chat.Menu {
	return chat.NewMenu(
		chat.MenuRow{Label: "Yes", Token: "yes"},
		chat.MenuRow{Label: "No", Token: "no"},
	)
}
