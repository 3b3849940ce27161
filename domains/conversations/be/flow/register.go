package flow

import "github.com/mukando-hq/storekeeper/platform/go/conversation"

func init() {
	conversation.RegisterFlowData(flowLogin, func() any { return new(LoginData) })
	conversation.RegisterFlowData(flowSale, func() any { return new(SaleData) })
	conversation.RegisterFlowData(flowProductCreate, func() any { return new(ProductCreateData) })
	conversation.RegisterFlowData(flowProductUpdate, func() any { return new(ProductUpdateData) })
	conversation.RegisterFlowData(flowStockAdd, func() any { return new(StockAddData) })
	conversation.RegisterFlowData(flowShopSetup, func() any { return new(ShopSetupData) })
	conversation.RegisterFlowData(flowStaffCreate, func() any { return new(StaffCreateData) })
	conversation.RegisterFlowData(flowStaffReset, func() any { return new(StaffResetData) })
	conversation.RegisterFlowData(flowStaffDelete, func() any { return new(StaffDeleteData) })
}
