package root

import (
	accountcmd "github.com/mukando-hq/storekeeper/apps/cli/cmd/account"
	"github.com/mukando-hq/storekeeper/apps/cli/cmd/bootstrap"
	partitioncmd "github.com/mukando-hq/storekeeper/apps/cli/cmd/partition"
)

func init() {
	Root().AddCommand(bootstrap.Command())
	Root().AddCommand(partitioncmd.Command())
	Root().AddCommand(accountcmd.Command())
}
