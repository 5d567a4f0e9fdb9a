package root

import (
	itemscmd "github.com/vdgsa/rental-backend/apps/cli/cmd/items"
	rentcmd "github.com/vdgsa/rental-backend/apps/cli/cmd/rent"
	waitcmd "github.com/vdgsa/rental-backend/apps/cli/cmd/wait"
)

func init() {
	Root().AddCommand(itemscmd.Command())
	Root().AddCommand(rentcmd.Command())
	Root().AddCommand(waitcmd.Command())
}
