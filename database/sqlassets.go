package sqlassets

import _ "embed"

//go:embed schema/platform/partitions.sql
var PartitionsSQL string

//go:embed schema/platform/accounts.sql
var AccountsSQL string

//go:embed schema/partition/tables.sql
var PartitionTablesSQL string
