package sqlassets

import _ "embed"

//go:embed schema/rentals/items.sql
var ItemsSQL string

//go:embed schema/rentals/history.sql
var HistorySQL string

//go:embed schema/rentals/waitlist.sql
var WaitlistSQL string
