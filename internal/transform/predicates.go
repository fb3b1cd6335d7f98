package transform

import "github.com/sells-group/water-unifier/internal/record"

// pvacdSites are the PVACD monitoring locations published as groundwater
// wells. Other ST2/PVACD locations are surface or test stations.
var pvacdSites = map[string]struct{}{
	"9640": {},
	"4641": {},
	"4642": {},
	"4643": {},
	"4644": {},
	"4645": {},
	"4646": {},
	"4647": {},
	"4648": {},
	"4649": {},
	"9650": {},
}

// predicates holds per-mapping inclusion rules, keyed like Table entries.
var predicates = map[string]func(*record.Record) bool{
	tableKey("ST2/PVACD", record.Site.Name): func(r *record.Record) bool {
		_, ok := pvacdSites[r.ID()]
		return ok
	},
}
