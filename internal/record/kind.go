// Package record holds the normalized groundwater record schema: the fixed
// column order and defaults per record kind, and the Record value the
// transformers produce and the persisters serialize.
package record

// Kind describes one record schema: its column order and the value emitted
// for a column the transformer left empty.
type Kind struct {
	Name     string
	Keys     []string
	Defaults map[string]any
}

// Has reports whether key is one of the kind's columns.
func (k *Kind) Has(key string) bool {
	for _, c := range k.Keys {
		if c == key {
			return true
		}
	}
	return false
}

// Default returns the declared default for key, or nil.
func (k *Kind) Default(key string) any {
	return k.Defaults[key]
}

// Spatial reports whether records of this kind carry coordinates.
func (k *Kind) Spatial() bool {
	return k.Has(KeyLatitude) && k.Has(KeyLongitude)
}

// Canonical attribute names shared by the transformers and the pipeline.
const (
	KeySource          = "source"
	KeyID              = "id"
	KeyName            = "name"
	KeyLocation        = "location"
	KeyLatitude        = "latitude"
	KeyLongitude       = "longitude"
	KeyElevation       = "elevation"
	KeyElevationUnits  = "elevation_units"
	KeyHorizontalDatum = "horizontal_datum"
	KeyVerticalDatum   = "vertical_datum"
	KeyWellDepth       = "well_depth"
	KeyWellDepthUnits  = "well_depth_units"
	KeyDateMeasured    = "date_measured"
	KeyTimeMeasured    = "time_measured"

	// KeyDatetime holds an unnormalized timestamp until the date normalizer
	// splits it into KeyDateMeasured and KeyTimeMeasured. It is never a column.
	KeyDatetime = "datetime_measured"
)

// Site is a monitoring location (well).
var Site = &Kind{
	Name: "site",
	Keys: []string{
		KeySource,
		KeyID,
		KeyName,
		KeyLatitude,
		KeyLongitude,
		KeyElevation,
		KeyElevationUnits,
		KeyHorizontalDatum,
		KeyVerticalDatum,
		"usgs_site_id",
		"alternate_site_id",
		"formation",
		"aquifer",
		KeyWellDepth,
		KeyWellDepthUnits,
	},
	Defaults: map[string]any{
		KeyName:             "",
		KeyElevationUnits:   "ft",
		KeyHorizontalDatum:  "",
		KeyVerticalDatum:    "",
		"usgs_site_id":      "",
		"alternate_site_id": "",
		"formation":         "",
		"aquifer":           "",
		KeyWellDepthUnits:   "ft",
	},
}

// WaterLevel is one depth-to-water measurement, flattened with its parent
// site's identity and physical attributes.
var WaterLevel = &Kind{
	Name: "waterlevel",
	Keys: []string{
		KeySource,
		KeyID,
		KeyLocation,
		KeyLatitude,
		KeyLongitude,
		KeyHorizontalDatum,
		KeyElevation,
		KeyElevationUnits,
		KeyWellDepth,
		KeyWellDepthUnits,
		"depth_to_water_ft_below_ground_surface",
		KeyDateMeasured,
		KeyTimeMeasured,
	},
	Defaults: map[string]any{
		KeyLocation:        "",
		KeyHorizontalDatum: "",
		KeyElevationUnits:  "ft",
		KeyWellDepthUnits:  "ft",
		KeyTimeMeasured:    "",
	},
}

// Analyte is one water-quality result for a site.
var Analyte = &Kind{
	Name: "analyte",
	Keys: []string{
		KeySource,
		KeyID,
		KeyDateMeasured,
		KeyTimeMeasured,
		"analyte",
		"result",
		"units",
	},
	Defaults: map[string]any{
		KeyTimeMeasured: "",
		"units":         "",
	},
}

// Summary replaces per-observation rows when the run asks for summary
// statistics, for both water levels and analytes.
var Summary = &Kind{
	Name: "summary",
	Keys: []string{
		KeySource,
		KeyID,
		KeyLocation,
		KeyLatitude,
		KeyLongitude,
		KeyHorizontalDatum,
		KeyElevation,
		KeyElevationUnits,
		KeyWellDepth,
		KeyWellDepthUnits,
		"parameter",
		"parameter_units",
		"nrecords",
		"min",
		"max",
		"mean",
		"most_recent_date",
		"most_recent_time",
		"most_recent_value",
	},
	Defaults: map[string]any{
		KeyLocation:        "",
		KeyHorizontalDatum: "",
		KeyElevationUnits:  "ft",
		KeyWellDepthUnits:  "ft",
		"parameter_units":  "",
		"most_recent_time": "",
	},
}

// Kinds returns every record kind.
func Kinds() []*Kind {
	return []*Kind{Site, WaterLevel, Analyte, Summary}
}

// KindByName looks up a kind by its name.
func KindByName(name string) (*Kind, bool) {
	for _, k := range Kinds() {
		if k.Name == name {
			return k, true
		}
	}
	return nil, false
}
