package source

import (
	"go.uber.org/zap"

	"github.com/sells-group/water-unifier/internal/config"
	"github.com/sells-group/water-unifier/internal/fetcher"
	"github.com/sells-group/water-unifier/pkg/frost"
)

// NewDefaultRegistry registers every provider in its canonical order,
// skipping those disabled in cfg. st2 builds the SensorThings client for a
// base URL.
func NewDefaultRegistry(cfg *config.Config, f fetcher.Fetcher, st2 func(baseURL string) frost.Client) *Registry {
	reg := NewRegistry()
	add := func(name string, build func(sc config.SourceConfig) Source) {
		sc := cfg.Source(name)
		if sc.Disabled {
			zap.L().Debug("source disabled", zap.String("source", name))
			return
		}
		if s := build(sc); s != nil {
			reg.Register(s)
		}
	}

	add("AMPAPI", func(sc config.SourceConfig) Source {
		return NewAMPAPI(f, sc.BaseURL)
	})
	add("ST2/PVACD", func(sc config.SourceConfig) Source {
		return NewST2("PVACD", st2(orDefault(sc.BaseURL, DefaultST2URL)))
	})
	add("ST2/EBID", func(sc config.SourceConfig) Source {
		return NewST2("EBID", st2(orDefault(sc.BaseURL, DefaultST2URL)))
	})
	add("OSE/Roswell", func(sc config.SourceConfig) Source {
		if sc.Resource == "" {
			zap.L().Debug("source has no datastore resource configured", zap.String("source", "OSE/Roswell"))
			return nil
		}
		return NewOSERoswell(f, sc.BaseURL, sc.Resource)
	})
	add("BOR", func(sc config.SourceConfig) Source {
		return NewBOR(f, sc.BaseURL)
	})
	add("WQP", func(sc config.SourceConfig) Source {
		return NewWQP(f, sc.BaseURL)
	})
	return reg
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
