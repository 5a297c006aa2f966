package adapter

import (
	"strings"

	"github.com/hashtrails/trailscan/internal/config"
	"github.com/hashtrails/trailscan/internal/scraper"
)

// BuildRegistry wires every adapter into a dispatch registry. The
// site-specific extractors register first and claim their hosts by URL;
// the config-driven families then pick up everything else by type.
func BuildRegistry(client *scraper.Client) *scraper.Registry {
	reg := scraper.NewRegistry()

	reg.Register(urlContains("ewh3"), NewEWH3(client))
	reg.Register(urlContains("dchashing", "dch4"), NewDCH4(client))

	reg.RegisterType(config.TypeCalendar, NewCalendar(client))
	reg.RegisterType(config.TypeSheet, NewSheet(client))
	reg.RegisterType(config.TypeSignup, NewSignup(client))
	reg.RegisterType(config.TypeRecurring, NewRecurring())
	reg.RegisterType(config.TypeFeed, NewFeed(client))

	// A site-type source no dedicated extractor claims still scrapes,
	// just through the generic feed path.
	reg.RegisterType(config.TypeSite, NewFeed(client))

	return reg
}

func urlContains(needles ...string) func(src config.Source) bool {
	return func(src config.Source) bool {
		if src.Type != config.TypeSite {
			return false
		}
		u := strings.ToLower(src.URL)
		for _, n := range needles {
			if strings.Contains(u, n) {
				return true
			}
		}
		return false
	}
}
