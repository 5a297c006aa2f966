package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	startTimeRe  = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
	frequencyRe  = regexp.MustCompile(`^FREQ=(WEEKLY|BIWEEKLY|MONTHLY|DAILY)\b`)
	requiredDate = "2006-01-02"
)

// Validate checks a source entry: shape, type-specific required fields,
// and regex safety for every operator-supplied pattern. It returns a list
// of human-readable problems; an empty list means the source is valid.
// This runs before any network access and a non-empty result blocks the
// scrape entirely.
func Validate(src *Source) []string {
	var errs []string

	if strings.TrimSpace(src.Name) == "" {
		errs = append(errs, "source name is required")
	}

	switch src.Type {
	case TypeSite:
		if src.URL == "" {
			errs = append(errs, "site sources require a url")
		}
	case TypeCalendar, TypeFeed:
		if src.URL == "" {
			errs = append(errs, fmt.Sprintf("%s sources require a url", src.Type))
		}
		if src.Config.DefaultGroupTag == "" && len(src.Config.GroupPatterns) == 0 {
			errs = append(errs, "either default_group_tag or group_patterns is required")
		}
	case TypeSheet:
		if src.Config.SheetID == "" {
			errs = append(errs, "sheet sources require sheet_id")
		}
		if len(src.Config.ColumnMap) == 0 {
			errs = append(errs, "sheet sources require column_map")
		} else if _, ok := src.Config.ColumnMap["date"]; !ok {
			errs = append(errs, "column_map must map the date field")
		}
	case TypeSignup:
		if len(src.Config.GroupSlugs) == 0 {
			errs = append(errs, "signup sources require a non-empty group_slugs list")
		}
	case TypeRecurring:
		if src.Config.GroupTag == "" {
			errs = append(errs, "recurring sources require group_tag")
		}
		if src.Config.RecurrenceRule == "" {
			errs = append(errs, "recurring sources require recurrence_rule")
		} else if !frequencyRe.MatchString(src.Config.RecurrenceRule) {
			errs = append(errs, fmt.Sprintf("recurrence_rule %q must begin with a frequency designator (FREQ=...)", src.Config.RecurrenceRule))
		}
		if src.Config.AnchorDate == "" {
			errs = append(errs, "recurring sources require anchor_date")
		}
	case "":
		errs = append(errs, "source type is required")
	default:
		errs = append(errs, fmt.Sprintf("unknown source type %q", src.Type))
	}

	if src.Config.StartTime != "" && !startTimeRe.MatchString(src.Config.StartTime) {
		errs = append(errs, fmt.Sprintf("start_time %q is not 24-hour HH:MM", src.Config.StartTime))
	}
	if src.Config.AnchorDate != "" {
		if _, err := time.Parse(requiredDate, src.Config.AnchorDate); err != nil {
			errs = append(errs, fmt.Sprintf("anchor_date %q is not YYYY-MM-DD", src.Config.AnchorDate))
		}
	}

	for i, gp := range src.Config.GroupPatterns {
		if gp.Tag == "" {
			errs = append(errs, fmt.Sprintf("group_patterns[%d]: tag is required", i))
		}
		if err := CheckPattern(gp.Pattern); err != nil {
			errs = append(errs, fmt.Sprintf("group_patterns[%d]: %v", i, err))
		}
	}
	for i, sp := range src.Config.SkipPatterns {
		if err := CheckPattern(sp); err != nil {
			errs = append(errs, fmt.Sprintf("skip_patterns[%d]: %v", i, err))
		}
	}

	return errs
}

// ValidateAll validates every source in a registry and returns problems
// keyed by source name. Sources with no problems are absent from the map.
func ValidateAll(reg *Registry) map[string][]string {
	problems := make(map[string][]string)
	for i := range reg.Sources {
		if errs := Validate(&reg.Sources[i]); len(errs) > 0 {
			problems[reg.Sources[i].Name] = errs
		}
	}
	return problems
}
