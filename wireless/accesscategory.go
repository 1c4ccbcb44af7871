package wireless

import "fmt"

// AccessCategory is the traffic class of a frame. Frames of higher
// categories wait shorter and draw from smaller contention windows.
type AccessCategory int

// Access categories, from lowest to highest priority. AcLegacy frames use
// plain DCF timing.
const (
	AcLegacy AccessCategory = iota
	AcBackground
	AcBestEffort
	AcVideo
	AcVoice
)

var accessCategoryNames = map[AccessCategory]string{
	AcLegacy:     "legacy",
	AcBackground: "BK",
	AcBestEffort: "BE",
	AcVideo:      "VI",
	AcVoice:      "VO",
}

func (ac AccessCategory) String() string {
	if name, ok := accessCategoryNames[ac]; ok {
		return name
	}

	return fmt.Sprintf("AccessCategory(%d)", int(ac))
}

// ParseAccessCategory converts names such as "VO" or "legacy" into an
// AccessCategory.
func ParseAccessCategory(s string) (AccessCategory, error) {
	if s == "" {
		return AcLegacy, nil
	}

	for ac, name := range accessCategoryNames {
		if name == s {
			return ac, nil
		}
	}

	return AcLegacy, fmt.Errorf("unknown access category %q", s)
}
