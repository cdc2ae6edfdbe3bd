package benchmark

import (
	"strings"
)

// Industry identifies a peer group.
type Industry string

const (
	IndustrySaaS       Industry = "saas"
	IndustryFinTech    Industry = "fintech"
	IndustryECommerce  Industry = "ecommerce"
	IndustryHealthcare Industry = "healthcare"
)

// DefaultIndustry is the peer group used when a reference set has no
// distribution for the requested industry.
const DefaultIndustry = IndustrySaaS

var industryLabels = map[Industry]string{
	IndustrySaaS:       "SaaS",
	IndustryFinTech:    "FinTech",
	IndustryECommerce:  "E-commerce",
	IndustryHealthcare: "Healthcare",
}

// Industries lists the accepted industries in display order.
func Industries() []Industry {
	return []Industry{IndustrySaaS, IndustryFinTech, IndustryECommerce, IndustryHealthcare}
}

// ParseIndustry accepts the enum value case-insensitively.
func ParseIndustry(raw string) (Industry, bool) {
	ind := Industry(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := industryLabels[ind]
	return ind, ok
}

// Valid reports whether the industry is one of the accepted values.
func (i Industry) Valid() bool {
	_, ok := industryLabels[i]
	return ok
}

// Label returns the human readable name.
func (i Industry) Label() string {
	if label, ok := industryLabels[i]; ok {
		return label
	}
	return string(i)
}

func (i Industry) String() string { return string(i) }
