package pricing

// Currency of every price on the rate card.
const Currency = "ISK"

// Rates are per-person prices for one package. A zero rate means the category
// is not admitted.
type Rates struct {
	Adult   int `yaml:"adult" json:"adult"`
	Child   int `yaml:"child" json:"child"`
	Student int `yaml:"student" json:"student"`
	Senior  int `yaml:"senior" json:"senior"`
}

// FamilyBundle is the flat-rate classic package for a small family.
type FamilyBundle struct {
	Price       int    `yaml:"price" json:"price"`
	MaxAdults   int    `yaml:"max_adults" json:"maxAdults"`
	MaxChildren int    `yaml:"max_children" json:"maxChildren"`
	Details     string `yaml:"details" json:"details"`
}

// RateCard holds every price the calculator uses.
type RateCard struct {
	Classic            Rates        `yaml:"classic" json:"classic"`
	Premium            Rates        `yaml:"premium" json:"premium"`
	Family             FamilyBundle `yaml:"family" json:"family"`
	GroupThreshold     int          `yaml:"group_threshold" json:"groupThreshold"`
	GroupDiscountPct   int          `yaml:"group_discount_pct" json:"groupDiscountPct"`
	AdultAge           int          `yaml:"adult_age" json:"adultAge"`
	PremiumKeywords    []string     `yaml:"premium_keywords" json:"premiumKeywords"`
	FamilyPackageLabel string       `yaml:"family_package_label" json:"familyPackageLabel"`
}

// DefaultRateCard returns the published prices.
func DefaultRateCard() RateCard {
	return RateCard{
		Classic: Rates{Adult: 6590, Child: 3590, Student: 5590, Senior: 5590},
		Premium: Rates{Adult: 9990, Student: 8990, Senior: 8990},
		Family: FamilyBundle{
			Price:       17990,
			MaxAdults:   2,
			MaxChildren: 3,
			Details:     "Family Package: up to 2 adults and 3 children, Classic Experience",
		},
		GroupThreshold:     10,
		GroupDiscountPct:   10,
		AdultAge:           13,
		PremiumKeywords:    []string{"premium", "vip", "backstage", "balcony"},
		FamilyPackageLabel: "Family Package",
	}
}

func (c RateCard) rates(pkg string) Rates {
	if pkg == packagePremium {
		return c.Premium
	}
	return c.Classic
}
