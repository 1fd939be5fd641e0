// Package pricing turns a free-text party description into a price breakdown.
package pricing

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/SveinnSSR/lavashow-chat-2024/internal/conversation"
	"github.com/SveinnSSR/lavashow-chat-2024/internal/observability"
)

const (
	packageClassic = conversation.PackageClassic
	packagePremium = conversation.PackagePremium
)

// FlagTeenKeywordAndAge marks a message where a teen keyword and a numeric age
// both contributed to the adult count. The two are not deduplicated.
const FlagTeenKeywordAndAge = "teen_keyword_and_age"

// FlagCountCapped marks a message whose visitor count exceeded MaxCount.
const FlagCountCapped = "count_capped"

// MaxCount bounds the parsed count of each visitor category. Larger counts are
// clamped so that totals stay far from integer overflow.
const MaxCount = 10000

var (
	adultsRe   = regexp.MustCompile(`(\d+)\s*adults?`)
	childrenRe = regexp.MustCompile(`(\d+)\s*(?:children|kids?|child)`)
	studentsRe = regexp.MustCompile(`(\d+)\s*students?`)
	seniorsRe  = regexp.MustCompile(`(\d+)\s*seniors?`)
	teensRe    = regexp.MustCompile(`(\d+)\s*(?:teenagers?|teens?)`)
	ageRe      = regexp.MustCompile(`(\d{1,3})(?:\s*years?\s*old|\s*yrs?\s*old|-years?(?:-old)?|\s*yo\b)`)
)

// Category is the subtotal of one visitor category.
type Category struct {
	Count          int `json:"count"`
	PricePerPerson int `json:"pricePerPerson"`
	Total          int `json:"total"`
}

// GroupDiscount is the discount applied to a large party.
type GroupDiscount struct {
	Percentage int `json:"percentage"`
	Amount     int `json:"amount"`
}

// Breakdown is the priced result. Per-category blocks are nil when their count
// is zero, and always nil on the family bundle path.
type Breakdown struct {
	Package       string         `json:"package"`
	Adults        *Category      `json:"adults,omitempty"`
	Children      *Category      `json:"children,omitempty"`
	Students      *Category      `json:"students,omitempty"`
	Seniors       *Category      `json:"seniors,omitempty"`
	GroupDiscount *GroupDiscount `json:"groupDiscount,omitempty"`
	BasePrice     int            `json:"basePrice,omitempty"`
	TotalPrice    int            `json:"totalPrice"`
	Currency      string         `json:"currency"`
	Details       string         `json:"details,omitempty"`

	AgeReclassified int      `json:"ageReclassified,omitempty"`
	Flags           []string `json:"flags,omitempty"`
}

// IsFamilyBundle reports whether the flat family price was used.
func (b Breakdown) IsFamilyBundle() bool {
	return b.Details != "" && b.BasePrice > 0
}

// Headcount sums every category.
func (b Breakdown) Headcount() int {
	n := 0
	for _, c := range []*Category{b.Adults, b.Children, b.Students, b.Seniors} {
		if c != nil {
			n += c.Count
		}
	}
	return n
}

// Party is the visitor composition parsed from a message.
type Party struct {
	Adults       int
	Children     int
	Students     int
	Seniors      int
	Teens        int
	Ages         int
	Reclassified int
	Capped       bool
}

// Headcount sums every category. Teens are already part of Adults.
func (p Party) Headcount() int {
	return p.Adults + p.Children + p.Students + p.Seniors
}

// Calculator prices visitor messages against a rate card.
type Calculator struct {
	logger *observability.Logger
	card   RateCard
}

// NewCalculator creates a calculator using the default rate card.
func NewCalculator(logger *observability.Logger) *Calculator {
	return NewCalculatorWithRates(logger, DefaultRateCard())
}

// NewCalculatorWithRates creates a calculator over an explicit rate card.
func NewCalculatorWithRates(logger *observability.Logger, card RateCard) *Calculator {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Calculator{logger: logger.WithOperation("pricing"), card: card}
}

// RateCard returns the rates in use.
func (c *Calculator) RateCard() RateCard {
	return c.card
}

// Calculate prices the party described in message. It never fails: a message
// without any party information is priced as one adult. ctx may be nil.
func (c *Calculator) Calculate(message string, ctx *conversation.Context) Breakdown {
	lower := strings.ToLower(message)

	pkg := c.detectPackage(lower, ctx)
	party := c.parseParty(lower, pkg)

	var flags []string
	if party.Teens > 0 && party.Ages > 0 {
		flags = append(flags, FlagTeenKeywordAndAge)
		c.logger.Warn().
			Int("teens", party.Teens).
			Int("ages", party.Ages).
			Msg("Teen keyword and numeric age both counted as adults")
	}
	if party.Capped {
		flags = append(flags, FlagCountCapped)
		c.logger.Warn().Int("max_count", MaxCount).Msg("Visitor count clamped")
	}

	if pkg == packagePremium && party.Children > 0 {
		c.logger.Info().
			Int("children", party.Children).
			Msg("Premium is 13+ only, pricing children as adults")
		party.Adults += party.Children
		party.Reclassified += party.Children
		party.Children = 0
	}

	rates := c.card.rates(pkg)
	breakdown := Breakdown{
		Package:         pkg,
		Currency:        Currency,
		AgeReclassified: party.Reclassified,
		Flags:           flags,
	}

	subtotal := 0
	add := func(count, rate int) *Category {
		if count == 0 {
			return nil
		}
		cat := &Category{Count: count, PricePerPerson: rate, Total: count * rate}
		subtotal += cat.Total
		return cat
	}
	breakdown.Adults = add(party.Adults, rates.Adult)
	breakdown.Children = add(party.Children, rates.Child)
	breakdown.Students = add(party.Students, rates.Student)
	breakdown.Seniors = add(party.Seniors, rates.Senior)

	if c.familyBundleApplies(lower, pkg, party, subtotal) {
		return Breakdown{
			Package:         c.card.FamilyPackageLabel,
			BasePrice:       c.card.Family.Price,
			TotalPrice:      c.card.Family.Price,
			Currency:        Currency,
			Details:         c.card.Family.Details,
			AgeReclassified: party.Reclassified,
			Flags:           flags,
		}
	}

	total := subtotal
	if c.card.GroupThreshold > 0 && party.Headcount() >= c.card.GroupThreshold && c.card.GroupDiscountPct > 0 {
		total = int(math.Round(float64(subtotal) * float64(100-c.card.GroupDiscountPct) / 100))
		breakdown.GroupDiscount = &GroupDiscount{
			Percentage: c.card.GroupDiscountPct,
			Amount:     subtotal - total,
		}
	}
	if total < 0 {
		total = 0
	}
	breakdown.TotalPrice = total

	return breakdown
}

// Parse exposes the party parsing for a message under a package type.
func (c *Calculator) Parse(message, pkg string) Party {
	return c.parseParty(strings.ToLower(message), pkg)
}

func (c *Calculator) detectPackage(lower string, ctx *conversation.Context) string {
	if ctx != nil && ctx.BookingInfo.PackageType != "" {
		return ctx.BookingInfo.PackageType
	}
	for _, k := range c.card.PremiumKeywords {
		if strings.Contains(lower, k) {
			return packagePremium
		}
	}
	return packageClassic
}

func (c *Calculator) parseParty(lower, pkg string) Party {
	var p Party

	p.Adults = p.count(adultsRe, lower)
	p.Children = p.count(childrenRe, lower)
	p.Students = p.count(studentsRe, lower)
	p.Seniors = p.count(seniorsRe, lower)
	p.Teens = p.count(teensRe, lower)
	p.Adults = p.clamp(p.Adults + p.Teens)

	for _, m := range ageRe.FindAllStringSubmatch(lower, -1) {
		age, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		p.Ages++
		switch {
		case age >= c.card.AdultAge:
			p.Adults++
		case pkg == packageClassic:
			p.Children++
		default:
			p.Adults++
			p.Reclassified++
			c.logger.Info().Int("age", age).Str("package", pkg).Msg("Under-age visitor priced as adult")
		}
	}

	p.Adults = p.clamp(p.Adults)
	p.Children = p.clamp(p.Children)

	if p.Headcount() == 0 {
		p.Adults = 1
	}
	return p
}

// familyBundleApplies reports whether the classic family bundle replaces
// per-person pricing. Saying "family" is enough on its own. Otherwise the party
// must fit the bundle and the flat price must beat the per-person subtotal.
func (c *Calculator) familyBundleApplies(lower, pkg string, p Party, subtotal int) bool {
	f := c.card.Family
	if pkg != packageClassic || f.Price <= 0 {
		return false
	}
	if strings.Contains(lower, "family") {
		return true
	}
	fits := p.Children > 0 && p.Children <= f.MaxChildren &&
		p.Adults <= f.MaxAdults && p.Students == 0 && p.Seniors == 0
	return fits && f.Price < subtotal
}

// count sums every number captured by re, clamping to MaxCount.
func (p *Party) count(re *regexp.Regexp, s string) int {
	total := 0
	for _, m := range re.FindAllStringSubmatch(s, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			// Only out-of-range digit runs fail to parse.
			p.Capped = true
			n = MaxCount
		}
		total = p.clamp(total + p.clamp(n))
	}
	return total
}

func (p *Party) clamp(n int) int {
	if n > MaxCount {
		p.Capped = true
		return MaxCount
	}
	return n
}
