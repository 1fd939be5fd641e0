package conversation

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/SveinnSSR/lavashow-chat-2024/internal/observability"
	"github.com/SveinnSSR/lavashow-chat-2024/internal/retrieval"
)

// Query buckets recorded as lastQueryType.
const (
	BucketPricing     = "pricing"
	BucketBooking     = "booking"
	BucketLocation    = "location"
	BucketSafety      = "safety"
	BucketEducational = "educational"
)

type bucketRule struct {
	name    string
	pattern *regexp.Regexp
}

// Evaluated in order; the first hit wins.
var queryBuckets = []bucketRule{
	{BucketPricing, regexp.MustCompile(`(?i)price|cost|how much|fee|\bpay\b|discount`)},
	{BucketBooking, regexp.MustCompile(`(?i)book|reserv|availab|schedule|slot`)},
	{BucketLocation, regexp.MustCompile(`(?i)where|location|address|direction|get there|parking`)},
	{BucketSafety, regexp.MustCompile(`(?i)safe|danger|risk|emergency|evacuat`)},
	{BucketEducational, regexp.MustCompile(`(?i)science|volcan|temperature|how does|how is|why|learn|lava`)},
}

type interestRule struct {
	tag      string
	keywords []string
}

var interestKeywords = []interestRule{
	{"science", []string{"science", "geology", "volcan", "temperature", "how it works"}},
	{"safety", []string{"safe"}},
	{"history", []string{"history", "katla", "eruption"}},
	{"gifts", []string{"gift", "souvenir"}},
	{"photography", []string{"photo", "camera"}},
	{"family", []string{"family", "kid", "child"}},
}

var (
	groupSizePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(\d+)\s*(?:people|persons|guests|visitors|adults|pax|of us)\b`),
		regexp.MustCompile(`(?i)\b(?:group|party)\s+of\s+(\d+)`),
	}

	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`),
		regexp.MustCompile(`(?i)\b(?:today|tomorrow|tonight|this weekend|next week)\b`),
		regexp.MustCompile(`(?i)\b(?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\s+\d{1,2}(?:st|nd|rd|th)?\b`),
		regexp.MustCompile(`(?i)\b\d{1,2}(?:st|nd|rd|th)?\s+(?:of\s+)?(?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\b`),
		regexp.MustCompile(`\b\d{1,2}/\d{1,2}(?:/\d{2,4})?\b`),
	}

	timePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b\d{1,2}(?::\d{2})?\s*(?:am|pm)\b`),
		regexp.MustCompile(`\b\d{1,2}:\d{2}\b`),
		regexp.MustCompile(`(?i)\b(?:morning|afternoon|evening)\b`),
	}

	premiumWords = map[string]bool{"premium": true, "vip": true, "sér": true, "ser": true}
	classicWords = map[string]bool{"classic": true, "saman": true, "standard": true}

	specialRequestKeywords = []string{"wheelchair", "birthday", "anniversary", "proposal", "allergy", "allergies", "dietary", "accessibility"}
)

// Updater applies per-turn context updates.
type Updater struct {
	logger *observability.Logger
	now    func() time.Time
}

// NewUpdater creates an updater.
func NewUpdater(logger *observability.Logger) *Updater {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Updater{logger: logger.WithOperation("update_context"), now: time.Now}
}

// Update mutates ctx from the visitor message and the knowledge matched for
// it, and returns ctx.
func (u *Updater) Update(ctx *Context, message string, matches []retrieval.KnowledgeMatch) *Context {
	if ctx == nil {
		ctx = New("", u.now())
	}
	lower := strings.ToLower(message)

	if len(matches) > 0 {
		ctx.Conversation.CurrentTopic = matches[0].Type
		ctx.Conversation.TopicHistory = pushBack(ctx.Conversation.TopicHistory, matches[0].Type, MaxTopicHistory)
	}

	u.updateBooking(ctx, message, lower)

	for _, rule := range interestKeywords {
		if ctx.HasInterest(rule.tag) {
			continue
		}
		for _, k := range rule.keywords {
			if strings.Contains(lower, k) {
				ctx.UserPreferences.Interests = append(ctx.UserPreferences.Interests, rule.tag)
				break
			}
		}
	}

	if bucket := classifyBucket(lower); bucket != "" {
		ctx.Conversation.LastQueryType = bucket
		ctx.UserPreferences.PreviousQueries = pushFront(ctx.UserPreferences.PreviousQueries, bucket, MaxPreviousQueries)
	}

	ctx.LastInteraction = u.now()
	return ctx
}

func (u *Updater) updateBooking(ctx *Context, message, lower string) {
	b := &ctx.BookingInfo

	if b.GroupSize == 0 {
		if n := detectGroupSize(lower); n > 0 {
			b.GroupSize = n
			u.logger.Debug().Str("session_id", ctx.SessionID).Int("group_size", n).Msg("Group size detected")
		}
	}
	if b.PreferredDate == "" {
		b.PreferredDate = firstMatch(datePatterns, lower)
	}
	if b.PreferredTime == "" {
		b.PreferredTime = firstMatch(timePatterns, lower)
	}
	if b.PackageType == "" {
		b.PackageType = detectPackage(lower)
	}
	if b.SpecialRequests == "" {
		for _, k := range specialRequestKeywords {
			if strings.Contains(lower, k) {
				b.SpecialRequests = strings.TrimSpace(message)
				break
			}
		}
	}
}

func detectGroupSize(lower string) int {
	for _, p := range groupSizePatterns {
		m := p.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			return n
		}
	}
	return 0
}

func firstMatch(patterns []*regexp.Regexp, s string) string {
	for _, p := range patterns {
		if m := p.FindString(s); m != "" {
			return m
		}
	}
	return ""
}

// detectPackage works on whole words so that "ser" does not fire inside
// "service" and accented forms keep their boundaries.
func detectPackage(lower string) string {
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, w := range words {
		if premiumWords[w] {
			return PackagePremium
		}
	}
	for _, w := range words {
		if classicWords[w] {
			return PackageClassic
		}
	}
	return ""
}

func classifyBucket(lower string) string {
	for _, b := range queryBuckets {
		if b.pattern.MatchString(lower) {
			return b.name
		}
	}
	return ""
}
