package conversation

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SveinnSSR/lavashow-chat-2024/internal/retrieval"
)

var fixedNow = time.Date(2024, 11, 5, 14, 0, 0, 0, time.UTC)

func newTestUpdater() *Updater {
	u := NewUpdater(nil)
	u.now = func() time.Time { return fixedNow }
	return u
}

func TestUpdate_TopicTracking(t *testing.T) {
	u := newTestUpdater()
	ctx := New("s1", fixedNow)

	u.Update(ctx, "safety", []retrieval.KnowledgeMatch{{Type: "emergency_procedures"}, {Type: "safety_protocols"}})
	assert.Equal(t, "emergency_procedures", ctx.Conversation.CurrentTopic)
	assert.Equal(t, []string{"emergency_procedures"}, ctx.Conversation.TopicHistory)

	u.Update(ctx, "xyzzy", nil)
	assert.Equal(t, "emergency_procedures", ctx.Conversation.CurrentTopic, "no matches keeps the topic")
	assert.Len(t, ctx.Conversation.TopicHistory, 1)
}

func TestUpdate_BookingDetectors(t *testing.T) {
	tests := []struct {
		message string
		want    BookingInfo
	}{
		{"we are 4 people", BookingInfo{GroupSize: 4}},
		{"a party of 8 on friday", BookingInfo{GroupSize: 8, PreferredDate: "friday"}},
		{"March 15th at 7pm", BookingInfo{PreferredDate: "march 15th", PreferredTime: "7pm"}},
		{"15 of june", BookingInfo{PreferredDate: "15 of june"}},
		{"on 15/03 at 19:30", BookingInfo{PreferredDate: "15/03", PreferredTime: "19:30"}},
		{"tomorrow evening", BookingInfo{PreferredDate: "tomorrow", PreferredTime: "evening"}},
		{"the vip seats please", BookingInfo{PackageType: PackagePremium}},
		{"Sér for two", BookingInfo{PackageType: PackagePremium}},
		{"saman is fine", BookingInfo{PackageType: PackageClassic}},
		{"great customer service", BookingInfo{}},
		{"It's my birthday!", BookingInfo{SpecialRequests: "It's my birthday!"}},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			ctx := newTestUpdater().Update(New("s", fixedNow), tt.message, nil)
			assert.Equal(t, tt.want, ctx.BookingInfo)
		})
	}
}

func TestUpdate_BookingWriteOnce(t *testing.T) {
	u := newTestUpdater()
	ctx := New("s", fixedNow)

	u.Update(ctx, "we are 4 people, classic, on friday", nil)
	u.Update(ctx, "actually 6 people, premium, on saturday", nil)

	assert.Equal(t, 4, ctx.BookingInfo.GroupSize)
	assert.Equal(t, PackageClassic, ctx.BookingInfo.PackageType)
	assert.Equal(t, "friday", ctx.BookingInfo.PreferredDate)
}

func TestUpdate_Interests(t *testing.T) {
	u := newTestUpdater()
	ctx := New("s", fixedNow)

	u.Update(ctx, "How hot is the lava? Is it safe for kids?", nil)
	assert.Equal(t, []string{"safety", "family"}, ctx.UserPreferences.Interests)

	u.Update(ctx, "is it safe? what about the volcano science and photos", nil)
	assert.Equal(t, []string{"safety", "family", "science", "photography"}, ctx.UserPreferences.Interests)
}

func TestUpdate_QueryBuckets(t *testing.T) {
	u := newTestUpdater()
	ctx := New("s", fixedNow)

	u.Update(ctx, "how much is it", nil)
	assert.Equal(t, BucketPricing, ctx.Conversation.LastQueryType)

	u.Update(ctx, "where is the show", nil)
	u.Update(ctx, "is it safe", nil)
	u.Update(ctx, "why is lava hot", nil)
	assert.Equal(t, BucketEducational, ctx.Conversation.LastQueryType)
	assert.Equal(t, []string{BucketEducational, BucketSafety, BucketLocation}, ctx.UserPreferences.PreviousQueries)

	u.Update(ctx, "hello there", nil)
	assert.Equal(t, BucketEducational, ctx.Conversation.LastQueryType, "no bucket leaves state unchanged")
	assert.Len(t, ctx.UserPreferences.PreviousQueries, 3)
}

func TestUpdate_PricingWinsOverLaterBuckets(t *testing.T) {
	ctx := newTestUpdater().Update(New("s", fixedNow), "where can I book and what does it cost", nil)
	assert.Equal(t, BucketPricing, ctx.Conversation.LastQueryType)
}

func TestUpdate_NilContext(t *testing.T) {
	ctx := newTestUpdater().Update(nil, "2 adults", nil)
	require.NotNil(t, ctx)
	assert.Equal(t, 2, ctx.BookingInfo.GroupSize)
}

func TestContext_Bounds(t *testing.T) {
	u := newTestUpdater()
	ctx := New("s", fixedNow)
	messages := []string{"price", "book", "where", "safe", "science"}

	for i := 0; i < 25; i++ {
		msg := messages[i%len(messages)]
		u.Update(ctx, msg, []retrieval.KnowledgeMatch{{Type: fmt.Sprintf("topic_%d", i)}})
		ctx.RecordExchange(msg, fmt.Sprintf("answer %d", i), fixedNow)

		assert.LessOrEqual(t, len(ctx.Messages), MaxMessages)
		assert.LessOrEqual(t, len(ctx.Conversation.TopicHistory), MaxTopicHistory)
		assert.LessOrEqual(t, len(ctx.UserPreferences.PreviousQueries), MaxPreviousQueries)
	}

	assert.Equal(t, []string{"topic_20", "topic_21", "topic_22", "topic_23", "topic_24"}, ctx.Conversation.TopicHistory)
	assert.Equal(t, Message{Role: "assistant", Content: "answer 24"}, ctx.Messages[len(ctx.Messages)-1])
	assert.Equal(t, Message{Role: "user", Content: messages[20%len(messages)]}, ctx.Messages[0])
}

func TestContext_RecordExchangeWithoutReply(t *testing.T) {
	ctx := New("s", fixedNow)
	later := fixedNow.Add(time.Minute)

	ctx.RecordExchange("hi", "", later)

	assert.Equal(t, []Message{{Role: "user", Content: "hi"}}, ctx.Messages)
	assert.Empty(t, ctx.LastResponse)
	assert.Equal(t, later, ctx.LastInteraction)
}

func TestContext_History(t *testing.T) {
	ctx := New("s", fixedNow)
	for i := 0; i < 4; i++ {
		ctx.RecordExchange(fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i), fixedNow)
	}

	h := ctx.History(5)
	require.Len(t, h, 5)
	assert.Equal(t, "a1", h[0].Content)
	assert.Equal(t, "a3", h[4].Content)

	var nilCtx *Context
	assert.Nil(t, nilCtx.History(5))
}

func TestContext_Signals(t *testing.T) {
	var nilCtx *Context
	assert.Nil(t, nilCtx.Signals())

	ctx := New("s", fixedNow)
	assert.False(t, ctx.Signals().HasPartialBooking)

	ctx.BookingInfo.PreferredTime = "7pm"
	assert.False(t, ctx.Signals().HasPartialBooking, "time alone is not partial booking")

	ctx.BookingInfo.PackageType = PackagePremium
	ctx.Conversation.LastQueryType = "pricing"
	ctx.UserPreferences.Interests = []string{"science"}

	s := ctx.Signals()
	assert.True(t, s.HasPartialBooking)
	assert.Equal(t, "pricing", s.LastQueryType)
	assert.Equal(t, []string{"science"}, s.Interests)

	s.Interests[0] = "mutated"
	assert.Equal(t, "science", ctx.UserPreferences.Interests[0])
}
