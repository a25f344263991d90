package failure

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfWrapped(t *testing.T) {
	base := New(NoTests, "", nil)
	wrapped := fmt.Errorf("grade: %w", base)

	assert.Equal(t, NoTests, KindOf(wrapped))
	assert.True(t, Is(wrapped, NoTests))
	assert.False(t, Is(wrapped, InputMissing))
	assert.Equal(t, DefaultFeedback(NoTests), FeedbackOf(wrapped))
}

func TestUntaggedErrorIsInternal(t *testing.T) {
	err := errors.New("boom")
	assert.Equal(t, Internal, KindOf(err))
	assert.Equal(t, GenericFeedback, FeedbackOf(err))
}

func TestCustomFeedbackWins(t *testing.T) {
	err := Newf(InputMissing, "look in learn/", "stat %s", "x.json")
	assert.Equal(t, "look in learn/", FeedbackOf(err))
	assert.Contains(t, err.Error(), "stat x.json")
}

func TestEveryKindHasFeedback(t *testing.T) {
	for _, k := range []Kind{InputMissing, InputMalformed, InputUnrecognized, Decryption, NoTests, RubricUnmet, Internal} {
		assert.NotEmpty(t, DefaultFeedback(k), k)
	}
}
