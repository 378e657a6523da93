package criteria

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/examprep/internal/question"
)

func TestParse_TopicsList(t *testing.T) {
	s, issues, err := ParseQuery("topics=t1:3,t2:2&difficultyLevel=easy&accessLevel=free")
	require.NoError(t, err)
	assert.Empty(t, issues)
	assert.Equal(t, []Pair{{"t1", 3}, {"t2", 2}}, s.Pairs)
	assert.Equal(t, "easy", s.Difficulty)
	assert.Equal(t, question.AccessFree, s.Access)
	assert.Equal(t, 5, s.Total())
}

func TestParse_SkipsMalformedPairs(t *testing.T) {
	s, issues, err := ParseQuery("topics=t1:3,bad,t2:x,:4,t3:0,t4:-1,t5:1")
	require.NoError(t, err)

	assert.Equal(t, []Pair{{"t1", 3}, {"t5", 1}}, s.Pairs)
	require.Len(t, issues, 5)
	for _, is := range issues {
		assert.Equal(t, ParamTopics, is.Param)
		assert.NotEmpty(t, is.Reason)
	}
}

func TestParse_SingleTopicShorthand(t *testing.T) {
	s, issues, err := ParseQuery("topicId=physics-1&count=10&accessLevel=paid")
	require.NoError(t, err)
	assert.Empty(t, issues)
	assert.Equal(t, []Pair{{"physics-1", 10}}, s.Pairs)
	assert.Equal(t, question.AccessPaid, s.Access)
}

func TestParse_ShorthandMergesWithTopics(t *testing.T) {
	s, _, err := ParseQuery("topics=t1:2&topicId=t1&count=3")
	require.NoError(t, err)
	assert.Equal(t, []Pair{{"t1", 5}}, s.Pairs)
}

func TestParse_ShorthandBadCount(t *testing.T) {
	s, issues, err := ParseQuery("topicId=t1&count=lots")
	require.NoError(t, err)
	assert.True(t, s.Empty())
	require.Len(t, issues, 1)
	assert.Equal(t, ParamCount, issues[0].Param)
}

func TestParse_UnknownAccessIsReported(t *testing.T) {
	s, issues, err := ParseQuery("topics=t1:1&accessLevel=premium")
	require.NoError(t, err)
	assert.Equal(t, question.AccessTier(""), s.Access)
	require.Len(t, issues, 1)
	assert.Equal(t, ParamAccess, issues[0].Param)
}

func TestParse_TopicIDWithColon(t *testing.T) {
	s, issues := Parse(url.Values{ParamTopics: {"jee:mains:4"}})
	assert.Empty(t, issues)
	assert.Equal(t, []Pair{{"jee:mains", 4}}, s.Pairs)
}

func TestEncode_RoundTrip(t *testing.T) {
	sets := []Set{
		{Pairs: []Pair{{"t2", 2}, {"t1", 3}}, Difficulty: "hard", Access: question.AccessPaid},
		{Pairs: []Pair{{"only", 1}}},
		{Pairs: []Pair{{"a b", 7}}, Difficulty: "medium"},
	}
	for _, in := range sets {
		out, issues, err := ParseQuery(in.Encode())
		require.NoError(t, err)
		assert.Empty(t, issues)
		assert.Equal(t, in.Counts(), out.Counts())
		assert.Equal(t, in.Difficulty, out.Difficulty)
		assert.Equal(t, in.Access, out.Access)
	}
}

func TestEncode_IsOrderIndependent(t *testing.T) {
	a := Set{Pairs: []Pair{{"t1", 3}, {"t2", 2}}}
	b := Set{Pairs: []Pair{{"t2", 2}, {"t1", 3}}}
	assert.Equal(t, a.Encode(), b.Encode())
}
