package questionbank

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/examprep/internal/criteria"
	"github.com/abhisek/examprep/internal/docstore"
	"github.com/abhisek/examprep/internal/question"
)

// noShuffle keeps store order so draws are deterministic.
func noShuffle(int, func(i, j int)) {}

// reverseShuffle is a deterministic but non-identity permutation.
func reverseShuffle(n int, swap func(i, j int)) {
	for i := 0; i < n/2; i++ {
		swap(i, n-1-i)
	}
}

func mcq(id, topic, subject string) question.Question {
	return question.Question{
		ID: id, Text: "Q " + id, TopicID: topic, SubjectID: subject,
		Difficulty: "easy", Access: question.AccessFree,
		Body: question.MultipleChoice{Options: []string{"a", "b", "c", "d"}, Correct: "a"},
	}
}

func seedBank(t *testing.T, store docstore.Store, counts map[string]int) {
	t.Helper()
	ctx := context.Background()
	for topic, n := range counts {
		for i := range n {
			q := mcq(fmt.Sprintf("%s-%d", topic, i), topic, "sub-"+topic)
			require.NoError(t, store.Put(ctx, question.Collection, q.Document()))
		}
	}
}

// failingStore fails queries for selected topics.
type failingStore struct {
	docstore.Store
	failTopics map[string]bool
	queries    int
}

func (f *failingStore) Query(ctx context.Context, collection string, q docstore.Query) ([]docstore.Document, error) {
	f.queries++
	for _, flt := range q.Filters {
		if flt.Field == question.FieldTopicID && f.failTopics[fmt.Sprint(flt.Value)] {
			return nil, errors.New("backend unavailable")
		}
	}
	return f.Store.Query(ctx, collection, q)
}

func TestFetch_SamplesMinOfCountAndAvailable(t *testing.T) {
	store := docstore.NewMemory()
	seedBank(t, store, map[string]int{"t1": 1, "t2": 5})
	bank := New(store, WithShuffler(noShuffle))

	qs, report, err := bank.FetchWithReport(context.Background(), criteria.Set{
		Pairs: []criteria.Pair{{TopicID: "t1", Count: 3}, {TopicID: "t2", Count: 2}},
	})
	require.NoError(t, err)

	assert.Len(t, qs, 3)
	assert.Equal(t, map[string]int{"t1": 1, "t2": 2}, report.Drawn)
	assert.False(t, report.Degraded())

	byTopic := map[string]int{}
	for _, q := range qs {
		byTopic[q.TopicID]++
	}
	assert.Equal(t, 1, byTopic["t1"])
	assert.Equal(t, 2, byTopic["t2"])
}

func TestFetch_NoDuplicatesWithinPair(t *testing.T) {
	store := docstore.NewMemory()
	seedBank(t, store, map[string]int{"t1": 4})
	bank := New(store)

	for range 20 {
		qs, err := bank.Fetch(context.Background(), criteria.Set{Pairs: []criteria.Pair{{TopicID: "t1", Count: 10}}})
		require.NoError(t, err)
		require.Len(t, qs, 4)

		seen := map[string]bool{}
		for _, q := range qs {
			assert.False(t, seen[q.ID], "duplicate %s", q.ID)
			seen[q.ID] = true
		}
	}
}

func TestFetch_GlobalShuffleInterleaves(t *testing.T) {
	store := docstore.NewMemory()
	seedBank(t, store, map[string]int{"a": 2, "b": 2})
	bank := New(store, WithShuffler(reverseShuffle))

	qs, err := bank.Fetch(context.Background(), criteria.Set{
		Pairs: []criteria.Pair{{TopicID: "a", Count: 2}, {TopicID: "b", Count: 2}},
	})
	require.NoError(t, err)
	require.Len(t, qs, 4)
	// Per-topic samples are reversed, then the concatenation is reversed.
	assert.Equal(t, []string{"b-0", "b-1", "a-0", "a-1"}, ids(qs))
}

func TestFetch_FailedPairDegradesToZero(t *testing.T) {
	mem := docstore.NewMemory()
	seedBank(t, mem, map[string]int{"t1": 3, "t2": 3})
	store := &failingStore{Store: mem, failTopics: map[string]bool{"t1": true}}
	bank := New(store, WithShuffler(noShuffle))

	qs, report, err := bank.FetchWithReport(context.Background(), criteria.Set{
		Pairs: []criteria.Pair{{TopicID: "t1", Count: 2}, {TopicID: "t2", Count: 2}},
	})
	require.NoError(t, err)
	assert.Len(t, qs, 2)
	assert.Equal(t, []string{"t1"}, report.Failed)
	for _, q := range qs {
		assert.Equal(t, "t2", q.TopicID)
	}
}

func TestFetch_QueryCount(t *testing.T) {
	mem := docstore.NewMemory()
	seedBank(t, mem, map[string]int{"t1": 2, "t2": 2, "t3": 2})
	store := &failingStore{Store: mem}
	bank := New(store)

	_, err := bank.Fetch(context.Background(), criteria.Set{
		Pairs: []criteria.Pair{{TopicID: "t1", Count: 1}, {TopicID: "t2", Count: 1}, {TopicID: "t3", Count: 1}},
	})
	require.NoError(t, err)
	// One query per pair plus one bulk name query each for subjects and
	// topics.
	assert.Equal(t, 5, store.queries)
}

func TestFetch_FiltersDifficultyAndAccess(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()

	free := mcq("free-easy", "t", "s")
	paid := mcq("paid-easy", "t", "s")
	paid.Access = question.AccessPaid
	hard := mcq("free-hard", "t", "s")
	hard.Difficulty = "hard"
	for _, q := range []question.Question{free, paid, hard} {
		require.NoError(t, store.Put(ctx, question.Collection, q.Document()))
	}

	bank := New(store)
	qs, err := bank.Fetch(ctx, criteria.Set{
		Pairs:      []criteria.Pair{{TopicID: "t", Count: 5}},
		Difficulty: "easy",
		Access:     question.AccessFree,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"free-easy"}, ids(qs))
}

func TestFetch_UnknownTopicAndEmptyCriteria(t *testing.T) {
	bank := New(docstore.NewMemory())

	qs, err := bank.Fetch(context.Background(), criteria.Set{Pairs: []criteria.Pair{{TopicID: "nope", Count: 3}}})
	require.NoError(t, err)
	assert.Empty(t, qs)

	qs, err = bank.Fetch(context.Background(), criteria.Set{})
	require.NoError(t, err)
	assert.Empty(t, qs)
}

func TestFetch_ResolvesSubjectNames(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	seedBank(t, store, map[string]int{"t1": 1})
	cache := newMapCache()
	bank := New(store, WithNameCache(cache))
	require.NoError(t, bank.SaveSubject(ctx, question.Subject{ID: "sub-t1", Name: "Physics"}))

	// Cached name wins over the store.
	qs, err := bank.Fetch(ctx, criteria.Set{Pairs: []criteria.Pair{{TopicID: "t1", Count: 1}}})
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.Equal(t, "Physics", qs[0].SubjectName)

	// A cold cache falls back to the store and is then filled.
	cache.m = map[string]string{}
	qs, err = bank.Fetch(ctx, criteria.Set{Pairs: []criteria.Pair{{TopicID: "t1", Count: 1}}})
	require.NoError(t, err)
	assert.Equal(t, "Physics", qs[0].SubjectName)
	assert.Equal(t, "Physics", cache.m["subjects/sub-t1"])
}

func TestFetch_ResolvesTopicNames(t *testing.T) {
	ctx := context.Background()
	cache := newMapCache()
	bank := New(docstore.NewMemory(), WithNameCache(cache))
	require.NoError(t, bank.SaveSubject(ctx, question.Subject{ID: "phy", Name: "Physics"}))
	require.NoError(t, bank.SaveTopic(ctx, question.Topic{ID: "mech", Name: "Mechanics", SubjectID: "phy"}))
	require.NoError(t, bank.Save(ctx, mcq("m1", "mech", "phy")))

	stored := mcq("k1", "kin", "phy")
	stored.TopicName = "Kinematics (legacy)"
	require.NoError(t, bank.Save(ctx, stored))
	require.NoError(t, bank.SaveTopic(ctx, question.Topic{ID: "kin", Name: "Kinematics", SubjectID: "phy"}))

	assert.Equal(t, "Mechanics", cache.m["topics/mech"])

	// Cold cache: names come from the topics collection.
	cache.m = map[string]string{}
	qs, err := bank.Fetch(ctx, criteria.Set{Pairs: []criteria.Pair{{TopicID: "mech", Count: 1}, {TopicID: "kin", Count: 1}}})
	require.NoError(t, err)
	require.Len(t, qs, 2)

	byID := map[string]question.Question{}
	for _, q := range qs {
		byID[q.ID] = q
	}
	assert.Equal(t, "Mechanics", byID["m1"].TopicName)
	assert.Equal(t, "Physics", byID["m1"].SubjectName)
	assert.Equal(t, "Kinematics (legacy)", byID["k1"].TopicName)
	assert.Equal(t, "Mechanics", cache.m["topics/mech"])
}

func TestFetch_ReturnsIndependentCopies(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	seedBank(t, store, map[string]int{"t1": 1})
	bank := New(store)

	qs, err := bank.Fetch(ctx, criteria.Set{Pairs: []criteria.Pair{{TopicID: "t1", Count: 1}}})
	require.NoError(t, err)

	// Editing the stored question does not reach the fetched copy.
	edited := mcq("t1-0", "t1", "sub-t1")
	edited.Text = "edited"
	require.NoError(t, bank.Save(ctx, edited))
	assert.Equal(t, "Q t1-0", qs[0].Text)
}

func TestAuthoring_OwnerChecks(t *testing.T) {
	ctx := context.Background()
	bank := New(docstore.NewMemory())

	q := mcq("q1", "t", "s")
	q.OwnerID = "alice"
	require.NoError(t, bank.Save(ctx, q))

	q.OwnerID = "bob"
	assert.ErrorIs(t, bank.Save(ctx, q), ErrNotOwner)
	assert.ErrorIs(t, bank.Delete(ctx, "q1", "bob"), ErrNotOwner)

	require.NoError(t, bank.Delete(ctx, "q1", "alice"))
	_, err := bank.Get(ctx, "q1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAuthoring_SaveValidates(t *testing.T) {
	bank := New(docstore.NewMemory())
	q := mcq("q1", "t", "s")
	q.Body = question.MultipleChoice{Options: []string{"a", "b", "c", "d"}, Correct: "z"}
	assert.ErrorIs(t, bank.Save(context.Background(), q), question.ErrInvalid)
}

func ids(qs []question.Question) []string {
	out := make([]string, len(qs))
	for i, q := range qs {
		out[i] = q.ID
	}
	return out
}

type mapCache struct{ m map[string]string }

func newMapCache() *mapCache { return &mapCache{m: map[string]string{}} }

func (c *mapCache) GetNames(_ context.Context, coll string, ids []string) (map[string]string, error) {
	out := map[string]string{}
	for _, id := range ids {
		if v, ok := c.m[coll+"/"+id]; ok {
			out[id] = v
		}
	}
	return out, nil
}

func (c *mapCache) SetNames(_ context.Context, coll string, names map[string]string) error {
	for id, n := range names {
		c.m[coll+"/"+id] = n
	}
	return nil
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	bank := New(store)

	file := `{
		"formatVersion": "1.2.0",
		"owner": "author-1",
		"subjects": [{"id": "phy", "name": "Physics"}],
		"topics": [{"id": "kin", "name": "Kinematics", "subjectId": "phy"}],
		"questions": [
			{"id": "q1", "topicId": "kin", "subjectId": "phy", "question": "g?", "type": "numerical", "correctAnswer": "9.8"},
			{"id": "q2", "topicId": "kin", "question": "pick", "type": "mcq", "options": ["a","b","c","d"], "correctAnswer": "b"},
			{"id": "q3", "topicId": "kin", "question": "bad", "type": "mcq", "options": ["a","b","c","d"], "correctAnswer": "e"}
		]
	}`

	res, err := bank.Import(ctx, strings.NewReader(file))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Subjects)
	assert.Equal(t, 1, res.Topics)
	assert.Equal(t, 2, res.Questions)
	require.Len(t, res.Skipped, 1)
	assert.Contains(t, res.Skipped[0], "q3")

	q1, err := bank.Get(ctx, "q1")
	require.NoError(t, err)
	assert.Equal(t, question.Numerical{Correct: 9.8}, q1.Body)
	assert.Equal(t, "author-1", q1.OwnerID)
}

func TestImport_RejectsBadFiles(t *testing.T) {
	bank := New(docstore.NewMemory())

	tests := []struct {
		name string
		body string
		want error
	}{
		{"major version 2", `{"formatVersion": "2.0.0", "questions": []}`, ErrUnsupportedFormat},
		{"not semver", `{"formatVersion": "latest", "questions": []}`, ErrUnsupportedFormat},
		{"missing questions", `{"formatVersion": "1.0.0"}`, nil},
		{"question without topic", `{"formatVersion": "1.0.0", "questions": [{"id": "x"}]}`, nil},
		{"not json", `{`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := bank.Import(context.Background(), strings.NewReader(tt.body))
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}
