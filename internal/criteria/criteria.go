// Package criteria encodes and decodes the selection criteria a practice
// session is started from. The criteria travel as URL query parameters:
//
//	topics=t1:3,t2:2&difficultyLevel=easy&accessLevel=free
//
// A single topic may also be given as topicId=t1&count=3.
package criteria

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/abhisek/examprep/internal/question"
)

// Query parameter names.
const (
	ParamTopics     = "topics"
	ParamDifficulty = "difficultyLevel"
	ParamAccess     = "accessLevel"
	ParamTopicID    = "topicId"
	ParamCount      = "count"
)

// Pair asks for Count questions from one topic.
type Pair struct {
	TopicID string
	Count   int
}

// Set is the full selection for one session.
type Set struct {
	Pairs []Pair

	// Difficulty is matched exactly when non-empty.
	Difficulty string

	// Access is matched exactly when non-empty.
	Access question.AccessTier
}

// Issue describes a parameter that was ignored while parsing.
type Issue struct {
	Param  string
	Value  string
	Reason string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s=%q ignored: %s", i.Param, i.Value, i.Reason)
}

// Total returns the number of questions requested across all pairs.
func (s Set) Total() int {
	n := 0
	for _, p := range s.Pairs {
		n += p.Count
	}
	return n
}

// Empty reports whether no topic was requested.
func (s Set) Empty() bool { return len(s.Pairs) == 0 }

// Counts returns the requested count per topic.
func (s Set) Counts() map[string]int {
	m := make(map[string]int, len(s.Pairs))
	for _, p := range s.Pairs {
		m[p.TopicID] += p.Count
	}
	return m
}

// ParseQuery parses a raw query string such as "topics=t1:3&accessLevel=free".
func ParseQuery(raw string) (Set, []Issue, error) {
	v, err := url.ParseQuery(strings.TrimPrefix(raw, "?"))
	if err != nil {
		return Set{}, nil, fmt.Errorf("parse criteria: %w", err)
	}
	s, issues := Parse(v)
	return s, issues, nil
}

// Parse builds a Set from query values. Malformed pairs are skipped and
// reported as issues; they never fail the parse. Repeated topics have
// their counts summed.
func Parse(v url.Values) (Set, []Issue) {
	var (
		s      Set
		issues []Issue
		counts = make(map[string]int)
		order  []string
	)

	add := func(topic string, count int) {
		if _, seen := counts[topic]; !seen {
			order = append(order, topic)
		}
		counts[topic] += count
	}

	for _, raw := range v[ParamTopics] {
		for _, item := range strings.Split(raw, ",") {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			topic, count, reason := parsePair(item)
			if reason != "" {
				issues = append(issues, Issue{Param: ParamTopics, Value: item, Reason: reason})
				continue
			}
			add(topic, count)
		}
	}

	if topic := strings.TrimSpace(v.Get(ParamTopicID)); topic != "" {
		count, err := strconv.Atoi(strings.TrimSpace(v.Get(ParamCount)))
		switch {
		case err != nil:
			issues = append(issues, Issue{Param: ParamCount, Value: v.Get(ParamCount), Reason: "count is not a number"})
		case count <= 0:
			issues = append(issues, Issue{Param: ParamCount, Value: v.Get(ParamCount), Reason: "count must be positive"})
		default:
			add(topic, count)
		}
	}

	for _, topic := range order {
		s.Pairs = append(s.Pairs, Pair{TopicID: topic, Count: counts[topic]})
	}

	s.Difficulty = strings.TrimSpace(v.Get(ParamDifficulty))

	if raw := v.Get(ParamAccess); raw != "" {
		if a, ok := question.ParseAccessTier(raw); ok {
			s.Access = a
		} else {
			issues = append(issues, Issue{Param: ParamAccess, Value: raw, Reason: "want free or paid"})
		}
	}
	return s, issues
}

func parsePair(item string) (topic string, count int, reason string) {
	idx := strings.LastIndex(item, ":")
	if idx < 0 {
		return "", 0, "missing topic:count separator"
	}
	topic = strings.TrimSpace(item[:idx])
	if topic == "" {
		return "", 0, "empty topic id"
	}
	n, err := strconv.Atoi(strings.TrimSpace(item[idx+1:]))
	if err != nil {
		return "", 0, "count is not a number"
	}
	if n <= 0 {
		return "", 0, "count must be positive"
	}
	return topic, n, ""
}

// Values encodes s. Topics are written in sorted order so equal sets
// encode identically.
func (s Set) Values() url.Values {
	v := url.Values{}
	counts := s.Counts()
	topics := make([]string, 0, len(counts))
	for t := range counts {
		topics = append(topics, t)
	}
	slices.Sort(topics)

	parts := make([]string, 0, len(topics))
	for _, t := range topics {
		parts = append(parts, fmt.Sprintf("%s:%d", t, counts[t]))
	}
	if len(parts) > 0 {
		v.Set(ParamTopics, strings.Join(parts, ","))
	}
	if s.Difficulty != "" {
		v.Set(ParamDifficulty, s.Difficulty)
	}
	if s.Access != "" {
		v.Set(ParamAccess, string(s.Access))
	}
	return v
}

// Encode returns the URL query string for s.
func (s Set) Encode() string {
	return s.Values().Encode()
}
