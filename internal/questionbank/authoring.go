package questionbank

import (
	"context"
	"errors"
	"fmt"

	"github.com/abhisek/examprep/internal/question"
)

var (
	ErrNotFound = errors.New("question not found")
	ErrNotOwner = errors.New("question belongs to another author")
)

// Get loads one question by id.
func (b *Bank) Get(ctx context.Context, id string) (question.Question, error) {
	doc, err := b.store.Get(ctx, question.Collection, id)
	if err != nil {
		return question.Question{}, fmt.Errorf("get question %s: %w", id, err)
	}
	if doc == nil {
		return question.Question{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return question.FromDocument(*doc)
}

// Save validates q and writes it. An existing question may only be
// replaced by its owner.
func (b *Bank) Save(ctx context.Context, q question.Question) error {
	if err := q.Validate(); err != nil {
		return err
	}
	if err := b.checkOwner(ctx, q.ID, q.OwnerID); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if err := b.store.Put(ctx, question.Collection, q.Document()); err != nil {
		return fmt.Errorf("save question %s: %w", q.ID, err)
	}
	return nil
}

// Delete removes a question owned by ownerID. Sessions already holding
// the question keep their own copy.
func (b *Bank) Delete(ctx context.Context, id, ownerID string) error {
	if err := b.checkOwner(ctx, id, ownerID); err != nil {
		return err
	}
	if err := b.store.Delete(ctx, question.Collection, id); err != nil {
		return fmt.Errorf("delete question %s: %w", id, err)
	}
	return nil
}

func (b *Bank) checkOwner(ctx context.Context, id, ownerID string) error {
	existing, err := b.Get(ctx, id)
	if err != nil {
		return err
	}
	if existing.OwnerID != "" && existing.OwnerID != ownerID {
		return fmt.Errorf("%w: %s", ErrNotOwner, id)
	}
	return nil
}

// SaveSubject writes a subject and refreshes its cached display name.
func (b *Bank) SaveSubject(ctx context.Context, s question.Subject) error {
	if s.ID == "" {
		return fmt.Errorf("save subject: missing id")
	}
	if err := b.store.Put(ctx, question.SubjectCollection, s.Document()); err != nil {
		return fmt.Errorf("save subject %s: %w", s.ID, err)
	}
	return b.names.SetNames(ctx, question.SubjectCollection, map[string]string{s.ID: s.Name})
}

// SaveTopic writes a topic and refreshes its cached display name.
func (b *Bank) SaveTopic(ctx context.Context, t question.Topic) error {
	if t.ID == "" {
		return fmt.Errorf("save topic: missing id")
	}
	if err := b.store.Put(ctx, question.TopicCollection, t.Document()); err != nil {
		return fmt.Errorf("save topic %s: %w", t.ID, err)
	}
	return b.names.SetNames(ctx, question.TopicCollection, map[string]string{t.ID: t.Name})
}
