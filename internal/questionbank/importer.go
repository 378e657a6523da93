package questionbank

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/mod/semver"

	"github.com/abhisek/examprep/internal/docstore"
	"github.com/abhisek/examprep/internal/question"
)

// SupportedFormat is the major version of the bank file format this
// build reads.
const SupportedFormat = "v1"

// ErrUnsupportedFormat is returned for bank files of another major version.
var ErrUnsupportedFormat = errors.New("unsupported question bank format")

// bankFileSchema describes an importable question bank file. Question
// items use the stored document shape, so legacy fields are accepted.
var bankFileSchema = map[string]any{
	"type":     "object",
	"required": []any{"formatVersion", "questions"},
	"properties": map[string]any{
		"formatVersion": map[string]any{"type": "string", "minLength": 1},
		"owner":         map[string]any{"type": "string"},
		"subjects": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []any{"id", "name"},
				"properties": map[string]any{
					"id":   map[string]any{"type": "string", "minLength": 1},
					"name": map[string]any{"type": "string"},
				},
			},
		},
		"topics": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []any{"id", "name"},
				"properties": map[string]any{
					"id":        map[string]any{"type": "string", "minLength": 1},
					"name":      map[string]any{"type": "string"},
					"subjectId": map[string]any{"type": "string"},
				},
			},
		},
		"questions": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []any{"id", "topicId"},
				"properties": map[string]any{
					"id":            map[string]any{"type": "string", "minLength": 1},
					"topicId":       map[string]any{"type": "string", "minLength": 1},
					"type":          map[string]any{"type": "string"},
					"options":       map[string]any{"type": "array", "items": map[string]any{"type": []any{"string", "number"}}},
					"correctAnswer": map[string]any{"type": []any{"string", "number"}},
					"accessLevel":   map[string]any{"type": "string"},
				},
			},
		},
	},
}

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func bankSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		// The compiler wants a generic JSON value; round-trip the literal.
		b, err := json.Marshal(bankFileSchema)
		if err != nil {
			compileErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		var doc any
		if err := json.Unmarshal(b, &doc); err != nil {
			compileErr = fmt.Errorf("parse schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		const url = "schema://question-bank.json"
		if err := c.AddResource(url, doc); err != nil {
			compileErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile(url)
	})
	return compiledSchema, compileErr
}

// ImportResult summarises an import.
type ImportResult struct {
	Subjects  int
	Topics    int
	Questions int

	// Skipped holds one line per question that failed validation.
	Skipped []string
}

type bankFile struct {
	FormatVersion string           `json:"formatVersion"`
	Owner         string           `json:"owner"`
	Subjects      []subjectItem    `json:"subjects"`
	Topics        []topicItem      `json:"topics"`
	Questions     []map[string]any `json:"questions"`
}

type subjectItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type topicItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SubjectID string `json:"subjectId"`
}

// Import loads a question bank file. The whole file must match the
// schema and a supported format version; individual questions that fail
// authoring validation are skipped and listed in the result.
func (b *Bank) Import(ctx context.Context, r io.Reader) (ImportResult, error) {
	var res ImportResult

	raw, err := io.ReadAll(r)
	if err != nil {
		return res, fmt.Errorf("read bank file: %w", err)
	}

	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return res, fmt.Errorf("parse bank file: %w", err)
	}
	schema, err := bankSchema()
	if err != nil {
		return res, fmt.Errorf("compile bank schema: %w", err)
	}
	if err := schema.Validate(parsed); err != nil {
		return res, fmt.Errorf("bank file does not match schema: %w", err)
	}

	var file bankFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return res, fmt.Errorf("decode bank file: %w", err)
	}
	if err := checkFormat(file.FormatVersion); err != nil {
		return res, err
	}

	for _, s := range file.Subjects {
		if err := b.SaveSubject(ctx, question.Subject{ID: s.ID, Name: s.Name}); err != nil {
			return res, err
		}
		res.Subjects++
	}
	for _, t := range file.Topics {
		if err := b.SaveTopic(ctx, question.Topic{ID: t.ID, Name: t.Name, SubjectID: t.SubjectID}); err != nil {
			return res, err
		}
		res.Topics++
	}

	for _, item := range file.Questions {
		id, _ := item["id"].(string)
		delete(item, "id")
		if file.Owner != "" {
			if _, ok := item[question.FieldOwner]; !ok {
				item[question.FieldOwner] = file.Owner
			}
		}

		q, err := question.FromDocument(docstore.Document{ID: id, Data: item})
		if err != nil {
			res.Skipped = append(res.Skipped, fmt.Sprintf("%s: %v", id, err))
			continue
		}
		if err := b.Save(ctx, q); err != nil {
			if errors.Is(err, question.ErrInvalid) || errors.Is(err, ErrNotOwner) {
				res.Skipped = append(res.Skipped, fmt.Sprintf("%s: %v", id, err))
				continue
			}
			return res, err
		}
		res.Questions++
	}
	return res, nil
}

// checkFormat accepts any v1.x.y version string, with or without the
// leading "v".
func checkFormat(v string) error {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return fmt.Errorf("%w: %q is not a semantic version", ErrUnsupportedFormat, v)
	}
	if semver.Major(v) != SupportedFormat {
		return fmt.Errorf("%w: %s (this build reads %s.x)", ErrUnsupportedFormat, v, SupportedFormat)
	}
	return nil
}
