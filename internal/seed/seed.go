// Package seed loads authored quiz definitions from JSON or YAML.
package seed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/stemsi/quizattempt/internal/model"
	"github.com/stemsi/quizattempt/internal/validator"
	"gopkg.in/yaml.v3"
)

// LoadFile reads a file holding one quiz or a list of them. Files ending in
// .yaml or .yml are parsed as YAML, everything else as JSON.
func LoadFile(path string) ([]*model.Quiz, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return DecodeYAML(f)
	default:
		return Decode(f)
	}
}

// Decode parses and validates JSON quiz definitions.
func Decode(r io.Reader) ([]*model.Quiz, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	raw = bytes.TrimSpace(raw)

	var defs []model.SeedQuiz
	if len(raw) > 0 && raw[0] == '[' {
		err = json.Unmarshal(raw, &defs)
	} else {
		var one model.SeedQuiz
		err = json.Unmarshal(raw, &one)
		defs = []model.SeedQuiz{one}
	}
	if err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	return build(defs)
}

// DecodeYAML parses and validates YAML quiz definitions. The document is
// either one quiz mapping or a sequence of them.
func DecodeYAML(r io.Reader) ([]*model.Quiz, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, fmt.Errorf("decode seed: empty document")
	}

	var defs []model.SeedQuiz
	root := doc.Content[0]
	if root.Kind == yaml.SequenceNode {
		if err := root.Decode(&defs); err != nil {
			return nil, fmt.Errorf("decode seed: %w", err)
		}
	} else {
		var one model.SeedQuiz
		if err := root.Decode(&one); err != nil {
			return nil, fmt.Errorf("decode seed: %w", err)
		}
		defs = []model.SeedQuiz{one}
	}
	return build(defs)
}

func build(defs []model.SeedQuiz) ([]*model.Quiz, error) {
	quizzes := make([]*model.Quiz, 0, len(defs))
	for i := range defs {
		if err := Validate(&defs[i]); err != nil {
			return nil, fmt.Errorf("quiz %d (%q): %w", i, defs[i].Title, err)
		}
		quizzes = append(quizzes, defs[i].Build())
	}
	return quizzes, nil
}

// Validate applies the field rules plus the per-type correctness rules:
// exclusive questions need exactly one correct option, true/false questions
// exactly two options, and multiple choice at least one correct option.
func Validate(def *model.SeedQuiz) error {
	if fields := validator.Struct(def); fields != nil {
		return fmt.Errorf("invalid fields: %s", joinFields(fields))
	}
	for i, q := range def.Questions {
		correct := 0
		for _, o := range q.Options {
			if o.IsCorrect {
				correct++
			}
		}
		switch {
		case q.Type == model.QuestionTypeTrueFalse && len(q.Options) != 2:
			return fmt.Errorf("question %d: true/false needs exactly 2 options", i)
		case q.Type.Exclusive() && correct != 1:
			return fmt.Errorf("question %d: needs exactly 1 correct option, has %d", i, correct)
		case correct == 0:
			return fmt.Errorf("question %d: needs at least 1 correct option", i)
		}
	}
	return nil
}

func joinFields(fields map[string]string) string {
	parts := make([]string, 0, len(fields))
	for k, v := range fields {
		parts = append(parts, k+": "+v)
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}
