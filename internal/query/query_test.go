package query

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/spigell/opportunity-matcher/internal/ai"
)

type fixedEmbedder struct {
	vectors [][]float32
	err     error
	texts   []string
}

func (f *fixedEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.texts = texts
	return f.vectors, f.err
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{input: "Seeking robotics engineer with Python, ROS experience", want: []string{"seeking", "robotics", "engineer", "with", "python", "ros", "experience"}},
		{input: "C++ and C#. (SolidWorks)", want: []string{"c++", "and", "c#", "solidworks"}},
		{input: "ＡＩ  researcher", want: []string{"ai", "researcher"}},
		{input: " -- ", want: []string{}},
	}

	for _, tt := range tests {
		if got := Tokenize(tt.input); !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("Tokenize(%q) = %#v, want %#v", tt.input, got, tt.want)
		}
	}
}

func TestClassifyRoboticsDescription(t *testing.T) {
	encoder := NewEncoder(nil, Vocabulary{}, nil)

	q, err := encoder.Classify("Seeking robotics engineer with Python, ROS experience")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := q.RequiredSkills.Sorted(); !reflect.DeepEqual(got, []string{"robotics"}) {
		t.Fatalf("unexpected skills %v", got)
	}
	if got := q.RequiredTools.Sorted(); !reflect.DeepEqual(got, []string{"python", "ros"}) {
		t.Fatalf("unexpected tools %v", got)
	}
	if got := q.Topics.Sorted(); !reflect.DeepEqual(got, []string{"python"}) {
		t.Fatalf("unexpected topics %v", got)
	}
}

func TestClassifyTopicsMatchWholeWords(t *testing.T) {
	encoder := NewEncoder(nil, Vocabulary{}, nil)

	tests := []struct {
		input string
		want  []string
	}{
		{input: "Mechanical engineer maintaining email servers", want: []string{}},
		{input: "Deep learning researcher", want: []string{"ai"}},
		{input: "ML developer", want: []string{"ai", "python"}},
		{input: "Work on Artificial Intelligence.", want: []string{"ai"}},
		{input: "Machine learning engineer, Python required", want: []string{"ai", "python"}},
		{input: "AI/ML engineer", want: []string{"ai"}},
		{input: "AI-driven products team", want: []string{"ai"}},
		{input: "Machine-learning researcher", want: []string{"ai"}},
		{input: "Seeking developers for backend", want: []string{"python"}},
		{input: "Python3 scripting", want: []string{"python"}},
		{input: "Aim for reliable air systems", want: []string{}},
	}

	for _, tt := range tests {
		q, err := encoder.Classify(tt.input)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := q.Topics.Sorted(); !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("Classify(%q) topics = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestClassifyUsesConfiguredVocabulary(t *testing.T) {
	encoder := NewEncoder(nil, Vocabulary{
		Skills: []string{"Welding"},
		Tools:  []string{"MATLAB"},
		Topics: map[string][]string{"Controls": {"control theory"}},
	}, nil)

	q, err := encoder.Classify("Welding lead who knows MATLAB and control theory; Python a plus")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !q.RequiredSkills.Has("welding") || !q.RequiredTools.Has("matlab") || q.RequiredTools.Has("python") {
		t.Fatalf("unexpected keyword sets %v %v", q.RequiredSkills.Sorted(), q.RequiredTools.Sorted())
	}
	if !reflect.DeepEqual(q.Topics.Sorted(), []string{"controls"}) {
		t.Fatalf("unexpected topics %v", q.Topics.Sorted())
	}
}

func TestEncodeRejectsEmptyInputBeforeEmbedding(t *testing.T) {
	embedder := &fixedEmbedder{vectors: [][]float32{{1}}}
	encoder := NewEncoder(embedder, Vocabulary{}, nil)

	for _, input := range []string{"", "   ", "\n\t"} {
		_, err := encoder.Encode(context.Background(), input)
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput for %q, got %v", input, err)
		}
	}
	if embedder.texts != nil {
		t.Fatalf("embedder must not be called for empty input")
	}
}

func TestEncode(t *testing.T) {
	embedder := &fixedEmbedder{vectors: [][]float32{{0.1, 0.2}}}
	encoder := NewEncoder(embedder, Vocabulary{}, nil)

	q, err := encoder.Encode(context.Background(), "  robotics engineer  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if q.Raw != "robotics engineer" || !reflect.DeepEqual(embedder.texts, []string{"robotics engineer"}) {
		t.Fatalf("expected trimmed text to be embedded, got %q / %v", q.Raw, embedder.texts)
	}
	if !reflect.DeepEqual(q.Embedding, []float32{0.1, 0.2}) {
		t.Fatalf("unexpected embedding %v", q.Embedding)
	}
}

func TestEncodeEmbeddingFailures(t *testing.T) {
	tests := []struct {
		name     string
		embedder ai.Embedder
	}{
		{name: "no embedder", embedder: nil},
		{name: "no vectors", embedder: &fixedEmbedder{}},
		{name: "empty vector", embedder: &fixedEmbedder{vectors: [][]float32{{}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEncoder(tt.embedder, Vocabulary{}, nil).Encode(context.Background(), "robotics")
			if !errors.Is(err, ai.ErrEmbedding) {
				t.Fatalf("expected ai.ErrEmbedding, got %v", err)
			}
		})
	}

	boom := errors.New("boom")
	_, err := NewEncoder(&fixedEmbedder{err: boom}, Vocabulary{}, nil).Encode(context.Background(), "robotics")
	if !errors.Is(err, boom) {
		t.Fatalf("expected embedder error to be wrapped, got %v", err)
	}
}

func TestTermSetCountIn(t *testing.T) {
	set := NewTermSet("Python", "ROS")
	if got := set.CountIn([]string{"python", "python", "cad", "ros"}); got != 2 {
		t.Fatalf("expected 2 distinct matches, got %d", got)
	}
	if got := NewTermSet().CountIn([]string{"python"}); got != 0 {
		t.Fatalf("expected 0 for an empty set, got %d", got)
	}
}
