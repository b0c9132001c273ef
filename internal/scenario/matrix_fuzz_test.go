package scenario

import (
	"testing"

	fuzz "github.com/AdaLogics/go-fuzz-headers"
	"gopkg.in/yaml.v3"
)

// FuzzParseMatrix checks that whatever ParseMatrix accepts is a valid matrix.
func FuzzParseMatrix(f *testing.F) {
	f.Add([]byte("scenarios:\n  - action: enable\n    enabled: true\n    text: \"8-9 days\"\n"))
	f.Add([]byte("scenarios:\n  - action: disable\n    enabled: false\n"))
	f.Add([]byte("scenarios: {}"))

	f.Fuzz(func(t *testing.T, data []byte) {
		m, err := ParseMatrix(data)
		if err != nil {
			return
		}
		assertValidMatrix(t, m)
	})
}

// FuzzMatrixEntries builds structured matrix documents from fuzz data.
func FuzzMatrixEntries(f *testing.F) {
	f.Fuzz(func(t *testing.T, data []byte) {
		consumer := fuzz.NewConsumer(data)
		var doc matrixFile
		if err := consumer.GenerateStruct(&doc); err != nil {
			return
		}
		raw, err := yaml.Marshal(doc)
		if err != nil {
			return
		}
		m, err := ParseMatrix(raw)
		if err != nil {
			return
		}
		assertValidMatrix(t, m)
	})
}

func assertValidMatrix(t *testing.T, m Matrix) {
	t.Helper()
	if len(m) == 0 {
		t.Fatal("accepted an empty matrix")
	}
	seen := map[string]bool{}
	for i, set := range m {
		if set.Action() == "" {
			t.Fatalf("scenario %d has no action", i)
		}
		if seen[set.Action()] {
			t.Fatalf("duplicate action %q", set.Action())
		}
		seen[set.Action()] = true
		if set.Enabled() == (set.ExpectedText() == "") {
			t.Fatalf("scenario %d: enabled=%v with text %q", i, set.Enabled(), set.ExpectedText())
		}
	}
}
