package planning

import "testing"

func TestComplexityBounded(t *testing.T) {
	e := NewComplexityEstimator()
	goals := []string{
		"Read a file",
		"List all directories and count files in each one",
		"Execute a complex pipeline with grep, sed, awk, and multiple files",
	}
	for _, g := range goals {
		c := e.Estimate(g, nil)
		if c < 0 || c > 1 {
			t.Fatalf("complexity out of bounds for %q: %f", g, c)
		}
	}
}

func TestSimpleGoalIsLowComplexity(t *testing.T) {
	e := NewComplexityEstimator()
	c := e.Estimate("Read the file config.txt", nil)
	if c >= 0.3 {
		t.Fatalf("expected simple goal, got complexity %f", c)
	}
}

func TestComplexGoalIsHighComplexity(t *testing.T) {
	e := NewComplexityEstimator()
	c := e.Estimate("Find all Python files, count lines of code, analyze complexity, and generate a report with statistics for each file", nil)
	if c < 0.4 {
		t.Fatalf("expected medium-to-complex goal, got complexity %f", c)
	}
}

func TestClassify(t *testing.T) {
	e := NewComplexityEstimator()
	if e.Classify(0.2) != ComplexitySimple {
		t.Fatal("expected simple")
	}
	if e.Classify(0.5) != ComplexityMedium {
		t.Fatal("expected medium")
	}
	if e.Classify(0.8) != ComplexityComplex {
		t.Fatal("expected complex")
	}
}

func TestToolCountMonotoneInKeywordCount(t *testing.T) {
	simple := estimateToolCount("Read file.txt")
	complex := estimateToolCount("Read, write, list, run, fetch all files")
	if complex <= simple {
		t.Fatalf("expected complex %f > simple %f", complex, simple)
	}
}

func TestAmbiguityVagueHigherThanClear(t *testing.T) {
	clear := estimateAmbiguity("Read /home/user/config.txt")
	vague := estimateAmbiguity("Maybe try to somehow read some file")
	if vague <= clear {
		t.Fatalf("expected vague %f > clear %f", vague, clear)
	}
}
