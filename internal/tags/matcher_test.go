package tags

import (
	"reflect"
	"testing"

	"pgregory.net/rapid"
)

func TestMatchesOrOfAndGroups(t *testing.T) {
	t.Parallel()

	expr := Expression{{"a", "b"}, {"c"}}

	cases := []struct {
		name      string
		available []string
		want      bool
	}{
		{name: "only a is not enough", available: []string{"a"}, want: false},
		{name: "a and b satisfy the group", available: []string{"a", "b"}, want: true},
		{name: "superset of a and b", available: []string{"a", "b", "z"}, want: true},
		{name: "c alone satisfies", available: []string{"c"}, want: true},
		{name: "untagged is excluded", available: nil, want: false},
		{name: "unrelated tag", available: []string{"d"}, want: false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Matches(expr, tc.available); got != tc.want {
				t.Fatalf("Matches(%v, %v) = %v, want %v", expr, tc.available, got, tc.want)
			}
		})
	}
}

func TestEmptyExpressionMatchesEverything(t *testing.T) {
	t.Parallel()

	if !Matches(nil, nil) {
		t.Fatalf("nil expression must match untagged sources")
	}
	if !Matches(Expression{}, []string{"a"}) {
		t.Fatalf("empty expression must match tagged sources")
	}
}

func TestEmptyClauseNeverMatches(t *testing.T) {
	t.Parallel()

	if Matches(Expression{{}}, []string{"a"}) {
		t.Fatalf("an empty clause must not match")
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	got := Parse(" a+b, c  d+ ")
	want := Expression{{"a", "b"}, {"c"}, {"d"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
	if !Parse("  ,  ").Empty() {
		t.Fatalf("blank input must produce an empty expression")
	}
	if Parse("a+b, c").String() != "a+b, c" {
		t.Fatalf("unexpected rendering %q", Parse("a+b, c").String())
	}
}

func TestOrAndConstructors(t *testing.T) {
	t.Parallel()

	if !reflect.DeepEqual(Or("a", " ", "b"), Expression{{"a"}, {"b"}}) {
		t.Fatalf("unexpected Or result %v", Or("a", " ", "b"))
	}
	if !reflect.DeepEqual(And("a", "b"), Expression{{"a", "b"}}) {
		t.Fatalf("unexpected And result %v", And("a", "b"))
	}
	if And() != nil {
		t.Fatalf("And without tokens must be empty")
	}
}

func TestMatchesLaws(t *testing.T) {
	t.Parallel()

	tokenGen := rapid.SampledFrom([]string{"a", "b", "c", "d", "e"})
	rapid.Check(t, func(t *rapid.T) {
		available := rapid.SliceOf(tokenGen).Draw(t, "available")
		clause := Clause(rapid.SliceOfN(tokenGen, 1, 3).Draw(t, "clause"))
		other := Clause(rapid.SliceOfN(tokenGen, 1, 3).Draw(t, "other"))

		// OR across clauses equals the disjunction of each clause alone.
		single := Matches(Expression{clause}, available)
		combined := Matches(Expression{clause, other}, available)
		if combined != (single || Matches(Expression{other}, available)) {
			t.Fatalf("OR law violated for %v | %v over %v", clause, other, available)
		}

		// Adding the clause tokens to the available set always satisfies the clause.
		if !Matches(Expression{clause}, append(append([]string(nil), available...), clause...)) {
			t.Fatalf("superset of clause must match")
		}
	})
}
