package linker

import (
	"testing"

	"github.com/latticedocs/lattice/internal/types"
)

func testNodes() []types.GraphNode {
	return []types.GraphNode{
		{ID: "hub", Label: "Hub Concept"},
		{ID: "septic-shock", Label: "Septic Shock", Synonyms: []string{"distributive shock"}},
		{ID: "lactate", Label: "Lactate"},
	}
}

func TestNewIndex_LabelsAndIDs(t *testing.T) {
	idx := NewIndex(testNodes())

	cases := []struct {
		text string
		want string
	}{
		{"Hub Concept", "hub"},
		{"hub concept", "hub"},
		{"hub", "hub"},
		{"septic-shock", "septic-shock"},
		{"Septic Shock", "septic-shock"},
		{"distributive shock", "septic-shock"},
	}
	for _, tc := range cases {
		id, ok := idx.Resolve(tc.text)
		if !ok {
			t.Errorf("Resolve(%q): not found", tc.text)
			continue
		}
		if id != tc.want {
			t.Errorf("Resolve(%q) = %q, want %q", tc.text, id, tc.want)
		}
	}

	if _, ok := idx.Resolve("unknown term"); ok {
		t.Error("unknown term should not resolve")
	}
}

func TestLink_BareTermsInBody(t *testing.T) {
	idx := NewIndex(testNodes())

	got := Link("Elevated lactate suggests septic shock.", idx)
	want := "Elevated [lactate](#lactate) suggests [septic shock](#septic-shock)."
	if got != want {
		t.Errorf("got %q\nwant %q", got, want)
	}
}

func TestLink_LongestFormWins(t *testing.T) {
	idx := NewIndex(testNodes())

	// "Hub Concept" must match as a whole, not as the shorter "hub".
	got := Link("The Hub Concept anchors the map.", idx)
	want := "The [Hub Concept](#hub) anchors the map."
	if got != want {
		t.Errorf("got %q\nwant %q", got, want)
	}

	// Bare "hub" still resolves on its own.
	got = Link("the hub itself", idx)
	want = "the [hub](#hub) itself"
	if got != want {
		t.Errorf("got %q\nwant %q", got, want)
	}
}

func TestLink_HeadingsOnlyResolveBrackets(t *testing.T) {
	idx := NewIndex(testNodes())

	// Bare terms in headings stay untouched.
	got := Link("## Septic Shock Management", idx)
	if got != "## Septic Shock Management" {
		t.Errorf("heading altered: %q", got)
	}

	// Bracketed text in headings resolves.
	got = Link("## [Septic Shock] Management", idx)
	want := "## [Septic Shock](#septic-shock) Management"
	if got != want {
		t.Errorf("got %q\nwant %q", got, want)
	}
}

func TestLink_UnresolvedBracketsStripped(t *testing.T) {
	idx := NewIndex(testNodes())

	got := Link("Consider [Random Syndrome] here.", idx)
	want := "Consider Random Syndrome here."
	if got != want {
		t.Errorf("got %q\nwant %q", got, want)
	}

	got = Link("## About [Random Syndrome]", idx)
	want = "## About Random Syndrome"
	if got != want {
		t.Errorf("got %q\nwant %q", got, want)
	}
}

func TestLink_StrippedBracketsStillLinkKnownTerms(t *testing.T) {
	idx := NewIndex(testNodes())

	// The bracketed text as a whole does not resolve, but the known
	// label inside it must still link once the brackets are gone.
	got := Link("Consider [Hub Concept variant] carefully.", idx)
	want := "Consider [Hub Concept](#hub) variant carefully."
	if got != want {
		t.Errorf("got %q\nwant %q", got, want)
	}
	if twice := Link(got, idx); twice != got {
		t.Errorf("not idempotent:\nonce  %q\ntwice %q", got, twice)
	}

	// Headings never link bare terms, stripped or not.
	got = Link("## [Hub Concept variant] Overview", idx)
	want = "## Hub Concept variant Overview"
	if got != want {
		t.Errorf("got %q\nwant %q", got, want)
	}
	if twice := Link(got, idx); twice != got {
		t.Errorf("heading not idempotent:\nonce  %q\ntwice %q", got, twice)
	}
}

func TestLink_EmphasisAdjacentTerm(t *testing.T) {
	idx := NewIndex(testNodes())

	got := Link("The **hub** concept ties the sections together.", idx)
	want := "The **[hub](#hub)** concept ties the sections together."
	if got != want {
		t.Errorf("got %q\nwant %q", got, want)
	}
	if twice := Link(got, idx); twice != got {
		t.Errorf("not idempotent:\nonce  %q\ntwice %q", got, twice)
	}
}

func TestLink_ExistingLinksUntouched(t *testing.T) {
	idx := NewIndex(testNodes())

	in := "See [lactate](https://example.org/lactate) and [hub](#hub)."
	if got := Link(in, idx); got != in {
		t.Errorf("existing links altered:\ngot  %q\nwant %q", got, in)
	}
}

func TestLink_Idempotent(t *testing.T) {
	idx := NewIndex(testNodes())

	in := "Elevated lactate with septic shock around the Hub Concept.\n" +
		"## [Hub Concept] Overview\n" +
		"Also [Random Syndrome] and plain prose."
	once := Link(in, idx)
	twice := Link(once, idx)
	if once != twice {
		t.Errorf("not idempotent:\nonce  %q\ntwice %q", once, twice)
	}
}

func TestLink_EmptyIndex(t *testing.T) {
	in := "Nothing [to] see."
	if got := Link(in, NewIndex(nil)); got != in {
		t.Errorf("empty index should be a no-op, got %q", got)
	}
}
