package textdiff

import (
	"reflect"
	"strings"
	"testing"

	"policywatch/types"
)

func TestSplitSentences(t *testing.T) {
	got := SplitSentences("Ads must disclose funding. Contact us for help.\nNew line here. Short? Ok!")
	want := []string{
		"Ads must disclose funding.",
		"Contact us for help.",
		"New line here.",
		"Short?",
		"Ok!",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SplitSentences = %q, want %q", got, want)
	}
}

func TestSplitSentencesDropsShortFragments(t *testing.T) {
	got := SplitSentences("Real sentence here. - ")
	if len(got) != 1 || got[0] != "Real sentence here." {
		t.Fatalf("got %q, want only the real sentence", got)
	}
}

func TestSplitSentencesNbsp(t *testing.T) {
	got := SplitSentences("First sentence here. Second sentence here.")
	want := []string{"First sentence here.", "Second sentence here."}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("nbsp separator not treated as whitespace: %q", got)
	}
}

func TestSplitSentencesEmpty(t *testing.T) {
	if got := SplitSentences("   "); got != nil {
		t.Fatalf("expected nil for blank input, got %q", got)
	}
}

func TestRatio(t *testing.T) {
	if r := Ratio("abc", "abc"); r != 1.0 {
		t.Errorf("identical strings: ratio = %f, want 1.0", r)
	}
	if r := Ratio("abc", "xyz"); r != 0.0 {
		t.Errorf("disjoint strings: ratio = %f, want 0.0", r)
	}
	if r := Ratio("", ""); r != 1.0 {
		t.Errorf("two empty strings: ratio = %f, want 1.0", r)
	}
	// "abcd" vs "bcde": common block "bcd" -> 2*3/8
	if r := Ratio("abcd", "bcde"); r != 0.75 {
		t.Errorf("ratio = %f, want 0.75", r)
	}
}

func TestPairSentencesModification(t *testing.T) {
	oldSents := SplitSentences("Ads must disclose funding. Contact us for help.")
	newSents := SplitSentences("Ads must disclose funding source. Contact us for help.")

	pairs, removed, added := PairSentences(oldSents, newSents, 0.0)

	if len(pairs) != 1 {
		t.Fatalf("expected 1 pair, got %d (%v)", len(pairs), pairs)
	}
	if pairs[0].Was != "Ads must disclose funding." || pairs[0].Now != "Ads must disclose funding source." {
		t.Errorf("unexpected pair: %+v", pairs[0])
	}
	// The identical sentence must appear in neither added nor removed.
	if len(removed) != 0 || len(added) != 0 {
		t.Errorf("expected no leftovers, got removed=%v added=%v", removed, added)
	}
}

func TestPairSentencesLeftovers(t *testing.T) {
	pairs, removed, added := PairSentences(
		[]string{"Old only sentence."},
		[]string{"Completely different words entirely?!"},
		0.0,
	)
	// Shared letters give a positive score, so the default threshold pairs them.
	if len(pairs) != 1 {
		t.Fatalf("expected the positive-score pair, got pairs=%v removed=%v added=%v", pairs, removed, added)
	}

	// With a high threshold the same inputs become remove+add.
	pairs, removed, added = PairSentences(
		[]string{"Old only sentence."},
		[]string{"Completely different words entirely?!"},
		0.9,
	)
	if len(pairs) != 0 || len(removed) != 1 || len(added) != 1 {
		t.Fatalf("expected leftovers above threshold, got pairs=%v removed=%v added=%v", pairs, removed, added)
	}
}

func TestPairSentencesDeterministic(t *testing.T) {
	oldSents := []string{"alpha beta gamma.", "delta epsilon zeta.", "eta theta iota."}
	newSents := []string{"alpha beta gamma delta.", "delta epsilon zeta eta.", "brand new content here."}

	first, fRem, fAdd := PairSentences(oldSents, newSents, 0.0)
	for i := 0; i < 50; i++ {
		pairs, rem, add := PairSentences(oldSents, newSents, 0.0)
		if !reflect.DeepEqual(pairs, first) || !reflect.DeepEqual(rem, fRem) || !reflect.DeepEqual(add, fAdd) {
			t.Fatalf("pairing not deterministic on iteration %d", i)
		}
	}
}

func TestClipLine(t *testing.T) {
	if got := ClipLine("short", 10); got != "short" {
		t.Errorf("ClipLine should not touch short input, got %q", got)
	}
	long := strings.Repeat("x", 900)
	got := ClipLine(long, ClipLimit)
	if len([]rune(got)) != ClipLimit {
		t.Errorf("clipped length = %d, want %d", len([]rune(got)), ClipLimit)
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("clipped line must end with ellipsis")
	}
}

func TestStructuralDiff(t *testing.T) {
	oldSecs := []types.Section{
		{ID: "intro", Sig: "s1"},
		{ID: "rules", Sig: "s2"},
		{ID: "contact", Sig: "s3"},
	}
	newSecs := []types.Section{
		{ID: "intro", Sig: "s1"},
		{ID: "rules", Sig: "s2-changed"},
		{ID: "fees", Sig: "s4"},
	}

	added, removed, modified := StructuralDiff(oldSecs, newSecs)
	if !reflect.DeepEqual(added, []string{"fees"}) {
		t.Errorf("added = %v, want [fees]", added)
	}
	if !reflect.DeepEqual(removed, []string{"contact"}) {
		t.Errorf("removed = %v, want [contact]", removed)
	}
	if !reflect.DeepEqual(modified, []string{"rules"}) {
		t.Errorf("modified = %v, want [rules]", modified)
	}
}

func TestStructuralDiffFirstSeen(t *testing.T) {
	newSecs := []types.Section{{ID: "intro", Sig: "a"}, {ID: "fees", Sig: "b"}}
	added, removed, modified := StructuralDiff(nil, newSecs)
	if !reflect.DeepEqual(added, []string{"intro", "fees"}) {
		t.Errorf("added = %v, want all current ids", added)
	}
	if len(removed) != 0 || len(modified) != 0 {
		t.Errorf("removed=%v modified=%v, want empty", removed, modified)
	}
}

func TestChanged(t *testing.T) {
	prev := &types.CachedItem{Hash: "h1", Sections: []types.Section{{ID: "intro", Sig: "s1"}}}

	if Changed(prev, "h1", nil, nil, nil) {
		t.Error("identical signature and sections must not count as changed")
	}
	if !Changed(nil, "h1", nil, nil, nil) {
		t.Error("absent previous item must count as changed")
	}
	if !Changed(prev, "h2", nil, nil, nil) {
		t.Error("page signature mismatch must count as changed")
	}
	if !Changed(prev, "h1", []string{"fees"}, nil, nil) {
		t.Error("added section must count as changed")
	}
}

func TestSentenceDiffUnchangedExcluded(t *testing.T) {
	d := SentenceDiff(
		"First sentence here. Second sentence here.",
		"First sentence here. Second sentence here.",
		0.0,
	)
	if len(d.Changed) != 0 || len(d.Added) != 0 || len(d.Removed) != 0 {
		t.Fatalf("identical texts should diff empty, got %+v", d)
	}
}
