package textdiff

import (
	"policywatch/types"
)

// PairSentences pairs old sentences with their most similar new counterpart.
// Sentences present verbatim on both sides are unchanged and excluded
// entirely. Each remaining old sentence greedily claims the best still
// unclaimed new sentence by Ratio; ties keep the first-encountered
// candidate, so the output is deterministic. A pair is accepted when its
// score exceeds threshold. Leftovers are reported as removed and added.
//
// This is intentionally O(n*m) per comparison scope; scopes are single
// documents or sections, so simplicity wins over asymptotics.
func PairSentences(oldSents, newSents []string, threshold float64) (pairs []types.SentencePair, removed, added []string) {
	same := make(map[string]bool)
	oldSet := make(map[string]bool, len(oldSents))
	for _, s := range oldSents {
		oldSet[s] = true
	}
	for _, s := range newSents {
		if oldSet[s] {
			same[s] = true
		}
	}

	var oldOnly, newOnly []string
	for _, s := range oldSents {
		if !same[s] {
			oldOnly = append(oldOnly, s)
		}
	}
	for _, s := range newSents {
		if !same[s] {
			newOnly = append(newOnly, s)
		}
	}

	usedNew := make(map[int]bool)
	pairedOld := make(map[string]bool)
	pairedNew := make(map[string]bool)
	for _, oldS := range oldOnly {
		bestJ := -1
		bestScore := 0.0
		for j, newS := range newOnly {
			if usedNew[j] {
				continue
			}
			if score := Ratio(oldS, newS); score > bestScore {
				bestScore = score
				bestJ = j
			}
		}
		if bestJ >= 0 && bestScore > threshold {
			pairs = append(pairs, types.SentencePair{Was: oldS, Now: newOnly[bestJ]})
			usedNew[bestJ] = true
			pairedOld[oldS] = true
			pairedNew[newOnly[bestJ]] = true
		}
	}

	for _, s := range oldOnly {
		if !pairedOld[s] {
			removed = append(removed, s)
		}
	}
	for _, s := range newOnly {
		if !pairedNew[s] {
			added = append(added, s)
		}
	}
	return pairs, removed, added
}

// SentenceDiff splits both texts and returns the clipped pairing result.
func SentenceDiff(oldText, newText string, threshold float64) types.SentenceDiff {
	pairs, removed, added := PairSentences(SplitSentences(oldText), SplitSentences(newText), threshold)

	diff := types.SentenceDiff{}
	for _, p := range pairs {
		diff.Changed = append(diff.Changed, types.SentencePair{
			Was: ClipLine(p.Was, ClipLimit),
			Now: ClipLine(p.Now, ClipLimit),
		})
	}
	for _, s := range removed {
		diff.Removed = append(diff.Removed, ClipLine(s, ClipLimit))
	}
	for _, s := range added {
		diff.Added = append(diff.Added, ClipLine(s, ClipLimit))
	}
	return diff
}

// StructuralDiff compares section id sets. modified holds ids present on
// both sides whose signature changed. Result order follows the side the
// ids came from: added follows new section order, removed old order.
func StructuralDiff(oldSecs, newSecs []types.Section) (added, removed, modified []string) {
	oldByID := make(map[string]types.Section, len(oldSecs))
	for _, s := range oldSecs {
		oldByID[s.ID] = s
	}
	newByID := make(map[string]types.Section, len(newSecs))
	for _, s := range newSecs {
		newByID[s.ID] = s
	}

	seenNew := make(map[string]bool)
	for _, s := range newSecs {
		if seenNew[s.ID] {
			continue
		}
		seenNew[s.ID] = true
		old, ok := oldByID[s.ID]
		switch {
		case !ok:
			added = append(added, s.ID)
		case old.Sig != newByID[s.ID].Sig:
			modified = append(modified, s.ID)
		}
	}
	seenOld := make(map[string]bool)
	for _, s := range oldSecs {
		if seenOld[s.ID] {
			continue
		}
		seenOld[s.ID] = true
		if _, ok := newByID[s.ID]; !ok {
			removed = append(removed, s.ID)
		}
	}
	return added, removed, modified
}

// Changed reports whether the page must be treated as changed: any
// structural difference, a page signature mismatch, or no previous item
// at all (first-seen always counts as changed).
func Changed(previous *types.CachedItem, pageSig string, added, removed, modified []string) bool {
	if previous == nil {
		return true
	}
	if len(added) > 0 || len(removed) > 0 || len(modified) > 0 {
		return true
	}
	return previous.Hash != pageSig
}
