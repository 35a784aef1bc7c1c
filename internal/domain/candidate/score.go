package candidate

import (
	"strings"
	"unicode/utf8"

	"github.com/oddsmith/playerident/internal/platform/namekey"
)

// DefaultMinScore is the threshold below which pairs are not surfaced.
const DefaultMinScore = 0.75

// Score rates how likely two normalized player keys refer to the same
// person, in [0, 1], together with the name parts both keys share.
//
// Token overlap forms the base score. Shared surnames and the common
// "initial plus surname" form ("b fernandes" / "bruno fernandes") pull
// the score up, and a whole-string edit-distance ratio catches spelling
// drift that token matching misses.
func Score(keyA, keyB string) (float64, []string) {
	if keyA == "" || keyB == "" {
		return 0, nil
	}
	if keyA == keyB {
		return 1, namekey.Tokens(keyA)
	}

	tokensA := namekey.Tokens(keyA)
	tokensB := namekey.Tokens(keyB)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0, nil
	}

	setA := tokenSet(tokensA)
	setB := tokenSet(tokensB)

	var matching []string
	union := len(setB)
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			matching = append(matching, tok)
		} else {
			union++
		}
	}
	var score float64
	if union > 0 {
		score = float64(len(matching)) / float64(union)
	}

	if len(matching) >= 2 && score < 0.85 {
		score = 0.85
	}

	surnameA := tokensA[len(tokensA)-1]
	surnameB := tokensB[len(tokensB)-1]
	if surnameA == surnameB && utf8.RuneCountInString(surnameA) > 2 {
		if score < 0.80 {
			score = 0.80
		}
		if initialMatch(tokensA[0], tokensB[0]) && score < 0.85 {
			score = 0.85
		}
	}

	if ratio := levenshteinRatio(keyA, keyB); ratio > 0.75 && ratio > score {
		score = ratio
	}

	return score, matching
}

// tokenSet drops single-rune tokens, which are too common to carry
// overlap signal on their own. Initials are handled by initialMatch.
func tokenSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		if utf8.RuneCountInString(tok) > 1 {
			set[tok] = struct{}{}
		}
	}
	return set
}

// initialMatch reports whether one first name is an initial or prefix of
// the other, e.g. "b" vs "bruno".
func initialMatch(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if len(a) > len(b) {
		a, b = b, a
	}
	return strings.HasPrefix(b, a)
}

// HasTeamConflict reports whether the observed team sets rule out a
// merge. Missing team evidence on either side is inconclusive, not a
// conflict.
func HasTeamConflict(teamsA, teamsB []string) bool {
	if len(teamsA) == 0 || len(teamsB) == 0 {
		return false
	}
	seen := make(map[string]struct{}, len(teamsA))
	for _, t := range teamsA {
		seen[t] = struct{}{}
	}
	for _, t := range teamsB {
		if _, ok := seen[t]; ok {
			return false
		}
	}
	return true
}

func levenshteinRatio(a, b string) float64 {
	ra := []rune(a)
	rb := []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein(ra, rb))/float64(longest)
}

func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
