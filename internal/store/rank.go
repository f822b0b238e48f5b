package store

import (
	"errors"
	"strings"
)

const rankAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// rankBase is one past the largest digit; it stands in for an open upper bound.
const rankBase = len(rankAlphabet)

var (
	ErrRankOrder   = errors.New("order keys require lower < upper")
	ErrRankNoSpace = errors.New("no space between order keys")
	ErrRankInvalid = errors.New("invalid order key character")
)

func rankDigit(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'z':
		return 10 + int(c-'a'), true
	default:
		return 0, false
	}
}

func rankChar(d int) byte {
	if d < 0 {
		d = 0
	}
	if d > rankBase-1 {
		d = rankBase - 1
	}
	return rankAlphabet[d]
}

func normalizeRank(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func checkRank(s string) error {
	for i := 0; i < len(s); i++ {
		if _, ok := rankDigit(s[i]); !ok {
			return ErrRankInvalid
		}
	}
	return nil
}

// CheckKey reports whether s is a non-empty, normalized order key.
func CheckKey(s string) error {
	if s == "" || normalizeRank(s) != s {
		return ErrRankInvalid
	}
	return checkRank(s)
}

// KeyBetween returns an order key strictly between lower and upper.
// Either bound may be empty, meaning "no limit in that direction".
//
// Keys are lowercase base36 strings compared lexicographically. Generated keys never end
// in '0', so there is always room to insert below any key this function produced.
func KeyBetween(lower, upper string) (string, error) {
	lower = normalizeRank(lower)
	upper = normalizeRank(upper)
	if err := checkRank(lower); err != nil {
		return "", err
	}
	if err := checkRank(upper); err != nil {
		return "", err
	}
	if upper != "" && !(lower < upper) {
		return "", ErrRankOrder
	}
	return midpoint(lower, upper)
}

// midpoint assumes validated, normalized input with lower < upper (or upper open).
func midpoint(lower, upper string) (string, error) {
	prefix := make([]byte, 0, len(lower)+2)
	for i := 0; ; i++ {
		dl := 0
		if i < len(lower) {
			dl, _ = rankDigit(lower[i])
		}
		du := rankBase
		if upper != "" {
			if i >= len(upper) {
				// upper == lower padded with '0's: nothing sorts strictly between them.
				return "", ErrRankNoSpace
			}
			du, _ = rankDigit(upper[i])
		}

		if dl == du {
			prefix = append(prefix, rankChar(dl))
			continue
		}
		if du-dl > 1 {
			prefix = append(prefix, rankChar(dl+(du-dl)/2))
			return string(prefix), nil
		}

		// Adjacent digits: keep lower's digit and continue above lower's remainder with
		// an open upper bound; anything with this prefix is already < upper.
		prefix = append(prefix, rankChar(dl))
		rest := ""
		if i+1 < len(lower) {
			rest = lower[i+1:]
		}
		tail, err := midpoint(rest, "")
		if err != nil {
			return "", err
		}
		return string(prefix) + tail, nil
	}
}

// KeysBetween returns n ascending keys, all strictly between lower and upper.
// Keys are produced by recursive midpoint splitting so the added length is O(log n).
func KeysBetween(lower, upper string, n int) ([]string, error) {
	if n <= 0 {
		return []string{}, nil
	}
	lower = normalizeRank(lower)
	upper = normalizeRank(upper)
	if n == 1 {
		k, err := KeyBetween(lower, upper)
		if err != nil {
			return nil, err
		}
		return []string{k}, nil
	}
	mid, err := KeyBetween(lower, upper)
	if err != nil {
		return nil, err
	}
	left := (n - 1) / 2
	before, err := KeysBetween(lower, mid, left)
	if err != nil {
		return nil, err
	}
	after, err := KeysBetween(mid, upper, n-1-left)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, n)
	out = append(out, before...)
	out = append(out, mid)
	out = append(out, after...)
	return out, nil
}

func KeyAfter(lower string) (string, error)  { return KeyBetween(lower, "") }
func KeyBefore(upper string) (string, error) { return KeyBetween("", upper) }
func KeyInitial() (string, error)            { return KeyBetween("", "") }

// KeyBetweenUnique returns a key between lower and upper that is not already present in existing.
//
// existing keys should be normalized (lowercase + trimmed).
func KeyBetweenUnique(existing map[string]bool, lower, upper string) (string, error) {
	if existing == nil {
		existing = map[string]bool{}
	}
	// Each iteration tightens the lower bound, so every candidate differs from the last.
	curLower := normalizeRank(lower)
	for i := 0; i < 256; i++ {
		r, err := KeyBetween(curLower, upper)
		if err != nil {
			return "", err
		}
		if !existing[r] {
			return r, nil
		}
		curLower = r
	}
	return "", errors.New("unable to find unique order key")
}
