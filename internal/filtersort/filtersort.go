// Package filtersort implements the Filter/Sort Engine: the eight-step
// pipeline that turns a candidate stream set plus a user's
// UserPreferenceVector into a ranked list and a drop-reason histogram the
// caller can surface when the result is empty or smaller than expected.
package filtersort

import (
	"regexp"
	"sort"
	"strings"

	"github.com/mediafusion/core/internal/model"
)

// Reason names one of the drop buckets the histogram tracks, matching
// spec.md §4.4's exact strings (the UI surfaces these verbatim).
type Reason string

const (
	ReasonResolution Reason = "Resolution Not Selected"
	ReasonQuality    Reason = "Quality Not Selected"
	ReasonLanguage   Reason = "Language Not Selected"
	ReasonMinSize    Reason = "Min Size Not Met"
	ReasonMaxSize    Reason = "Max Size Exceeded"
	ReasonNameFilter Reason = "Stream Name Filter"
	ReasonAdult      Reason = "Adult Content"
)

// DropHistogram counts how many candidates were dropped for each reason.
type DropHistogram map[Reason]int

func (h DropHistogram) add(r Reason) { h[r]++ }

// Apply runs the spec.md §4.4 pipeline over streams using prefs, returning
// the ranked survivors and the histogram of why the rest were dropped.
// contextKey is reserved for per-request cache/log correlation by callers;
// filtering itself is a pure function of (streams, prefs).
func Apply(streams []model.Stream, prefs model.UserPreferenceVector, contextKey string) ([]model.Stream, DropHistogram) {
	hist := DropHistogram{}

	if prefs.MaxTotalStreams == 0 {
		return nil, hist
	}

	nameMatcher, nameErr := compileNameFilter(prefs.StreamNameFilter)
	adultMatcher := compileAdultFilter(prefs.AdultContentRegex)

	survivors := make([]model.Stream, 0, len(streams))
	for _, s := range streams {
		if s.IsBlocked {
			continue
		}

		if adultMatcher != nil && adultMatcher.MatchString(s.DisplayName) {
			hist.add(ReasonAdult)
			continue
		}

		if len(prefs.SelectedResolutions) > 0 && !contains(prefs.SelectedResolutions, s.Resolution) {
			hist.add(ReasonResolution)
			continue
		}

		if len(prefs.QualityFilter) > 0 && !anyIn(prefs.QualityFilter, s.Quality) {
			hist.add(ReasonQuality)
			continue
		}

		if len(prefs.Languages) > 0 && !anyIn(prefs.Languages, s.Languages) {
			hist.add(ReasonLanguage)
			continue
		}

		if s.SizeBytes > 0 {
			if prefs.MaxSizeBytes > 0 && s.SizeBytes > prefs.MaxSizeBytes {
				hist.add(ReasonMaxSize)
				continue
			}
			if prefs.MinSizeBytes > 0 && s.SizeBytes < prefs.MinSizeBytes {
				hist.add(ReasonMinSize)
				continue
			}
		}

		if nameErr == nil && nameMatcher != nil && !nameMatcher(s.DisplayName) {
			hist.add(ReasonNameFilter)
			continue
		}

		survivors = append(survivors, s)
	}

	sortStreams(survivors, prefs)

	survivors = capPerResolution(survivors, prefs.MaxStreamsPerResolution)

	if prefs.MaxTotalStreams > 0 && len(survivors) > prefs.MaxTotalStreams {
		survivors = survivors[:prefs.MaxTotalStreams]
	}

	return survivors, hist
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}

func anyIn(allowed, have []string) bool {
	for _, h := range have {
		if contains(allowed, h) {
			return true
		}
	}
	return false
}

// compileNameFilter builds a matcher that reports whether name should
// survive the include/exclude filter. A disabled filter returns a nil
// matcher (every name passes).
func compileNameFilter(f model.StreamNameFilter) (func(name string) bool, error) {
	if f.Mode == "" || f.Mode == model.NameFilterDisabled || len(f.Patterns) == 0 {
		return nil, nil
	}

	matchesAny := func(name string) (bool, error) {
		for _, p := range f.Patterns {
			if f.IsRegex {
				re, err := regexp.Compile(p)
				if err != nil {
					return false, err
				}
				if re.MatchString(name) {
					return true, nil
				}
			} else if strings.Contains(strings.ToLower(name), strings.ToLower(p)) {
				return true, nil
			}
		}
		return false, nil
	}

	switch f.Mode {
	case model.NameFilterInclude:
		return func(name string) bool {
			ok, err := matchesAny(name)
			return err == nil && ok
		}, nil
	case model.NameFilterExclude:
		return func(name string) bool {
			ok, err := matchesAny(name)
			return err != nil || !ok
		}, nil
	default:
		return nil, nil
	}
}

// compileAdultFilter compiles pattern into a case-insensitive matcher for the
// display-name adult-content drop step. An empty or invalid pattern disables
// the step rather than failing the whole request.
func compileAdultFilter(pattern string) *regexp.Regexp {
	if pattern == "" {
		return nil
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil
	}
	return re
}

// sortStreams orders survivors in place per prefs.SortingPriority, falling
// back through each rule until one produces a non-equal comparison.
// position-based keys (resolution/quality/language) rank by the index the
// value holds in the user's own preference list, not a global ordering, per
// spec.md §4.4.
func sortStreams(streams []model.Stream, prefs model.UserPreferenceVector) {
	rules := prefs.SortingPriority
	if len(rules) == 0 {
		return
	}

	sort.SliceStable(streams, func(i, j int) bool {
		a, b := streams[i], streams[j]
		for _, r := range rules {
			av, bv := sortValue(r.Key, a, prefs), sortValue(r.Key, b, prefs)
			if av == bv {
				continue
			}
			if r.Direction == model.SortAsc {
				return av < bv
			}
			return av > bv
		}
		return false
	})
}

func sortValue(key model.SortKey, s model.Stream, prefs model.UserPreferenceVector) float64 {
	switch key {
	case model.SortResolution:
		return rankPosition(prefs.SelectedResolutions, s.Resolution)
	case model.SortQuality:
		return rankBestPosition(prefs.QualityFilter, s.Quality)
	case model.SortLanguage:
		return rankBestPosition(prefs.Languages, s.Languages)
	case model.SortSize:
		return float64(s.SizeBytes)
	case model.SortSeeders:
		if s.Seeders == nil {
			return 0
		}
		return float64(*s.Seeders)
	case model.SortCreatedAt:
		return float64(s.CreatedAt.Unix())
	case model.SortVoteScore:
		return float64(s.VoteScore)
	case model.SortPlayback:
		return float64(s.PlaybackCount)
	default:
		return 0
	}
}

// rankPosition returns a higher value for values earlier in ordered, so
// "sort descending" reads as "user's most-preferred first". Unknown values
// (not in ordered, or ordered empty) rank 0, per spec.md §4.4.
func rankPosition(ordered []string, value string) float64 {
	if len(ordered) == 0 {
		return 0
	}
	for i, v := range ordered {
		if strings.EqualFold(v, value) {
			return float64(len(ordered) - i)
		}
	}
	return 0
}

func rankBestPosition(ordered []string, values []string) float64 {
	best := 0.0
	for _, v := range values {
		if p := rankPosition(ordered, v); p > best {
			best = p
		}
	}
	return best
}

// capPerResolution scans the already-sorted list and drops entries beyond
// the per-resolution cap, preserving order. cap == 0 means unbounded.
func capPerResolution(streams []model.Stream, cap int) []model.Stream {
	if cap <= 0 {
		return streams
	}

	counts := map[string]int{}
	out := make([]model.Stream, 0, len(streams))
	for _, s := range streams {
		if counts[s.Resolution] >= cap {
			continue
		}
		counts[s.Resolution]++
		out = append(out, s)
	}
	return out
}
