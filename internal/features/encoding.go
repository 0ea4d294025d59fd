package features

import (
	"sort"

	"github.com/enroll-data/footfall.report/internal/schema"
)

// FallbackIndex is the label-encoding index assigned to district/state
// values never seen at training time.
const FallbackIndex = 0

// Encodings is the persisted label-encoding table for categorical geographic
// features. It is built once when the feature table is engineered and looked
// up verbatim at inference time; refitting it between training and inference
// would silently corrupt predictions.
type Encodings struct {
	District map[string]int `json:"district"`
	State    map[string]int `json:"state"`
}

// BuildEncodings assigns each distinct district and state an index into its
// sorted lexical order of distinct values. Sorting makes the encoding stable
// across rebuilds of the same table, independent of row order.
func BuildEncodings(records []schema.Record) Encodings {
	districts := map[string]struct{}{}
	states := map[string]struct{}{}
	for _, r := range records {
		districts[r.District] = struct{}{}
		states[r.State] = struct{}{}
	}
	return Encodings{
		District: indexSorted(districts),
		State:    indexSorted(states),
	}
}

// DistrictIndex returns the training-time index for a district. Unseen
// values map to FallbackIndex rather than failing.
func (e Encodings) DistrictIndex(district string) int {
	if idx, ok := e.District[district]; ok {
		return idx
	}
	return FallbackIndex
}

// StateIndex returns the training-time index for a state, with the same
// unseen-value fallback as DistrictIndex.
func (e Encodings) StateIndex(state string) int {
	if idx, ok := e.State[state]; ok {
		return idx
	}
	return FallbackIndex
}

// CenterTypeOrdinal is the fixed ordinal encoding for center types:
// Rural 0, Semi-Urban 1, Urban 2. Unknown values get the middle bucket.
func CenterTypeOrdinal(centerType string) int {
	switch centerType {
	case schema.CenterRural:
		return 0
	case schema.CenterSemiUrban:
		return 1
	case schema.CenterUrban:
		return 2
	default:
		return 1
	}
}

func indexSorted(set map[string]struct{}) map[string]int {
	values := make([]string, 0, len(set))
	for v := range set {
		values = append(values, v)
	}
	sort.Strings(values)

	index := make(map[string]int, len(values))
	for i, v := range values {
		index[v] = i
	}
	return index
}
