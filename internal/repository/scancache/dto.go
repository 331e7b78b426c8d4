package scancache

import domscan "github.com/kailas-cloud/scanguard/internal/domain/scan"

// cachedBreak is the stored form of a policy break. Matched text is never stored.
type cachedBreak struct {
	Policy   string        `json:"policy"`
	Kind     string        `json:"kind"`
	Validity string        `json:"validity,omitempty"`
	Matches  []cachedMatch `json:"matches,omitempty"`
}

type cachedMatch struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Kind  string `json:"kind,omitempty"`
}

func toCached(r domscan.Result) []cachedBreak {
	out := make([]cachedBreak, len(r.PolicyBreaks))
	for i, pb := range r.PolicyBreaks {
		cb := cachedBreak{Policy: pb.Policy, Kind: pb.Kind, Validity: pb.Validity}
		for _, m := range pb.Matches {
			cb.Matches = append(cb.Matches, cachedMatch{Start: m.Start, End: m.End, Kind: m.Kind})
		}
		out[i] = cb
	}
	return out
}

func fromCached(breaks []cachedBreak) domscan.Result {
	if len(breaks) == 0 {
		return domscan.Result{}
	}
	out := domscan.Result{PolicyBreaks: make([]domscan.PolicyBreak, len(breaks))}
	for i, cb := range breaks {
		pb := domscan.PolicyBreak{Policy: cb.Policy, Kind: cb.Kind, Validity: cb.Validity}
		for _, m := range cb.Matches {
			pb.Matches = append(pb.Matches, domscan.Match{
				Start: m.Start, End: m.End, Kind: m.Kind, Policy: cb.Policy,
			})
		}
		out.PolicyBreaks[i] = pb
	}
	return out
}
