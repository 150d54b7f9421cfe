package post

import (
	"pixelproof/internal/pkg/fingerprint"
)

// DefaultSimilarityThreshold is the maximum Hamming distance at which two
// perceptual hashes are considered the same picture. Tuned for the 128-bit
// fingerprint.
const DefaultSimilarityThreshold = 10

type MatchKind int

const (
	MatchNone MatchKind = iota
	MatchSimilar
	MatchExact
)

func (k MatchKind) String() string {
	switch k {
	case MatchExact:
		return "exact"
	case MatchSimilar:
		return "similar"
	}
	return "none"
}

// MatchResult is the outcome of scanning the known corpus for a candidate
// fingerprint.
type MatchResult struct {
	Kind      MatchKind
	Candidate *Post
	Distance  int
}

// FindMatch scans the corpus and classifies the query against it.
//
// Exact means byte-identical content (equal content hashes) and always wins
// over similarity. Similar means Hamming distance within threshold; among
// several similar candidates the minimum distance wins, first-seen breaking
// ties, so the result is deterministic for a given corpus order.
//
// Only posts with a submitted transaction participate; the caller still has
// to verify the transaction exists and the candidate is ledger-confirmed
// before acting on the match.
func FindMatch(fp fingerprint.Fingerprint, corpus []Post, threshold int) MatchResult {
	best := MatchResult{Kind: MatchNone}

	for i := range corpus {
		candidate := &corpus[i]
		if candidate.TxID == nil {
			continue
		}

		if candidate.SHA256 == fp.SHA256 {
			dist, err := fingerprint.Distance(fp.PHash, candidate.PHash)
			if err != nil {
				dist = 0
			}
			return MatchResult{Kind: MatchExact, Candidate: candidate, Distance: dist}
		}

		dist, err := fingerprint.Distance(fp.PHash, candidate.PHash)
		if err != nil {
			// Corpus entry with a malformed or legacy-length hash; skip it.
			continue
		}
		if dist <= threshold && (best.Kind == MatchNone || dist < best.Distance) {
			best = MatchResult{Kind: MatchSimilar, Candidate: candidate, Distance: dist}
		}
	}

	return best
}
