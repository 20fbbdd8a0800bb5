// Package teamanalyzer computes ownership, co-authorship, knowledge silos,
// and a blended collaboration score from a CommitDataset.
package teamanalyzer

import (
	"math"
	"sort"
	"time"

	"github.com/gitbeacon/beacon/internal/contract"
	"github.com/gitbeacon/beacon/schema"
)

// Ownership accumulates per-author lines touched per file, weighted by
// recency (half-life decay), and converts to a share per author.
func Ownership(ds *schema.CommitDataset, cfg contract.Config) schema.OwnershipMap {
	halfLife := float64(cfg.OwnershipHalfLifeDays)
	if halfLife <= 0 {
		halfLife = 60
	}
	now := ds.Window.Until

	weighted := map[string]map[string]float64{} // path -> author -> weight
	for _, c := range ds.Commits {
		ageDays := now.Sub(c.CommittedAt).Hours() / 24
		decay := math.Pow(0.5, ageDays/halfLife)
		author := schema.AuthorIdentity(c.Author)
		for _, f := range c.Files {
			touched := float64(f.LinesAdded + f.LinesDeleted)
			if touched == 0 {
				continue
			}
			if weighted[f.Path] == nil {
				weighted[f.Path] = map[string]float64{}
			}
			weighted[f.Path][author] += touched * decay
		}
	}

	files := map[string][]schema.AuthorShare{}
	for path, byAuthor := range weighted {
		authors := make([]string, 0, len(byAuthor))
		for a := range byAuthor {
			authors = append(authors, a)
		}
		sort.Strings(authors)
		total := 0.0
		for _, a := range authors {
			total += byAuthor[a]
		}
		if total == 0 {
			continue
		}
		shares := make([]schema.AuthorShare, 0, len(byAuthor))
		for a, w := range byAuthor {
			shares = append(shares, schema.AuthorShare{Author: a, Share: w / total})
		}
		sort.Slice(shares, func(i, j int) bool {
			if shares[i].Share != shares[j].Share {
				return shares[i].Share > shares[j].Share
			}
			return shares[i].Author < shares[j].Author
		})
		files[path] = shares
	}

	return schema.OwnershipMap{Files: files}
}

// CoAuthorship scores pairs of authors who touched the same file within a
// sliding window.
func CoAuthorship(ds *schema.CommitDataset, cfg contract.Config) schema.CoAuthorshipMatrix {
	windowDays := cfg.CollabWindowDays
	if windowDays <= 0 {
		windowDays = 30
	}
	window := time.Duration(windowDays) * 24 * time.Hour

	// touches[path] is a time-ordered list of (author, timestamp) touches,
	// built from the dataset's ascending commit order.
	touches := map[string][]authorTouch{}
	for _, c := range ds.Commits {
		author := schema.AuthorIdentity(c.Author)
		for _, f := range c.Files {
			touches[f.Path] = append(touches[f.Path], authorTouch{author: author, at: c.CommittedAt})
		}
	}

	scores := map[[2]string]float64{}
	for _, series := range touches {
		for i, t1 := range series {
			othersInWindow := map[string]bool{}
			for j, t2 := range series {
				if i == j || t2.author == t1.author {
					continue
				}
				if absDuration(t1.at.Sub(t2.at)) <= window {
					othersInWindow[t2.author] = true
				}
			}
			if len(othersInWindow) == 0 {
				continue
			}
			weight := 1.0 / float64(len(othersInWindow))
			for other := range othersInWindow {
				key := pairKey(t1.author, other)
				scores[key] += weight
			}
		}
	}
	// Each unordered pair was incremented from both members' perspective;
	// halve to avoid double counting the symmetric contribution.
	for k := range scores {
		scores[k] /= 2
	}

	pairs := make([]schema.AuthorPairScore, 0, len(scores))
	for k, v := range scores {
		pairs = append(pairs, schema.AuthorPairScore{A: k[0], B: k[1], Score: v})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Score != pairs[j].Score {
			return pairs[i].Score > pairs[j].Score
		}
		if pairs[i].A != pairs[j].A {
			return pairs[i].A < pairs[j].A
		}
		return pairs[i].B < pairs[j].B
	})

	return schema.CoAuthorshipMatrix{Scores: scores, TopPairs: pairs}
}

type authorTouch struct {
	author string
	at     time.Time
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

func pairKey(a, b string) [2]string {
	if a < b {
		return [2]string{a, b}
	}
	return [2]string{b, a}
}

// Silos flags files with highly concentrated, stale ownership.
func Silos(ds *schema.CommitDataset, ownership schema.OwnershipMap, cfg contract.Config) []schema.KnowledgeSilo {
	siloThreshold := cfg.SiloThreshold
	if siloThreshold == 0 {
		siloThreshold = 0.8
	}
	siloDays := cfg.SiloDays
	if siloDays == 0 {
		siloDays = 90
	}
	trailing := time.Duration(siloDays) * 24 * time.Hour
	now := ds.Window.Until

	var silos []schema.KnowledgeSilo
	for path, shares := range ownership.Files {
		if len(shares) == 0 {
			continue
		}
		top := shares[0]
		if top.Share < siloThreshold {
			continue
		}
		commits := ds.CommitsByFile(path)
		if len(commits) < 3 {
			continue
		}
		var lastOtherTouch *time.Time
		otherTouchedRecently := false
		for _, c := range commits {
			if schema.AuthorIdentity(c.Author) == top.Author {
				continue
			}
			t := c.CommittedAt
			if lastOtherTouch == nil || t.After(*lastOtherTouch) {
				cp := t
				lastOtherTouch = &cp
			}
			if now.Sub(t) <= trailing {
				otherTouchedRecently = true
			}
		}
		if otherTouchedRecently {
			continue
		}

		var level schema.RiskLevel
		switch {
		case top.Share >= 0.95:
			level = schema.RiskHigh
		case top.Share >= 0.85:
			level = schema.RiskMedium
		default:
			level = schema.RiskLow
		}

		silos = append(silos, schema.KnowledgeSilo{
			Path:           path,
			PrimaryAuthor:  top.Author,
			OwnershipShare: top.Share,
			LastOtherTouch: lastOtherTouch,
			RiskLevel:      level,
		})
	}
	sort.Slice(silos, func(i, j int) bool { return silos[i].Path < silos[j].Path })
	return silos
}

// CollaborationScore blends ownership fragmentation, co-authorship
// strength, and commit-count inequality into a single 0..10 score.
func CollaborationScore(ds *schema.CommitDataset, ownership schema.OwnershipMap, coauthor schema.CoAuthorshipMatrix) float64 {
	if len(ownership.Files) == 0 {
		return 0
	}

	multiOwner := 0
	for _, shares := range ownership.Files {
		if len(shares) > 1 {
			multiOwner++
		}
	}
	fractionMultiOwner := float64(multiOwner) / float64(len(ownership.Files))

	meanOffDiag := 0.0
	if len(coauthor.Scores) > 0 {
		total := 0.0
		for _, v := range coauthor.Scores {
			total += v
		}
		meanOffDiag = total / float64(len(coauthor.Scores))
		meanOffDiag = math.Min(1, meanOffDiag) // clamp into [0,1] for the blend
	}

	counts := map[string]int{}
	for _, c := range ds.Commits {
		counts[schema.AuthorIdentity(c.Author)]++
	}
	gini := giniCoefficient(counts)

	blend := (fractionMultiOwner + meanOffDiag + (1 - gini)) / 3
	return blend * 10
}

// giniCoefficient computes the Gini coefficient of the commit-count
// distribution across authors, in [0,1].
func giniCoefficient(counts map[string]int) float64 {
	if len(counts) == 0 {
		return 0
	}
	values := make([]float64, 0, len(counts))
	for _, n := range counts {
		values = append(values, float64(n))
	}
	sort.Float64s(values)

	n := float64(len(values))
	sum := 0.0
	weightedSum := 0.0
	for i, v := range values {
		sum += v
		weightedSum += float64(i+1) * v
	}
	if sum == 0 {
		return 0
	}
	return (2*weightedSum)/(n*sum) - (n+1)/n
}
