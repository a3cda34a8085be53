// Package matcher resolves device plates against the fleet's vehicle plates:
// exact lookups on the normalized key and ranked edit-distance candidates for
// human review.
package matcher

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"tracker-sync/internal/model"
	"tracker-sync/internal/utils"
)

const (
	MinScore      = 0.6
	MaxDistance   = 3
	MaxCandidates = 3

	digitsBoost = 0.20
	affixBoost  = 0.10
	affixLength = 3
)

const (
	reasonDigits    = "الأرقام متطابقة"
	reasonOneLetter = "اختلاف حرف واحد فقط"
	reasonTwoLetter = "اختلاف حرفين"
	reasonAffix     = "تطابق في بداية أو نهاية اللوحة"
	reasonApprox    = "تشابه تقريبي"
	reasonSeparator = "، "
)

// Vehicle is a fleet vehicle with its plate already normalized.
type Vehicle struct {
	ID         string
	Plate      string
	Normalized string
}

func NewVehicle(record model.VehicleRecord) Vehicle {
	return Vehicle{
		ID:         record.ID,
		Plate:      record.PlateNumber,
		Normalized: utils.NormalizePlate(record.PlateNumber),
	}
}

// FindCandidates scores every vehicle against the normalized device plate and
// returns at most MaxCandidates, best first.
func FindCandidates(devicePlate, normalized string, vehicles []Vehicle) []model.MatchCandidate {
	if normalized == "" {
		return nil
	}

	type scored struct {
		candidate model.MatchCandidate
		order     int
	}

	var found []scored
	for i, v := range vehicles {
		if v.Normalized == "" {
			continue
		}

		distance := levenshtein.ComputeDistance(normalized, v.Normalized)
		if distance > MaxDistance {
			continue
		}

		score, reason := scorePair(normalized, v.Normalized, distance)
		if score < MinScore {
			continue
		}

		found = append(found, scored{
			candidate: model.MatchCandidate{
				VehicleID: v.ID,
				Plate:     v.Plate,
				Score:     score,
				Distance:  distance,
				Reason:    reason,
			},
			order: i,
		})
	}

	sort.SliceStable(found, func(i, j int) bool {
		a, b := found[i], found[j]
		if a.candidate.Score != b.candidate.Score {
			return a.candidate.Score > b.candidate.Score
		}
		if a.candidate.Distance != b.candidate.Distance {
			return a.candidate.Distance < b.candidate.Distance
		}
		return a.order < b.order
	})

	if len(found) > MaxCandidates {
		found = found[:MaxCandidates]
	}

	out := make([]model.MatchCandidate, 0, len(found))
	for _, s := range found {
		out = append(out, s.candidate)
	}
	return out
}

func scorePair(a, b string, distance int) (float64, string) {
	longest := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longest {
		longest = n
	}
	if longest == 0 {
		return 0, ""
	}

	score := 1 - float64(distance)/float64(longest)
	var reasons []string

	if digits := utils.PlateDigits(a); digits != "" && digits == utils.PlateDigits(b) {
		score += digitsBoost
		reasons = append(reasons, reasonDigits)
	}

	switch distance {
	case 1:
		reasons = append(reasons, reasonOneLetter)
	case 2:
		reasons = append(reasons, reasonTwoLetter)
	}

	if sharesAffix(a, b) {
		score += affixBoost
		reasons = append(reasons, reasonAffix)
	}

	if score > 1 {
		score = 1
	}
	if len(reasons) == 0 {
		reasons = append(reasons, reasonApprox)
	}
	return score, strings.Join(reasons, reasonSeparator)
}

// sharesAffix reports whether the first or last three runes of either plate
// open or close the other one.
func sharesAffix(a, b string) bool {
	ra, rb := []rune(a), []rune(b)
	headA, tailA := affixes(ra)
	headB, tailB := affixes(rb)
	return strings.HasPrefix(b, headA) || strings.HasPrefix(a, headB) ||
		strings.HasSuffix(b, tailA) || strings.HasSuffix(a, tailB)
}

func affixes(r []rune) (string, string) {
	if len(r) <= affixLength {
		s := string(r)
		return s, s
	}
	return string(r[:affixLength]), string(r[len(r)-affixLength:])
}
