package marking

import "math"

// Dispersion returns the normalized disagreement among a group of draft
// grades: twice the population standard deviation scaled by the maximum
// attainable grade span, clamped to [0,1]. Groups with fewer than two
// grades have no defined dispersion and report 0.
func Dispersion(grades []float64, scale float64) float64 {
	if len(grades) < 2 || scale <= 0 {
		return 0
	}
	d := 2 * stddev(grades) / scale
	if d > 1 {
		d = 1
	}
	return d
}

// ActivityAgreement is the activity-wide agreement level:
// round(100×(1−mean dispersion), 1) over the qualifying groups (more than
// one grade), or 0 when no group qualifies.
func ActivityAgreement(groups []GradeGroup, scale float64) float64 {
	var sum float64
	var n int
	for _, g := range groups {
		if len(g.Grades) > 1 {
			sum += Dispersion(g.Grades, scale)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return math.Round(100*(1-sum/float64(n))*10) / 10
}

// SubmissionAgreement is the dispersion of the single group matching the
// given submission, or 0 when that submission has fewer than two
// qualifying drafts.
func SubmissionAgreement(groups []GradeGroup, submissionID int, scale float64) float64 {
	for _, g := range groups {
		if g.SubmissionID == submissionID {
			return Dispersion(g.Grades, scale)
		}
	}
	return 0
}

func stddev(xs []float64) float64 {
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	var sq float64
	for _, x := range xs {
		sq += (x - mean) * (x - mean)
	}
	return math.Sqrt(sq / float64(len(xs)))
}
