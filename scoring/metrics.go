/*
	This file computes voxel-overlap metrics between a predicted and a
	ground-truth binary label volume.  Any nonzero voxel counts as
	foreground.
*/

package scoring

// LabelScore holds the overlap metrics for one label volume.
type LabelScore struct {
	TruePositives  int64 `json:"true_positives"`
	FalsePositives int64 `json:"false_positives"`
	FalseNegatives int64 `json:"false_negatives"`
	TrueNegatives  int64 `json:"true_negatives"`

	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	Dice      float64 `json:"dice"`
	Jaccard   float64 `json:"jaccard"`
}

// scoreOverlap tallies voxel agreement between equally sized volumes and
// derives the standard overlap metrics.  A label empty in both prediction
// and ground truth scores perfectly.
func scoreOverlap(pred, truth []uint8) LabelScore {
	var s LabelScore
	for i, t := range truth {
		p := pred[i]
		switch {
		case p != 0 && t != 0:
			s.TruePositives++
		case p != 0:
			s.FalsePositives++
		case t != 0:
			s.FalseNegatives++
		default:
			s.TrueNegatives++
		}
	}
	s.derive()
	return s
}

func (s *LabelScore) derive() {
	total := s.TruePositives + s.FalsePositives + s.FalseNegatives + s.TrueNegatives
	if total > 0 {
		s.Accuracy = float64(s.TruePositives+s.TrueNegatives) / float64(total)
	}
	s.Precision = ratio(s.TruePositives, s.TruePositives+s.FalsePositives, s.FalseNegatives == 0)
	s.Recall = ratio(s.TruePositives, s.TruePositives+s.FalseNegatives, s.FalsePositives == 0)
	s.Dice = ratio(2*s.TruePositives, 2*s.TruePositives+s.FalsePositives+s.FalseNegatives, true)
	s.Jaccard = ratio(s.TruePositives, s.TruePositives+s.FalsePositives+s.FalseNegatives, true)
}

// ratio returns num/denom, defining 0/0 by emptyPerfect: a metric whose
// numerator and denominator both vanish is 1 when the absence itself is
// correct, else 0.
func ratio(num, denom int64, emptyPerfect bool) float64 {
	if denom == 0 {
		if emptyPerfect {
			return 1
		}
		return 0
	}
	return float64(num) / float64(denom)
}
