// Package selector picks the next question based on the most recent
// score.
package selector

import (
	"errors"
	"fmt"

	"github.com/evalumate/evalumate/internal/bank"
	"github.com/evalumate/evalumate/internal/model"
)

// TierForScore maps the most recent score to the target difficulty for
// the next question: below 4 drops to Easy, 7 and above climbs to
// Difficult, anything between stays Moderate.
func TierForScore(score int) model.Tier {
	switch {
	case score < 4:
		return model.TierEasy
	case score < 7:
		return model.TierModerate
	default:
		return model.TierDifficult
	}
}

// relaxOrder lists, per target tier, the tiers to try when the target
// is exhausted, nearest difficulty first.
var relaxOrder = map[model.Tier][]model.Tier{
	model.TierEasy:      {model.TierModerate, model.TierDifficult},
	model.TierModerate:  {model.TierEasy, model.TierDifficult},
	model.TierDifficult: {model.TierModerate, model.TierEasy},
}

// Next returns the first unused question in the tier matching the given
// score, relaxing to the nearest tier with unused questions when the
// target tier is exhausted. When every tier is exhausted it returns
// bank.ErrNoQuestion and the session should finish.
func Next(b *bank.Bank, score int) (model.Question, error) {
	target := TierForScore(score)

	q, err := b.NextUnused(target)
	if err == nil {
		return q, nil
	}
	if !errors.Is(err, bank.ErrNoQuestion) {
		return model.Question{}, err
	}

	for _, tier := range relaxOrder[target] {
		q, err := b.NextUnused(tier)
		if err == nil {
			return q, nil
		}
		if !errors.Is(err, bank.ErrNoQuestion) {
			return model.Question{}, err
		}
	}
	return model.Question{}, fmt.Errorf("all tiers exhausted: %w", bank.ErrNoQuestion)
}
