package engine

import (
	"hash/fnv"
	"math/rand/v2"
	"sort"

	"github.com/SAP-F-2025/quiz-engine/internal/models"
)

// SeedFromAttemptID derives the shuffle seed from the attempt id (FNV-1a 64).
func SeedFromAttemptID(attemptID string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(attemptID))
	return h.Sum64()
}

// BuildPresentation computes the order one attempt will see. Questions are
// permuted when the quiz shuffles questions; each question's options or item
// pool is permuted independently when it shuffles options. Option streams are
// keyed by question id, so toggling question shuffling leaves them unchanged.
func BuildPresentation(quiz *models.Quiz, seed uint64) models.Presentation {
	questions := canonicalOrder(quiz.Questions)

	order := make([]string, len(questions))
	for i, q := range questions {
		order[i] = q.ID
	}
	if quiz.ShuffleQuestions {
		shuffle(order, newRand(seed, 0))
	}

	options := make(map[string][]string)
	for _, q := range questions {
		ids := optionIDs(q)
		if ids == nil {
			continue
		}
		if quiz.ShuffleOptions {
			shuffle(ids, newRand(seed, SeedFromAttemptID(q.ID)))
		}
		options[q.ID] = ids
	}

	return models.Presentation{
		Seed:          seed,
		QuestionOrder: order,
		OptionOrder:   options,
	}
}

// shuffle is a Fisher-Yates permutation driven by rng.
func shuffle(ids []string, rng *rand.Rand) {
	for i := len(ids) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		ids[i], ids[j] = ids[j], ids[i]
	}
}

func newRand(seed, stream uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, stream))
}

// canonicalOrder sorts by the authored order field, keeping list position for ties.
func canonicalOrder(questions []models.Question) []models.Question {
	out := append([]models.Question(nil), questions...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Order < out[j].Order
	})
	return out
}

// optionIDs lists the shuffleable ids of a question, or nil for variants
// without an option or item pool.
func optionIDs(q models.Question) []string {
	var ids []string
	switch c := q.Content.(type) {
	case models.SingleChoiceContent:
		for _, o := range c.Options {
			ids = append(ids, o.ID)
		}
	case models.MultipleChoiceContent:
		for _, o := range c.Options {
			ids = append(ids, o.ID)
		}
	case models.DragFillContent:
		for _, item := range c.Items {
			ids = append(ids, item.ID)
		}
	case models.DragDropContent:
		for _, item := range c.Items {
			ids = append(ids, item.ID)
		}
	}
	return ids
}
