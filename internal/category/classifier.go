package category

import (
	"strings"

	"github.com/jbrukh/bayesian"
)

// Classifier suggests a category for a provider name based on previously
// recorded expenses. It backs manual entry when the keyword table has no
// opinion; the keyword table always takes precedence.
type Classifier struct {
	classifier *bayesian.Classifier
	classes    []bayesian.Class
	trained    int
}

// NewClassifier creates an untrained classifier over all known categories.
func NewClassifier() *Classifier {
	classes := make([]bayesian.Class, 0, len(All()))
	for _, c := range All() {
		classes = append(classes, bayesian.Class(c))
	}
	return &Classifier{
		classifier: bayesian.NewClassifier(classes...),
		classes:    classes,
	}
}

// Train records one provider/category observation.
func (c *Classifier) Train(provider string, cat Category) {
	words := tokenize(provider)
	if len(words) == 0 {
		return
	}
	c.classifier.Learn(words, bayesian.Class(cat))
	c.trained++
}

// Trained reports how many observations the classifier has seen.
func (c *Classifier) Trained() int {
	return c.trained
}

// Suggest returns the most likely category for a provider name. It
// declines to guess when untrained or when no class is a clear winner.
func (c *Classifier) Suggest(provider string) (Category, bool) {
	if c.trained == 0 {
		return "", false
	}
	words := tokenize(provider)
	if len(words) == 0 {
		return "", false
	}
	_, likely, strict := c.classifier.LogScores(words)
	if !strict {
		return "", false
	}
	return Category(c.classes[likely]), true
}

// tokenize lowercases and splits a provider name into alphanumeric terms.
func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) > 1 {
			words = append(words, f)
		}
	}
	return words
}
