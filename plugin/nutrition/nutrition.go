// Package nutrition looks up calories for a food name.
//
// A lookup is a two-step pipeline: query the calorie source, and on a miss
// translate the name to English and query once more.
package nutrition

import (
	"context"

	"github.com/pkg/errors"
)

// ErrEmptyQuery is returned for a blank food name.
var ErrEmptyQuery = errors.New("empty food query")

// DefaultServingSize is reported when the source gives no measure.
const DefaultServingSize = "standard serving"

// Match is a calorie source hit.
type Match struct {
	Label       string
	ServingSize string
	Calories    float64
}

// CalorieSource finds the calories of a food by name.
// A miss is reported as found=false with a nil error.
type CalorieSource interface {
	FindCalories(ctx context.Context, query string) (match Match, found bool, err error)
}

// Translator translates text into the target language.
type Translator interface {
	Translate(ctx context.Context, text, target string) (string, error)
}

// Result is the outcome of a pipeline lookup.
type Result struct {
	// Query is the food name as given.
	Query string `json:"query"`
	// Translated is set when the hit came from the translated name.
	Translated  string  `json:"translated,omitempty"`
	Label       string  `json:"label,omitempty"`
	ServingSize string  `json:"serving_size,omitempty"`
	Calories    float64 `json:"calories"`
	Found       bool    `json:"found"`
}

// Outcome carries an asynchronous lookup result.
type Outcome struct {
	Err    error
	Result Result
}
