package store

import (
	"fmt"
	"time"
)

// Category separates diet intake from exercise expenditure.
type Category string

const (
	CategoryDiet     Category = "diet"
	CategoryExercise Category = "exercise"
)

// ParseCategory validates a category name.
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategoryDiet, CategoryExercise:
		return Category(s), nil
	default:
		return "", fmt.Errorf("unknown category %q", s)
	}
}

// LogEntry is a single logged diet or exercise record.
type LogEntry struct {
	ID       string
	Name     string
	Category Category
	// Value is calories eaten (diet) or burned (exercise).
	Value float64
	// DurationMinutes and ExerciseType are only set for exercise entries.
	DurationMinutes float64
	ExerciseType    string
	Timestamp       time.Time
	CreatedTs       int64
}

type FindLogEntry struct {
	ID       *string
	Category *Category
	// Since is inclusive, Until is exclusive.
	Since *time.Time
	Until *time.Time
}

type DeleteLogEntry struct {
	ID string
}
