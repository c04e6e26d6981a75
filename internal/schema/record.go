// Package schema defines the lifestyle input record accepted by the
// prediction API and its per-attribute validation rules. Bounds and
// categorical vocabularies are fixed at model-training time; a record
// that violates them is a client error, never a silent default.
package schema

import (
	"fmt"
	"strings"
)

// ValidationError reports a client-supplied attribute that violates its
// declared bound or vocabulary. It names the offending field so the
// caller can surface it directly.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Record is the raw lifestyle input, one per request. Pointer fields
// distinguish "absent" from zero values so that missing attributes fail
// validation instead of defaulting.
type Record struct {
	Age                *int     `json:"Age"`
	Gender             *string  `json:"Gender"`
	HeightCm           *float64 `json:"Height_cm"`
	WeightKg           *float64 `json:"Weight_kg"`
	BMI                *float64 `json:"BMI"`
	DailySteps         *int     `json:"Daily_Steps"`
	ExerciseFrequency  *int     `json:"Exercise_Frequency"`
	SleepHours         *float64 `json:"Sleep_Hours"`
	AlcoholConsumption *string  `json:"Alcohol_Consumption"`
	SmokingHabit       *string  `json:"Smoking_Habit"`
	DietQuality        *string  `json:"Diet_Quality"`
	StressLevel        *int     `json:"Stress_Level"`
	FruitsVeggies      *int     `json:"FRUITS_VEGGIES"`
	ScreenTimeHours    *float64 `json:"Screen_Time_Hours"`
}

// numericBound declares the closed interval a numeric attribute must lie in.
// An unbounded side is marked with noMax.
type numericBound struct {
	min, max float64
	noMax    bool
}

var numericBounds = map[string]numericBound{
	"Age":                {min: 0, max: 120},
	"Height_cm":          {min: 100, max: 250},
	"Weight_kg":          {min: 30, max: 300},
	"BMI":                {min: 10, max: 60},
	"Daily_Steps":        {min: 0, noMax: true},
	"Exercise_Frequency": {min: 0, max: 7},
	"Sleep_Hours":        {min: 0, max: 24},
	"Stress_Level":       {min: 1, max: 10},
	"FRUITS_VEGGIES":     {min: 0, max: 10},
	"Screen_Time_Hours":  {min: 0, max: 24},
}

// CategoricalFields lists the attributes encoded through a closed
// vocabulary, in declaration order.
var CategoricalFields = []string{"Gender", "Alcohol_Consumption", "Smoking_Habit", "Diet_Quality"}

// Validate checks presence and numeric bounds for every attribute.
// Categorical membership is checked by the encoder, which owns the
// vocabulary; Validate only requires the categorical fields to be present.
func (r *Record) Validate() error {
	checks := []struct {
		field string
		val   *float64
	}{
		{"Age", intPtr(r.Age)},
		{"Height_cm", r.HeightCm},
		{"Weight_kg", r.WeightKg},
		{"BMI", r.BMI},
		{"Daily_Steps", intPtr(r.DailySteps)},
		{"Exercise_Frequency", intPtr(r.ExerciseFrequency)},
		{"Sleep_Hours", r.SleepHours},
		{"Stress_Level", intPtr(r.StressLevel)},
		{"FRUITS_VEGGIES", intPtr(r.FruitsVeggies)},
		{"Screen_Time_Hours", r.ScreenTimeHours},
	}

	for _, c := range checks {
		if c.val == nil {
			return &ValidationError{Field: c.field, Reason: "required attribute is missing"}
		}
		b := numericBounds[c.field]
		if *c.val < b.min {
			return &ValidationError{Field: c.field, Reason: fmt.Sprintf("value %v is below minimum %v", *c.val, b.min)}
		}
		if !b.noMax && *c.val > b.max {
			return &ValidationError{Field: c.field, Reason: fmt.Sprintf("value %v exceeds maximum %v", *c.val, b.max)}
		}
	}

	cats := []struct {
		field string
		val   *string
	}{
		{"Gender", r.Gender},
		{"Alcohol_Consumption", r.AlcoholConsumption},
		{"Smoking_Habit", r.SmokingHabit},
		{"Diet_Quality", r.DietQuality},
	}
	for _, c := range cats {
		if c.val == nil || strings.TrimSpace(*c.val) == "" {
			return &ValidationError{Field: c.field, Reason: "required attribute is missing"}
		}
	}

	return nil
}

// Numeric returns the numeric attributes keyed by wire name.
// Callers must Validate first; nil pointers panic here.
func (r *Record) Numeric() map[string]float64 {
	return map[string]float64{
		"Age":                float64(*r.Age),
		"Height_cm":          *r.HeightCm,
		"Weight_kg":          *r.WeightKg,
		"BMI":                *r.BMI,
		"Daily_Steps":        float64(*r.DailySteps),
		"Exercise_Frequency": float64(*r.ExerciseFrequency),
		"Sleep_Hours":        *r.SleepHours,
		"Stress_Level":       float64(*r.StressLevel),
		"FRUITS_VEGGIES":     float64(*r.FruitsVeggies),
		"Screen_Time_Hours":  *r.ScreenTimeHours,
	}
}

// Categorical returns the categorical attributes keyed by wire name.
func (r *Record) Categorical() map[string]string {
	return map[string]string{
		"Gender":              *r.Gender,
		"Alcohol_Consumption": *r.AlcoholConsumption,
		"Smoking_Habit":       *r.SmokingHabit,
		"Diet_Quality":        *r.DietQuality,
	}
}

func intPtr(v *int) *float64 {
	if v == nil {
		return nil
	}
	f := float64(*v)
	return &f
}
