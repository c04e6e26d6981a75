// Package vectorize converts a validated lifestyle record into the exact
// numeric feature vector the trained models consume: label-encode
// categoricals against their closed vocabulary, align to the training-time
// feature order, standardize, and optionally apply the selection mask.
//
// Encoding is strict: a label outside the vocabulary is rejected rather
// than zero-filled, since silent defaulting masks client bugs.
package vectorize

import (
	"fmt"
	"math"
	"strings"

	"healthrisk-api/internal/schema"
)

// Encoder maps the labels of one categorical attribute to integer codes.
// The code is the label's index in Classes, mirroring how the encoder was
// fit at training time.
type Encoder struct {
	Field   string
	Classes []string
}

// Encode returns the integer code for label or a ValidationError listing
// the full vocabulary when the label is unknown.
func (e *Encoder) Encode(label string) (int, error) {
	for i, c := range e.Classes {
		if c == label {
			return i, nil
		}
	}
	return 0, &schema.ValidationError{
		Field:  e.Field,
		Reason: fmt.Sprintf("unknown value %q, must be one of {%s}", label, strings.Join(e.Classes, ",")),
	}
}

// Scaler standardizes each schema column with training-time parameters.
type Scaler struct {
	Mean []float64
	Std  []float64
}

// Vectorizer holds the immutable preprocessing state shared by all
// requests: feature order, encoders, scaler and the optional selection
// mask. Built once at startup, read-only afterwards.
type Vectorizer struct {
	features []string
	encoders map[string]*Encoder
	scaler   *Scaler
	mask     []bool // nil when the model uses the full schema
}

// New validates the preprocessing state for internal consistency. Every
// schema column must be producible from the record's attribute set and the
// scaler must cover the full schema; a mismatch here is a configuration
// fault, not a request error.
func New(features []string, encoders []*Encoder, scaler *Scaler, mask []bool) (*Vectorizer, error) {
	if len(features) == 0 {
		return nil, fmt.Errorf("feature schema is empty")
	}
	if scaler == nil || len(scaler.Mean) != len(features) || len(scaler.Std) != len(features) {
		return nil, fmt.Errorf("scaler parameters do not match schema length %d", len(features))
	}
	for i, s := range scaler.Std {
		if s <= 0 || math.IsNaN(s) || math.IsInf(s, 0) {
			return nil, fmt.Errorf("scaler std for %s is invalid: %v", features[i], s)
		}
	}
	if mask != nil && len(mask) != len(features) {
		return nil, fmt.Errorf("selection mask length %d does not match schema length %d", len(mask), len(features))
	}

	encByField := make(map[string]*Encoder, len(encoders))
	for _, e := range encoders {
		if len(e.Classes) == 0 {
			return nil, fmt.Errorf("encoder for %s has an empty vocabulary", e.Field)
		}
		encByField[e.Field] = e
	}

	known := make(map[string]bool)
	zi, zf, zs := 0, 0.0, ""
	probe := schema.Record{
		Age: &zi, Gender: &zs, HeightCm: &zf, WeightKg: &zf, BMI: &zf,
		DailySteps: &zi, ExerciseFrequency: &zi, SleepHours: &zf,
		AlcoholConsumption: &zs, SmokingHabit: &zs, DietQuality: &zs,
		StressLevel: &zi, FruitsVeggies: &zi, ScreenTimeHours: &zf,
	}
	for name := range probe.Numeric() {
		known[name] = true
	}
	for name := range probe.Categorical() {
		known[name] = true
		if _, ok := encByField[name]; !ok {
			return nil, fmt.Errorf("no encoder configured for categorical attribute %s", name)
		}
	}
	for _, f := range features {
		if !known[f] {
			return nil, fmt.Errorf("schema column %s cannot be produced from the input record", f)
		}
	}

	return &Vectorizer{
		features: features,
		encoders: encByField,
		scaler:   scaler,
		mask:     mask,
	}, nil
}

// Features returns the schema column names in order, after selection.
func (v *Vectorizer) Features() []string {
	if v.mask == nil {
		return v.features
	}
	out := make([]string, 0, len(v.features))
	for i, f := range v.features {
		if v.mask[i] {
			out = append(out, f)
		}
	}
	return out
}

// Vectorize converts a record into the scaled feature vector, in schema
// order. Validation failures (bounds, unknown labels) surface as
// schema.ValidationError.
func (v *Vectorizer) Vectorize(rec *schema.Record) ([]float64, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	values := rec.Numeric()
	cats := rec.Categorical()
	for _, field := range schema.CategoricalFields {
		code, err := v.encoders[field].Encode(cats[field])
		if err != nil {
			return nil, err
		}
		values[field] = float64(code)
	}

	vec := make([]float64, 0, len(v.features))
	for i, f := range v.features {
		x, ok := values[f]
		if !ok {
			x = 0 // producibility is enforced in New; this is unreachable for valid configs
		}
		scaled := (x - v.scaler.Mean[i]) / v.scaler.Std[i]
		if v.mask != nil && !v.mask[i] {
			continue
		}
		vec = append(vec, scaled)
	}
	return vec, nil
}
