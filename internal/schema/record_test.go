package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRecord() *Record {
	age := 35
	gender := "Male"
	height := 175.0
	weight := 90.0
	bmi := 29.4
	steps := 3000
	exercise := 1
	sleep := 6.0
	alcohol := "Occasionally"
	smoking := "No"
	diet := "Average"
	stress := 7
	fruits := 2
	screen := 8.0
	return &Record{
		Age: &age, Gender: &gender, HeightCm: &height, WeightKg: &weight,
		BMI: &bmi, DailySteps: &steps, ExerciseFrequency: &exercise,
		SleepHours: &sleep, AlcoholConsumption: &alcohol, SmokingHabit: &smoking,
		DietQuality: &diet, StressLevel: &stress, FruitsVeggies: &fruits,
		ScreenTimeHours: &screen,
	}
}

func TestRecordValidate_Valid(t *testing.T) {
	require.NoError(t, validRecord().Validate())
}

func TestRecordValidate_Bounds(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *Record)
		field   string
		wantErr bool
	}{
		{"age at upper bound", func(r *Record) { *r.Age = 120 }, "", false},
		{"age above upper bound", func(r *Record) { *r.Age = 121 }, "Age", true},
		{"age below lower bound", func(r *Record) { *r.Age = -1 }, "Age", true},
		{"height too small", func(r *Record) { *r.HeightCm = 99 }, "Height_cm", true},
		{"weight too large", func(r *Record) { *r.WeightKg = 301 }, "Weight_kg", true},
		{"bmi too small", func(r *Record) { *r.BMI = 9.9 }, "BMI", true},
		{"steps unbounded above", func(r *Record) { *r.DailySteps = 1000000 }, "", false},
		{"steps negative", func(r *Record) { *r.DailySteps = -1 }, "Daily_Steps", true},
		{"exercise above week", func(r *Record) { *r.ExerciseFrequency = 8 }, "Exercise_Frequency", true},
		{"sleep above day", func(r *Record) { *r.SleepHours = 24.5 }, "Sleep_Hours", true},
		{"stress below one", func(r *Record) { *r.StressLevel = 0 }, "Stress_Level", true},
		{"fruits above ten", func(r *Record) { *r.FruitsVeggies = 11 }, "FRUITS_VEGGIES", true},
		{"screen time above day", func(r *Record) { *r.ScreenTimeHours = 25 }, "Screen_Time_Hours", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRecord()
			tt.mutate(r)
			err := r.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestRecordValidate_MissingAttributes(t *testing.T) {
	r := validRecord()
	r.BMI = nil
	var ve *ValidationError
	require.ErrorAs(t, r.Validate(), &ve)
	assert.Equal(t, "BMI", ve.Field)
	assert.Contains(t, ve.Reason, "missing")

	r = validRecord()
	r.Gender = nil
	require.ErrorAs(t, r.Validate(), &ve)
	assert.Equal(t, "Gender", ve.Field)
}

func TestRecordValidate_MissingFromJSON(t *testing.T) {
	// A payload that omits an attribute must fail validation instead of
	// defaulting to zero.
	payload := `{"Age":35,"Gender":"Male","Height_cm":175,"Weight_kg":90,"BMI":29.4,
		"Daily_Steps":3000,"Exercise_Frequency":1,"Sleep_Hours":6,
		"Alcohol_Consumption":"Occasionally","Smoking_Habit":"No",
		"Diet_Quality":"Average","Stress_Level":7,"FRUITS_VEGGIES":2}`

	var r Record
	require.NoError(t, json.Unmarshal([]byte(payload), &r))

	var ve *ValidationError
	require.ErrorAs(t, r.Validate(), &ve)
	assert.Equal(t, "Screen_Time_Hours", ve.Field)
}

func TestRecordAccessors(t *testing.T) {
	r := validRecord()
	num := r.Numeric()
	assert.Equal(t, 29.4, num["BMI"])
	assert.Equal(t, 35.0, num["Age"])
	assert.Len(t, num, 10)

	cat := r.Categorical()
	assert.Equal(t, "Male", cat["Gender"])
	assert.Len(t, cat, 4)
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Field: "Age", Reason: "value 121 exceeds maximum 120"}
	assert.Equal(t, "invalid Age: value 121 exceeds maximum 120", err.Error())
}
