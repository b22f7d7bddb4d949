package types

import (
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

func TestExtractedJobData_Validation(t *testing.T) {
	v := validator.New()
	f := func(x float64) *float64 { return &x }

	tests := []struct {
		name    string
		data    ExtractedJobData
		wantErr string
	}{
		{name: "title only", data: ExtractedJobData{Title: "Engineer"}},
		{name: "missing title", data: ExtractedJobData{}, wantErr: "Title"},
		{name: "title too long", data: ExtractedJobData{Title: strings.Repeat("x", 501)}, wantErr: "Title"},
		{name: "negative salary", data: ExtractedJobData{Title: "E", SalaryMin: f(-1)}, wantErr: "SalaryMin"},
		{name: "lowercase currency", data: ExtractedJobData{Title: "E", SalaryCurrency: StringPtr("usd")}, wantErr: "SalaryCurrency"},
		{name: "currency", data: ExtractedJobData{Title: "E", SalaryCurrency: StringPtr("EUR"), SalaryMax: f(90000)}},
		{name: "bad application url", data: ExtractedJobData{Title: "E", ApplicationURL: StringPtr("apply here")}, wantErr: "ApplicationURL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.data)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestHasSalary(t *testing.T) {
	x := 1.0
	assert.False(t, (&ExtractedJobData{}).HasSalary())
	assert.True(t, (&ExtractedJobData{SalaryMin: &x}).HasSalary())
	assert.True(t, (&ExtractedJobData{SalaryMax: &x}).HasSalary())
}

func TestStringPtrAndDeref(t *testing.T) {
	assert.Nil(t, StringPtr(""))
	assert.Equal(t, "a", *StringPtr("a"))
	assert.Equal(t, "", Deref(nil))
	assert.Equal(t, "a", Deref(StringPtr("a")))
}
