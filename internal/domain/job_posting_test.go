package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUniqueKey(t *testing.T) {
	cases := []struct {
		name                     string
		company, title, location string
		want                     string
	}{
		{"plain", "Acme", "SWE Intern", "NYC, NY", "acme-swe-intern-nyc-ny"},
		{"punctuation collapses", "Foo & Bar, Inc.", "Software Engineer (New Grad)", "Remote", "foo-bar-inc-software-engineer-new-grad-remote"},
		{"edges trimmed", "  Acme  ", "--Intern--", "", "acme-intern"},
		{"non ascii replaced", "Café", "Développeur", "Montréal", "caf-d-veloppeur-montr-al"},
		{"all empty", "", "", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := UniqueKey(tc.company, tc.title, tc.location)
			assert.Equal(t, tc.want, got)
			assert.Regexp(t, `^([a-z0-9]+(-[a-z0-9]+)*)?$`, got)
		})
	}
}

func TestUniqueKeyCaseInsensitive(t *testing.T) {
	assert.Equal(t,
		UniqueKey("ACME", "swe intern", "Nyc, Ny"),
		UniqueKey("acme", "SWE Intern", "NYC, NY"),
	)
}

func TestJobStatusValid(t *testing.T) {
	for _, s := range JobStatuses {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, JobStatus("ghosted").Valid())
	assert.False(t, JobStatus("").Valid())
}

func TestStringArrayRoundTripThroughScan(t *testing.T) {
	var a StringArray
	assert.NoError(t, a.Scan([]byte(`["x","y"]`)))
	assert.Equal(t, StringArray{"x", "y"}, a)

	assert.NoError(t, a.Scan(nil))
	assert.Empty(t, a)

	v, err := StringArray(nil).Value()
	assert.NoError(t, err)
	assert.Equal(t, "[]", v)

	assert.Error(t, a.Scan(42))
}
