package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Veraticus/voxport/internal/model"
)

func TestNormalizer_Normalize(t *testing.T) {
	n := NewNormalizer("US", "")

	tests := []struct {
		name       string
		raw        string
		want       model.Number
		wantOK     bool
		unparsable bool
	}{
		{name: "already e164", raw: "+15551234567", want: "+15551234567", wantOK: true},
		{name: "tel link", raw: "tel:+15551234567", want: "+15551234567", wantOK: true},
		{name: "national format", raw: "(555) 123-4567", want: "+15551234567", wantOK: true},
		{name: "dashed national", raw: "555-123-4567", want: "+15551234567", wantOK: true},
		{name: "foreign", raw: "+44 20 7946 0958", want: "+442079460958", wantOK: true},
		{name: "short code kept verbatim", raw: "22000", want: "22000", wantOK: true},
		{name: "empty", raw: "", wantOK: false},
		{name: "whitespace", raw: "   ", wantOK: false},
		{name: "placeholder", raw: "Unknown", wantOK: false, unparsable: true},
		{name: "garbage digits", raw: "+0000000000000000000000", wantOK: false, unparsable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := n.Normalize(tt.raw)
			assert.Equal(t, tt.wantOK, res.OK)
			assert.Equal(t, tt.want, res.Number)
			assert.Equal(t, tt.unparsable, res.Unparsable())
		})
	}
}

func TestNormalizer_Bogus(t *testing.T) {
	assert.Equal(t, DefaultBogusNumber, NewNormalizer("", "").Bogus())

	custom := NewNormalizer("US", "+19999999999")
	assert.Equal(t, model.Number("+19999999999"), custom.Bogus())
}

func TestIsNumber(t *testing.T) {
	assert.True(t, IsNumber("+15551234567"))
	assert.True(t, IsNumber("555 123 4567"))
	assert.True(t, IsNumber("tel:+15551234567"))
	assert.True(t, IsNumber("911"))
	assert.False(t, IsNumber("Jane Doe"))
	assert.False(t, IsNumber("Me"))
	assert.False(t, IsNumber("12"))
	assert.False(t, IsNumber(""))
	assert.False(t, IsNumber("Room 101"))
}
