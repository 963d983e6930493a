package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var validCedulas = []string{
	"1710034065",
	"0102030400",
	"0923456784",
	"2400000002",
	"1234567897",
	"0555555556",
}

func TestNationalIDValid_KnownGood(t *testing.T) {
	for _, id := range validCedulas {
		assert.True(t, NationalIDValid(id), id)
	}
	assert.True(t, NationalIDValid("171003406-5"), "separators are ignored")
}

func TestNationalIDValid_Rejects(t *testing.T) {
	tests := []struct {
		name string
		id   string
	}{
		{name: "too short", id: "171003406"},
		{name: "too long", id: "17100340655"},
		{name: "region zero", id: "0010034065"},
		{name: "region 25", id: "2510034065"},
		{name: "third digit six", id: "1760034065"},
		{name: "bad check digit", id: "1710034064"},
		{name: "empty", id: ""},
		{name: "letters", id: "abcdefghij"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, NationalIDValid(tt.id))
		})
	}
}

// The weighted sum maps every digit position bijectively mod 10, so any
// single-digit change to a valid cédula breaks it.
func TestNationalIDValid_SingleDigitMutations(t *testing.T) {
	for _, id := range validCedulas {
		for pos := 0; pos < len(id); pos++ {
			for d := byte('0'); d <= '9'; d++ {
				if id[pos] == d {
					continue
				}
				mutated := []byte(id)
				mutated[pos] = d
				assert.False(t, NationalIDValid(string(mutated)), "mutation %s of %s", mutated, id)
			}
		}
	}
}

func TestNaturalTaxIDValid(t *testing.T) {
	assert.True(t, NaturalTaxIDValid("1710034065001"))
	assert.False(t, NaturalTaxIDValid("1710034065002"), "must end in 001")
	assert.False(t, NaturalTaxIDValid("1710034064001"), "embedded cédula must be valid")
	assert.False(t, NaturalTaxIDValid("1710034065"), "length 13 required")
}

func TestDocumentValid(t *testing.T) {
	assert.True(t, DocumentValid("1710034065"))
	assert.True(t, DocumentValid("1710034065001"))
	assert.False(t, DocumentValid("1790011674001"), "company RUC is not a natural RUC")
	assert.False(t, DocumentValid("123"))
}

func TestEmailValid(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"", true},
		{"ana@example.com", true},
		{" ana@example.com ", true},
		{"ana.perez@mail.example.ec", true},
		{"ana@example", false},
		{"ana@@example.com", false},
		{"ana example@x.com", false},
		{"@example.com", false},
		{"ana@.", false},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.want, EmailValid(tt.email))
		})
	}
}
