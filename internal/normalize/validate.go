package normalize

import (
	"regexp"
	"strings"
)

var (
	cedulaCoefficients = [9]int{2, 1, 2, 1, 2, 1, 2, 1, 2}
	emailShape         = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// NationalIDValid reports whether s (after stripping non-digits) is a valid
// 10-digit Ecuadorian cédula: province code 01..24, third digit below 6 and a
// matching modulo-10 check digit.
func NationalIDValid(s string) bool {
	d := ID(s)
	if len(d) != 10 {
		return false
	}

	region := int(d[0]-'0')*10 + int(d[1]-'0')
	if region < 1 || region > 24 {
		return false
	}
	if d[2]-'0' >= 6 {
		return false
	}

	sum := 0
	for i, coef := range cedulaCoefficients {
		x := int(d[i]-'0') * coef
		if x >= 10 {
			x -= 9
		}
		sum += x
	}
	check := (10 - sum%10) % 10
	return check == int(d[9]-'0')
}

// NaturalTaxIDValid reports whether s is a RUC issued to a natural person:
// 13 digits, the cédula of the holder followed by 001.
func NaturalTaxIDValid(s string) bool {
	d := ID(s)
	return len(d) == 13 && strings.HasSuffix(d, "001") && NationalIDValid(d[:10])
}

// DocumentValid accepts either a cédula or a natural-person RUC.
func DocumentValid(s string) bool {
	return NationalIDValid(s) || NaturalTaxIDValid(s)
}

// EmailValid reports whether an optional email has a plausible shape. An
// empty value is valid.
func EmailValid(s string) bool {
	if s == "" {
		return true
	}
	return emailShape.MatchString(strings.TrimSpace(s))
}
