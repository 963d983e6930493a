package intake

import (
	"slices"
	"strings"

	"github.com/extrememax/expo-feria/internal/model"
	"github.com/extrememax/expo-feria/internal/normalize"
)

// MaxAge is the oldest age the forms accept.
const MaxAge = 120

// ValidationError lists every problem found in a submission. Nothing is
// written when it is returned.
type ValidationError struct {
	Problems []string `json:"problems"`
}

func (e *ValidationError) Error() string {
	return "invalid submission: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) add(msg string) {
	e.Problems = append(e.Problems, msg)
}

// Validate checks p against the form rules. stands is the list of accepted
// booths; comparison ignores case.
func Validate(p model.Person, stands []string) error {
	ve := &ValidationError{}

	var missing []string
	if strings.TrimSpace(p.Name) == "" {
		missing = append(missing, "nombre")
	}
	if strings.TrimSpace(p.Document) == "" {
		missing = append(missing, "cédula/RUC")
	}
	if strings.TrimSpace(p.Phone) == "" {
		missing = append(missing, "teléfono")
	}
	if strings.TrimSpace(p.Stand) == "" {
		missing = append(missing, "stand")
	}
	if len(missing) > 0 {
		ve.add("faltan campos obligatorios: " + strings.Join(missing, ", "))
	}

	if p.Document != "" && !normalize.DocumentValid(p.Document) {
		ve.add("documento inválido (cédula o RUC natural)")
	}
	if p.Category != model.CategoryConsumer && !normalize.EmailValid(p.Email) {
		ve.add("correo inválido")
	}
	if p.Stand != "" && !slices.ContainsFunc(stands, func(s string) bool { return strings.EqualFold(s, strings.TrimSpace(p.Stand)) }) {
		ve.add("stand desconocido: " + p.Stand)
	}
	if p.Age < 0 || p.Age > MaxAge {
		ve.add("edad fuera de rango")
	}

	switch p.Category {
	case model.CategoryMechanic:
		if !oneOf(p.WantsVisit, "", "SI", "NO") {
			ve.add("¿quisieras que te visitemos? debe ser SI o NO")
		}
	case model.CategoryConsumer:
		if !oneOf(p.Sex, "", "HOMBRE", "MUJER") {
			ve.add("sexo debe ser HOMBRE o MUJER")
		}
		if !oneOf(p.BoughtExtremeMax, "", "SI", "NO") {
			ve.add("compra ExtremeMax debe ser SI o NO")
		}
	case model.CategoryDistributor:
	default:
		ve.add("categoría desconocida")
	}

	if len(ve.Problems) > 0 {
		return ve
	}
	return nil
}

func oneOf(v string, allowed ...string) bool {
	return slices.Contains(allowed, strings.ToUpper(strings.TrimSpace(v)))
}
