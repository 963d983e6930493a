package model

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Category is the visitor type a person record is filed under. Its value is
// also the name of the sheet holding that category's records.
type Category string

const (
	CategoryMechanic    Category = SheetMechanic
	CategoryDistributor Category = SheetDistributor
	CategoryConsumer    Category = SheetConsumer
)

// Categories lists every person category in sheet order.
var Categories = []Category{CategoryMechanic, CategoryDistributor, CategoryConsumer}

// Sheet returns the sheet that stores records of this category.
func (c Category) Sheet() string { return string(c) }

// Prefix returns the code prefix assigned to this category.
func (c Category) Prefix() string {
	switch c {
	case CategoryMechanic:
		return "M"
	case CategoryDistributor:
		return "D"
	case CategoryConsumer:
		return "C"
	default:
		return ""
	}
}

// ParseCategory accepts a sheet name or an English alias in any case.
func ParseCategory(s string) (Category, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "MECANICO", "MECÁNICO", "MECHANIC", "M":
		return CategoryMechanic, nil
	case "DISTRIBUIDOR", "DISTRIBUTOR", "D":
		return CategoryDistributor, nil
	case "CONSUMIDOR", "CONSUMER", "C":
		return CategoryConsumer, nil
	default:
		return "", eris.Errorf("model: unknown category %q", s)
	}
}

// CategoryForPrefix maps a code prefix back to its category.
func CategoryForPrefix(prefix string) (Category, bool) {
	for _, c := range Categories {
		if c.Prefix() == strings.ToUpper(prefix) {
			return c, true
		}
	}
	return "", false
}

// DefaultStands are the two booths a visitor can be assigned to.
var DefaultStands = []string{"PANTRO", "EXTREMEMAX"}

// Record maps column headers to cell values. Keys are matched against a
// sheet's header row after text normalization, so a key feeds every column
// whose header normalizes to the same text.
type Record map[string]string

// Person is one visitor submission. Category-specific fields are ignored for
// other categories.
type Person struct {
	Category   Category `json:"category"`
	Name       string   `json:"name"`
	Document   string   `json:"document"`
	Phone      string   `json:"phone"`
	Email      string   `json:"email,omitempty"`
	Province   string   `json:"province,omitempty"`
	Canton     string   `json:"canton,omitempty"`
	Parish     string   `json:"parish,omitempty"`
	Address    string   `json:"address,omitempty"`
	Social     string   `json:"social,omitempty"`
	Occupation string   `json:"occupation,omitempty"`
	Age        int      `json:"age,omitempty"`
	Stand      string   `json:"stand"`

	// Mechanic.
	WorkshopName       string `json:"workshop_name,omitempty"`
	WorkshopPremises   string `json:"workshop_premises,omitempty"`
	WantsVisit         string `json:"wants_visit,omitempty"`
	ProductsOfInterest string `json:"products_of_interest,omitempty"`

	// Distributor.
	PartsToDistribute string `json:"parts_to_distribute,omitempty"`

	// Consumer.
	Sex              string `json:"sex,omitempty"`
	MotorcycleModel  string `json:"motorcycle_model,omitempty"`
	PartSought       string `json:"part_sought,omitempty"`
	BoughtExtremeMax string `json:"bought_extrememax,omitempty"`
}

// Record lays the person out under the headers of its category sheet.
func (p Person) Record(code string) Record {
	age := ""
	if p.Age > 0 {
		age = strconv.Itoa(p.Age)
	}

	r := Record{
		ColCode:       code,
		ColFullName:   p.Name,
		ColPhone:      p.Phone,
		ColAge:        age,
		ColProvince:   p.Province,
		ColCanton:     p.Canton,
		ColParish:     p.Parish,
		ColAddress:    p.Address,
		ColOccupation: p.Occupation,
		ColStand:      p.Stand,
	}

	switch p.Category {
	case CategoryMechanic:
		r[ColDocument] = p.Document
		r[ColEmail] = p.Email
		r[ColSocial] = p.Social
		r["NOMBRE DE LA MECÁNICA"] = p.WorkshopName
		r["MECANICA Y LOCAL"] = p.WorkshopPremises
		r["QUISIERAS QUE TE VISITEMOS"] = p.WantsVisit
		r["PRODUCTOS DE INTERES"] = p.ProductsOfInterest
	case CategoryDistributor:
		r["CEDULA O RUC"] = p.Document
		r[ColEmail] = p.Email
		r[ColSocial] = p.Social
		r["QUE REPUESTOS QUIERES DISTRIBUIR"] = p.PartsToDistribute
	case CategoryConsumer:
		r["CEDULA O RUC"] = p.Document
		r["HOMBRE O MUJER"] = p.Sex
		r["MODELO DE MOTO QUE USAS"] = p.MotorcycleModel
		r["QUE REPUESTO BUSCAS?"] = p.PartSought
		r["SI HAS COMPRANDO PRODCUTOS EXTREMEMAX?"] = p.BoughtExtremeMax
	}
	return r
}

// Identity is the denormalized person snapshot copied into the registry
// sheets.
type Identity struct {
	Document string `json:"document"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Type     string `json:"type"`
	Stand    string `json:"stand"`
}

// CodeRow is one row of the registry-of-codes sheet.
type CodeRow struct {
	Code     string `json:"code"`
	Score    int    `json:"score"`
	Document string `json:"document"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Type     string `json:"type"`
	Stand    string `json:"stand"`
}

// PrizeRow is one row of the registry-of-prizes sheet.
type PrizeRow struct {
	Code     string `json:"code"`
	Prize    string `json:"prize"`
	Document string `json:"document"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Type     string `json:"type"`
	Stand    string `json:"stand"`
}

// Field returns the value shown under a registry header, or "" for headers
// the row does not carry.
func (r CodeRow) Field(header string) string {
	switch header {
	case ColCode:
		return r.Code
	case ColScore:
		return strconv.Itoa(r.Score)
	case ColDocument:
		return r.Document
	case ColName:
		return r.Name
	case ColPhone:
		return r.Phone
	case ColType:
		return r.Type
	case ColStand:
		return r.Stand
	}
	return ""
}

// Field returns the value shown under a registry header.
func (r PrizeRow) Field(header string) string {
	switch header {
	case ColCode:
		return r.Code
	case ColPrize:
		return r.Prize
	case ColDocument:
		return r.Document
	case ColName:
		return r.Name
	case ColPhone:
		return r.Phone
	case ColType:
		return r.Type
	case ColStand:
		return r.Stand
	}
	return ""
}
