package model

import (
	_ "embed"
	"sync"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed schema.yaml
var schemaYAML []byte

// Sheet names of the intake workbook.
const (
	SheetMechanic    = "MECANICO"
	SheetDistributor = "DISTRIBUIDOR"
	SheetConsumer    = "CONSUMIDOR"
	SheetLocations   = "PROVINCIA"
	SheetCodes       = "REGISTRO DE CODIGOS"
	SheetPrizes      = "REGISTRO DE PREMIOS"
)

// Column headers referenced by name. Lookups go through normalized,
// substring-tolerant header maps, so these are canonical spellings only.
const (
	ColCode       = "CODIGO"
	ColScore      = "PUNTAJE"
	ColPrize      = "PREMIO"
	ColDocument   = "RUC O CEDULA"
	ColName       = "NOMBRE"
	ColFullName   = "NOMBRE Y APELLIDO"
	ColPhone      = "TELEFONO"
	ColEmail      = "CORREO"
	ColType       = "TIPO"
	ColStand      = "STAND"
	ColProvince   = "PROVINCIA"
	ColCanton     = "CANTON/CIUDAD"
	ColParish     = "PARROQUIA"
	ColAddress    = "DIRECCION"
	ColSocial     = "REDES SOCIALES"
	ColOccupation = "A QUE TE DEDICAS"
	ColAge        = "EDAD"
)

// PersonSheets lists the per-category sheets scanned by duplicate and
// stand lookups, in scan order.
var PersonSheets = []string{SheetMechanic, SheetDistributor, SheetConsumer}

// SheetSchema is the canonical header list of one sheet.
type SheetSchema struct {
	Name    string   `yaml:"name" json:"name"`
	Headers []string `yaml:"headers" json:"headers"`
}

// Schema is the ordered set of sheets a workbook must contain.
type Schema struct {
	Sheets []SheetSchema `yaml:"sheets" json:"sheets"`
}

// ParseSchema decodes a YAML schema document.
func ParseSchema(data []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, eris.Wrap(err, "model: parse schema")
	}
	if len(s.Sheets) == 0 {
		return nil, eris.New("model: schema has no sheets")
	}
	seen := make(map[string]bool, len(s.Sheets))
	for _, sh := range s.Sheets {
		if sh.Name == "" {
			return nil, eris.New("model: schema sheet without name")
		}
		if seen[sh.Name] {
			return nil, eris.Errorf("model: duplicate schema sheet %q", sh.Name)
		}
		if len(sh.Headers) == 0 {
			return nil, eris.Errorf("model: schema sheet %q has no headers", sh.Name)
		}
		seen[sh.Name] = true
	}
	return &s, nil
}

// Sheet returns the schema of the named sheet.
func (s *Schema) Sheet(name string) (SheetSchema, bool) {
	for _, sh := range s.Sheets {
		if sh.Name == name {
			return sh, true
		}
	}
	return SheetSchema{}, false
}

// Names returns the sheet names in schema order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.Sheets))
	for i, sh := range s.Sheets {
		names[i] = sh.Name
	}
	return names
}

var defaultSchema = sync.OnceValue(func() *Schema {
	s, err := ParseSchema(schemaYAML)
	if err != nil {
		panic(err)
	}
	return s
})

// DefaultSchema returns the embedded canonical workbook schema. The result
// is shared and must not be modified.
func DefaultSchema() *Schema {
	return defaultSchema()
}
