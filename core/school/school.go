// Package school declares what the console shows and edits for each entity kind: card fields,
// table columns, facets, date fields and edit form inputs. The declarations live in an embedded
// YAML catalogue and are turned into typed descriptors for the view and listing packages.
package school

import (
	_ "embed"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/trezcool/masomo-console/core/record"
)

//go:embed catalogue.yaml
var catalogueYAML []byte

type (
	FieldDef struct {
		Key   string `yaml:"key"`
		Label string `yaml:"label"`
	}

	FacetDef struct {
		Name  string `yaml:"name"`
		Label string `yaml:"label"`
		Key   string `yaml:"key"`
		Array bool   `yaml:"array"`
	}

	// InputDef is one edit form input. Validate holds validator tags applied to the submitted value.
	InputDef struct {
		Key       string `yaml:"key"`
		Label     string `yaml:"label"`
		Type      string `yaml:"type"` // text (default) | email | tel | date | number | password | checkbox
		List      bool   `yaml:"list"` // comma separated in the form, an array in the record
		Validate  string `yaml:"validate"`
		WriteOnly bool   `yaml:"writeOnly"` // never prefilled, dropped when left empty
	}

	KindDef struct {
		BadgeFlag string     `yaml:"badgeFlag"`
		Fields    []FieldDef `yaml:"fields"`
		Columns   []FieldDef `yaml:"columns"`
		Facets    []FacetDef `yaml:"facets"`
		Dates     []string   `yaml:"dates"`
		Form      []InputDef `yaml:"form"`
	}
)

var (
	catalogue    map[record.Kind]KindDef
	catalogueErr error
	catalogueOne sync.Once
)

// Catalogue returns the parsed descriptor catalogue.
func Catalogue() (map[record.Kind]KindDef, error) {
	catalogueOne.Do(func() {
		catalogue, catalogueErr = parseCatalogue(catalogueYAML)
	})
	return catalogue, catalogueErr
}

func parseCatalogue(data []byte) (map[record.Kind]KindDef, error) {
	raw := make(map[string]KindDef)
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "parsing descriptor catalogue")
	}
	out := make(map[record.Kind]KindDef, len(raw))
	for name, def := range raw {
		kind, err := record.ParseKind(name)
		if err != nil {
			return nil, errors.Wrap(err, "descriptor catalogue")
		}
		for i := range def.Form {
			if def.Form[i].Type == "" {
				def.Form[i].Type = "text"
			}
		}
		out[kind] = def
	}
	for _, kind := range record.Kinds {
		if _, ok := out[kind]; !ok {
			return nil, errors.Errorf("descriptor catalogue: no entry for %s", kind)
		}
	}
	return out, nil
}

// Def returns the catalogue entry of kind.
func Def(kind record.Kind) (KindDef, error) {
	cat, err := Catalogue()
	if err != nil {
		return KindDef{}, err
	}
	def, ok := cat[kind]
	if !ok {
		return KindDef{}, errors.Wrapf(record.ErrUnknownKind, "%q", kind)
	}
	return def, nil
}

// MustDef is Def for the fixed kinds; it panics on a broken catalogue.
func MustDef(kind record.Kind) KindDef {
	def, err := Def(kind)
	if err != nil {
		panic(err)
	}
	return def
}

// Input returns the form input named key.
func (d KindDef) Input(key string) (InputDef, bool) {
	for _, in := range d.Form {
		if in.Key == key {
			return in, true
		}
	}
	return InputDef{}, false
}
