package school

import (
	"net/url"
	"strconv"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/format"
	"github.com/trezcool/masomo-console/core/record"
)

// FormInput is one input of a rendered edit form.
type FormInput struct {
	InputDef
	Value string
	Error string
}

// Form returns the edit inputs of kind prefilled from rec (nil for a blank form).
func Form(kind record.Kind, rec record.Map, errs map[string]string) []FormInput {
	def := MustDef(kind)
	inputs := make([]FormInput, 0, len(def.Form))
	for _, in := range def.Form {
		fi := FormInput{InputDef: in, Error: errs[in.Key]}
		if !in.WriteOnly {
			fi.Value = inputValue(in, rec.Get(in.Key))
		}
		inputs = append(inputs, fi)
	}
	return inputs
}

func inputValue(in InputDef, v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []interface{}:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			parts = append(parts, record.Stringify(e))
		}
		return strings.Join(parts, ", ")
	case bool:
		if t {
			return "on"
		}
		return ""
	}
	s := record.Stringify(v)
	if in.Type == "date" {
		// html date inputs speak ISO
		if tm, ok := (format.Formatter{}).ParseDate(s); ok {
			return tm.Format("2006-01-02")
		}
	}
	return s
}

// ParseForm builds the request record of kind from submitted form values.
// Unknown and absent keys are ignored; empty write-only inputs are dropped.
func ParseForm(kind record.Kind, values url.Values) record.Map {
	def := MustDef(kind)
	rec := make(record.Map, len(def.Form))
	for _, in := range def.Form {
		if _, ok := values[in.Key]; !ok {
			continue
		}
		raw := core.CleanString(values.Get(in.Key))
		switch {
		case in.Type == "checkbox":
			rec[in.Key] = raw != "" && raw != "off" && raw != "false"
		case raw == "" && in.WriteOnly:
		case in.List:
			items := make([]interface{}, 0)
			for _, p := range strings.Split(raw, ",") {
				if p = strings.TrimSpace(p); p != "" {
					items = append(items, p)
				}
			}
			rec[in.Key] = items
		case in.Type == "number" && raw != "":
			if n, err := strconv.ParseFloat(raw, 64); err == nil {
				rec[in.Key] = n
			} else {
				rec[in.Key] = raw
			}
		default:
			rec[in.Key] = raw
		}
	}
	return rec
}

// EditRequest lays the submitted values over a copy of the current record, so fields the form
// does not carry are sent back unchanged. Write-only fields are never carried over, and alternate
// identifier fields are dropped when the identifier changes.
func EditRequest(kind record.Kind, current record.Map, values url.Values) record.Map {
	def := MustDef(kind)
	spec := record.Spec(kind)

	req := current.Clone()
	for _, in := range def.Form {
		if in.WriteOnly {
			delete(req, in.Key)
		}
	}
	oldID := req.ID(kind)
	for k, v := range ParseForm(kind, values) {
		req[k] = v
	}
	if newID := req.ID(kind); newID != oldID {
		for _, alt := range spec.AltIDFields {
			delete(req, alt)
		}
	}
	return req
}

// Validator checks request records against the validate tags of the catalogue.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

func NewValidator() *Validator {
	v, tr := core.NewValidator()
	return &Validator{validate: v, translator: tr}
}

// Validate returns a *core.ValidationError listing every violated input of rec.
func (v *Validator) Validate(kind record.Kind, rec record.Map) error {
	def, err := Def(kind)
	if err != nil {
		return err
	}
	var flds []core.FieldError
	for _, in := range def.Form {
		if in.Validate == "" {
			continue
		}
		val := rec.String(in.Key)
		if err := v.validate.Var(val, in.Validate); err != nil {
			verr, ok := core.TranslateValidation(err, v.translator, in.Key).(*core.ValidationError)
			if !ok {
				return err
			}
			for _, f := range verr.Fields {
				if strings.HasPrefix(f.Error, " ") {
					f.Error = in.Label + f.Error
				}
				flds = append(flds, f)
			}
		}
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}
