// Package schema declares the enrichment contract sent to the model and the
// column set persisted for every enriched listing.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
)

// Property types understood by Validate.
const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
)

// IDColumn is the persisted name of the listing identifier. Existing jobs
// tables key on this name, so it must not change.
const IDColumn = "job_spy_id"

// DatePostedColumn holds the posting date as a unix timestamp.
const DatePostedColumn = "date_posted_unix_ts"

// BaseColumns are the scraped columns persisted ahead of the enrichment fields.
var BaseColumns = []string{
	IDColumn,
	"site",
	"job_url",
	"job_url_direct",
	"title",
	"company",
	"location_suburb",
	"location_state",
	"location_country",
	DatePostedColumn,
	"description",
}

// Property is one field of the enrichment object.
type Property struct {
	Name        string
	Type        string
	Enum        []string
	Description string
}

// Schema is a strict object schema: every property is required and no other
// properties are allowed.
type Schema struct {
	Name       string
	Strict     bool
	Properties []Property
}

// Enrichment returns the schema of the attributes the model adds to each listing.
func Enrichment() Schema {
	return Schema{
		Name:   "ai_added_cols_schema",
		Strict: true,
		Properties: []Property{
			{Name: "advertised_maximum_salary", Type: TypeNumber, Description: "The maximum salary being advertised for the position."},
			{Name: "advertised_minimum_salary", Type: TypeNumber, Description: "The minimum salary being advertised for the position."},
			{Name: "advertised_salary_interval", Type: TypeString, Enum: []string{"hourly", "yearly"}, Description: "The interval at which the salary is advertised, either hourly or yearly."},
			{Name: "office_type", Type: TypeString, Enum: []string{"remote", "hybrid", "in office only"}, Description: "The type of office setting for the job."},
			{Name: "non_profit_status", Type: TypeString, Enum: []string{"non_profit", "for_profit"}, Description: "Indicates if the job is for a non-profit organization."},
			{Name: "minimum_required_education", Type: TypeString, Enum: []string{"high school", "associate degree", "bachelor degree", "master degree", "doctorate"}, Description: "The minimum level of education required for the job."},
			{Name: "key_responsibilities", Type: TypeString, Description: "A description of the key responsibilities for the job."},
			{Name: "key_required_technical_skills", Type: TypeString, Description: "A description of the key technical skills required for the job."},
			{Name: "required_experience", Type: TypeString, Description: "A description of the experience required for the job."},
		},
	}
}

// PropertyNames returns the property names in declaration order.
func (s Schema) PropertyNames() []string {
	names := make([]string, len(s.Properties))
	for i, p := range s.Properties {
		names[i] = p.Name
	}
	return names
}

// Columns returns the persisted column order: base columns, then enrichment properties.
func (s Schema) Columns() []string {
	cols := make([]string, 0, len(BaseColumns)+len(s.Properties))
	cols = append(cols, BaseColumns...)
	return append(cols, s.PropertyNames()...)
}

// Column storage kinds used when a store creates the listings table.
const (
	KindText    = "text"
	KindReal    = "real"
	KindInteger = "integer"
)

// ColumnSpec pairs a persisted column with its storage kind.
type ColumnSpec struct {
	Name string
	Kind string
}

// ColumnSpecs returns Columns with the storage kind of each.
func (s Schema) ColumnSpecs() []ColumnSpec {
	specs := make([]ColumnSpec, 0, len(BaseColumns)+len(s.Properties))
	for _, c := range BaseColumns {
		kind := KindText
		if c == DatePostedColumn {
			kind = KindInteger
		}
		specs = append(specs, ColumnSpec{Name: c, Kind: kind})
	}
	for _, p := range s.Properties {
		kind := KindText
		switch p.Type {
		case TypeNumber:
			kind = KindReal
		case TypeInteger, TypeBoolean:
			kind = KindInteger
		}
		specs = append(specs, ColumnSpec{Name: p.Name, Kind: kind})
	}
	return specs
}

type descriptor struct {
	Name   string       `json:"name"`
	Strict bool         `json:"strict"`
	Schema objectSchema `json:"schema"`
}

type objectSchema struct {
	Type                 string          `json:"type"`
	Properties           json.RawMessage `json:"properties"`
	Required             []string        `json:"required"`
	AdditionalProperties bool            `json:"additionalProperties"`
}

type propertyJSON struct {
	Type        string   `json:"type"`
	Enum        []string `json:"enum,omitempty"`
	Description string   `json:"description,omitempty"`
}

// MarshalJSON renders the OpenAI json_schema descriptor. Properties keep their
// declaration order so the prompt and the request body read the same way.
func (s Schema) MarshalJSON() ([]byte, error) {
	var props bytes.Buffer
	props.WriteByte('{')
	for i, p := range s.Properties {
		if i > 0 {
			props.WriteByte(',')
		}
		key, err := json.Marshal(p.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(propertyJSON{Type: p.Type, Enum: p.Enum, Description: p.Description})
		if err != nil {
			return nil, fmt.Errorf("marshal property %s: %w", p.Name, err)
		}
		props.Write(key)
		props.WriteByte(':')
		props.Write(val)
	}
	props.WriteByte('}')

	return json.Marshal(descriptor{
		Name:   s.Name,
		Strict: s.Strict,
		Schema: objectSchema{
			Type:                 "object",
			Properties:           props.Bytes(),
			Required:             s.PropertyNames(),
			AdditionalProperties: false,
		},
	})
}

// Validate checks decoded model output against the schema: all properties
// present and non-null, values of the declared type and enum, nothing extra.
func (s Schema) Validate(fields map[string]any) error {
	for name := range fields {
		if !slices.ContainsFunc(s.Properties, func(p Property) bool { return p.Name == name }) {
			return fmt.Errorf("undeclared property %q", name)
		}
	}
	for _, p := range s.Properties {
		v, ok := fields[p.Name]
		if !ok || v == nil {
			return fmt.Errorf("missing property %q", p.Name)
		}
		if err := checkType(p, v); err != nil {
			return err
		}
		if len(p.Enum) > 0 {
			str, _ := v.(string)
			if !slices.Contains(p.Enum, str) {
				return fmt.Errorf("property %q: %q is not one of %v", p.Name, str, p.Enum)
			}
		}
	}
	return nil
}

func checkType(p Property, v any) error {
	switch p.Type {
	case TypeString:
		if _, ok := v.(string); ok {
			return nil
		}
	case TypeNumber:
		if _, ok := v.(float64); ok {
			return nil
		}
	case TypeInteger:
		if f, ok := v.(float64); ok && f == math.Trunc(f) {
			return nil
		}
	case TypeBoolean:
		if _, ok := v.(bool); ok {
			return nil
		}
	default:
		return fmt.Errorf("property %q has unsupported type %q", p.Name, p.Type)
	}
	return fmt.Errorf("property %q: want %s, got %T", p.Name, p.Type, v)
}
