package recordmap

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/starford/blockpress/internal/models"
)

var (
	// ErrPropertyNotFound is returned when a block has no value for the named property.
	ErrPropertyNotFound = errors.New("property not found")
	// ErrMalformedProperty is returned when a property value cannot be read.
	ErrMalformedProperty = errors.New("malformed property")
	// ErrInvalidTimestamp is returned when a property value is not a point in time.
	ErrInvalidTimestamp = errors.New("invalid timestamp")
)

// Schema property types with special handling.
const (
	PropertyTypeDate           = "date"
	PropertyTypeCreatedTime    = "created_time"
	PropertyTypeLastEditedTime = "last_edited_time"
	PropertyTypeMultiSelect    = "multi_select"
	PropertyTypeCheckbox       = "checkbox"
)

// Value is a property read from a block through its collection schema.
type Value struct {
	Name string
	Type string
	Raw  models.RichText

	block *models.Block
}

// Text returns the plain text of the value.
func (v Value) Text() string { return v.Raw.PlainText() }

// Strings splits multi-select and comma separated values.
func (v Value) Strings() []string {
	var out []string
	for _, s := range strings.Split(v.Text(), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Bool reports whether a checkbox value is ticked.
func (v Value) Bool() bool { return v.Text() == "Yes" }

// Timestamp interprets the value as a point in time. Date properties use
// their date payload, created/edited properties the block's native fields,
// and everything else must be epoch milliseconds.
func (v Value) Timestamp() (time.Time, error) {
	switch v.Type {
	case PropertyTypeCreatedTime:
		if t, ok := v.block.CreatedTime.Time(); ok {
			return t, nil
		}
		return time.Time{}, fmt.Errorf("%s: block has no created_time: %w", v.Name, ErrInvalidTimestamp)
	case PropertyTypeLastEditedTime:
		if t, ok := v.block.LastEditedTime.Time(); ok {
			return t, nil
		}
		return time.Time{}, fmt.Errorf("%s: block has no last_edited_time: %w", v.Name, ErrInvalidTimestamp)
	case PropertyTypeDate:
		for _, span := range v.Raw {
			d, ok := span.Decoration("d")
			if !ok {
				continue
			}
			dv, err := d.Date()
			if err != nil {
				return time.Time{}, fmt.Errorf("%s: %v: %w", v.Name, err, ErrInvalidTimestamp)
			}
			t, err := dv.Time()
			if err != nil {
				return time.Time{}, fmt.Errorf("%s: %v: %w", v.Name, err, ErrInvalidTimestamp)
			}
			return t, nil
		}
	}
	text := strings.TrimSpace(v.Text())
	ms, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %q is not numeric: %w", v.Name, text, ErrInvalidTimestamp)
	}
	t, ok := models.EpochMillis(ms)
	if !ok {
		return time.Time{}, fmt.Errorf("%s: %q is out of range: %w", v.Name, text, ErrInvalidTimestamp)
	}
	return t, nil
}

// ReadProperty resolves name (case-insensitively) through the schema of
// block's parent collection and returns its value.
func ReadProperty(name string, block *models.Block, rm *models.RecordMap) (Value, error) {
	if block == nil {
		return Value{}, fmt.Errorf("%s: no block: %w", name, ErrPropertyNotFound)
	}
	collection := rm.GetCollection(block.ParentID)
	if collection == nil {
		return Value{}, fmt.Errorf("%s: block %s has no parent collection: %w", name, block.ID, ErrPropertyNotFound)
	}
	propID, prop, ok := schemaProperty(collection, name)
	if !ok {
		return Value{}, fmt.Errorf("%s: not in schema of collection %s: %w", name, collection.ID, ErrPropertyNotFound)
	}
	v := Value{Name: prop.Name, Type: prop.Type, block: block}
	switch prop.Type {
	case PropertyTypeCreatedTime, PropertyTypeLastEditedTime:
		return v, nil
	}
	raw, ok := block.Properties[propID]
	if !ok || len(raw) == 0 {
		return Value{}, fmt.Errorf("%s: block %s has no value: %w", name, block.ID, ErrPropertyNotFound)
	}
	v.Raw = raw
	return v, nil
}

// SchemaProperty finds a property of the collection by case-insensitive name.
func SchemaProperty(c *models.Collection, name string) (string, models.SchemaProperty, bool) {
	return schemaProperty(c, name)
}

func schemaProperty(c *models.Collection, name string) (string, models.SchemaProperty, bool) {
	if c == nil {
		return "", models.SchemaProperty{}, false
	}
	// Schema is a map; pick the lowest id among matches for determinism.
	var (
		bestID string
		best   models.SchemaProperty
		found  bool
	)
	for id, p := range c.Schema {
		if !strings.EqualFold(p.Name, name) {
			continue
		}
		if !found || id < bestID {
			bestID, best, found = id, p, true
		}
	}
	return bestID, best, found
}

// PageTags returns the values of the page's "tags" property, or nil.
func PageTags(block *models.Block, rm *models.RecordMap) []string {
	v, err := ReadProperty("tags", block, rm)
	if err != nil {
		return nil
	}
	return v.Strings()
}
