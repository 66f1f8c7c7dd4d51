package disk

import (
	"fmt"

	"github.com/woralem/dbtext/internal/dbtext/ast"
	"github.com/woralem/dbtext/internal/dbtext/dberr"
)

// conforms and convertValue mirror the in-memory backend's type
// validation and ALTER COLUMN TYPE coercion matrix exactly (spec.md §3
// Glossary "Conversion"); duplicated rather than shared because the two
// backends otherwise have no common dependency edge and the rules are
// small enough that keeping them side by side is clearer than adding one.
func conforms(c ast.ColumnDef, v ast.Value) error {
	switch c.Type {
	case ast.VARCHAR:
		if !v.IsString() {
			return dberr.Newf(dberr.SchemaError, "column %q expects VARCHAR", c.Name)
		}
		if c.MaxLength > 0 && len(v.Str()) > c.MaxLength {
			return dberr.Newf(dberr.SchemaError, "value for column %q exceeds max length %d", c.Name, c.MaxLength)
		}
	case ast.INT:
		if !v.IsInt() {
			return dberr.Newf(dberr.SchemaError, "column %q expects INT", c.Name)
		}
	case ast.DOUBLE:
		if !v.IsInt() && !v.IsFloat() {
			return dberr.Newf(dberr.SchemaError, "column %q expects DOUBLE", c.Name)
		}
	case ast.BOOLEAN:
		if !v.IsBool() {
			return dberr.Newf(dberr.SchemaError, "column %q expects BOOLEAN", c.Name)
		}
	}
	return nil
}

func convertValue(v ast.Value, to ast.DataType) ast.Value {
	if v.IsNull() {
		return ast.Null
	}
	switch to {
	case ast.INT:
		switch {
		case v.IsInt():
			return v
		case v.IsFloat():
			return ast.IntValue(int64(v.Float()))
		case v.IsBool():
			if v.Bool() {
				return ast.IntValue(1)
			}
			return ast.IntValue(0)
		case v.IsString():
			return stringToInt(v.Str())
		}
	case ast.DOUBLE:
		switch {
		case v.IsFloat():
			return v
		case v.IsInt():
			return ast.FloatValue(float64(v.Int()))
		case v.IsBool():
			if v.Bool() {
				return ast.FloatValue(1)
			}
			return ast.FloatValue(0)
		case v.IsString():
			return stringToFloat(v.Str())
		}
	case ast.VARCHAR:
		return ast.StringValue(v.String())
	case ast.BOOLEAN:
		switch {
		case v.IsBool():
			return v
		case v.IsInt():
			return ast.BoolValue(v.Int() != 0)
		case v.IsFloat():
			return ast.BoolValue(v.Float() != 0)
		}
	}
	return ast.Null
}

func stringToInt(s string) ast.Value {
	var n int64
	if _, err := fmt.Sscanf(s, "%d", &n); err == nil {
		return ast.IntValue(n)
	}
	var f float64
	if _, err := fmt.Sscanf(s, "%g", &f); err == nil {
		if f < 0 {
			return ast.IntValue(int64(f - 0.5))
		}
		return ast.IntValue(int64(f + 0.5))
	}
	return ast.Null
}

func stringToFloat(s string) ast.Value {
	var f float64
	if _, err := fmt.Sscanf(s, "%g", &f); err != nil {
		return ast.Null
	}
	return ast.FloatValue(f)
}

func zeroValue(dt ast.DataType) ast.Value {
	switch dt {
	case ast.INT:
		return ast.IntValue(0)
	case ast.DOUBLE:
		return ast.FloatValue(0)
	case ast.VARCHAR:
		return ast.StringValue("")
	case ast.BOOLEAN:
		return ast.BoolValue(false)
	default:
		return ast.Null
	}
}
