package core

import "strings"

// MapRow projects a record through spec, trimming every value. A position
// past the end of the record aborts with a PositionError naming the field.
func MapRow(line int, values []string, spec FieldSpec) (Row, error) {
	row := make(Row, len(spec))
	for _, f := range spec {
		if f.Position > len(values)-1 {
			return nil, &PositionError{
				Line:     line,
				Field:    f.Name,
				Position: f.Position,
				Columns:  len(values),
			}
		}
		row[f.Name] = strings.TrimSpace(values[f.Position])
	}
	return row, nil
}
