package core

// fieldspec.go turns field and key definitions into column mappings.
//
// A definition is either "name" or "name:position" where position is a
// 0-based column index. Names without a position take their declaration
// index, so "email:3,name" maps email to column 3 and name to column 1.

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Field binds a field name to a source column.
type Field struct {
	Name     string
	Position int
}

// FieldSpec is an ordered name -> column mapping. Names are unique;
// positions may repeat.
type FieldSpec []Field

// Names returns the field names in declaration order.
func (s FieldSpec) Names() []string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.Name
	}
	return names
}

// Position returns the column bound to name.
func (s FieldSpec) Position(name string) (int, bool) {
	for _, f := range s {
		if f.Name == name {
			return f.Position, true
		}
	}
	return 0, false
}

// Has reports whether name is mapped by s.
func (s FieldSpec) Has(name string) bool {
	_, ok := s.Position(name)
	return ok
}

// Clone returns an independent copy of s.
func (s FieldSpec) Clone() FieldSpec {
	return append(FieldSpec(nil), s...)
}

func (s FieldSpec) String() string {
	parts := make([]string, len(s))
	for i, f := range s {
		parts[i] = fmt.Sprintf("%s:%d", f.Name, f.Position)
	}
	return strings.Join(parts, ",")
}

// set assigns position to name, keeping the slot of an existing entry.
func (s FieldSpec) set(name string, position int) FieldSpec {
	for i := range s {
		if s[i].Name == name {
			s[i].Position = position
			return s
		}
	}
	return append(s, Field{Name: name, Position: position})
}

// SplitDefinitions splits a comma- or newline-separated definition list,
// trimming tokens and dropping empty ones.
func SplitDefinitions(s string) []string {
	tokens := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})
	return trimTokens(tokens)
}

// ReadDefinitionsFile reads definitions from path, one per line.
func ReadDefinitionsFile(path string) ([]string, error) {
	if err := checkInputFile(path); err != nil {
		return nil, &FileError{Label: "Field file", Path: path, Err: err}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &FileError{Label: "Field file", Path: path, Err: ErrFileNotReadable}
	}

	return SplitDefinitions(string(data)), nil
}

// ParseFieldSpec builds a FieldSpec from definition tokens.
func ParseFieldSpec(defs []string) (FieldSpec, error) {
	tokens := trimTokens(defs)
	if len(tokens) == 0 {
		return nil, ErrEmptyFieldSpec
	}

	spec := make(FieldSpec, 0, len(tokens))
	for i, token := range tokens {
		name, position, explicit, err := parseDefinition(token)
		if err != nil {
			return nil, err
		}
		if !explicit {
			position = i
		}
		spec = spec.set(name, position)
	}

	return spec, nil
}

// ParseKeySpec builds the key mapping. With no definitions the key is the
// whole field spec. Bare names take their position from fields.
func ParseKeySpec(defs []string, fields FieldSpec) (FieldSpec, error) {
	tokens := trimTokens(defs)
	if len(tokens) == 0 {
		return fields.Clone(), nil
	}

	spec := make(FieldSpec, 0, len(tokens))
	for _, token := range tokens {
		name, position, explicit, err := parseDefinition(token)
		if err != nil {
			return nil, err
		}
		if !explicit {
			pos, ok := fields.Position(name)
			if !ok {
				return nil, &KeyFieldError{Field: name}
			}
			position = pos
		}
		spec = spec.set(name, position)
	}

	return spec, nil
}

// parseDefinition splits "name[:position]".
func parseDefinition(token string) (name string, position int, explicit bool, err error) {
	if !strings.Contains(token, ":") {
		return token, 0, false, nil
	}

	parts := strings.Split(token, ":")
	name = strings.TrimSpace(parts[0])
	raw := strings.TrimSpace(parts[1])

	if name == "" {
		return "", 0, false, &FieldDefinitionError{Position: raw}
	}

	position, convErr := strconv.Atoi(raw)
	if convErr != nil || position < 0 {
		return "", 0, false, &FieldDefinitionError{Field: name, Position: raw}
	}

	return name, position, true, nil
}

func trimTokens(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// checkInputFile verifies path names a readable, non-empty regular file.
func checkInputFile(path string) error {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return ErrFileNotReadable
	}

	f, err := os.Open(path)
	if err != nil {
		return ErrFileNotReadable
	}
	f.Close()

	if info.Size() == 0 {
		return ErrEmptyFile
	}
	return nil
}
