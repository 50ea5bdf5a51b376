package core

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Configuration is a frozen description of one import run. Produce it with
// a Builder.
type Configuration struct {
	File        string
	Fields      FieldSpec
	Key         FieldSpec
	Rules       RuleSet
	Mode        Mode
	Delimiter   rune
	Ignore      int
	Take        int // 0 means no limit
	Encoding    string
	DryRun      bool
	Transaction bool
	SkipInvalid bool
}

// ReaderOptions returns the options for opening the import file.
func (c Configuration) ReaderOptions() (ReaderOptions, error) {
	enc, err := LookupEncoding(c.Encoding)
	if err != nil {
		return ReaderOptions{}, err
	}
	return ReaderOptions{
		Delimiter: c.Delimiter,
		Ignore:    c.Ignore,
		Take:      c.Take,
		Encoding:  enc,
	}, nil
}

// ValidationRules returns the rules that apply to this run's mode.
func (c Configuration) ValidationRules() RuleSet {
	if c.Mode == ModeUpdate {
		return c.Rules.Narrow(c.Fields)
	}
	return c.Rules
}

// Builder assembles a Configuration. Each setter validates its input
// immediately. Once Build succeeds the builder rejects further changes.
type Builder struct {
	cfg       Configuration
	keyDefs   []string
	fieldsSet bool
	frozen    bool
}

// NewBuilder returns a builder with the defaults: upsert mode, comma
// delimiter, no bounds.
func NewBuilder() *Builder {
	return &Builder{cfg: Configuration{
		Mode:      ModeUpsert,
		Delimiter: ',',
	}}
}

func (b *Builder) mutable() error {
	if b.frozen {
		return ErrConfigurationFrozen
	}
	return nil
}

// SetFile sets the import file. It must be readable and not empty.
func (b *Builder) SetFile(path string) error {
	if err := b.mutable(); err != nil {
		return err
	}
	path = strings.TrimSpace(path)
	if err := checkInputFile(path); err != nil {
		return &FileError{Label: "Import file", Path: path, Err: err}
	}
	b.cfg.File = path
	return nil
}

// SetFields parses field definitions.
func (b *Builder) SetFields(defs []string) error {
	if err := b.mutable(); err != nil {
		return err
	}
	spec, err := ParseFieldSpec(defs)
	if err != nil {
		return err
	}
	b.cfg.Fields = spec
	b.fieldsSet = true
	return nil
}

// SetFieldsFromFile reads field definitions from path, one per line.
func (b *Builder) SetFieldsFromFile(path string) error {
	if err := b.mutable(); err != nil {
		return err
	}
	defs, err := ReadDefinitionsFile(path)
	if err != nil {
		return err
	}
	return b.SetFields(defs)
}

// SetKey sets key definitions. Bare names are resolved against the fields,
// so this is checked again by Build when fields are set later.
func (b *Builder) SetKey(defs []string) error {
	if err := b.mutable(); err != nil {
		return err
	}
	if b.fieldsSet {
		if _, err := ParseKeySpec(defs, b.cfg.Fields); err != nil {
			return err
		}
	}
	b.keyDefs = append([]string(nil), defs...)
	return nil
}

// SetMode sets the import mode.
func (b *Builder) SetMode(mode string) error {
	if err := b.mutable(); err != nil {
		return err
	}
	m, err := ParseMode(mode)
	if err != nil {
		return err
	}
	b.cfg.Mode = m
	return nil
}

// SetDelimiter sets the field delimiter. Escapes such as \t and \x1f are
// interpreted.
func (b *Builder) SetDelimiter(delimiter string) error {
	if err := b.mutable(); err != nil {
		return err
	}
	d, err := UnescapeDelimiter(delimiter)
	if err != nil {
		return err
	}
	b.cfg.Delimiter = d
	return nil
}

// SetIgnoreLines skips the first n records.
func (b *Builder) SetIgnoreLines(n int) error {
	if err := b.mutable(); err != nil {
		return err
	}
	if n < 0 {
		return ErrInvalidIgnore
	}
	b.cfg.Ignore = n
	return nil
}

// SetTakeLines stops after n records.
func (b *Builder) SetTakeLines(n int) error {
	if err := b.mutable(); err != nil {
		return err
	}
	if n < 1 {
		return ErrInvalidTake
	}
	b.cfg.Take = n
	return nil
}

// SetRules sets the validation rules.
func (b *Builder) SetRules(rules RuleSet) error {
	if err := b.mutable(); err != nil {
		return err
	}
	b.cfg.Rules = rules
	return nil
}

// SetRulesFromFile loads validation rules from a YAML or JSON file.
func (b *Builder) SetRulesFromFile(path string) error {
	if err := b.mutable(); err != nil {
		return err
	}
	rules, err := LoadRuleFile(path)
	if err != nil {
		return err
	}
	b.cfg.Rules = rules
	return nil
}

// SetEncoding sets the charset of the import file.
func (b *Builder) SetEncoding(name string) error {
	if err := b.mutable(); err != nil {
		return err
	}
	if _, err := LookupEncoding(name); err != nil {
		return err
	}
	b.cfg.Encoding = strings.TrimSpace(name)
	return nil
}

func (b *Builder) SetDryRun(dryRun bool) error {
	if err := b.mutable(); err != nil {
		return err
	}
	b.cfg.DryRun = dryRun
	return nil
}

func (b *Builder) SetTransaction(useTransaction bool) error {
	if err := b.mutable(); err != nil {
		return err
	}
	b.cfg.Transaction = useTransaction
	return nil
}

// SetSkipInvalid makes rows that fail validation be skipped instead of
// aborting the run.
func (b *Builder) SetSkipInvalid(skip bool) error {
	if err := b.mutable(); err != nil {
		return err
	}
	b.cfg.SkipInvalid = skip
	return nil
}

// Build validates the combination of settings and freezes the builder.
func (b *Builder) Build() (Configuration, error) {
	if err := b.mutable(); err != nil {
		return Configuration{}, err
	}
	if b.cfg.File == "" {
		return Configuration{}, ErrMissingFile
	}
	if !b.fieldsSet {
		return Configuration{}, ErrEmptyFieldSpec
	}

	key, err := ParseKeySpec(b.keyDefs, b.cfg.Fields)
	if err != nil {
		return Configuration{}, err
	}

	cfg := b.cfg
	cfg.Fields = b.cfg.Fields.Clone()
	cfg.Key = key
	cfg.Rules = append(RuleSet(nil), b.cfg.Rules...)

	b.frozen = true
	return cfg, nil
}

// UnescapeDelimiter interprets backslash escapes in s and returns the
// single delimiter character it denotes.
func UnescapeDelimiter(s string) (rune, error) {
	if s == "" {
		return ',', nil
	}

	if strings.Contains(s, `\`) {
		unquoted, err := strconv.Unquote(`"` + strings.ReplaceAll(s, `"`, `\"`) + `"`)
		if err != nil {
			return 0, fmt.Errorf("%w: invalid escape %q", ErrInvalidDelimiter, s)
		}
		s = unquoted
	}

	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("%w: %q must be a single character", ErrInvalidDelimiter, s)
	}

	d, _ := utf8.DecodeRuneInString(s)
	if !ValidDelimiter(d) {
		return 0, fmt.Errorf("%w %q", ErrInvalidDelimiter, s)
	}
	return d, nil
}
