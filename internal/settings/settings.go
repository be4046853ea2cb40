// Package settings reads and writes strategy configuration lists.
// Two formats are accepted: the CSV upload template (one strategy per row,
// canonical column names in the header) and a YAML document with a
// top-level strategies list. Absent fields take the template defaults.
package settings

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"options-breakout-lab/internal/domain"
)

// RequiredColumns must be present in every CSV upload.
var RequiredColumns = []string{"strategy_name", "big_candle_tf", "small_candle_tf", "from_date", "to_date"}

var (
	ErrMissingColumn  = errors.New("missing required column")
	ErrUnknownColumn  = errors.New("unknown column")
	ErrDuplicateName  = errors.New("duplicate strategy_name")
	ErrUnsupportedExt = errors.New("unsupported settings file extension")
	ErrNoStrategies   = errors.New("no strategies defined")
)

// field binds a csv column name to a StrategyConfig struct field.
type field struct {
	name  string
	index int
}

var fields = func() []field {
	t := reflect.TypeOf(domain.StrategyConfig{})
	out := make([]field, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if tag := t.Field(i).Tag.Get("csv"); tag != "" && tag != "-" {
			out = append(out, field{name: tag, index: i})
		}
	}
	return out
}()

// Columns returns every CSV column name in template order.
func Columns() []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.name
	}
	return names
}

func lookup(name string) (field, bool) {
	for _, f := range fields {
		if f.name == name {
			return f, true
		}
	}
	return field{}, false
}

// Load reads a .csv, .yaml or .yml strategy file.
func Load(path string, defaults domain.StrategyConfig) ([]domain.StrategyConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open settings: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ParseCSV(f, defaults)
	case ".yaml", ".yml":
		return ParseYAML(f, defaults)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedExt, path)
	}
}

// ParseCSV parses the upload format. Empty cells keep the default value.
func ParseCSV(r io.Reader, defaults domain.StrategyConfig) ([]domain.StrategyConfig, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoStrategies
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make([]field, len(header))
	present := make(map[string]bool, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		f, ok := lookup(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
		}
		cols[i] = f
		present[name] = true
	}
	for _, name := range RequiredColumns {
		if !present[name] {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}

	var configs []domain.StrategyConfig
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		cfg := defaults
		v := reflect.ValueOf(&cfg).Elem()
		for i, cell := range record {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			if err := set(v.Field(cols[i].index), cell); err != nil {
				return nil, fmt.Errorf("line %d, %s: %w", line, cols[i].name, err)
			}
		}
		configs = append(configs, cfg)
	}
	return finish(configs)
}

func set(v reflect.Value, s string) error {
	switch v.Interface().(type) {
	case string:
		v.SetString(s)
	case int:
		n, err := strconv.Atoi(s)
		if err != nil {
			// 15.0 from spreadsheet exports
			f, ferr := strconv.ParseFloat(s, 64)
			if ferr != nil || f != float64(int(f)) {
				return err
			}
			n = int(f)
		}
		v.SetInt(int64(n))
	case float64:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		v.SetFloat(f)
	case bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		v.SetBool(b)
	case time.Time:
		t, err := domain.ParseDate(s)
		if err != nil {
			return err
		}
		v.Set(reflect.ValueOf(t))
	default:
		return fmt.Errorf("unsupported field type %s", v.Type())
	}
	return nil
}

type yamlDocument struct {
	Strategies []yaml.Node `yaml:"strategies"`
}

// ParseYAML parses a document of the form:
//
//	strategies:
//	  - strategy_name: breakout_60
//	    from_date: 2025-01-01
//	    to_date: 2025-01-31
func ParseYAML(r io.Reader, defaults domain.StrategyConfig) ([]domain.StrategyConfig, error) {
	var doc yamlDocument
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoStrategies
		}
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	configs := make([]domain.StrategyConfig, 0, len(doc.Strategies))
	for i := range doc.Strategies {
		node := &doc.Strategies[i]
		if err := checkKeys(node); err != nil {
			return nil, fmt.Errorf("strategy %d: %w", i+1, err)
		}
		cfg := defaults
		if err := node.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("strategy %d (line %d): %w", i+1, node.Line, err)
		}
		configs = append(configs, cfg)
	}
	return finish(configs)
}

func checkKeys(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("expected a mapping at line %d", node.Line)
	}
	for i := 0; i < len(node.Content); i += 2 {
		if _, ok := lookup(node.Content[i].Value); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownColumn, node.Content[i].Value)
		}
	}
	return nil
}

// finish normalizes dates, validates and rejects duplicate names.
func finish(configs []domain.StrategyConfig) ([]domain.StrategyConfig, error) {
	if len(configs) == 0 {
		return nil, ErrNoStrategies
	}
	seen := make(map[string]bool, len(configs))
	for i := range configs {
		cfg := &configs[i]
		cfg.FromDate = domain.TruncateDate(cfg.FromDate)
		cfg.ToDate = domain.TruncateDate(cfg.ToDate)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		if seen[cfg.StrategyName] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateName, cfg.StrategyName)
		}
		seen[cfg.StrategyName] = true
	}
	return configs, nil
}

// WriteCSV writes configs in the upload format with every column.
// With no configs it writes the template: the header and one default row.
func WriteCSV(w io.Writer, configs []domain.StrategyConfig) error {
	if len(configs) == 0 {
		tmpl := domain.DefaultStrategyConfig()
		tmpl.StrategyName = "strategy_1"
		configs = []domain.StrategyConfig{tmpl}
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns()); err != nil {
		return err
	}
	for _, cfg := range configs {
		v := reflect.ValueOf(cfg)
		record := make([]string, len(fields))
		for i, f := range fields {
			record[i] = format(v.Field(f.index))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func format(v reflect.Value) string {
	switch x := v.Interface().(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(domain.DateLayout)
	default:
		return fmt.Sprint(x)
	}
}
