// Package xlsxexport writes a slice of structs as a single-sheet xlsx workbook.
package xlsxexport

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Constants & Types
// =============================================================================

const (
	FormatText     = ""
	FormatDate     = "date"
	FormatDateTime = "datetime"
	FormatCurrency = "currency"
	FormatBool     = "bool"

	DefaultSheetName   = "Employees"
	DefaultHeaderColor = "DDEBF7"
	DefaultColumnWidth = 15
	currencyNumFmt     = "#,##0.00"
)

// Config is the YAML layout of an export.
type Config struct {
	Sheet   string   `yaml:"sheet"`
	Columns []Column `yaml:"columns"`
}

// Column maps one struct field to one sheet column.
type Column struct {
	Field  string  `yaml:"field"` // Go struct field name
	Header string  `yaml:"header"`
	Width  float64 `yaml:"width"`
	Format string  `yaml:"format"` // "", date, datetime, currency, bool
}

// Exporter renders rows according to a Config.
type Exporter struct {
	cfg        Config
	formatters map[string]func(interface{}) interface{}
}

// =============================================================================
// Constructors
// =============================================================================

// NewExporter creates an exporter for cfg
func NewExporter(cfg Config) (*Exporter, error) {
	if len(cfg.Columns) == 0 {
		return nil, fmt.Errorf("export config has no columns")
	}
	if cfg.Sheet == "" {
		cfg.Sheet = DefaultSheetName
	}
	for i := range cfg.Columns {
		col := &cfg.Columns[i]
		if col.Field == "" {
			return nil, fmt.Errorf("column %d has no field", i+1)
		}
		if col.Header == "" {
			col.Header = col.Field
		}
		if col.Width <= 0 {
			col.Width = DefaultColumnWidth
		}
		switch col.Format {
		case FormatText, FormatDate, FormatDateTime, FormatCurrency, FormatBool:
		default:
			return nil, fmt.Errorf("column %q: unknown format %q", col.Field, col.Format)
		}
	}
	return &Exporter{cfg: cfg, formatters: make(map[string]func(interface{}) interface{})}, nil
}

// ParseConfig decodes a YAML export layout.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode yaml: %w", err)
	}
	return cfg, nil
}

// LoadConfig reads a YAML export layout from path.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read export config: %w", err)
	}
	return ParseConfig(data)
}

// DefaultEmployeeConfig lists every employee column.
func DefaultEmployeeConfig() Config {
	return Config{
		Sheet: DefaultSheetName,
		Columns: []Column{
			{Field: "ID", Header: "ID", Width: 38},
			{Field: "FirstName", Header: "First Name", Width: 16},
			{Field: "LastName", Header: "Last Name", Width: 16},
			{Field: "Email", Header: "Email", Width: 30},
			{Field: "Phone", Header: "Phone", Width: 14},
			{Field: "Position", Header: "Position", Width: 24},
			{Field: "Department", Header: "Department", Width: 18},
			{Field: "Salary", Header: "Salary", Width: 14, Format: FormatCurrency},
			{Field: "HireDate", Header: "Hire Date", Width: 14, Format: FormatDate},
			{Field: "IsActive", Header: "Active", Width: 10, Format: FormatBool},
		},
	}
}

// RegisterFormatter overrides how values of a format name are rendered.
func (e *Exporter) RegisterFormatter(format string, f func(interface{}) interface{}) *Exporter {
	e.formatters[format] = f
	return e
}

// Columns returns the resolved columns.
func (e *Exporter) Columns() []Column {
	return append([]Column(nil), e.cfg.Columns...)
}

// =============================================================================
// Rendering
// =============================================================================

// Build renders rows, a slice of structs or struct pointers, into a new workbook.
func (e *Exporter) Build(rows interface{}) (*excelize.File, error) {
	v := reflect.ValueOf(rows)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Slice {
		return nil, fmt.Errorf("rows must be a slice, got %T", rows)
	}

	f := excelize.NewFile()
	sheet := e.cfg.Sheet
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		f.Close()
		return nil, err
	}

	if err := e.writeHeader(f, sheet); err != nil {
		f.Close()
		return nil, err
	}

	currencyStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: strPtr(currencyNumFmt)})
	if err != nil {
		f.Close()
		return nil, err
	}

	for i := 0; i < v.Len(); i++ {
		item := v.Index(i)
		if item.Kind() == reflect.Ptr {
			item = item.Elem()
		}
		for j, col := range e.cfg.Columns {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
			if err := f.SetCellValue(sheet, cell, e.format(col, extractValue(item, col.Field))); err != nil {
				f.Close()
				return nil, err
			}
			if col.Format == FormatCurrency && e.formatters[FormatCurrency] == nil {
				if err := f.SetCellStyle(sheet, cell, cell, currencyStyle); err != nil {
					f.Close()
					return nil, err
				}
			}
		}
	}

	if v.Len() > 0 {
		last, _ := excelize.CoordinatesToCellName(len(e.cfg.Columns), v.Len()+1)
		if err := f.AutoFilter(sheet, "A1:"+last, nil); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

func (e *Exporter) writeHeader(f *excelize.File, sheet string) error {
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{DefaultHeaderColor}, Pattern: 1},
	})
	if err != nil {
		return err
	}

	for i, col := range e.cfg.Columns {
		name, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheet, name, name, col.Width); err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, name+"1", col.Header); err != nil {
			return err
		}
	}

	last, _ := excelize.ColumnNumberToName(len(e.cfg.Columns))
	if err := f.SetCellStyle(sheet, "A1", last+"1", headerStyle); err != nil {
		return err
	}
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// ToBytes exports rows to an in-memory workbook.
func (e *Exporter) ToBytes(rows interface{}) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := e.ToWriter(buf, rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ToWriter exports rows directly to w.
func (e *Exporter) ToWriter(w io.Writer, rows interface{}) error {
	f, err := e.Build(rows)
	if err != nil {
		return err
	}
	defer f.Close()

	return f.Write(w)
}

func (e *Exporter) format(col Column, val interface{}) interface{} {
	if fn, ok := e.formatters[col.Format]; ok && col.Format != FormatText {
		return fn(val)
	}
	switch col.Format {
	case FormatDate:
		if t, ok := val.(time.Time); ok {
			if t.IsZero() {
				return ""
			}
			return t.UTC().Format("2006-01-02")
		}
	case FormatDateTime:
		if t, ok := val.(time.Time); ok {
			if t.IsZero() {
				return ""
			}
			return t.UTC().Format(time.RFC3339)
		}
	case FormatBool:
		if b, ok := val.(bool); ok {
			if b {
				return "Yes"
			}
			return "No"
		}
	}
	return val
}

func extractValue(item reflect.Value, fieldName string) interface{} {
	switch item.Kind() {
	case reflect.Struct:
		f := item.FieldByName(fieldName)
		if f.IsValid() && f.CanInterface() {
			return f.Interface()
		}
	case reflect.Map:
		if item.Type().Key().Kind() != reflect.String {
			return ""
		}
		val := item.MapIndex(reflect.ValueOf(fieldName).Convert(item.Type().Key()))
		if val.IsValid() {
			return val.Interface()
		}
	}
	return ""
}

// ContentType of an xlsx workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// FileName builds a dated download name such as employees_20240501.xlsx.
func FileName(prefix string, now time.Time) string {
	return strings.ToLower(prefix) + "_" + now.UTC().Format("20060102") + ".xlsx"
}

func strPtr(s string) *string { return &s }
