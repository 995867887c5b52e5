package webtmpl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Data is a document of bindings that can be applied to an Engine.
//
//	values:
//	  username: alice
//	loops:
//	  orders:
//	    fields: [id, total]
//	    rows:
//	      - [1, 20]
//	      - {id: 2, total: 30}
type Data struct {
	Values map[string]string
	Loops  map[string]LoopData
}

// LoopData is one loop in a data document.
type LoopData struct {
	Fields []string
	Rows   [][]string
}

// dataDocument is the wire shape shared by YAML and JSON documents
type dataDocument struct {
	Values map[string]any          `yaml:"values" json:"values"`
	Loops  map[string]loopDocument `yaml:"loops" json:"loops"`
}

type loopDocument struct {
	Fields []string `yaml:"fields" json:"fields"`
	Rows   []any    `yaml:"rows" json:"rows"`
}

// DataFormatForPath picks the document format from a file extension:
// .yaml and .yml are YAML, everything else is JSON.
func DataFormatForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ExtYAML, ExtYML:
		return DataFormatYAML
	default:
		return DataFormatJSON
	}
}

// LoadDataFile reads and decodes a data document.
func LoadDataFile(path string) (*Data, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, NewDataReadError(path, err)
	}
	defer f.Close()

	return DecodeData(f, DataFormatForPath(path))
}

// DecodeData decodes a data document in the given format ("json" or "yaml").
func DecodeData(r io.Reader, format string) (*Data, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, NewDataDecodeError(format, err)
	}

	var doc dataDocument
	switch format {
	case DataFormatYAML:
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, NewDataDecodeError(format, err)
		}
	case DataFormatJSON:
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if len(bytes.TrimSpace(raw)) > 0 {
			if err := dec.Decode(&doc); err != nil {
				return nil, NewDataDecodeError(format, err)
			}
		}
	default:
		return nil, NewDataFormatError(format)
	}

	return doc.toData()
}

func (doc dataDocument) toData() (*Data, error) {
	data := &Data{
		Values: make(map[string]string, len(doc.Values)),
		Loops:  make(map[string]LoopData, len(doc.Loops)),
	}

	for name, v := range doc.Values {
		s, ok := scalarString(v)
		if !ok {
			return nil, NewDataValueError(name)
		}
		data.Values[name] = s
	}

	for name, ld := range doc.Loops {
		if len(ld.Fields) == 0 && hasListRow(ld.Rows) {
			return nil, NewDataFieldsError(name)
		}
		loop := LoopData{Fields: append([]string(nil), ld.Fields...)}
		for i, row := range ld.Rows {
			cells, err := rowCells(name, i, &loop, row)
			if err != nil {
				return nil, err
			}
			loop.Rows = append(loop.Rows, cells)
		}
		data.Loops[name] = loop
	}
	return data, nil
}

// hasListRow reports whether any row is positional
func hasListRow(rows []any) bool {
	for _, row := range rows {
		if _, ok := row.([]any); ok {
			return true
		}
	}
	return false
}

// rowCells converts one row, either a list of cells or a record keyed by field.
// A record in a loop without declared fields declares them from its sorted keys;
// list rows always need declared fields.
func rowCells(loop string, index int, ld *LoopData, row any) ([]string, error) {
	ref := fmt.Sprintf("%s.rows[%d]", loop, index)

	switch r := row.(type) {
	case []any:
		cells := make([]string, len(r))
		for i, v := range r {
			s, ok := scalarString(v)
			if !ok {
				return nil, NewDataValueError(fmt.Sprintf("%s[%d]", ref, i))
			}
			cells[i] = s
		}
		return cells, nil

	case map[string]any:
		if len(ld.Fields) == 0 {
			for k := range r {
				ld.Fields = append(ld.Fields, k)
			}
			sort.Strings(ld.Fields)
		}
		cells := make([]string, len(ld.Fields))
		for i, field := range ld.Fields {
			s, ok := scalarString(r[field])
			if !ok {
				return nil, NewDataValueError(ref + "." + field)
			}
			cells[i] = s
		}
		return cells, nil

	default:
		return nil, NewDataValueError(ref)
	}
}

// scalarString stringifies a decoded scalar; nil is "".
func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", true
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case bool, int, int64, uint64, float64:
		return fmt.Sprint(t), true
	default:
		return "", false
	}
}

// Apply binds a data document: values first, then loops in name order.
// Loops in the document replace loops of the same name.
func (e *Engine) Apply(data *Data) error {
	if data == nil {
		return NewDataNilError()
	}

	names := make([]string, 0, len(data.Values))
	for name := range data.Values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		e.Set(name, data.Values[name])
	}

	loops := make([]string, 0, len(data.Loops))
	for name := range data.Loops {
		loops = append(loops, name)
	}
	sort.Strings(loops)
	for _, name := range loops {
		loop := data.Loops[name]
		if err := e.DefineLoop(name, loop.Fields...); err != nil {
			return err
		}
		for _, row := range loop.Rows {
			if err := e.AppendRow(name, row); err != nil {
				return err
			}
		}
	}

	e.logger.Debug(LogMsgDataApplied,
		zap.Int(LogFieldValues, len(names)),
		zap.Int(LogFieldLoops, len(loops)))
	return nil
}
