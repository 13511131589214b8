package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ============================================================
// Configuration Record
// ============================================================

// Record - одно изделие в том виде, в каком его собрала форма калькулятора.
// Каждый аксессор возвращает значение по умолчанию, если ключа нет, он null,
// пустой или неподходящего типа.
type Record map[string]any

const (
	DefaultRefID          = "F1"
	DefaultMaterial       = "PVC"
	DefaultPlaceholder    = "-"
	DefaultFrameThickness = 70.0
	DefaultProjectName    = "P"
)

func (r Record) RefID() string        { return r.String("ref_id", DefaultRefID) }
func (r Record) Width() float64       { return r.Number("width", 0) }
func (r Record) Height() float64      { return r.Number("height", 0) }
func (r Record) Material() string     { return r.String("mat_type", DefaultMaterial) }
func (r Record) Installation() string { return r.String("pose_type", DefaultPlaceholder) }
func (r Record) ColorInside() string  { return r.String("col_in", DefaultPlaceholder) }
func (r Record) ColorOutside() string { return r.String("col_ex", DefaultPlaceholder) }
func (r Record) FinSize() float64     { return r.Number("fin_val", 0) }

func (r Record) FrameThickness() float64 {
	return r.Number("frame_thig", DefaultFrameThickness)
}

// ProjectName читает вложенное значение project.name.
func (r Record) ProjectName() string {
	project, ok := r["project"].(map[string]any)
	if !ok {
		if rec, isRec := r["project"].(Record); isRec {
			project, ok = rec, true
		}
	}
	if !ok {
		return DefaultProjectName
	}
	return Record(project).String("name", DefaultProjectName)
}

// String возвращает значение по ключу как текст. Числа форматируются
// так же, как в строках с размерами.
func (r Record) String(key, def string) string {
	switch v := r[key].(type) {
	case string:
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	case json.Number:
		return v.String()
	case float64:
		return FormatNumber(v)
	case float32:
		return FormatNumber(float64(v))
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	}
	return def
}

// Number возвращает значение по ключу как число. Строки с числом
// принимаются, разделитель дробной части - точка или запятая. NaN и
// бесконечности считаются непригодными.
func (r Record) Number(key string, def float64) float64 {
	if f, ok := r.number(key); ok && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	return def
}

func (r Record) number(key string) (float64, bool) {
	switch v := r[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(v), ",", ".")
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	return 0, false
}

// FormatNumber печатает размер без хвостовых нулей: 1200, 1200.5.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ParseRecord декодирует JSON объект в Record. JSON null или пустое тело
// дают пустую запись.
func ParseRecord(data []byte) (Record, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return Record{}, nil
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if rec == nil {
		rec = Record{}
	}
	return rec, nil
}
