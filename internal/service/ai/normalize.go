package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"detectserver/internal/model"
)

// field holds one extracted prediction field. values and valid are aligned
// with the backend's element positions so that a bad element never shifts
// its neighbours onto another detection.
type field[T any] struct {
	values []T
	valid  []bool
	state  model.FieldState
}

func (f field[T]) at(i int) (T, bool) {
	var zero T
	if i >= len(f.values) || !f.valid[i] {
		return zero, false
	}
	return f.values[i], true
}

func extract[T any](raw any, conv func(any) (T, bool)) field[T] {
	raw = decodeRaw(raw)
	if raw == nil {
		return field[T]{state: model.FieldAbsent}
	}

	items, ok := asList(raw)
	if !ok {
		return field[T]{state: model.FieldFailed}
	}
	// A single-image batch wrapped in an extra dimension, e.g. [[0.9, 0.8]].
	// A lone unreadable element stays one element.
	if len(items) == 1 {
		if _, ok := conv(items[0]); !ok {
			if inner, ok := asList(items[0]); ok && batchOf(inner, conv) {
				items = inner
			}
		}
	}

	f := field[T]{
		values: make([]T, len(items)),
		valid:  make([]bool, len(items)),
		state:  model.FieldOK,
	}
	for i, item := range items {
		v, ok := conv(item)
		if !ok {
			f.state = model.FieldFailed
			continue
		}
		f.values[i] = v
		f.valid[i] = true
	}
	return f
}

// batchOf reports whether inner looks like a list of elements rather than a
// single malformed element: it is empty or at least one entry converts.
func batchOf[T any](inner []any, conv func(any) (T, bool)) bool {
	if len(inner) == 0 {
		return true
	}
	for _, item := range inner {
		if _, ok := conv(item); ok {
			return true
		}
	}
	return false
}

// decodeRaw turns undecoded JSON into plain values; anything else passes through.
func decodeRaw(raw any) any {
	switch v := raw.(type) {
	case nil:
		return nil
	case json.RawMessage:
		return decodeJSON(v)
	case []byte:
		return decodeJSON(v)
	}
	return raw
}

func decodeJSON(data []byte) any {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		// Keep the raw text so the field is reported as failed, not absent.
		return string(data)
	}
	return out
}

// asList converts the common list shapes a backend may hand over.
func asList(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case []float64:
		return toAny(t), true
	case []float32:
		return toAny(t), true
	case []int:
		return toAny(t), true
	case []int64:
		return toAny(t), true
	case [][]float64:
		return toAny(t), true
	case [][]float32:
		return toAny(t), true
	case [][4]float64:
		return toAny(t), true
	case []model.Box:
		return toAny(t), true
	}
	return nil, false
}

func toAny[T any](in []T) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func toBox(v any) (model.Box, bool) {
	var box model.Box
	switch t := v.(type) {
	case model.Box:
		return t, true
	case [4]float64:
		return model.Box(t), true
	case map[string]any:
		for i, key := range []string{"x1", "y1", "x2", "y2"} {
			f, ok := toFloat(t[key])
			if !ok {
				return box, false
			}
			box[i] = f
		}
		return box, true
	}

	items, ok := asList(v)
	if !ok || len(items) != 4 {
		return box, false
	}
	for i, item := range items {
		f, ok := toFloat(item)
		if !ok {
			return box, false
		}
		box[i] = f
	}
	return box, true
}

func toScore(v any) (float64, bool) {
	f, ok := toFloat(v)
	if !ok || f < 0 || f > 1 {
		return 0, false
	}
	return f, true
}

func toClass(v any) (int, bool) {
	f, ok := toFloat(v)
	if !ok || f < 0 || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// Normalize converts a backend prediction into the flat result shape. It
// never fails: problems are reported through the field states, the overall
// status and warnings.
func Normalize(pred *Prediction, labels map[int]string) *model.InferenceResult {
	if pred == nil {
		pred = &Prediction{}
	}
	if len(pred.Names) > 0 {
		labels = pred.Names
	}

	boxes := extract(pred.Boxes, toBox)
	scores := extract(pred.Scores, toScore)
	classes := extract(pred.Classes, toClass)

	res := &model.InferenceResult{
		Fields: model.Extraction{
			Boxes:   boxes.state,
			Scores:  scores.state,
			Classes: classes.state,
		},
		Detections: []model.Detection{},
		Saved:      []string{},
	}

	incomplete := false
	for _, f := range []struct {
		name  string
		state model.FieldState
	}{{"boxes", boxes.state}, {"scores", scores.state}, {"classes", classes.state}} {
		if f.state == model.FieldFailed {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: some values could not be read", f.name))
			incomplete = true
		}
	}
	if n := len(boxes.values); n > 0 {
		if scores.state != model.FieldAbsent && len(scores.values) != n {
			res.Warnings = append(res.Warnings, fmt.Sprintf("scores: got %d values for %d boxes", len(scores.values), n))
			incomplete = true
		}
		if classes.state != model.FieldAbsent && len(classes.values) != n {
			res.Warnings = append(res.Warnings, fmt.Sprintf("classes: got %d values for %d boxes", len(classes.values), n))
			incomplete = true
		}
	}

	for i := range boxes.values {
		box, ok := boxes.at(i)
		if !ok {
			continue
		}
		det := model.Detection{Box: box, ClassIndex: -1, ClassName: "unknown"}
		if s, ok := scores.at(i); ok {
			det.Confidence = s
		} else {
			incomplete = true
		}
		if c, ok := classes.at(i); ok {
			det.ClassIndex = c
			det.ClassName = ClassName(labels, c)
		} else {
			incomplete = true
		}
		res.Detections = append(res.Detections, det)
	}

	// The flat arrays mirror Detections so index i is the same detection in each.
	res.Boxes = make([]model.Box, len(res.Detections))
	res.Scores = make([]float64, len(res.Detections))
	res.Classes = make([]int, len(res.Detections))
	res.Names = make([]string, len(res.Detections))
	for i, det := range res.Detections {
		res.Boxes[i] = det.Box
		res.Scores[i] = det.Confidence
		res.Classes[i] = det.ClassIndex
		res.Names[i] = det.ClassName
	}

	switch {
	case boxes.state == model.FieldFailed && len(res.Detections) == 0:
		res.Status = model.StatusExtractionFailed
	case len(boxes.values) == 0 && (len(scores.values) > 0 || len(classes.values) > 0):
		res.Status = model.StatusExtractionFailed
		res.Warnings = append(res.Warnings, "boxes: missing while scores or classes are present")
	case len(res.Detections) == 0:
		res.Status = model.StatusNone
	case incomplete:
		res.Status = model.StatusPartial
	default:
		res.Status = model.StatusDetected
	}
	return res
}
