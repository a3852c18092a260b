package server

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/medical-docs/internal/core/index"
	"github.com/joseph-ayodele/medical-docs/internal/entity"
)

// recordToValue renders a record with its JSON field names.
func recordToValue(rec entity.StructuredRecord) (*structpb.Value, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, err
	}
	return structpb.NewStructValue(s), nil
}

// recordFromStruct reads a record written with JSON field names. Unknown keys are ignored.
func recordFromStruct(s *structpb.Struct) (entity.StructuredRecord, error) {
	var rec entity.StructuredRecord
	if s == nil {
		return rec, nil
	}
	b, err := json.Marshal(s.AsMap())
	if err != nil {
		return rec, err
	}
	if err := json.Unmarshal(b, &rec); err != nil {
		return rec, fmt.Errorf("record: %w", err)
	}
	return rec, nil
}

func matchesToValue(matches []index.Match) (*structpb.Value, error) {
	vals := make([]*structpb.Value, 0, len(matches))
	for _, m := range matches {
		rec, err := recordToValue(m.Document.Record)
		if err != nil {
			return nil, err
		}
		vals = append(vals, structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			"id":     structpb.NewStringValue(m.Document.ID),
			"score":  structpb.NewNumberValue(m.Score),
			"record": rec,
		}}))
	}
	return structpb.NewListValue(&structpb.ListValue{Values: vals}), nil
}

func stringField(s *structpb.Struct, key string) string {
	if s == nil {
		return ""
	}
	return s.GetFields()[key].GetStringValue()
}

func numberField(s *structpb.Struct, key string) float64 {
	if s == nil {
		return 0
	}
	return s.GetFields()[key].GetNumberValue()
}

func boolField(s *structpb.Struct, key string) bool {
	if s == nil {
		return false
	}
	return s.GetFields()[key].GetBoolValue()
}

func structField(s *structpb.Struct, key string) *structpb.Struct {
	if s == nil {
		return nil
	}
	return s.GetFields()[key].GetStructValue()
}
