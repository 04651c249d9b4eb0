package data

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/datar-psa/genaivalidator/api"
)

// requiredFields are the keys every development record must carry as strings.
var requiredFields = []string{"context", "question", "answer"}

// ParseJSON decodes a JSON document holding one record object or a list of record objects.
func ParseJSON(body []byte) ([]api.Record, error) {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return toRecords(doc)
}

func toRecords(doc any) ([]api.Record, error) {
	switch v := doc.(type) {
	case map[string]any:
		return []api.Record{v}, nil
	case []any:
		records := make([]api.Record, 0, len(v))
		for i, elem := range v {
			rec, ok := elem.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("element %d is %T, want object", i, elem)
			}
			records = append(records, rec)
		}
		return records, nil
	default:
		return nil, fmt.Errorf("document is %T, want object or list of objects", doc)
	}
}

// ParseExamples validates records and converts them to development examples. Every record
// needs string "context", "question" and "answer" fields; extra fields are ignored.
func ParseExamples(records []api.Record) ([]api.DevelopmentExample, error) {
	examples := make([]api.DevelopmentExample, 0, len(records))
	for i, rec := range records {
		values := make(map[string]string, len(requiredFields))
		for _, field := range requiredFields {
			raw, ok := rec[field]
			if !ok {
				return nil, fmt.Errorf("%w: record %d: missing field %q", api.ErrInvalidExample, i, field)
			}
			s, ok := raw.(string)
			if !ok {
				return nil, fmt.Errorf("%w: record %d: field %q is %T, want string", api.ErrInvalidExample, i, field, raw)
			}
			values[field] = s
		}
		examples = append(examples, api.DevelopmentExample{
			Context:  values["context"],
			Question: values["question"],
			Answer:   values["answer"],
		})
	}
	return examples, nil
}
