package db

import (
	"fmt"
	"github.com/mitchellh/mapstructure"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// ParseAll decodes every record into Value, matching record keys to fields
// through their mapstructure tags.
func ParseAll[Value any](records []*neo4j.Record) ([]Value, error) {
	results := make([]Value, 0, len(records))
	for _, record := range records {
		result, err := parse[Value](record.AsMap())
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

// ParseFirst decodes the first record. ok is false when there are no records.
func ParseFirst[Value any](records []*neo4j.Record) (value Value, ok bool, err error) {
	if len(records) == 0 {
		return value, false, nil
	}
	value, err = parse[Value](records[0].AsMap())
	return value, err == nil, err
}

func parse[Value any](props map[string]any) (Value, error) {
	var result Value
	if err := mapstructure.Decode(props, &result); err != nil {
		return result, fmt.Errorf("decode record: %w", err)
	}
	return result, nil
}
