package db

import (
	"strings"
)

// Node renders a node pattern whose properties are bound to query parameters
// of the same name, e.g. Node("c", "Command", "guild") is (c:Command {guild: $guild}).
func Node(key, label string, properties ...string) string {
	builder := strings.Builder{}
	builder.WriteString("(" + key)
	if label != "" {
		builder.WriteString(":" + label)
	}
	if len(properties) > 0 {
		bindings := make([]string, len(properties))
		for i, property := range properties {
			bindings[i] = property + ": $" + property
		}
		builder.WriteString(" {" + strings.Join(bindings, ", ") + "}")
	}
	builder.WriteString(")")
	return builder.String()
}

func Match(stmt string) string {
	return "MATCH " + stmt
}
func Merge(stmt string) string {
	return "MERGE " + stmt
}
func Create(stmt string) string {
	return "CREATE " + stmt
}

// Set assigns each property of key from the parameter of the same name.
func Set(key string, properties ...string) string {
	assignments := make([]string, len(properties))
	for i, property := range properties {
		assignments[i] = key + "." + property + " = $" + property
	}
	return "SET " + strings.Join(assignments, ", ")
}
func Return(keys ...string) string {
	return "RETURN " + strings.Join(keys, ",")
}
func Delete(keys ...string) string {
	return "DELETE " + strings.Join(keys, ",")
}
func OrderBy(keys ...string) string {
	return "ORDER BY " + strings.Join(keys, ",")
}
