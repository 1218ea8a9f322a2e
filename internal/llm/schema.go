package llm

import (
	"fmt"
	"strings"
)

// ResponseSchema describes the JSON object a prompt asks the model to return.
type ResponseSchema struct {
	Name        string        // Schema name (e.g., "TransactionCategory")
	Description string        // Task preamble
	Fields      []SchemaField // Expected output fields
}

// SchemaField defines a single field in the response object.
type SchemaField struct {
	Name        string // JSON field name
	Type        string // Type hint: "\"string\"", "number", "[\"string\"]"
	Description string // Description for the LLM
	Required    bool   // Whether this field is required
}

// BuildSchemaPrompt constructs a prompt from a schema and the input to analyse.
func BuildSchemaPrompt(schema ResponseSchema, input string) string {
	var sb strings.Builder

	sb.WriteString(schema.Description)
	sb.WriteString("\n\n")

	sb.WriteString("Return ONLY valid JSON matching this exact structure:\n{\n")
	for i, field := range schema.Fields {
		typeHint := field.Type
		if typeHint == "" {
			typeHint = "\"string\""
		}
		requiredHint := ""
		if field.Required {
			requiredHint = " (required)"
		}
		sb.WriteString(fmt.Sprintf("  \"%s\": %s%s", field.Name, typeHint, requiredHint))
		if field.Description != "" {
			sb.WriteString(fmt.Sprintf(" // %s", field.Description))
		}
		if i < len(schema.Fields)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}\n\n")

	sb.WriteString("IMPORTANT:\n")
	sb.WriteString("- Return ONLY the JSON object, no markdown, no explanation, no code blocks.\n\n")

	sb.WriteString("Input:\n\"\"\"\n")
	sb.WriteString(input)
	sb.WriteString("\n\"\"\"\n")

	return sb.String()
}
