package nl2sql

import "strings"

const promptRules = `Rules:
1. Only generate SELECT queries
2. Return ONLY the SQL query, no explanations
3. Use proper SQL syntax
4. If the question is ambiguous, make reasonable assumptions
5. Always use LIMIT to prevent returning too many rows
6. Format the query clearly`

// BuildPrompt assembles the instruction sent to the generator. The context
// block is only present when additionalContext is non-empty.
func BuildPrompt(schema, additionalContext, question string) string {
	var b strings.Builder
	b.WriteString("You are an expert SQL developer. Convert the following natural language question into a SQL SELECT query.\n\n")
	if additionalContext != "" {
		b.WriteString("Additional Context:\n")
		b.WriteString(additionalContext)
		b.WriteString("\n\n")
	}
	b.WriteString("Database Schema:\n")
	b.WriteString(schema)
	b.WriteString("\n\n")
	b.WriteString(promptRules)
	b.WriteString("\n\nNatural Language Question: ")
	b.WriteString(question)
	b.WriteString("\n\nGenerate the SQL query:")
	return b.String()
}
