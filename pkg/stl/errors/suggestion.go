package errors

import (
	"fmt"
	"strings"
)

// SuggestName suggests the closest valid name when an unknown one is used
// (context fields, helper functions, variables). It uses Levenshtein distance.
func SuggestName(unknown string, valid []string) string {
	if len(valid) == 0 {
		return ""
	}
	if unknown == "" {
		return listNames(valid)
	}

	minDistance := 1000
	var bestMatch string

	for _, name := range valid {
		dist := levenshteinDistance(unknown, name)
		if dist < minDistance {
			minDistance = dist
			bestMatch = name
		}
	}

	// Only suggest if the distance is reasonable (< 4 edits)
	if minDistance < 4 {
		return fmt.Sprintf("Did you mean '%s'?", bestMatch)
	}

	return listNames(valid)
}

func listNames(valid []string) string {
	if len(valid) > 6 {
		return fmt.Sprintf("Valid names include: %s, ...", strings.Join(valid[:6], ", "))
	}
	return fmt.Sprintf("Valid names: %s", strings.Join(valid, ", "))
}

// SuggestDeclareVariable suggests declaring a missing variable.
func SuggestDeclareVariable(name string, declared []string) string {
	if s := SuggestName(name, declared); strings.HasPrefix(s, "Did you mean") {
		return s
	}
	return fmt.Sprintf("Declare '%s' in the variables section", name)
}

// SuggestMissingField suggests adding a required field.
func SuggestMissingField(fieldName string, exampleValue string) string {
	if exampleValue != "" {
		return fmt.Sprintf("Add '%s: %s'", fieldName, exampleValue)
	}
	return fmt.Sprintf("Add the '%s' field", fieldName)
}

// levenshteinDistance computes the Levenshtein distance between two strings.
func levenshteinDistance(s1, s2 string) int {
	if s1 == s2 {
		return 0
	}

	len1 := len(s1)
	len2 := len(s2)

	matrix := make([][]int, len1+1)
	for i := range matrix {
		matrix[i] = make([]int, len2+1)
	}

	for i := 0; i <= len1; i++ {
		matrix[i][0] = i
	}
	for j := 0; j <= len2; j++ {
		matrix[0][j] = j
	}

	for i := 1; i <= len1; i++ {
		for j := 1; j <= len2; j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}

			matrix[i][j] = min(
				matrix[i-1][j]+1,      // Deletion
				matrix[i][j-1]+1,      // Insertion
				matrix[i-1][j-1]+cost, // Substitution
			)
		}
	}

	return matrix[len1][len2]
}
