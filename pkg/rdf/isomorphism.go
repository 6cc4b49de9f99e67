package rdf

import (
	"fmt"
	"sort"
)

// AreGraphsIsomorphic checks if two sets of triples are isomorphic,
// accounting for blank node label differences.
// Two graphs are isomorphic if there exists a bijection between their
// blank nodes such that when applied, the graphs are identical.
func AreGraphsIsomorphic(expected, actual []Triple) bool {
	// Quick check: same number of triples
	if len(expected) != len(actual) {
		return false
	}

	// Extract blank nodes from both graphs
	expectedBlanks := extractBlankNodeLabels(expected)
	actualBlanks := extractBlankNodeLabels(actual)

	// Quick check: same number of blank nodes
	if len(expectedBlanks) != len(actualBlanks) {
		return false
	}

	// If no blank nodes, use simple comparison
	if len(expectedBlanks) == 0 {
		return verifyMapping(expected, actual, nil)
	}

	// Sort blank nodes by degree (optimization: match high-degree nodes first)
	expectedBlanks = sortByDegree(expectedBlanks, expected)
	actualBlanks = sortByDegree(actualBlanks, actual)

	// Find isomorphic mapping via backtracking
	mapping := make(map[string]string)
	usedTargets := make(map[string]bool)
	return backtrack(expected, actual, expectedBlanks, actualBlanks, mapping, usedTargets, 0)
}

// extractBlankNodeLabels extracts all unique blank node labels from a set of triples
func extractBlankNodeLabels(triples []Triple) []string {
	blanks := make(map[string]bool)
	for _, triple := range triples {
		visitBlanks(triple, func(label string) { blanks[label] = true })
	}

	// Convert to sorted slice for deterministic ordering
	result := make([]string, 0, len(blanks))
	for label := range blanks {
		result = append(result, label)
	}
	sort.Strings(result)
	return result
}

// visitBlanks calls fn for every blank label in the subject and object of a
// triple, including references nested inside lists
func visitBlanks(triple Triple, fn func(label string)) {
	if IsBlankLabel(triple.Subject) {
		fn(triple.Subject)
	}
	visitObjectBlanks(triple.Object, fn)
}

func visitObjectBlanks(object any, fn func(label string)) {
	if id, ok := ReferenceID(object); ok {
		if IsBlankLabel(id) {
			fn(id)
		}
		return
	}
	if items, ok := object.([]any); ok {
		for _, item := range items {
			visitObjectBlanks(item, fn)
		}
		return
	}
	if items, ok := Lookup(object, KeywordList); ok {
		visitObjectBlanks(items, fn)
	}
}

// sortByDegree sorts blank nodes by their degree (number of triples they appear in)
// This optimization helps backtracking by trying to match highly-connected nodes first
func sortByDegree(blanks []string, triples []Triple) []string {
	degrees := make(map[string]int)
	for _, blank := range blanks {
		degrees[blank] = 0
	}

	for _, triple := range triples {
		visitBlanks(triple, func(label string) { degrees[label]++ })
	}

	// Sort by degree (descending)
	sort.SliceStable(blanks, func(i, j int) bool {
		return degrees[blanks[i]] > degrees[blanks[j]]
	})

	return blanks
}

// backtrack recursively tries to find a valid mapping between blank nodes
func backtrack(expected, actual []Triple, expectedBlanks, actualBlanks []string,
	mapping map[string]string, usedTargets map[string]bool, index int) bool {

	// Base case: all blank nodes have been mapped
	if index == len(expectedBlanks) {
		return verifyMapping(expected, actual, mapping)
	}

	currentBlank := expectedBlanks[index]

	// Try mapping current blank node to each candidate
	for _, candidateBlank := range actualBlanks {
		// Skip if this target blank node is already mapped
		if usedTargets[candidateBlank] {
			continue
		}

		// Try this mapping
		mapping[currentBlank] = candidateBlank
		usedTargets[candidateBlank] = true

		// Early pruning: check if mapping is still consistent
		if isConsistentSoFar(expected, actual, mapping) {
			if backtrack(expected, actual, expectedBlanks, actualBlanks, mapping, usedTargets, index+1) {
				return true
			}
		}

		// Backtrack
		delete(mapping, currentBlank)
		delete(usedTargets, candidateBlank)
	}

	return false
}

// isFullyMapped checks if all blank nodes in a triple are mapped
func isFullyMapped(triple Triple, mapping map[string]string) bool {
	mapped := true
	visitBlanks(triple, func(label string) {
		if _, exists := mapping[label]; !exists {
			mapped = false
		}
	})
	return mapped
}

// isConsistentSoFar checks if the current partial mapping is consistent
// This is an optimization to prune the search space early
func isConsistentSoFar(expected, actual []Triple, mapping map[string]string) bool {
	actualSet := make(map[string]bool, len(actual))
	for _, triple := range actual {
		actualSet[tripleKey(triple, nil)] = true
	}

	// Every expected triple whose blank nodes are all mapped must exist in actual
	for _, triple := range expected {
		if isFullyMapped(triple, mapping) && !actualSet[tripleKey(triple, mapping)] {
			return false
		}
	}

	return true
}

// verifyMapping checks if the given mapping makes the graphs identical
func verifyMapping(expected, actual []Triple, mapping map[string]string) bool {
	expectedMapped := make(map[string]bool)
	for _, triple := range expected {
		expectedMapped[tripleKey(triple, mapping)] = true
	}

	actualSet := make(map[string]bool)
	for _, triple := range actual {
		actualSet[tripleKey(triple, nil)] = true
	}

	if len(expectedMapped) != len(actualSet) {
		return false
	}

	for key := range expectedMapped {
		if !actualSet[key] {
			return false
		}
	}

	return true
}

// tripleKey creates a string key for a triple, applying blank node mapping if provided
func tripleKey(triple Triple, mapping map[string]string) string {
	subject := mapLabel(triple.Subject, mapping)
	object := jsonLexical(mapObject(triple.Object, mapping))
	return fmt.Sprintf("%s|%s|%s", subject, triple.Predicate, object)
}

func mapLabel(label string, mapping map[string]string) string {
	if mapped, exists := mapping[label]; exists {
		return mapped
	}
	return label
}

// mapObject rewrites blank references inside an object term
func mapObject(object any, mapping map[string]string) any {
	if mapping == nil {
		return object
	}
	if id, ok := ReferenceID(object); ok {
		return NewReference(mapLabel(id, mapping))
	}
	if items, ok := object.([]any); ok {
		rv := make([]any, len(items))
		for i, item := range items {
			rv[i] = mapObject(item, mapping)
		}
		return rv
	}
	if items, ok := Lookup(object, KeywordList); ok {
		rv := NewObject()
		rv.Set(KeywordList, mapObject(items, mapping))
		return rv
	}
	return object
}
