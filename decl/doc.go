// Package decl turns layout declarations into computed layouts.
//
// Declaration files are YAML (or JSON) documents naming structs and unions
// field by field; see File for the format. Declared types may embed each
// other by value in any order. WIT documents exported as JSON are read by
// LoadWIT and produce canonical ABI layouts.
package decl
