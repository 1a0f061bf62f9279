// Package keyword scores text against a literal keyword.
//
// An Analyzer finds every case-insensitive occurrence of the keyword and
// reports the surrounding context windows, the sentences that mention it,
// numbers close to each occurrence and date-like tokens anywhere in the
// text. Analysis is pure: the same input always yields the same
// model.KeywordMatch.
//
// Windows are measured in runes, so multi-byte characters in Dutch text
// are never split.
package keyword
