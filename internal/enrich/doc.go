// Package enrich provides optional entity extraction for page text.
//
// Enrichment is a capability, not a requirement: the crawler always holds
// an EntityExtractor, and Nop is used when none is configured. Pattern
// extracts entities with labelled regular expressions loaded from the
// configuration file.
package enrich
