// Package extract turns raw HTML into a model.PageRecord.
//
// Extraction never fails. Malformed or empty documents produce a record
// with empty fields, and when no content region can be identified the
// whole document is used as the body.
//
// Best-effort fields (title, publish date, author, tags, primary image)
// are found by ordered Strategy lists: each strategy is tried in turn and
// the first non-empty result wins. The lists are exported so that each
// heuristic can be tested on its own and replaced per site.
//
// Outbound links are resolved against the page URL and split into
// same-site and off-site sets using a Scope.
package extract
