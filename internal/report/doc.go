// Package report renders the summary of a crawl or dataset scan.
//
// Writers:
//   - SimpleWriter: plain text for the terminal
//   - JSONWriter: structured JSON for tool integration
//   - MarkdownWriter: GitHub flavored Markdown with a mermaid pie chart
package report
