// Package report writes the summary of a finished crawl.
//
// Three formats are available: plain text for terminals, JSON for tools,
// and Markdown (with a Mermaid chart of attempt outcomes) for sharing.
package report
