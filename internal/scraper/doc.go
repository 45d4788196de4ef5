// Package scraper fetches pages over HTTP and turns them into scraping
// results for the scheduler.
//
// A Scraper performs the request (rotating user agents and proxies, applying
// per-site headers and cookies) and hands the body to a Parser. HTMLParser
// is the parser used by the CLI: it extracts the title, description, visible
// text and links of an HTML document into a model.Page.
package scraper
