// Package entity defines the units of work moved through a crawl and the
// collaborator contracts needed to execute them.
//
// A URLEntity carries a URL together with the Scraper that fetches it and an
// optional DataProcessor for its output. A DataEntity carries the data of a
// successful scrape to its DataProcessor. Both keep a retry counter that the
// scheduler increments at the start of every attempt.
package entity
