// Package processor implements the data processing stage of a crawl.
//
// A Processor runs every scraped model.Page through a Pipeline of Steps.
// Steps shipped here write pages as JSON lines and persist them through a
// PageSaver such as database.PageStore.
package processor
