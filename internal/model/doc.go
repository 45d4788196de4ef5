// Package model defines the page record produced by the HTML scraper and
// consumed by the data processing steps (JSON lines output and the SQLite
// page store).
package model
