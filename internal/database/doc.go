// Package database stores crawl output in SQLite.
//
// A PageStore keeps one row per crawled URL together with its outgoing
// links, and one row per finished crawl session holding the final
// statistics. It uses modernc.org/sqlite, a CGO-free driver, so the
// database is a single file that needs no external service.
package database
