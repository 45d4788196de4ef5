// Package scheduler orchestrates a crawl across two task queues.
//
// The scrape queue runs scrape jobs: classify a URL, drop it if its
// fingerprint was seen before, then run the URL's scraper. A successful scrape
// schedules every discovered URL again and, when the URL has a data processor,
// hands the scraped data to the process queue.
//
// Failed attempts are retried with a demoted priority until LongRetries is
// reached, after which the entity is dropped and counted as a hard failure.
// Errors raised by a job itself, such as a failing classifier or an
// unreachable duplicate filter backend, are retried by the queue up to
// ShortRetries times.
//
// The crawl is idle when neither queue has running or queued work. The
// scheduler then calls the idle and done handlers once and releases Wait.
// Scheduling more work starts a new cycle.
package scheduler
