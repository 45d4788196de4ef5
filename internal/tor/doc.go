// Package tor runs an embedded Tor daemon for crawling through the Tor
// network.
//
// The daemon is managed by tornago. Once started, ProxyURL returns a
// socks5h URL that the scraper uses like any other proxy, so host names
// (including .onion addresses) are resolved inside Tor.
package tor
