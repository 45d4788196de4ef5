package tor

import "errors"

// ErrNotRunning is returned when the daemon is used before Start.
var ErrNotRunning = errors.New("embedded Tor daemon is not running")
