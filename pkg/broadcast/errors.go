package broadcast

import "errors"

// ErrHubClosed is returned when operations are attempted on a closed hub.
var ErrHubClosed = errors.New("broadcast: hub is closed")
