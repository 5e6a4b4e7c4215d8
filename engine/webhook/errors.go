package webhook

import "fmt"

var errQueueFull = fmt.Errorf("webhook queue full, notification dropped")

func errNonSuccessStatus(code int) error {
	return fmt.Errorf("webhook endpoint returned status %d", code)
}
