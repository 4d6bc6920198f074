package instance

import "os"

// GetID identifies this worker instance in logs. Platforms that run
// multiple replicas set WORKER_ID; a single local process gets the default.
func GetID() string {
	if id := os.Getenv("WORKER_ID"); id != "" {
		return id
	}
	return "worker-0"
}
