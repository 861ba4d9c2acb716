package constants

// Heartbeat statuses
const (
	// StatusAlive is reported while the tracker is cycling normally.
	StatusAlive = "alive"
	// StatusStarting is reported before setup has completed.
	StatusStarting = "starting"
)
