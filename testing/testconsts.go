package testing

import "time"

// Logger Constants
const (
	// TestLoggerLevelDebug is the debug log level used in most tests
	TestLoggerLevelDebug = "debug"
	// TestLoggerLevelError is the error log level for tests requiring minimal output
	TestLoggerLevelError = "error"
)

// Client Constants
// Common base URLs and actions used across client tests.
const (
	TestBaseURL     = "https://api.test"
	TestAltBaseURL  = "https://shard-2.api.test"
	TestUsersAction = "/users"
	TestAppHeader   = "X-App"
	TestAppName     = "test-app"
)

// Timing Constants
const (
	// TestMockDelay is a short, fixed mock latency.
	TestMockDelay = 10 * time.Millisecond
	// TestCacheTTL is the TTL used by cache tests.
	TestCacheTTL = time.Minute
)
