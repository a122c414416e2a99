// Package testing provides utilities for testing code built on go-apicall.
//
// # Mocks
//
// The mocks subpackage provides a testify-based transport.Transport so tests
// can set expectations on outgoing requests without a network.
//
// # Fixtures
//
// The fixtures subpackage provides pre-configured transports for common
// scenarios: a healthy upstream, an upstream that fails a fixed number of
// times, and an upstream that records every request it sees.
//
// # Containers
//
// The containers subpackage starts real backing services (Redis) with
// testcontainers. It is compiled only with the integration build tag.
//
//	import (
//		"github.com/gaborage/go-apicall/testing/mocks"
//		"github.com/gaborage/go-apicall/testing/fixtures"
//	)
package testing
