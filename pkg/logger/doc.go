// Package logger provides the structured logging interface used across the service.
//
// It wraps zerolog. Components take a Logger in their constructor and fall
// back to the global instance from GetLogger when given nil.
//
//	err := logger.Initialize(&cfg.Logging)
//	log := logger.GetLogger().WithField("component", "collector")
//	log.InfoWithFields("collection finished", map[string]interface{}{
//	    "username": "alice",
//	    "posts":    3,
//	})
//
// Tests use NewTestLogger to capture messages or NewNopLogger to drop them.
package logger
