// Package server exposes the analyzer over HTTP.
//
// Routes:
//
//	GET  /health                   liveness and task counts by status
//	POST /api/tasks                submit a Reddit username
//	GET  /api/tasks/:id/status     poll progress and counters
//	GET  /api/tasks/:id/download   stream the finished report once
//
// Every /api route requires a session token, sent either as a Bearer
// Authorization header or in the "session" cookie. Tokens are HS256 JWTs
// minted by Sessions.Issue.
package server
