// Package http provides HTTP handlers and middleware for the slot planner API.
//
// The router exposes the following endpoints:
//   - POST /login: issues an organizer session token. Body: {"password"}.
//     Response: {"token","expires_at"} with the token also surfaced via the
//     `X-Session-Token` header and a `session_token` cookie.
//   - POST /logout: revokes the current session token extracted from the
//     Authorization header or session cookie. Returns 204 No Content and
//     clears the cookie.
//   - GET /sessions, POST /sessions, GET /sessions/{id}, DELETE /sessions/{id}:
//     talk proposal endpoints exchanging the `sessionDTO` payload defined in
//     session_handler.go. Proposal submission and reads are open; withdrawal
//     requires an organizer session.
//   - PUT /sessions/{id}/placement, DELETE /sessions/{id}/placement: organizer
//     controlled placement endpoints. PUT places a proposed session or
//     atomically moves a placed one; DELETE returns it to the proposed state.
//   - GET /sessions/{id}/suggestions: lists every start slot where the session
//     currently fits, in room configuration order. Repeated `room` query
//     parameters narrow the search.
//   - GET /schedule: the canonical schedule of placed sessions ordered by room
//     configuration order, then start slot.
//   - GET /rooms: the fixed room catalog with each room's slot grid.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
