// Package http provides HTTP handlers and middleware for the shift scheduler API.
//
// The router exposes the following endpoints:
//   - POST /sessions: issues a signed session token. Body: {"name","pin"}. Response:
//     {"token","expires_at","principal":{"user_id","is_admin"},"user"} with the token
//     also surfaced via the `X-Session-Token` header and a `session_token` cookie.
//   - DELETE /sessions/current: clears the session cookie. Returns 204 No Content.
//   - GET /workplaces, POST /workplaces, PUT /workplaces/{id}, DELETE /workplaces/{id}:
//     workplace catalog exchanging the `workplaceDTO` payload defined in
//     workplace_handler.go. Deleting a workplace that shifts still name answers 409.
//   - GET /shifts?from=&to=&position=, POST /shifts, PUT /shifts/{id}, DELETE /shifts/{id}:
//     shift management exchanging the `shiftDTO` payload defined in shift_handler.go.
//   - POST /shifts/{id}/signup, DELETE /shifts/{id}/signup: sign up for or cancel a
//     shift. Sign-up responses carry overlap warnings.
//   - GET /shifts/export?from=&to=&position=: xlsx roster download, administrators only.
//   - GET /rules, POST /rules, DELETE /rules/{id}, POST /rules/{id}/materialize:
//     recurring rules. Writes that touch many shifts answer 207 Multi-Status with
//     the per-shift outcome when some records failed.
//   - GET /users, POST /users, PUT /users/{id}, DELETE /users/{id}: administrator
//     controlled user management exchanging the `userDTO` payload.
//   - GET /calendar?year=&month=&selected=: month grid with per-day shift counts.
//   - GET /healthz and, when enabled, GET /metrics.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
