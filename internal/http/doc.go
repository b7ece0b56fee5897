// Package http provides the HTTP surface of the study schedule service.
//
// The router exposes the following endpoints:
//   - GET /trigger: requires the shared secret header and answers
//     {"trigger","reason"} describing whether the nearest upcoming calendar
//     event is a study-at-college day. Downstream failures still answer 200
//     with {"trigger":false,"error"} so polling automations fail closed
//     instead of retrying.
//   - GET /healthz: liveness probe, no authentication.
//
// Request/response DTOs live alongside their handlers so tests and
// documentation share the same ground truth.
package http
