// Package server exposes the task API over HTTP.
//
// # Routes
//
//	POST   /auth                   verify init data, upsert the user
//	GET    /tasks?telegram_id=&date=
//	POST   /tasks                  {"telegram_id","text","date"}
//	PUT    /tasks/{id}             {"telegram_id","text"}
//	PUT    /tasks/{id}/toggle      {"telegram_id"}
//	DELETE /tasks/{id}?telegram_id=
//	GET    /health                 liveness
//	GET    /health/ready           storage ping
//	GET    <metrics.path>          Prometheus, when metrics.enabled
//
// With auth.require_init_data the task routes require
// "Authorization: tma <initData>" and the owner is the verified user; a
// telegram_id that names someone else is refused with 403.
//
// # Errors
//
// Errors are JSON bodies of the form {"error": "..."}. Storage outages return
// 503 with Retry-After. Internal failures are logged with the request id and
// answered with a generic message.
package server
