// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package api exposes the registry over HTTP with a chi router.

Read endpoints live under /api/skills and /api/export; publishing under
/api/publish requires the admin token, given either as a bearer token or
through the admin_session cookie set by POST /api/admin/login. Publish and
login requests are rate limited per caller address and carry the
X-RateLimit-Limit, X-RateLimit-Remaining and X-RateLimit-Reset headers.

Successful responses wrap their payload as {"data": ...}, with a
"pagination" object for listings. Errors are {"error": code, "message": text}
as rendered by the httperr package.
*/
package api
