// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package logging builds the registry's [log/slog.Logger] with consistent
defaults and carries request-scoped attributes through a context.

# Defaults

  - Format: JSON ([FormatJSON]); text ([FormatText]) in development
  - Level: INFO
  - Output: [os.Stderr]
  - Timestamps: [time.RFC3339]

# Usage

	logger := logging.New(
		logging.WithFormat(logging.FormatText),
		logging.WithLevel(slog.LevelDebug),
	)

[ParseLevel] and [ParseFormat] read the LOG_LEVEL and LOG_FORMAT settings.

# Request attributes

Loggers returned by [New] include any attributes attached to the context
with [WithAttrs], so handlers deep in a request log the request ID without
passing it around:

	ctx = logging.WithAttrs(ctx, slog.String("request_id", id))
	logger.InfoContext(ctx, "skill published", "slug", slug)
*/
package logging
