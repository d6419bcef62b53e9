// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package env abstracts environment variable access so configuration can be
tested without touching the process environment.

Production code reads through [OSReader]; tests inject the generated
mocks.MockReader:

	ctrl := gomock.NewController(t)
	r := mocks.NewMockReader(ctrl)
	r.EXPECT().Getenv("POLICY_TTL").Return("30s")

	ttl, err := env.Duration(r, "POLICY_TTL", time.Minute)

The typed helpers ([String], [Int], [Bool], [Duration], [List]) treat an
unset or blank variable as absent and return the supplied default. A value
that is present but malformed is an error naming the variable.
*/
package env
