// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package types

import "time"

// TimeProvider is the source of "now" for relative periods such as the last N weeks.
type TimeProvider interface {
	GetCurrentTime() time.Time
}
