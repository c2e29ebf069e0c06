// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roster Contributors

package errutil_test

import (
	"errors"
	"testing"

	"github.com/samber/oops"

	"github.com/roster/roster/pkg/errutil"
)

var errGone = errors.New("gone")

func TestAssertErrorCode_MatchingCode(t *testing.T) {
	err := oops.Code("MY_CODE").Errorf("test error")
	errutil.AssertErrorCode(t, err, "MY_CODE")
}

func TestAssertErrorCode_DeepestCodeWins(t *testing.T) {
	inner := oops.Code("ACCOUNT_NOT_FOUND").Wrap(errGone)
	err := oops.Code("ACCOUNT_GET_FAILED").Wrap(inner)
	errutil.AssertErrorCode(t, err, "ACCOUNT_NOT_FOUND")
}

func TestAssertErrorCodeIs_CodeAndSentinel(t *testing.T) {
	err := oops.Code("ACCOUNT_NOT_FOUND").With("id", "01J").Wrap(errGone)
	errutil.AssertErrorCodeIs(t, err, "ACCOUNT_NOT_FOUND", errGone)
}

func TestAssertErrorContext_MatchingKeyValue(t *testing.T) {
	err := oops.With("user_id", "123").Errorf("test error")
	errutil.AssertErrorContext(t, err, "user_id", "123")
}

func TestAssertErrorContext_MergedAcrossWraps(t *testing.T) {
	inner := oops.With("handle", "taken").Wrap(errGone)
	err := oops.With("operation", "update").Wrap(inner)
	errutil.AssertErrorContext(t, err, "handle", "taken")
	errutil.AssertErrorContext(t, err, "operation", "update")
}
