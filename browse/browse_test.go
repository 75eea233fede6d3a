/*
 * Copyright 2023 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package browse

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/gopcua/opcua/ua"
	"github.com/rulego/opcua-rest/api/types"
	"github.com/rulego/opcua-rest/test"
	"github.com/rulego/opcua-rest/test/assert"
)

var root = ua.NewNumericNodeID(0, 85)

// batch builds a browse result of n references named from start onwards.
func batch(start, n int, more bool) *ua.BrowseResult {
	res := &ua.BrowseResult{StatusCode: ua.StatusOK}
	for i := start; i < start+n; i++ {
		res.References = append(res.References, &ua.ReferenceDescription{
			ReferenceTypeID: ua.NewNumericNodeID(0, 35),
			IsForward:       true,
			NodeID:          ua.NewExpandedNodeID(ua.NewStringNodeID(1, fmt.Sprintf("n%d", i)), "", 0),
			BrowseName:      &ua.QualifiedName{NamespaceIndex: 1, Name: fmt.Sprintf("n%d", i)},
			DisplayName:     &ua.LocalizedText{Text: fmt.Sprintf("n%d", i)},
			NodeClass:       ua.NodeClassVariable,
		})
	}
	if more {
		res.ContinuationPoint = []byte(fmt.Sprintf("cp%d", start+n))
	}
	return res
}

func TestAllTruncatesToLimit(t *testing.T) {
	sess := test.NewFakeSession()
	sess.Browses = []*ua.BrowseResult{batch(0, 5, true), batch(5, 5, true), batch(10, 5, false)}

	res, err := All(context.Background(), sess, root, 12)
	assert.Nil(t, err)
	assert.Equal(t, ua.StatusOK, res.Status)
	assert.Equal(t, 12, len(res.References))
	for i, ref := range res.References {
		assert.Equal(t, fmt.Sprintf("ns=1;s=n%d", i), ref.NodeID)
	}
	assert.Equal(t, []uint32{12}, sess.BrowseCalls)
	assert.Equal(t, 2, sess.NextCalls)
	assert.Equal(t, 0, sess.ReleaseCalls)
}

func TestAllUnlimitedDrainsEverything(t *testing.T) {
	sess := test.NewFakeSession()
	sess.Browses = []*ua.BrowseResult{batch(0, 5, true), batch(5, 5, true), batch(10, 5, false)}

	res, err := All(context.Background(), sess, root, 0)
	assert.Nil(t, err)
	assert.Equal(t, 15, len(res.References))
	assert.Equal(t, "ns=1;s=n14", res.References[14].NodeID)
	assert.Equal(t, "Variable", res.References[0].NodeClass)
	assert.Equal(t, "n3", res.References[3].BrowseName)
}

func TestAllStopsAtLimitAndReleases(t *testing.T) {
	sess := test.NewFakeSession()
	sess.Browses = []*ua.BrowseResult{batch(0, 5, true), batch(5, 5, true), batch(10, 5, false)}

	res, err := All(context.Background(), sess, root, 5)
	assert.Nil(t, err)
	assert.Equal(t, 5, len(res.References))
	assert.Equal(t, 0, sess.NextCalls)
	assert.Equal(t, 1, sess.ReleaseCalls)
}

func TestAllInitialBadStatusIsData(t *testing.T) {
	sess := test.NewFakeSession()
	sess.Browses = []*ua.BrowseResult{{StatusCode: ua.StatusBadNodeIDUnknown}}

	res, err := All(context.Background(), sess, root, 0)
	assert.Nil(t, err)
	assert.Equal(t, ua.StatusBadNodeIDUnknown, res.Status)
	assert.Equal(t, 0, len(res.References))
}

func TestAllContinuationFailureFailsWholeOperation(t *testing.T) {
	sess := test.NewFakeSession()
	sess.Browses = []*ua.BrowseResult{batch(0, 5, true), {StatusCode: ua.StatusBadContinuationPointInvalid}}

	res, err := All(context.Background(), sess, root, 0)
	assert.Nil(t, res)
	var se *types.StatusError
	assert.True(t, errors.As(err, &se))
	assert.Equal(t, ua.StatusBadContinuationPointInvalid, se.Code)
}

func TestAllTransportError(t *testing.T) {
	sess := test.NewFakeSession()
	sess.BrowseErr = errors.New("secure channel closed")
	_, err := All(context.Background(), sess, root, 0)
	assert.EqualError(t, err, "secure channel closed")
}
