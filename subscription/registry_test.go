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

package subscription

import (
	"fmt"
	"sync"
	"testing"

	"github.com/rulego/opcua-rest/test"
	"github.com/rulego/opcua-rest/test/assert"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	e := newEntry("a", &test.FakeConn{}, pump)
	assert.Nil(t, r.Add(e))
	assert.NotNil(t, r.Add(newEntry("a", &test.FakeConn{}, pump)))

	got, ok := r.Get("a")
	assert.True(t, ok)
	assert.Equal(t, e, got)

	assert.Equal(t, e, r.Remove("a"))
	assert.Nil(t, r.Remove("a"))
	_, ok = r.Get("a")
	assert.False(t, ok)
}

func TestRegistryConcurrent(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("c%02d", i)
			_ = r.Add(newEntry(id, &test.FakeConn{}, pump))
			_, _ = r.Get(id)
			if i%2 == 0 {
				r.Remove(id)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 25, r.Len())
	assert.Equal(t, "c01", r.IDs()[0])
}

func TestFilter(t *testing.T) {
	f, err := NewFilter(`SourceName == "Boiler" && Message.text != "None"`)
	assert.Nil(t, err)
	ok, err := f.Match(map[string]interface{}{"SourceName": "Boiler", "Message": map[string]interface{}{"text": "hot"}})
	assert.Nil(t, err)
	assert.True(t, ok)

	var nilFilter *Filter
	ok, _ = nilFilter.Match(nil)
	assert.True(t, ok)
	assert.Equal(t, "", nilFilter.String())
}
