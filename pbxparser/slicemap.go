/**
Licensed to the Apache Software Foundation (ASF) under one
or more contributor license agreements.  See the NOTICE file
distributed with this work for additional information
regarding copyright ownership.  The ASF licenses this file
to you under the Apache License, Version 2.0 (the
'License'); you may not use this file except in compliance
with the License.  You may obtain a copy of the License at
http://www.apache.org/licenses/LICENSE-2.0
Unless required by applicable law or agreed to in writing,
software distributed under the License is distributed on an
'AS IS' BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
KIND, either express or implied.  See the License for the
specific language governing permissions and limitations
under the License.
*/

package pbxparser

// SliceItem is one key/value pair of a SliceMap, in insertion order.
type SliceItem struct {
	key  string
	data interface{}
}

func (i *SliceItem) Key() string {
	return i.key
}

func (i *SliceItem) Value() interface{} {
	return i.data
}

// SliceMap is a string keyed map that remembers insertion order. Replacing
// the value of an existing key keeps its position.
type SliceMap struct {
	index map[string]int
	sl    []*SliceItem
}

func NewSliceMap() *SliceMap {
	return &SliceMap{
		index: make(map[string]int),
		sl:    make([]*SliceItem, 0),
	}
}

func (m *SliceMap) ForceGet(key string) interface{} {
	v, _ := m.Get(key)
	return v
}

func (m *SliceMap) Get(key string) (interface{}, bool) {
	idx, found := m.index[key]
	if !found {
		return nil, false
	}
	return m.sl[idx].data, true
}

func (m *SliceMap) Set(key string, v interface{}) {
	if idx, found := m.index[key]; found {
		m.sl[idx] = &SliceItem{key: key, data: v}
		return
	}
	m.sl = append(m.sl, &SliceItem{key: key, data: v})
	m.index[key] = len(m.sl) - 1
}

func (m *SliceMap) Has(key string) bool {
	_, found := m.index[key]
	return found
}

func (m *SliceMap) Delete(key string) {
	idx, found := m.index[key]
	if !found {
		return
	}
	m.DeleteAt(idx)
}

func (m *SliceMap) DeleteAt(idx int) {
	if idx < 0 || idx >= len(m.sl) {
		return
	}
	delete(m.index, m.sl[idx].key)
	m.sl = append(m.sl[:idx], m.sl[idx+1:]...)
	// positions after idx moved down by one
	for i := idx; i < len(m.sl); i++ {
		m.index[m.sl[i].key] = i
	}
}

func (m *SliceMap) Clear() {
	m.index = make(map[string]int)
	m.sl = make([]*SliceItem, 0)
}

func (m *SliceMap) Size() int {
	return len(m.sl)
}

func (m *SliceMap) Items() []*SliceItem {
	return m.sl
}

func (m *SliceMap) GetAt(idx int) (interface{}, bool) {
	if idx < 0 || idx >= len(m.sl) {
		return nil, false
	}
	return m.sl[idx].data, true
}
