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

import (
	"encoding/json"
	"strings"
)

type IterateActionType = int8

const (
	IterateActionContinue IterateActionType = iota
	IterateActionBreak
)

// CommentKeySuffix marks the sibling entry holding the /* comment */ that
// annotates a key or its value.
const CommentKeySuffix = "_comment"

type ObjectItem = SliceItem

// Object is a dictionary node of a project file. Scalars are kept as the raw
// token text (quoted strings keep their quotes), arrays are []interface{}.
type Object struct {
	*SliceMap
}

type ObjectWithUUID struct {
	Object
	UUID string
}

func NewObjectItem(key string, value interface{}) ObjectItem {
	return SliceItem{key: key, data: value}
}

func NewObject() Object {
	return Object{
		SliceMap: NewSliceMap(),
	}
}

func NewObjectWithData(items []ObjectItem) Object {
	o := NewObject()
	for _, item := range items {
		o.Set(item.key, item.data)
	}
	return o
}

func CommentKey(key string) string {
	return key + CommentKeySuffix
}

func IsCommentKey(key string) bool {
	return strings.HasSuffix(key, CommentKeySuffix)
}

func toMarshalJSONData(val interface{}) interface{} {
	switch v := val.(type) {
	case Object:
		dataMap := make(map[string]interface{})
		v.Foreach(func(key string, val interface{}) IterateActionType {
			dataMap[key] = toMarshalJSONData(val)
			return IterateActionContinue
		})
		return dataMap
	case []interface{}:
		list := make([]interface{}, len(v))
		for i, item := range v {
			list[i] = toMarshalJSONData(item)
		}
		return list
	default:
		return v
	}
}

func (o Object) MarshalJSON() ([]byte, error) {
	return json.Marshal(toMarshalJSONData(o))
}

// IsEmpty reports whether the object is missing or has no entries.
func (o Object) IsEmpty() bool {
	if o.SliceMap == nil {
		return true
	}
	return o.Size() == 0
}

// GetObject returns the child object stored under key, or a new detached
// object when the key is absent or not an object.
func (o Object) GetObject(key string) Object {
	if o.SliceMap == nil {
		return NewObject()
	}
	if value, ok := o.Get(key); ok {
		if obj, ok := value.(Object); ok {
			return obj
		}
	}
	return NewObject()
}

func (o Object) GetString(key string) string {
	if o.SliceMap == nil {
		return ""
	}
	if value, ok := o.Get(key); ok {
		if s, ok := value.(string); ok {
			return s
		}
	}
	return ""
}

func (o Object) GetArray(key string) []interface{} {
	if o.SliceMap == nil {
		return nil
	}
	if value, ok := o.Get(key); ok {
		if list, ok := value.([]interface{}); ok {
			return list
		}
	}
	return nil
}

func (o Object) GetComment(key string) string {
	return o.GetString(CommentKey(key))
}

type ApplyFunc = func(key string, val interface{}) IterateActionType
type FilterFunc = func(key string, val interface{}) bool

func (o Object) Foreach(apply ApplyFunc) {
	if o.IsEmpty() {
		return
	}
	for _, item := range o.Items() {
		if item.data == nil {
			continue
		}
		if apply(item.key, item.data) == IterateActionBreak {
			break
		}
	}
}

func (o Object) ForeachWithFilter(apply ApplyFunc, filter FilterFunc) {
	o.Foreach(func(key string, val interface{}) IterateActionType {
		if !filter(key, val) {
			return IterateActionContinue
		}
		return apply(key, val)
	})
}

func (o Object) Filter(f FilterFunc) Object {
	newObj := NewObject()
	o.Foreach(func(key string, val interface{}) IterateActionType {
		if f(key, val) {
			newObj.Set(key, val)
		}
		return IterateActionContinue
	})
	return newObj
}

func NonCommentsFilter(key string, _ interface{}) bool {
	return !IsCommentKey(key)
}

func OnlyCommentsFilter(key string, _ interface{}) bool {
	return IsCommentKey(key)
}
