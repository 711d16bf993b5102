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

package pbxproj

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/gocarrot/teak-xcpost/pbxparser"
)

func isInt(obj interface{}) bool {
	switch obj.(type) {
	case int, int8, int16, int32, int64:
		return true
	}
	return false
}

func toIntString(obj interface{}) string {
	switch obj.(type) {
	case int, int8, int16, int32, int64:
		return strconv.FormatInt(reflect.ValueOf(obj).Int(), 10)
	}
	return ""
}

func toCommentKey(key string) string {
	return pbxparser.CommentKey(key)
}

func fromCommentKey(key string) string {
	return strings.TrimSuffix(key, pbxparser.CommentKeySuffix)
}

func nonCommentsFilter(key string, v interface{}) bool {
	return pbxparser.NonCommentsFilter(key, v)
}

func onlyCommentsFilter(key string, v interface{}) bool {
	return pbxparser.OnlyCommentsFilter(key, v)
}

// unquoted strips the token quoting of a raw project value.
func unquoted(text string) string {
	return pbxparser.Unquote(text)
}

func quoted(text string) string {
	return pbxparser.Quote(text)
}

func interfaceToStringSlice(val interface{}) []string {
	switch val := val.(type) {
	case []interface{}:
		result := make([]string, 0, len(val))
		for _, v := range val {
			switch v := v.(type) {
			case string:
				result = append(result, v)
			case pbxparser.Object:
				result = append(result, v.GetString("value"))
			}
		}
		return result
	case string:
		return []string{val}
	default:
		return nil
	}
}

func addToObjectList(obj pbxparser.Object, key string, val interface{}) {
	if obj.IsEmpty() {
		return
	}
	list := obj.GetArray(key)
	obj.Set(key, append(list, val))
}

// addToObjectListOnlyNotExist appends val unless an equal item is already
// listed. A scalar value is promoted to a list first. It reports whether the
// list changed.
func addToObjectListOnlyNotExist(obj pbxparser.Object, key string, val interface{}, equal func(v1, v2 interface{}) bool) bool {
	if obj.IsEmpty() {
		return false
	}
	var list []interface{}
	switch current := obj.ForceGet(key).(type) {
	case []interface{}:
		list = current
	case string:
		list = []interface{}{current}
	}
	for _, v := range list {
		if equal(v, val) {
			return false
		}
	}
	obj.Set(key, append(list, val))
	return true
}

// sameUnquoted compares two setting values, ignoring the escaped inner
// quotes Xcode puts around search paths.
func sameUnquoted(v1, v2 interface{}) bool {
	s1, ok1 := v1.(string)
	s2, ok2 := v2.(string)
	return ok1 && ok2 && strings.Trim(unquoted(s1), `"`) == strings.Trim(unquoted(s2), `"`)
}
