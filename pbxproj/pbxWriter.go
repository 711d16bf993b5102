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
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/golang/glog"

	"github.com/gocarrot/teak-xcpost/pbxparser"
)

const (
	INDENT = "\t"
)

type PbxWriterOption func(w *PbxWriter)

// WithOmitEmpty drops scalar entries whose value is the empty string.
func WithOmitEmpty() PbxWriterOption {
	return func(w *PbxWriter) {
		w.omitEmptyValues = true
	}
}

// PbxWriter renders project contents in the layout Xcode itself writes, so
// that an unmodified project round trips without a diff.
type PbxWriter struct {
	builder         strings.Builder
	omitEmptyValues bool
	contents        pbxparser.Object
	indentLevel     int
}

func NewPbxWriter(project *PbxProject, options ...PbxWriterOption) *PbxWriter {
	w := &PbxWriter{
		contents: project.Contents(),
	}
	for _, option := range options {
		option(w)
	}
	return w
}

func getComment(key string, parent pbxparser.Object) string {
	return parent.GetString(toCommentKey(key))
}

func withComment(value, comment string) string {
	if comment == "" {
		return value
	}
	return fmt.Sprintf("%s /* %s */", value, comment)
}

func isCommentPair(obj pbxparser.Object) bool {
	return obj.Size() == 2 && obj.Has("value") && obj.Has("comment")
}

func (w *PbxWriter) write(format string, args ...interface{}) {
	w.builder.WriteString(strings.Repeat(INDENT, w.indentLevel))
	fmt.Fprintf(&w.builder, format, args...)
}

func (w *PbxWriter) writeNoIndent(format string, args ...interface{}) {
	fmt.Fprintf(&w.builder, format, args...)
}

func (w *PbxWriter) String() string {
	w.builder.Reset()
	w.indentLevel = 0
	w.writeHeadComment()
	w.writeProject()
	return w.builder.String()
}

func (w *PbxWriter) Bytes() []byte {
	return []byte(w.String())
}

// Write renders the project to filePath. The mode of an existing file is
// kept.
func (w *PbxWriter) Write(filePath string) error {
	return os.WriteFile(filePath, w.Bytes(), 0644)
}

func (w *PbxWriter) writeHeadComment() {
	if comment := w.contents.GetString("headComment"); comment != "" {
		w.writeNoIndent("// %s\n", comment)
	}
}

func (w *PbxWriter) writeProject() {
	w.write("{\n")
	w.indentLevel++
	w.writeObject(w.contents.GetObject("project"), true)
	w.indentLevel--
	w.write("}\n")
}

func (w *PbxWriter) writeObject(obj pbxparser.Object, topLevel bool) {
	obj.ForeachWithFilter(func(key string, val interface{}) pbxparser.IterateActionType {
		cmt := getComment(key, obj)
		switch val := val.(type) {
		case []interface{}:
			w.writeArray(val, key)
		case pbxparser.Object:
			w.write("%s = {\n", withComment(key, cmt))
			w.indentLevel++
			if topLevel && key == "objects" {
				w.writeObjectsSections(val)
			} else {
				w.writeObject(val, false)
			}
			w.indentLevel--
			w.write("};\n")
		case string:
			if w.omitEmptyValues && val == "" {
				return pbxparser.IterateActionContinue
			}
			w.write("%s = %s;\n", key, withComment(val, cmt))
		default:
			if isInt(val) {
				w.write("%s = %s;\n", key, withComment(toIntString(val), cmt))
			} else {
				glog.Warningf("skipping %s: unsupported value %T", key, val)
			}
		}
		return pbxparser.IterateActionContinue
	}, nonCommentsFilter)
}

func (w *PbxWriter) writeObjectsSections(objects pbxparser.Object) {
	var isas []string
	objects.ForeachWithFilter(func(key string, val interface{}) pbxparser.IterateActionType {
		if section, ok := val.(pbxparser.Object); ok && !section.IsEmpty() {
			isas = append(isas, key)
		}
		return pbxparser.IterateActionContinue
	}, nonCommentsFilter)
	sort.Strings(isas)

	for _, isa := range isas {
		w.writeNoIndent("\n")
		w.writeSectionComment(isa, true)
		w.writeSection(objects.GetObject(isa))
		w.writeSectionComment(isa, false)
	}
}

func (w *PbxWriter) writeArray(arr []interface{}, name string) {
	w.write("%s = (\n", name)
	w.indentLevel++
	for _, item := range arr {
		switch item := item.(type) {
		case pbxparser.Object:
			if isCommentPair(item) {
				w.write("%s,\n", withComment(item.GetString("value"), item.GetString("comment")))
				continue
			}
			w.write("{\n")
			w.indentLevel++
			w.writeObject(item, false)
			w.indentLevel--
			w.write("},\n")
		case string:
			w.write("%s,\n", item)
		default:
			if isInt(item) {
				w.write("%s,\n", toIntString(item))
			} else {
				glog.Warningf("skipping %s item: unsupported value %T", name, item)
			}
		}
	}
	w.indentLevel--
	w.write(");\n")
}

func (w *PbxWriter) writeSectionComment(name string, begin bool) {
	if begin {
		w.writeNoIndent("/* Begin %s section */\n", name)
	} else {
		w.writeNoIndent("/* End %s section */\n", name)
	}
}

func (w *PbxWriter) writeSection(section pbxparser.Object) {
	section.ForeachWithFilter(func(key string, val interface{}) pbxparser.IterateActionType {
		obj, ok := val.(pbxparser.Object)
		if !ok {
			return pbxparser.IterateActionContinue
		}
		name := withComment(key, getComment(key, section))
		isa := unquoted(obj.GetString("isa"))
		if isa == "PBXBuildFile" || isa == "PBXFileReference" {
			w.write("%s = %s;\n", name, w.inlineObject(obj))
			return pbxparser.IterateActionContinue
		}
		w.write("%s = {\n", name)
		w.indentLevel++
		w.writeObject(obj, false)
		w.indentLevel--
		w.write("};\n")
		return pbxparser.IterateActionContinue
	}, nonCommentsFilter)
}

// inlineObject renders obj on one line, as Xcode does for build files and
// file references: {isa = PBXBuildFile; settings = {ATTRIBUTES = (Weak, ); }; }
func (w *PbxWriter) inlineObject(obj pbxparser.Object) string {
	var sb strings.Builder
	sb.WriteString("{")
	obj.ForeachWithFilter(func(key string, val interface{}) pbxparser.IterateActionType {
		if s, ok := val.(string); ok && s == "" && w.omitEmptyValues {
			return pbxparser.IterateActionContinue
		}
		value, ok := w.inlineValue(val)
		if !ok {
			glog.Warningf("skipping %s: unsupported inline value %T", key, val)
			return pbxparser.IterateActionContinue
		}
		fmt.Fprintf(&sb, "%s = %s; ", key, withComment(value, getComment(key, obj)))
		return pbxparser.IterateActionContinue
	}, nonCommentsFilter)
	sb.WriteString("}")
	return sb.String()
}

func (w *PbxWriter) inlineValue(val interface{}) (string, bool) {
	switch val := val.(type) {
	case string:
		return val, true
	case pbxparser.Object:
		if isCommentPair(val) {
			return withComment(val.GetString("value"), val.GetString("comment")), true
		}
		return w.inlineObject(val), true
	case []interface{}:
		var sb strings.Builder
		sb.WriteString("(")
		for _, item := range val {
			if value, ok := w.inlineValue(item); ok {
				sb.WriteString(value)
				sb.WriteString(", ")
			}
		}
		sb.WriteString(")")
		return sb.String(), true
	}
	if isInt(val) {
		return toIntString(val), true
	}
	return "", false
}
