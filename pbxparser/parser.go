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
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrSyntax is wrapped by every SyntaxError.
var ErrSyntax = errors.New("pbxproj syntax error")

type SyntaxError struct {
	Name   string
	Line   int
	Column int
	Msg    string
}

func (e *SyntaxError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s:%d:%d: %s", e.Name, e.Line, e.Column, e.Msg)
	}
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Msg)
}

func (e *SyntaxError) Unwrap() error {
	return ErrSyntax
}

// ParseReader reads a whole project file and returns its contents as
//
//	{ headComment = "!$*UTF8*$!"; project = { ...root dictionary... } }
//
// Inside project.objects the flat UUID map is regrouped by isa, so that
// objects.PBXBuildFile holds every build file keyed by UUID.
func ParseReader(name string, r io.Reader) (Object, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Object{}, err
	}
	return Parse(name, data)
}

func Parse(name string, data []byte) (Object, error) {
	p := &parser{name: name, data: data}
	contents := NewObject()

	if head, ok := p.headComment(); ok {
		contents.Set("headComment", head)
	}
	p.skipSpace()
	if p.peek() != '{' {
		return Object{}, p.errorf("expected '{' at start of project")
	}
	root, err := p.parseDict()
	if err != nil {
		return Object{}, err
	}
	p.skipSpace()
	if !p.eof() {
		return Object{}, p.errorf("unexpected %q after project", p.peek())
	}

	if objects, ok := root.ForceGet("objects").(Object); ok {
		root.Set("objects", groupObjectsByIsa(objects))
	}
	contents.Set("project", root)
	return contents, nil
}

func groupObjectsByIsa(objects Object) Object {
	sections := NewObject()
	objects.ForeachWithFilter(func(key string, val interface{}) IterateActionType {
		obj, ok := val.(Object)
		if !ok {
			return IterateActionContinue
		}
		isa := Unquote(obj.GetString("isa"))
		section, ok := sections.ForceGet(isa).(Object)
		if !ok {
			section = NewObject()
			sections.Set(isa, section)
		}
		section.Set(key, obj)
		if comment := objects.GetComment(key); comment != "" {
			section.Set(CommentKey(key), comment)
		}
		return IterateActionContinue
	}, NonCommentsFilter)
	return sections
}

type parser struct {
	name string
	data []byte
	pos  int
}

func (p *parser) eof() bool {
	return p.pos >= len(p.data)
}

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.data[p.pos]
}

func (p *parser) startsWith(s string) bool {
	return bytes.HasPrefix(p.data[p.pos:], []byte(s))
}

func (p *parser) errorf(format string, args ...interface{}) error {
	consumed := p.data[:p.pos]
	line := bytes.Count(consumed, []byte("\n")) + 1
	column := p.pos - bytes.LastIndexByte(consumed, '\n')
	return &SyntaxError{
		Name:   p.name,
		Line:   line,
		Column: column,
		Msg:    fmt.Sprintf(format, args...),
	}
}

func (p *parser) headComment() (string, bool) {
	if !p.startsWith("//") {
		return "", false
	}
	end := bytes.IndexByte(p.data[p.pos:], '\n')
	if end < 0 {
		end = len(p.data) - p.pos
	}
	text := strings.TrimSpace(string(p.data[p.pos+2 : p.pos+end]))
	p.pos += end
	return text, true
}

// skipSpace consumes whitespace and comments and returns the text of the
// last block comment it passed over.
func (p *parser) skipSpace() string {
	comment := ""
	for !p.eof() {
		switch c := p.peek(); {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			p.pos++
		case p.startsWith("//"):
			end := bytes.IndexByte(p.data[p.pos:], '\n')
			if end < 0 {
				p.pos = len(p.data)
			} else {
				p.pos += end + 1
			}
		case p.startsWith("/*"):
			end := bytes.Index(p.data[p.pos+2:], []byte("*/"))
			if end < 0 {
				p.pos = len(p.data)
				return comment
			}
			comment = strings.TrimSpace(string(p.data[p.pos+2 : p.pos+2+end]))
			p.pos += end + 4
		default:
			return comment
		}
	}
	return comment
}

func (p *parser) expect(c byte) error {
	if p.peek() != c {
		if p.eof() {
			return p.errorf("expected %q, found end of input", c)
		}
		return p.errorf("expected %q, found %q", c, p.peek())
	}
	p.pos++
	return nil
}

func (p *parser) parseValue() (interface{}, error) {
	switch p.peek() {
	case '{':
		return p.parseDict()
	case '(':
		return p.parseArray()
	default:
		return p.parseString()
	}
}

func (p *parser) parseDict() (Object, error) {
	if err := p.expect('{'); err != nil {
		return Object{}, err
	}
	obj := NewObject()
	for {
		p.skipSpace()
		if p.peek() == '}' {
			p.pos++
			return obj, nil
		}
		key, err := p.parseString()
		if err != nil {
			return Object{}, err
		}
		comment := p.skipSpace()
		if err := p.expect('='); err != nil {
			return Object{}, err
		}
		p.skipSpace()
		value, err := p.parseValue()
		if err != nil {
			return Object{}, err
		}
		if valueComment := p.skipSpace(); valueComment != "" {
			comment = valueComment
		}
		if err := p.expect(';'); err != nil {
			return Object{}, err
		}
		obj.Set(key, value)
		if comment != "" {
			obj.Set(CommentKey(key), comment)
		}
	}
}

func (p *parser) parseArray() ([]interface{}, error) {
	if err := p.expect('('); err != nil {
		return nil, err
	}
	list := []interface{}{}
	for {
		p.skipSpace()
		if p.peek() == ')' {
			p.pos++
			return list, nil
		}
		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		comment := p.skipSpace()
		if s, ok := value.(string); ok && comment != "" {
			value = NewObjectWithData([]ObjectItem{
				NewObjectItem("value", s),
				NewObjectItem("comment", comment),
			})
		}
		list = append(list, value)
		if p.peek() == ',' {
			p.pos++
			continue
		}
		p.skipSpace()
		if p.peek() != ')' {
			return nil, p.errorf("expected ',' or ')' in array, found %q", p.peek())
		}
	}
}

// parseString returns the raw token: quoted strings keep their quotes and
// escapes so that writing them back is lossless.
func (p *parser) parseString() (string, error) {
	if p.eof() {
		return "", p.errorf("unexpected end of input")
	}
	start := p.pos
	switch p.peek() {
	case '"':
		p.pos++
		for !p.eof() {
			switch p.data[p.pos] {
			case '\\':
				p.pos += 2
			case '"':
				p.pos++
				return string(p.data[start:p.pos]), nil
			default:
				p.pos++
			}
		}
		p.pos = start
		return "", p.errorf("unterminated string")
	case '<':
		end := bytes.IndexByte(p.data[p.pos:], '>')
		if end < 0 {
			return "", p.errorf("unterminated data literal")
		}
		p.pos += end + 1
		return string(p.data[start:p.pos]), nil
	}
	for !p.eof() && isAtomByte(p.peek()) && !p.startsWith("/*") && !p.startsWith("//") {
		p.pos++
	}
	if p.pos == start {
		return "", p.errorf("unexpected %q", p.peek())
	}
	return string(p.data[start:p.pos]), nil
}

func isAtomByte(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '{', '}', '(', ')', '=', ';', ',', '"':
		return false
	}
	return true
}
