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
	"strings"
)

var quoteReplacer = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\t", `\t`,
)

var unquoteReplacer = strings.NewReplacer(
	`\\`, `\`,
	`\"`, `"`,
	`\n`, "\n",
	`\t`, "\t",
)

// Quote renders s as a project file token, adding quotes only when Xcode
// would.
func Quote(s string) string {
	if s == "" {
		return `""`
	}
	if strings.Contains(s, "//") || strings.Contains(s, "/*") {
		return `"` + quoteReplacer.Replace(s) + `"`
	}
	for i := 0; i < len(s); i++ {
		if !isBareByte(s[i]) {
			return `"` + quoteReplacer.Replace(s) + `"`
		}
	}
	return s
}

// Unquote is the inverse of Quote. Bare tokens are returned unchanged.
func Unquote(s string) string {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return s
	}
	return unquoteReplacer.Replace(s[1 : len(s)-1])
}

func isBareByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '_', c == '$', c == '.', c == '/':
		return true
	}
	return false
}
