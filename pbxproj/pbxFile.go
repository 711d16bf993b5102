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
	"path"
	"path/filepath"
	"strings"

	"github.com/gocarrot/teak-xcpost/pbxparser"
)

const (
	DEFAULT_SOURCETREE     = `"<group>"`
	SOURCE_ROOT_SOURCETREE = "SOURCE_ROOT"
	SDKROOT_SOURCETREE     = "SDKROOT"
	DEFAULT_GROUP          = "Resources"
	DEFAULT_FILETYPE       = "file"
	DEFAULT_ENCODING_VALUE = 4
)

var FILETYPE_BY_EXTENSION = map[string]string{
	"a":            "archive.ar",
	"app":          "wrapper.application",
	"appex":        "wrapper.app-extension",
	"bundle":       "wrapper.plug-in",
	"c":            "sourcecode.c.c",
	"cpp":          "sourcecode.cpp.cpp",
	"dylib":        "compiled.mach-o.dylib",
	"framework":    "wrapper.framework",
	"h":            "sourcecode.c.h",
	"hpp":          "sourcecode.cpp.h",
	"json":         "text.json",
	"m":            "sourcecode.c.objc",
	"markdown":     "text",
	"mdimporter":   "wrapper.cfbundle",
	"mm":           "sourcecode.cpp.objcpp",
	"modulemap":    "sourcecode.module-map",
	"octest":       "wrapper.cfbundle",
	"pch":          "sourcecode.c.h",
	"plist":        "text.plist.xml",
	"png":          "image.png",
	"sh":           "text.script.sh",
	"strings":      "text.plist.strings",
	"swift":        "sourcecode.swift",
	"tbd":          "sourcecode.text-based-dylib-definition",
	"txt":          "text",
	"xcassets":     "folder.assetcatalog",
	"xcconfig":     "text.xcconfig",
	"xcdatamodel":  "wrapper.xcdatamodel",
	"xcframework":  "wrapper.xcframework",
	"xcodeproj":    "wrapper.pb-project",
	"xcprivacy":    "text.xml",
	"xctest":       "wrapper.cfbundle",
	"xib":          "file.xib",
	"storyboard":   "file.storyboard",
	"xcdatamodeld": "wrapper.xcdatamodeld",
}

// GROUP_BY_FILETYPE names the build phase a file type is compiled, linked or
// copied in. An empty group means the file is only referenced.
var GROUP_BY_FILETYPE = map[string]string{
	"archive.ar":                             "Frameworks",
	"compiled.mach-o.dylib":                  "Frameworks",
	"sourcecode.text-based-dylib-definition": "Frameworks",
	"wrapper.framework":                      "Frameworks",
	"wrapper.xcframework":                    "Frameworks",
	"sourcecode.c.h":                         "",
	"sourcecode.cpp.h":                       "",
	"sourcecode.module-map":                  "",
	"sourcecode.c.c":                         "Sources",
	"sourcecode.c.objc":                      "Sources",
	"sourcecode.cpp.cpp":                     "Sources",
	"sourcecode.cpp.objcpp":                  "Sources",
	"sourcecode.swift":                       "Sources",
	"wrapper.xcdatamodeld":                   "Sources",
}

var PATH_BY_FILETYPE = map[string]string{
	"compiled.mach-o.dylib":                  "usr/lib/",
	"sourcecode.text-based-dylib-definition": "usr/lib/",
	"wrapper.framework":                      "System/Library/Frameworks/",
}

var SOURCETREE_BY_FILETYPE = map[string]string{
	"compiled.mach-o.dylib":                  SDKROOT_SOURCETREE,
	"sourcecode.text-based-dylib-definition": SDKROOT_SOURCETREE,
	"wrapper.framework":                      SDKROOT_SOURCETREE,
}

var ENCODING_BY_FILETYPE = map[string]int{
	"sourcecode.c.c":        DEFAULT_ENCODING_VALUE,
	"sourcecode.c.h":        DEFAULT_ENCODING_VALUE,
	"sourcecode.c.objc":     DEFAULT_ENCODING_VALUE,
	"sourcecode.cpp.cpp":    DEFAULT_ENCODING_VALUE,
	"sourcecode.cpp.h":      DEFAULT_ENCODING_VALUE,
	"sourcecode.cpp.objcpp": DEFAULT_ENCODING_VALUE,
	"sourcecode.swift":      DEFAULT_ENCODING_VALUE,
	"text":                  DEFAULT_ENCODING_VALUE,
	"text.json":             DEFAULT_ENCODING_VALUE,
	"text.plist.xml":        DEFAULT_ENCODING_VALUE,
	"text.script.sh":        DEFAULT_ENCODING_VALUE,
	"text.xcconfig":         DEFAULT_ENCODING_VALUE,
	"text.plist.strings":    DEFAULT_ENCODING_VALUE,
	"text.xml":              DEFAULT_ENCODING_VALUE,
}

// SEARCHPATH_BY_FILETYPE lists the build setting that must point at the
// directory of a linked file living inside the project.
var SEARCHPATH_BY_FILETYPE = map[string]string{
	"archive.ar":        "LIBRARY_SEARCH_PATHS",
	"wrapper.framework": "FRAMEWORK_SEARCH_PATHS",
}

// Directories with these extensions are added as a single file reference
// rather than walked.
var SPECIAL_FOLDER_EXTENSIONS = map[string]struct{}{
	"bundle":       {},
	"framework":    {},
	"xcassets":     {},
	"xcdatamodeld": {},
	"xcframework":  {},
	"xcodeproj":    {},
}

type PbxFileOptions struct {
	LastKnownFileType string
	CustomFramework   bool
	SourceTree        string
	Weak              bool
	CompilerFlags     string
	// Target is a native target name. Empty selects the first target.
	Target string
	// ParentGroup is the UUID of the PBXGroup receiving the reference.
	// Empty selects the group named after the build phase, or the main group.
	ParentGroup string
	Link        bool
}

type PbxFile struct {
	Basename          string
	FileRef           string
	LastKnownFileType string
	Group             string
	CustomFramework   bool
	Dirname           string
	Path              string
	FileEncoding      int
	SourceTree        string
	Settings          pbxparser.Object
	Uuid              string
	Target            string
}

func extensionOf(filePath string) string {
	return strings.TrimPrefix(path.Ext(filepath.ToSlash(filePath)), ".")
}

func isSpecialFolder(name string) bool {
	_, ok := SPECIAL_FOLDER_EXTENSIONS[extensionOf(name)]
	return ok
}

func newPbxFile(filePath string, options PbxFileOptions) *PbxFile {
	pbxfile := PbxFile{
		Basename: filepath.Base(filePath),
		Target:   options.Target,
	}
	if options.LastKnownFileType != "" {
		pbxfile.LastKnownFileType = options.LastKnownFileType
	} else {
		pbxfile.LastKnownFileType = detectType(filePath)
	}
	// for custom frameworks
	if options.CustomFramework {
		pbxfile.CustomFramework = true
		pbxfile.Dirname = filepath.ToSlash(filepath.Dir(filePath))
	}
	pbxfile.FileEncoding = ENCODING_BY_FILETYPE[unquoted(pbxfile.LastKnownFileType)]
	pbxfile.Group = pbxfile.detectGroup()

	if options.SourceTree != "" {
		pbxfile.SourceTree = quoted(unquoted(options.SourceTree))
	} else {
		pbxfile.SourceTree = pbxfile.detectSourcetree()
	}
	pbxfile.Path = filepath.ToSlash(pbxfile.defaultPath(filePath))

	if options.Weak {
		pbxfile.settings().Set("ATTRIBUTES", []interface{}{"Weak"})
	}
	if options.CompilerFlags != "" {
		pbxfile.settings().Set("COMPILER_FLAGS", quoted(options.CompilerFlags))
	}
	return &pbxfile
}

func (pbxfile *PbxFile) settings() pbxparser.Object {
	if pbxfile.Settings.SliceMap == nil {
		pbxfile.Settings = pbxparser.NewObject()
	}
	return pbxfile.Settings
}

func detectType(filePath string) string {
	filetype, found := FILETYPE_BY_EXTENSION[extensionOf(filePath)]
	if !found {
		return DEFAULT_FILETYPE
	}
	return filetype
}

func (pbxfile *PbxFile) detectGroup() string {
	groupName, ok := GROUP_BY_FILETYPE[unquoted(pbxfile.LastKnownFileType)]
	if !ok {
		groupName = DEFAULT_GROUP
	}
	return groupName
}

func (pbxfile *PbxFile) detectSourcetree() string {
	if pbxfile.CustomFramework {
		return DEFAULT_SOURCETREE
	}
	sourcetree, ok := SOURCETREE_BY_FILETYPE[unquoted(pbxfile.LastKnownFileType)]
	if !ok {
		sourcetree = DEFAULT_SOURCETREE
	}
	return sourcetree
}

// defaultPath places bare SDK framework and library names under their SDK
// directory. Paths that already carry a directory are kept.
func (pbxfile *PbxFile) defaultPath(filePath string) string {
	if pbxfile.CustomFramework || pbxfile.SourceTree != SDKROOT_SOURCETREE {
		return filePath
	}
	if filepath.Base(filePath) != filePath {
		return filePath
	}
	defaultPath, ok := PATH_BY_FILETYPE[unquoted(pbxfile.LastKnownFileType)]
	if !ok {
		return filePath
	}
	return path.Join(defaultPath, filePath)
}

func (pbxfile *PbxFile) searchPathSetting() string {
	if pbxfile.SourceTree == SDKROOT_SOURCETREE {
		return ""
	}
	return SEARCHPATH_BY_FILETYPE[unquoted(pbxfile.LastKnownFileType)]
}
