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
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/golang/glog"
	"github.com/otiai10/copy"

	"github.com/gocarrot/teak-xcpost/pbxparser"
)

var (
	ErrFileExists     = errors.New("file already exists")
	ErrGroupNotFound  = errors.New("group not found")
	ErrTargetNotFound = errors.New("target not found")
)

// BUILDPHASE_ISA_BY_GROUP maps a PbxFile group to the isa of the build phase
// that consumes it.
var BUILDPHASE_ISA_BY_GROUP = map[string]string{
	"Frameworks": "PBXFrameworksBuildPhase",
	"Resources":  "PBXResourcesBuildPhase",
	"Sources":    "PBXSourcesBuildPhase",
}

type CommentValue struct {
	Value   string
	Comment string
}

func (c CommentValue) ToObject() pbxparser.Object {
	return pbxparser.NewObjectWithData([]pbxparser.ObjectItem{
		pbxparser.NewObjectItem("value", c.Value),
		pbxparser.NewObjectItem("comment", c.Comment),
	})
}

type PbxProject struct {
	filePath   string
	sourceRoot string
	modified   bool
	now        func() time.Time

	pbxContents                    pbxparser.Object
	topProjectSection              pbxparser.Object
	pbxObjectSection               pbxparser.Object
	pbxProjectSection              pbxparser.Object
	pbxBuildFileSection            pbxparser.Object
	pbxGroupSection                pbxparser.Object
	pbxFileReferenceSection        pbxparser.Object
	pbxNativeTargetSection         pbxparser.Object
	pbxXCBuildConfigurationSection pbxparser.Object
	pbxXCConfigurationListSection  pbxparser.Object

	uuids          map[string]struct{}
	fileRefsByPath map[string]string
}

// NewPbxProject prepares an editor for filename, which is expected to live
// at <source root>/<name>.xcodeproj/project.pbxproj. Call Parse before use.
func NewPbxProject(filename string) *PbxProject {
	sourceRoot := filepath.Dir(filepath.Dir(filename))
	if abs, err := filepath.Abs(sourceRoot); err == nil {
		sourceRoot = abs
	}
	return &PbxProject{
		filePath:       filename,
		sourceRoot:     sourceRoot,
		now:            time.Now,
		uuids:          make(map[string]struct{}),
		fileRefsByPath: make(map[string]string),
	}
}

func (p *PbxProject) FilePath() string {
	return p.filePath
}

func (p *PbxProject) SourceRoot() string {
	return p.sourceRoot
}

func (p *PbxProject) Contents() pbxparser.Object {
	return p.pbxContents
}

// Modified reports whether the project has changes that Save has not
// written yet.
func (p *PbxProject) Modified() bool {
	return p.modified
}

func (p *PbxProject) Parse() error {
	file, err := os.Open(p.filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	contents, err := pbxparser.ParseReader(p.filePath, file)
	if err != nil {
		return err
	}
	p.pbxContents = contents
	if err := p.initSections(); err != nil {
		return err
	}
	p.buildExistUuids()
	p.buildFileReferenceIndex()
	p.modified = false
	return nil
}

func (p *PbxProject) Dump(writer io.Writer) error {
	buffer := bytes.NewBuffer([]byte{})
	jsonEncoder := json.NewEncoder(buffer)
	jsonEncoder.SetEscapeHTML(false)
	jsonEncoder.SetIndent("", "  ")
	if err := jsonEncoder.Encode(p.Contents()); err != nil {
		return err
	}
	_, err := writer.Write(buffer.Bytes())
	return err
}

func (p *PbxProject) initSections() error {
	p.topProjectSection = p.pbxContents.GetObject("project")
	objects, ok := p.topProjectSection.ForceGet("objects").(pbxparser.Object)
	if !ok {
		return fmt.Errorf("%s: project has no objects dictionary", p.filePath)
	}
	p.pbxObjectSection = objects
	p.pbxProjectSection = p.section("PBXProject")
	p.pbxBuildFileSection = p.section("PBXBuildFile")
	p.pbxGroupSection = p.section("PBXGroup")
	p.pbxFileReferenceSection = p.section("PBXFileReference")
	p.pbxNativeTargetSection = p.section("PBXNativeTarget")
	p.pbxXCBuildConfigurationSection = p.section("XCBuildConfiguration")
	p.pbxXCConfigurationListSection = p.section("XCConfigurationList")
	return nil
}

// section returns the objects of one isa, attaching an empty section when
// the file has none. Empty sections are not written.
func (p *PbxProject) section(isa string) pbxparser.Object {
	if section, ok := p.pbxObjectSection.ForceGet(isa).(pbxparser.Object); ok {
		return section
	}
	section := pbxparser.NewObject()
	p.pbxObjectSection.Set(isa, section)
	return section
}

func (p *PbxProject) buildExistUuids() {
	uuids := make(map[string]struct{})
	p.pbxObjectSection.Foreach(func(_ string, v interface{}) pbxparser.IterateActionType {
		section, ok := v.(pbxparser.Object)
		if !ok {
			return pbxparser.IterateActionContinue
		}
		section.ForeachWithFilter(func(key string, _ interface{}) pbxparser.IterateActionType {
			uuids[key] = struct{}{}
			return pbxparser.IterateActionContinue
		}, nonCommentsFilter)
		return pbxparser.IterateActionContinue
	})
	p.uuids = uuids
}

func (p *PbxProject) buildFileReferenceIndex() {
	index := make(map[string]string)
	p.pbxFileReferenceSection.ForeachWithFilter(func(key string, v interface{}) pbxparser.IterateActionType {
		if ref, ok := v.(pbxparser.Object); ok {
			if refPath := unquoted(ref.GetString("path")); refPath != "" {
				index[refPath] = key
			}
		}
		return pbxparser.IterateActionContinue
	}, nonCommentsFilter)
	p.fileRefsByPath = index
}

func (p *PbxProject) generateUuid() string {
	for {
		u, err := uuid.NewV4()
		if err != nil {
			// the system random source failing is not recoverable here
			panic(err)
		}
		newUUID := strings.ToUpper(strings.ReplaceAll(u.String(), "-", "")[0:24])
		if _, found := p.uuids[newUUID]; !found {
			p.uuids[newUUID] = struct{}{}
			return newUUID
		}
	}
}

// HasFile reports whether a file reference with the given path exists.
func (p *PbxProject) HasFile(filePath string) bool {
	_, ok := p.fileRefsByPath[unquoted(filepath.ToSlash(filePath))]
	return ok
}

func (p *PbxProject) FileReferenceCount() int {
	count := 0
	p.pbxFileReferenceSection.ForeachWithFilter(func(string, interface{}) pbxparser.IterateActionType {
		count++
		return pbxparser.IterateActionContinue
	}, nonCommentsFilter)
	return count
}

// AddFramework references and links an SDK framework or library. Bare names
// such as "StoreKit.framework" are resolved below the SDK root. Adding a
// framework that is already referenced fails with ErrFileExists and leaves
// the project untouched.
func (p *PbxProject) AddFramework(filePath string, options PbxFileOptions) (*PbxFile, error) {
	pbxfile := newPbxFile(filePath, options)
	if p.HasFile(pbxfile.Path) {
		return nil, fmt.Errorf("framework %s: %w", pbxfile.Path, ErrFileExists)
	}
	targetKey, err := p.targetKey(options.Target)
	if err != nil {
		return nil, err
	}
	parent := options.ParentGroup
	if parent == "" {
		if parent, err = p.frameworksGroupKey(); err != nil {
			return nil, err
		}
	} else if !p.pbxGroupSection.Has(parent) {
		return nil, fmt.Errorf("group %s: %w", parent, ErrGroupNotFound)
	}

	pbxfile.FileRef = p.generateUuid()
	p.addToPbxFileReferenceSection(pbxfile) // PBXFileReference
	p.addToPbxGroupByKey(pbxfile, parent)   // PBXGroup

	if options.Link {
		phase := p.buildPhaseObject(pbxfile.Group, targetKey)
		if !phase.IsEmpty() {
			pbxfile.Uuid = p.generateUuid()
			p.addToPbxBuildFileSection(pbxfile)   // PBXBuildFile
			p.addToPbxBuildPhase(phase, pbxfile) // PBXFrameworksBuildPhase
		}
	}
	if options.CustomFramework {
		p.addToSearchPaths("FRAMEWORK_SEARCH_PATHS", pbxfile, targetKey)
	}
	return pbxfile, nil
}

// AddFileIfNotExist references a file and adds it to the build phase its
// type belongs to. Absolute paths and paths relative to the working
// directory are stored relative to the source root. When a reference with
// the same path exists nothing changes and (nil, nil) is returned.
func (p *PbxProject) AddFileIfNotExist(filePath string, options PbxFileOptions) (*PbxFile, error) {
	filePath, options.SourceTree = p.projectRelative(filePath, options.SourceTree)
	pbxfile := newPbxFile(filePath, options)
	if p.HasFile(pbxfile.Path) {
		glog.V(1).Infof("%s is already referenced", pbxfile.Path)
		return nil, nil
	}
	return p.addFile(pbxfile, options)
}

func (p *PbxProject) addFile(pbxfile *PbxFile, options PbxFileOptions) (*PbxFile, error) {
	targetKey, err := p.targetKey(options.Target)
	if err != nil {
		return nil, err
	}
	parent := options.ParentGroup
	if parent == "" {
		parent = p.mainGroupKey()
	}
	if !p.pbxGroupSection.Has(parent) {
		return nil, fmt.Errorf("group %q: %w", parent, ErrGroupNotFound)
	}

	pbxfile.FileRef = p.generateUuid()
	p.addToPbxFileReferenceSection(pbxfile) // PBXFileReference
	p.addToPbxGroupByKey(pbxfile, parent)   // PBXGroup

	if pbxfile.Group != "" {
		phase := p.buildPhaseObject(pbxfile.Group, targetKey)
		if !phase.IsEmpty() {
			pbxfile.Uuid = p.generateUuid()
			p.addToPbxBuildFileSection(pbxfile)   // PBXBuildFile
			p.addToPbxBuildPhase(phase, pbxfile) // PBX*BuildPhase
		}
	}
	if setting := pbxfile.searchPathSetting(); setting != "" {
		p.addToSearchPaths(setting, pbxfile, targetKey)
	}
	return pbxfile, nil
}

// projectRelative rewrites filesystem paths so that they resolve from
// SOURCE_ROOT. Explicit non SOURCE_ROOT trees are left alone.
func (p *PbxProject) projectRelative(filePath, sourceTree string) (string, string) {
	if sourceTree != "" && unquoted(sourceTree) != SOURCE_ROOT_SOURCETREE {
		return filePath, sourceTree
	}
	abs, err := filepath.Abs(filePath)
	if err != nil {
		return filePath, sourceTree
	}
	rel, err := filepath.Rel(p.sourceRoot, abs)
	if err != nil {
		return abs, "<absolute>"
	}
	return filepath.ToSlash(rel), SOURCE_ROOT_SOURCETREE
}

// helper addition functions
func (p *PbxProject) addToPbxBuildFileSection(pbxfile *PbxFile) {
	p.pbxBuildFileSection.Set(pbxfile.Uuid, pbxBuildFileObj(pbxfile))
	p.pbxBuildFileSection.Set(toCommentKey(pbxfile.Uuid), pbxBuildFileComment(pbxfile))
	p.modified = true
}

func (p *PbxProject) addToPbxFileReferenceSection(pbxfile *PbxFile) {
	p.pbxFileReferenceSection.Set(pbxfile.FileRef, newPbxFileReferenceObj(pbxfile))
	p.pbxFileReferenceSection.Set(toCommentKey(pbxfile.FileRef), pbxFileReferenceComment(pbxfile))
	p.fileRefsByPath[pbxfile.Path] = pbxfile.FileRef
	p.modified = true
}

func (p *PbxProject) addToPbxGroupByKey(pbxfile *PbxFile, groupKey string) {
	group := p.pbxGroupSection.GetObject(groupKey)
	addToObjectList(group, "children", pbxGroupChild(pbxfile).ToObject())
	p.modified = true
}

func (p *PbxProject) addToPbxBuildPhase(phase pbxparser.Object, pbxfile *PbxFile) {
	addToObjectList(phase, "files", pbxBuildPhaseObj(pbxfile))
	p.modified = true
}

func (p *PbxProject) mainGroupKey() string {
	return p.getFirstProject().GetString("mainGroup")
}

func groupName(group pbxparser.Object) string {
	if name := group.GetString("name"); name != "" {
		return unquoted(name)
	}
	return unquoted(group.GetString("path"))
}

// pbxGroupByName finds the first group whose comment matches name.
func (p *PbxProject) pbxGroupByName(name string) (groupKey string) {
	p.pbxGroupSection.ForeachWithFilter(func(key string, value interface{}) pbxparser.IterateActionType {
		if comment, ok := value.(string); ok && unquoted(comment) == name {
			groupKey = fromCommentKey(key)
			return pbxparser.IterateActionBreak
		}
		return pbxparser.IterateActionContinue
	}, onlyCommentsFilter)
	return
}

func (p *PbxProject) findChildGroup(parentKey, name string) string {
	parent := p.pbxGroupSection.GetObject(parentKey)
	for _, child := range interfaceToStringSlice(parent.ForceGet("children")) {
		group, ok := p.pbxGroupSection.ForceGet(child).(pbxparser.Object)
		if ok && groupName(group) == name {
			return child
		}
	}
	return ""
}

func (p *PbxProject) getOrCreateGroup(name, parentKey string) (string, error) {
	if !p.pbxGroupSection.Has(parentKey) {
		return "", fmt.Errorf("group %q: %w", parentKey, ErrGroupNotFound)
	}
	if key := p.findChildGroup(parentKey, name); key != "" {
		return key, nil
	}
	return p.pbxCreateGroup(name, parentKey), nil
}

func (p *PbxProject) pbxCreateGroup(name, parentKey string) string {
	groupKey := p.generateUuid()
	group := pbxparser.NewObjectWithData([]pbxparser.ObjectItem{
		pbxparser.NewObjectItem("isa", "PBXGroup"),
		pbxparser.NewObjectItem("children", []interface{}{}),
		pbxparser.NewObjectItem("name", quoted(name)),
		pbxparser.NewObjectItem("sourceTree", DEFAULT_SOURCETREE),
	})
	p.pbxGroupSection.Set(groupKey, group)
	p.pbxGroupSection.Set(toCommentKey(groupKey), name)

	parent := p.pbxGroupSection.GetObject(parentKey)
	addToObjectList(parent, "children", CommentValue{
		Value:   groupKey,
		Comment: name,
	}.ToObject())
	p.modified = true
	glog.V(1).Infof("created group %s (%s)", name, groupKey)
	return groupKey
}

func (p *PbxProject) frameworksGroupKey() (string, error) {
	mainGroup := p.mainGroupKey()
	if key := p.findChildGroup(mainGroup, "Frameworks"); key != "" {
		return key, nil
	}
	if key := p.pbxGroupByName("Frameworks"); key != "" {
		return key, nil
	}
	return p.getOrCreateGroup("Frameworks", mainGroup)
}

func (p *PbxProject) getFirstProject() pbxparser.ObjectWithUUID {
	firstProject := pbxparser.ObjectWithUUID{Object: pbxparser.NewObject()}
	p.pbxProjectSection.ForeachWithFilter(func(key string, value interface{}) pbxparser.IterateActionType {
		if project, ok := value.(pbxparser.Object); ok {
			firstProject = pbxparser.ObjectWithUUID{UUID: key, Object: project}
			return pbxparser.IterateActionBreak
		}
		return pbxparser.IterateActionContinue
	}, nonCommentsFilter)
	return firstProject
}

func (p *PbxProject) getFirstTarget() pbxparser.ObjectWithUUID {
	targets := interfaceToStringSlice(p.getFirstProject().ForceGet("targets"))
	if len(targets) == 0 {
		return pbxparser.ObjectWithUUID{Object: pbxparser.NewObject()}
	}
	return pbxparser.ObjectWithUUID{
		UUID:   targets[0],
		Object: p.pbxNativeTargetSection.GetObject(targets[0]),
	}
}

// targetKey resolves a native target name to its UUID. An empty name picks
// the first target of the project.
func (p *PbxProject) targetKey(name string) (targetKey string, err error) {
	if name == "" {
		if target := p.getFirstTarget(); target.UUID != "" {
			return target.UUID, nil
		}
		return "", fmt.Errorf("first target: %w", ErrTargetNotFound)
	}
	p.pbxNativeTargetSection.ForeachWithFilter(func(key string, value interface{}) pbxparser.IterateActionType {
		if target, ok := value.(pbxparser.Object); ok && unquoted(target.GetString("name")) == name {
			targetKey = key
			return pbxparser.IterateActionBreak
		}
		return pbxparser.IterateActionContinue
	}, nonCommentsFilter)
	if targetKey == "" {
		return "", fmt.Errorf("target %q: %w", name, ErrTargetNotFound)
	}
	return targetKey, nil
}

// buildPhaseObject finds the target's build phase consuming group files. A
// detached empty object is returned when the target has no such phase.
func (p *PbxProject) buildPhaseObject(group, targetKey string) pbxparser.Object {
	isa, ok := BUILDPHASE_ISA_BY_GROUP[group]
	if !ok {
		return pbxparser.NewObject()
	}
	section := p.pbxObjectSection.GetObject(isa)
	target := p.pbxNativeTargetSection.GetObject(targetKey)
	for _, phaseKey := range interfaceToStringSlice(target.ForceGet("buildPhases")) {
		if phase, ok := section.ForceGet(phaseKey).(pbxparser.Object); ok {
			return phase
		}
	}
	return pbxparser.NewObject()
}

func (p *PbxProject) targetBuildConfigurations(targetKey string) []pbxparser.Object {
	target := p.pbxNativeTargetSection.GetObject(targetKey)
	configurationList := p.pbxXCConfigurationListSection.GetObject(target.GetString("buildConfigurationList"))

	var configurations []pbxparser.Object
	for _, key := range interfaceToStringSlice(configurationList.ForceGet("buildConfigurations")) {
		if configuration, ok := p.pbxXCBuildConfigurationSection.ForceGet(key).(pbxparser.Object); ok {
			configurations = append(configurations, configuration)
		}
	}
	return configurations
}

func (p *PbxProject) addToSearchPaths(searchPath string, pbxfile *PbxFile, targetKey string) {
	const inherited = `"$(inherited)"`
	newPath := p.searchPathForFile(pbxfile)
	for _, configuration := range p.targetBuildConfigurations(targetKey) {
		buildSettings, ok := configuration.ForceGet("buildSettings").(pbxparser.Object)
		if !ok {
			continue
		}
		if !buildSettings.Has(searchPath) {
			buildSettings.Set(searchPath, []interface{}{inherited, newPath})
			p.modified = true
			continue
		}
		if addToObjectListOnlyNotExist(buildSettings, searchPath, newPath, sameUnquoted) {
			p.modified = true
		}
	}
}

func (p *PbxProject) searchPathForFile(pbxfile *PbxFile) string {
	if pbxfile.CustomFramework && pbxfile.Dirname != "" {
		return quoted(pbxfile.Dirname)
	}
	fileDir := path.Dir(pbxfile.Path)
	if fileDir == "." {
		return quoted("$(SRCROOT)")
	}
	return quoted("$(SRCROOT)/" + fileDir)
}

// Backup copies the project file as it is on disk next to itself, with a
// timestamp suffix, and returns the copy's path.
func (p *PbxProject) Backup() (string, error) {
	backupPath := fmt.Sprintf("%s.%s.backup", p.filePath, p.now().Format("20060102-150405"))
	if err := copy.Copy(p.filePath, backupPath); err != nil {
		return "", fmt.Errorf("backing up %s: %w", p.filePath, err)
	}
	return backupPath, nil
}

// Save writes the project back in Xcode's layout and clears the modified
// flag.
func (p *PbxProject) Save() error {
	if err := NewPbxWriter(p).Write(p.filePath); err != nil {
		return fmt.Errorf("saving %s: %w", p.filePath, err)
	}
	p.modified = false
	return nil
}

// helper object creation functions
func pbxBuildFileObj(pbxfile *PbxFile) pbxparser.Object {
	obj := pbxparser.NewObject()
	obj.Set("isa", "PBXBuildFile")
	obj.Set("fileRef", pbxfile.FileRef)
	obj.Set(toCommentKey("fileRef"), pbxfile.Basename)
	if !pbxfile.Settings.IsEmpty() {
		obj.Set("settings", pbxfile.Settings)
	}
	return obj
}

func newPbxFileReferenceObj(pbxfile *PbxFile) pbxparser.Object {
	obj := pbxparser.NewObject()
	obj.Set("isa", "PBXFileReference")
	if pbxfile.FileEncoding != 0 {
		obj.Set("fileEncoding", pbxfile.FileEncoding)
	}
	obj.Set("lastKnownFileType", quoted(pbxfile.LastKnownFileType))
	if pbxfile.Basename != pbxfile.Path {
		obj.Set("name", quoted(pbxfile.Basename))
	}
	obj.Set("path", quoted(pbxfile.Path))
	obj.Set("sourceTree", pbxfile.SourceTree)
	return obj
}

func pbxGroupChild(pbxfile *PbxFile) CommentValue {
	return CommentValue{
		Value:   pbxfile.FileRef,
		Comment: pbxfile.Basename,
	}
}

func pbxBuildPhaseObj(pbxfile *PbxFile) pbxparser.Object {
	return CommentValue{
		Value:   pbxfile.Uuid,
		Comment: longComment(pbxfile),
	}.ToObject()
}

func pbxBuildFileComment(pbxfile *PbxFile) string {
	return longComment(pbxfile)
}

func pbxFileReferenceComment(pbxfile *PbxFile) string {
	if pbxfile.Basename != "" {
		return pbxfile.Basename
	}
	return path.Base(pbxfile.Path)
}

func longComment(pbxfile *PbxFile) string {
	return fmt.Sprintf("%s in %s", pbxfile.Basename, pbxfile.Group)
}
