package pbxproj

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gocarrot/teak-xcpost/pbxparser"
)

const (
	fixtureMainGroup       = "29B97314FDCFA39411CA2CEA"
	fixtureTarget          = "1D6058900D05DD3D006BFB54"
	fixtureFrameworksPhase = "1D60588F0D05DD3D006BFB54"
	fixtureResourcesPhase  = "1D60588D0D05DD3D006BFB54"
	fixtureDebugConfig     = "1D6058940D05DD3E006BFB54"
	fixtureReleaseConfig   = "1D6058950D05DD3E006BFB54"
	fixtureFileReferences  = 7
)

func fixtureBytes(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "Unity-iPhone.xcodeproj", "project.pbxproj"))
	if err != nil {
		t.Fatal(err)
	}
	return data
}

// openFixture copies the fixture project into a temporary export root and
// parses it.
func openFixture(t *testing.T) (*PbxProject, string) {
	t.Helper()
	root := t.TempDir()
	projectPath := filepath.Join(root, "Unity-iPhone.xcodeproj", "project.pbxproj")
	if err := os.MkdirAll(filepath.Dir(projectPath), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(projectPath, fixtureBytes(t), 0644); err != nil {
		t.Fatal(err)
	}
	project := NewPbxProject(projectPath)
	if err := project.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return project, root
}

func writeFiles(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, name := range names {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(name), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func countObjects(section pbxparser.Object) int {
	count := 0
	section.ForeachWithFilter(func(string, interface{}) pbxparser.IterateActionType {
		count++
		return pbxparser.IterateActionContinue
	}, nonCommentsFilter)
	return count
}

func phaseFiles(p *PbxProject, isa, key string) []string {
	return interfaceToStringSlice(p.pbxObjectSection.GetObject(isa).GetObject(key).ForceGet("files"))
}

func groupChildren(p *PbxProject, key string) []string {
	return interfaceToStringSlice(p.pbxGroupSection.GetObject(key).ForceGet("children"))
}

func buildSetting(p *PbxProject, configKey, setting string) interface{} {
	return p.pbxXCBuildConfigurationSection.GetObject(configKey).GetObject("buildSettings").ForceGet(setting)
}

func TestParseFixture(t *testing.T) {
	p, root := openFixture(t)

	if p.Modified() {
		t.Error("freshly parsed project is modified")
	}
	if got := p.SourceRoot(); got != root {
		t.Errorf("SourceRoot() = %q, want %q", got, root)
	}
	if got := p.FileReferenceCount(); got != fixtureFileReferences {
		t.Errorf("FileReferenceCount() = %d, want %d", got, fixtureFileReferences)
	}
	if got := p.mainGroupKey(); got != fixtureMainGroup {
		t.Errorf("mainGroupKey() = %q", got)
	}
	for _, path := range []string{"main.mm", "Libraries/libiPhone-lib.a", "System/Library/Frameworks/UIKit.framework", "Unity-iPhone.app"} {
		if !p.HasFile(path) {
			t.Errorf("HasFile(%q) = false", path)
		}
	}
	if p.HasFile("Classes/main.mm") {
		t.Error("HasFile matched a path that is not referenced")
	}
}

func TestTargetKey(t *testing.T) {
	p, _ := openFixture(t)

	tests := []struct {
		name    string
		want    string
		wantErr error
	}{
		{"", fixtureTarget, nil},
		{"Unity-iPhone", fixtureTarget, nil},
		{"Unity-iPhone Tests", "", ErrTargetNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.targetKey(tt.name)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("targetKey(%q) error = %v, want %v", tt.name, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("targetKey(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestWriterRoundTripIsLossless(t *testing.T) {
	p, _ := openFixture(t)
	if got, want := NewPbxWriter(p).String(), string(fixtureBytes(t)); got != want {
		t.Errorf("written project differs from input\n--- got ---\n%s", got)
	}
}

func TestAddFrameworkIsIdempotent(t *testing.T) {
	p, _ := openFixture(t)
	options := PbxFileOptions{SourceTree: SDKROOT_SOURCETREE, Link: true}

	pbxfile, err := p.AddFramework("System/Library/Frameworks/AdSupport.framework", options)
	if err != nil {
		t.Fatalf("AddFramework() error = %v", err)
	}
	if !p.Modified() {
		t.Error("project not modified after adding a framework")
	}
	if got := p.FileReferenceCount(); got != fixtureFileReferences+1 {
		t.Errorf("FileReferenceCount() = %d, want %d", got, fixtureFileReferences+1)
	}

	ref := p.pbxFileReferenceSection.GetObject(pbxfile.FileRef)
	want := map[string]string{
		"lastKnownFileType": "wrapper.framework",
		"name":              "AdSupport.framework",
		"path":              "System/Library/Frameworks/AdSupport.framework",
		"sourceTree":        "SDKROOT",
	}
	for key, value := range want {
		if got := ref.GetString(key); got != value {
			t.Errorf("file reference %s = %q, want %q", key, got, value)
		}
	}
	if files := phaseFiles(p, "PBXFrameworksBuildPhase", fixtureFrameworksPhase); len(files) != 4 || files[3] != pbxfile.Uuid {
		t.Errorf("frameworks phase files = %v", files)
	}
	if children := groupChildren(p, "29B97323FDCFA39411CA2CEA"); len(children) != 3 {
		t.Errorf("Frameworks group children = %v", children)
	}

	_, err = p.AddFramework("System/Library/Frameworks/AdSupport.framework", options)
	if !errors.Is(err, ErrFileExists) {
		t.Errorf("second AddFramework() error = %v, want ErrFileExists", err)
	}
	if got := p.FileReferenceCount(); got != fixtureFileReferences+1 {
		t.Errorf("FileReferenceCount() after second add = %d", got)
	}
}

func TestAddFrameworkAlreadyInProject(t *testing.T) {
	p, _ := openFixture(t)

	_, err := p.AddFramework("UIKit.framework", PbxFileOptions{Link: true})
	if !errors.Is(err, ErrFileExists) {
		t.Fatalf("AddFramework() error = %v, want ErrFileExists", err)
	}
	if p.Modified() {
		t.Error("project modified by a framework it already had")
	}
}

func TestAddFrameworkResolvesSDKPaths(t *testing.T) {
	p, _ := openFixture(t)

	tests := []struct {
		name     string
		options  PbxFileOptions
		wantPath string
	}{
		{"StoreKit.framework", PbxFileOptions{Link: true, Weak: true}, "System/Library/Frameworks/StoreKit.framework"},
		{"libz.dylib", PbxFileOptions{Link: true}, "usr/lib/libz.dylib"},
		{"usr/lib/libsqlite3.tbd", PbxFileOptions{SourceTree: SDKROOT_SOURCETREE, Link: true}, "usr/lib/libsqlite3.tbd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pbxfile, err := p.AddFramework(tt.name, tt.options)
			if err != nil {
				t.Fatalf("AddFramework() error = %v", err)
			}
			if pbxfile.Path != tt.wantPath {
				t.Errorf("Path = %q, want %q", pbxfile.Path, tt.wantPath)
			}
			if pbxfile.SourceTree != SDKROOT_SOURCETREE {
				t.Errorf("SourceTree = %q", pbxfile.SourceTree)
			}
			if !p.HasFile(tt.wantPath) {
				t.Errorf("HasFile(%q) = false", tt.wantPath)
			}
		})
	}

	// SDK libraries never touch the search paths.
	if got, ok := buildSetting(p, fixtureReleaseConfig, "LIBRARY_SEARCH_PATHS").(string); !ok || got != `"$(inherited)"` {
		t.Errorf("Release LIBRARY_SEARCH_PATHS = %v", buildSetting(p, fixtureReleaseConfig, "LIBRARY_SEARCH_PATHS"))
	}

	out := NewPbxWriter(p).String()
	if !strings.Contains(out, "/* StoreKit.framework */; settings = {ATTRIBUTES = (Weak, ); }; };") {
		t.Error("weak StoreKit build file not written inline with its settings")
	}
}

func TestAddCustomFrameworkAddsSearchPath(t *testing.T) {
	p, _ := openFixture(t)

	if _, err := p.AddFramework("Vendor/FooKit.framework", PbxFileOptions{CustomFramework: true, Link: true}); err != nil {
		t.Fatalf("AddFramework() error = %v", err)
	}
	for _, config := range []string{fixtureDebugConfig, fixtureReleaseConfig} {
		paths := interfaceToStringSlice(buildSetting(p, config, "FRAMEWORK_SEARCH_PATHS"))
		if len(paths) != 2 || paths[0] != `"$(inherited)"` || paths[1] != "Vendor" {
			t.Errorf("%s FRAMEWORK_SEARCH_PATHS = %v", config, paths)
		}
	}
}

func TestAddFileIfNotExist(t *testing.T) {
	p, root := openFixture(t)

	tests := []struct {
		name          string
		path          string
		wantGroup     string
		wantBuildFile bool
	}{
		{"static library", "Teak/libteak.a", "Frameworks", true},
		{"header", "Teak/Teak.h", "", false},
		{"objective-c", "Teak/TeakHooks.m", "Sources", true},
		{"resource", "Teak/teak.txt", "Resources", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pbxfile, err := p.AddFileIfNotExist(filepath.Join(root, filepath.FromSlash(tt.path)), PbxFileOptions{})
			if err != nil {
				t.Fatalf("AddFileIfNotExist() error = %v", err)
			}
			if pbxfile.Path != tt.path {
				t.Errorf("Path = %q, want %q", pbxfile.Path, tt.path)
			}
			if pbxfile.SourceTree != SOURCE_ROOT_SOURCETREE {
				t.Errorf("SourceTree = %q", pbxfile.SourceTree)
			}
			if pbxfile.Group != tt.wantGroup {
				t.Errorf("Group = %q, want %q", pbxfile.Group, tt.wantGroup)
			}
			if got := pbxfile.Uuid != ""; got != tt.wantBuildFile {
				t.Errorf("build file created = %v, want %v", got, tt.wantBuildFile)
			}
			children := groupChildren(p, fixtureMainGroup)
			if children[len(children)-1] != pbxfile.FileRef {
				t.Errorf("file not added to the main group: %v", children)
			}
		})
	}

	if files := phaseFiles(p, "PBXResourcesBuildPhase", fixtureResourcesPhase); len(files) != 2 {
		t.Errorf("resources phase files = %v", files)
	}

	debug := interfaceToStringSlice(buildSetting(p, fixtureDebugConfig, "LIBRARY_SEARCH_PATHS"))
	if len(debug) != 4 || debug[3] != `"$(SRCROOT)/Teak"` {
		t.Errorf("Debug LIBRARY_SEARCH_PATHS = %v", debug)
	}
	release := interfaceToStringSlice(buildSetting(p, fixtureReleaseConfig, "LIBRARY_SEARCH_PATHS"))
	if len(release) != 2 || release[0] != `"$(inherited)"` || release[1] != `"$(SRCROOT)/Teak"` {
		t.Errorf("Release LIBRARY_SEARCH_PATHS = %v", release)
	}

	count := p.FileReferenceCount()
	again, err := p.AddFileIfNotExist(filepath.Join(root, "Teak", "libteak.a"), PbxFileOptions{})
	if err != nil || again != nil {
		t.Errorf("second AddFileIfNotExist() = %v, %v; want nil, nil", again, err)
	}
	if p.FileReferenceCount() != count {
		t.Error("second AddFileIfNotExist() added a file reference")
	}
}

func TestAddFileIfNotExistKeepsExistingSearchPath(t *testing.T) {
	p, root := openFixture(t)

	if _, err := p.AddFileIfNotExist(filepath.Join(root, "Libraries", "libextra.a"), PbxFileOptions{}); err != nil {
		t.Fatalf("AddFileIfNotExist() error = %v", err)
	}
	debug := interfaceToStringSlice(buildSetting(p, fixtureDebugConfig, "LIBRARY_SEARCH_PATHS"))
	if len(debug) != 3 {
		t.Errorf("Debug LIBRARY_SEARCH_PATHS = %v, want the existing three entries", debug)
	}
}

func TestAddFileIfNotExistUnknownGroup(t *testing.T) {
	p, root := openFixture(t)

	_, err := p.AddFileIfNotExist(filepath.Join(root, "foo.m"), PbxFileOptions{ParentGroup: "DEADBEEFDEADBEEFDEADBEEF"})
	if !errors.Is(err, ErrGroupNotFound) {
		t.Fatalf("AddFileIfNotExist() error = %v, want ErrGroupNotFound", err)
	}
	if p.Modified() || p.FileReferenceCount() != fixtureFileReferences {
		t.Error("failed add left changes behind")
	}
}

func TestAddFolder(t *testing.T) {
	p, root := openFixture(t)
	writeFiles(t, root,
		"Teak/Plugins/TeakHooks.m",
		"Teak/Plugins/TeakHooks.m.meta",
		"Teak/Plugins/.DS_Store",
		"Teak/Plugins/Sub/Teak.h",
		"Teak/Plugins/Sub/Teak.h.meta",
		"Teak/Plugins/Teak.bundle/icon.png",
		"Teak/Plugins/.git/HEAD",
	)
	groupsBefore := countObjects(p.pbxGroupSection)

	added, err := p.AddFolder(filepath.Join(root, "Teak", "Plugins"), FolderOptions{Excludes: []string{"**/*.meta"}})
	if err != nil {
		t.Fatalf("AddFolder() error = %v", err)
	}

	var paths []string
	for _, pbxfile := range added {
		paths = append(paths, pbxfile.Path)
	}
	want := []string{"Teak/Plugins/Sub/Teak.h", "Teak/Plugins/Teak.bundle", "Teak/Plugins/TeakHooks.m"}
	if strings.Join(paths, ",") != strings.Join(want, ",") {
		t.Errorf("added = %v, want %v", paths, want)
	}
	for _, path := range []string{"Teak/Plugins/TeakHooks.m.meta", "Teak/Plugins/.DS_Store", "Teak/Plugins/Teak.bundle/icon.png", "Teak/Plugins/.git/HEAD"} {
		if p.HasFile(path) {
			t.Errorf("%s should not be referenced", path)
		}
	}
	if got := countObjects(p.pbxGroupSection); got != groupsBefore+2 {
		t.Errorf("groups = %d, want %d", got, groupsBefore+2)
	}
	plugins := p.findChildGroup(fixtureMainGroup, "Plugins")
	if plugins == "" {
		t.Fatal("Plugins group not created under the main group")
	}
	if p.findChildGroup(plugins, "Sub") == "" {
		t.Error("Sub group not created under Plugins")
	}

	again, err := p.AddFolder(filepath.Join(root, "Teak", "Plugins"), FolderOptions{Excludes: []string{"**/*.meta"}})
	if err != nil {
		t.Fatalf("second AddFolder() error = %v", err)
	}
	if len(again) != 0 {
		t.Errorf("second AddFolder() added %d files", len(again))
	}
	if got := countObjects(p.pbxGroupSection); got != groupsBefore+2 {
		t.Errorf("second AddFolder() created groups: %d", got)
	}
}

func TestAddFolderHiddenPrefix(t *testing.T) {
	p, root := openFixture(t)
	writeFiles(t, root,
		"Plugins/TeakHooks.m",
		"Plugins/_private/Secret.m",
		"Plugins/_Notes.txt",
		"Plugins/.keep",
	)

	_, err := p.AddFolder(filepath.Join(root, "Plugins"), FolderOptions{HiddenPrefix: "_"})
	if err != nil {
		t.Fatalf("AddFolder() error = %v", err)
	}
	tests := []struct {
		path string
		want bool
	}{
		{"Plugins/TeakHooks.m", true},
		{"Plugins/.keep", true},
		{"Plugins/_private/Secret.m", false},
		{"Plugins/_Notes.txt", false},
	}
	for _, tt := range tests {
		if got := p.HasFile(tt.path); got != tt.want {
			t.Errorf("HasFile(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
	if plugins := p.findChildGroup(fixtureMainGroup, "Plugins"); p.findChildGroup(plugins, "_private") != "" {
		t.Error("group created for a hidden folder")
	}
}

func TestAddFolderErrors(t *testing.T) {
	p, root := openFixture(t)
	writeFiles(t, root, "Plugins/a.m")

	if _, err := p.AddFolder(filepath.Join(root, "Plugins"), FolderOptions{Excludes: []string{"[a-"}}); err == nil {
		t.Error("AddFolder() accepted an invalid pattern")
	}
	if _, err := p.AddFolder(filepath.Join(root, "Missing"), FolderOptions{}); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("AddFolder() of a missing folder error = %v", err)
	}
	if _, err := p.AddFolder(filepath.Join(root, "Plugins", "a.m"), FolderOptions{}); err == nil {
		t.Error("AddFolder() accepted a file")
	}
	if p.Modified() {
		t.Error("failed AddFolder() calls modified the project")
	}
}

func TestBackupAndSave(t *testing.T) {
	p, _ := openFixture(t)
	p.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	pbxfile, err := p.AddFramework("System/Library/Frameworks/AdSupport.framework", PbxFileOptions{SourceTree: SDKROOT_SOURCETREE, Link: true})
	if err != nil {
		t.Fatal(err)
	}

	backupPath, err := p.Backup()
	if err != nil {
		t.Fatalf("Backup() error = %v", err)
	}
	if want := p.FilePath() + ".20240102-030405.backup"; backupPath != want {
		t.Errorf("Backup() = %q, want %q", backupPath, want)
	}
	backup, err := os.ReadFile(backupPath)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(backup, fixtureBytes(t)) {
		t.Error("backup differs from the original project")
	}

	if err := p.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if p.Modified() {
		t.Error("Modified() = true after Save()")
	}

	saved, err := os.ReadFile(p.FilePath())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(saved, []byte(pbxfile.Uuid+" /* AdSupport.framework in Frameworks */ = {isa = PBXBuildFile; fileRef = "+pbxfile.FileRef+" /* AdSupport.framework */; };")) {
		t.Error("saved project lacks the inline build file")
	}

	reloaded := NewPbxProject(p.FilePath())
	if err := reloaded.Parse(); err != nil {
		t.Fatalf("Parse() of saved project error = %v", err)
	}
	if !reloaded.HasFile("System/Library/Frameworks/AdSupport.framework") {
		t.Error("saved project lost the framework")
	}
	if got := NewPbxWriter(reloaded).String(); got != string(saved) {
		t.Error("saved project does not round trip")
	}
}

func TestDump(t *testing.T) {
	p, _ := openFixture(t)

	var buf bytes.Buffer
	if err := p.Dump(&buf); err != nil {
		t.Fatalf("Dump() error = %v", err)
	}
	var tree map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &tree); err != nil {
		t.Fatalf("Dump() wrote invalid JSON: %v", err)
	}
	project, ok := tree["project"].(map[string]interface{})
	if !ok {
		t.Fatalf("dump has no project: %v", tree)
	}
	if project["rootObject"] != "29B97313FDCFA39411CA2CEA" {
		t.Errorf("rootObject = %v", project["rootObject"])
	}
}
