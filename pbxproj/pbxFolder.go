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
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/golang/glog"
)

type FolderOptions struct {
	// Excludes are doublestar patterns. Each is matched against the slash
	// separated path relative to the folder and against the base name.
	Excludes []string
	// ParentGroup is the UUID of the group receiving the folder group. Empty
	// selects the main group.
	ParentGroup string
	Target      string
	// HiddenPrefix marks names that are never added. Empty selects ".".
	HiddenPrefix string
}

// AddFolder mirrors a directory tree as groups and references every file in
// it. Groups that already exist under the same parent are reused and files
// already referenced are skipped, so running it twice changes nothing.
// Names starting with options.HiddenPrefix are ignored. Bundles, frameworks
// and asset catalogs are referenced as a single file.
func (p *PbxProject) AddFolder(dir string, options FolderOptions) ([]*PbxFile, error) {
	for _, pattern := range options.Excludes {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid exclude pattern %q", pattern)
		}
	}

	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	hidden := options.HiddenPrefix
	if hidden == "" {
		hidden = "."
	}

	parent := options.ParentGroup
	if parent == "" {
		parent = p.mainGroupKey()
	}
	rootGroup, err := p.getOrCreateGroup(filepath.Base(dir), parent)
	if err != nil {
		return nil, err
	}

	groups := map[string]string{".": rootGroup}
	var added []*PbxFile
	err = filepath.WalkDir(dir, func(filePath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if filePath == dir {
			return nil
		}
		rel, err := filepath.Rel(dir, filePath)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if strings.HasPrefix(d.Name(), hidden) || excluded(options.Excludes, rel, d.Name()) {
			glog.V(2).Infof("skipping %s", rel)
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		groupKey := groups[path.Dir(rel)]
		if d.IsDir() && !isSpecialFolder(d.Name()) {
			key, err := p.getOrCreateGroup(d.Name(), groupKey)
			if err != nil {
				return err
			}
			groups[rel] = key
			return nil
		}

		pbxfile, err := p.AddFileIfNotExist(filePath, PbxFileOptions{
			ParentGroup: groupKey,
			Target:      options.Target,
		})
		if err != nil {
			return err
		}
		if pbxfile != nil {
			added = append(added, pbxfile)
		}
		if d.IsDir() {
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return added, err
	}
	return added, nil
}

func excluded(patterns []string, rel, name string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
	}
	return false
}
