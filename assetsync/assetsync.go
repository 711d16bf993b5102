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

// Package assetsync brings the native plugin files of the SDK into an
// exported Xcode project, either by referencing them where they are or by
// staging a copy inside the project first.
package assetsync

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/glog"
	"github.com/otiai10/copy"

	"github.com/gocarrot/teak-xcpost/pbxproj"
)

type Mode string

const (
	// ModeReference adds the source files to the project at their original
	// location.
	ModeReference Mode = "reference"
	// ModeStage copies the source files into the staging directory and
	// adds the copies.
	ModeStage Mode = "stage"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeReference:
		return ModeReference, nil
	case ModeStage:
		return ModeStage, nil
	}
	return "", fmt.Errorf("unknown mode %q (want %q or %q)", s, ModeReference, ModeStage)
}

type Status int

const (
	StatusSynced Status = iota
	// StatusSourceMissing means there was nothing to do because the source
	// directory does not exist.
	StatusSourceMissing
)

func (s Status) String() string {
	switch s {
	case StatusSynced:
		return "synced"
	case StatusSourceMissing:
		return "source missing"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

const (
	DefaultHiddenPrefix = "."
	DefaultMetaExt      = ".meta"
)

// DefaultExcludes keeps asset metadata out of added folders at any depth.
var DefaultExcludes = []string{"**/*.meta"}

// Project is the part of the project editor used by Sync.
type Project interface {
	AddFileIfNotExist(path string, options pbxproj.PbxFileOptions) (*pbxproj.PbxFile, error)
	AddFolder(path string, options pbxproj.FolderOptions) ([]*pbxproj.PbxFile, error)
}

type Options struct {
	Mode   Mode
	Source string
	// StagingDir receives the copies in ModeStage.
	StagingDir   string
	HiddenPrefix string
	MetaExt      string
	// Excludes are passed to AddFolder for every subdirectory.
	Excludes []string
	// Target is the native target the files are built into. Empty selects
	// the first target.
	Target string
}

func (o Options) withDefaults() Options {
	if o.Mode == "" {
		o.Mode = ModeStage
	}
	if o.HiddenPrefix == "" {
		o.HiddenPrefix = DefaultHiddenPrefix
	}
	if o.MetaExt == "" {
		o.MetaExt = DefaultMetaExt
	}
	if o.Excludes == nil {
		o.Excludes = DefaultExcludes
	}
	return o
}

type Result struct {
	Status Status
	// Added lists the paths handed to the project, in directory order.
	Added []string
	// Copied lists the staged destinations.
	Copied []string
	// Skipped lists the names of hidden and metadata entries.
	Skipped []string
}

// Accept reports whether a source entry takes part in the sync.
func Accept(name, hiddenPrefix, metaExt string) bool {
	if hiddenPrefix != "" && strings.HasPrefix(name, hiddenPrefix) {
		return false
	}
	if metaExt != "" && filepath.Ext(name) == metaExt {
		return false
	}
	return true
}

// Sync adds every accepted direct child of opts.Source to p. Files are added
// one by one and directories as folders. A missing source directory is an
// error in ModeReference and StatusSourceMissing in ModeStage.
func Sync(p Project, opts Options) (Result, error) {
	opts = opts.withDefaults()
	var result Result

	if opts.Mode == ModeStage {
		if opts.StagingDir == "" {
			return result, errors.New("staging directory not set")
		}
		if err := os.MkdirAll(opts.StagingDir, 0755); err != nil {
			return result, fmt.Errorf("creating staging directory %s: %w", opts.StagingDir, err)
		}
	}

	entries, err := os.ReadDir(opts.Source)
	if err != nil {
		if opts.Mode == ModeStage && errors.Is(err, fs.ErrNotExist) {
			glog.Infof("%s does not exist, nothing to add", opts.Source)
			result.Status = StatusSourceMissing
			return result, nil
		}
		return result, fmt.Errorf("listing %s: %w", opts.Source, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if !Accept(name, opts.HiddenPrefix, opts.MetaExt) {
			glog.V(1).Infof("skipping %s", name)
			result.Skipped = append(result.Skipped, name)
			continue
		}

		src := filepath.Join(opts.Source, name)
		info, err := os.Stat(src)
		if err != nil {
			return result, err
		}
		if !info.IsDir() && !info.Mode().IsRegular() {
			glog.Warningf("skipping %s: not a regular file or directory", src)
			result.Skipped = append(result.Skipped, name)
			continue
		}

		target := src
		if opts.Mode == ModeStage {
			target = filepath.Join(opts.StagingDir, name)
			glog.Infof("Copying %s to %s", src, target)
			if err := copy.Copy(src, target); err != nil {
				return result, fmt.Errorf("staging %s: %w", src, err)
			}
			result.Copied = append(result.Copied, target)
		}

		glog.Infof("Adding %s", target)
		if info.IsDir() {
			_, err = p.AddFolder(target, pbxproj.FolderOptions{
				Excludes:     opts.Excludes,
				Target:       opts.Target,
				HiddenPrefix: opts.HiddenPrefix,
			})
		} else {
			_, err = p.AddFileIfNotExist(target, pbxproj.PbxFileOptions{
				Target: opts.Target,
			})
		}
		if err != nil {
			return result, fmt.Errorf("adding %s: %w", target, err)
		}
		result.Added = append(result.Added, target)
	}
	return result, nil
}
