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

// Package postprocess runs the post export steps against an exported
// Unity iOS project: patch the manifest, register the SDK frameworks and
// bring in the plugin files, then save the project if anything changed.
package postprocess

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/golang/glog"

	"github.com/gocarrot/teak-xcpost/assetsync"
	"github.com/gocarrot/teak-xcpost/config"
	"github.com/gocarrot/teak-xcpost/manifest"
	"github.com/gocarrot/teak-xcpost/pbxproj"
)

// Registrar is the part of the project editor used by RegisterFrameworks.
type Registrar interface {
	AddFramework(path string, options pbxproj.PbxFileOptions) (*pbxproj.PbxFile, error)
}

// RegisterFrameworks links each SDK relative framework or library into
// target. Entries the project already references are left alone. It returns
// the paths that were added.
func RegisterFrameworks(p Registrar, frameworks []string, target string) ([]string, error) {
	var added []string
	for _, framework := range frameworks {
		glog.Infof("Adding %s", framework)
		_, err := p.AddFramework(framework, pbxproj.PbxFileOptions{
			SourceTree: pbxproj.SDKROOT_SOURCETREE,
			Target:     target,
			Link:       true,
		})
		if errors.Is(err, pbxproj.ErrFileExists) {
			glog.V(1).Infof("%s already linked", framework)
			continue
		}
		if err != nil {
			return added, fmt.Errorf("adding framework %s: %w", framework, err)
		}
		added = append(added, framework)
	}
	return added, nil
}

type GateResult struct {
	Saved      bool
	BackupPath string
}

// WithProject parses the project descriptor at path and hands it to fn.
// Afterwards, whether fn failed or not, a modified project is backed up and
// saved. An error from fn is returned joined with any error of that step.
func WithProject(path string, fn func(*pbxproj.PbxProject) error) (gate GateResult, err error) {
	project := pbxproj.NewPbxProject(path)
	if err := project.Parse(); err != nil {
		return gate, fmt.Errorf("loading project: %w", err)
	}

	defer func() {
		var gateErr error
		gate, gateErr = persist(project)
		err = errors.Join(err, gateErr)
	}()
	err = fn(project)
	return gate, err
}

func persist(project *pbxproj.PbxProject) (GateResult, error) {
	var gate GateResult
	if !project.Modified() {
		glog.Infof("%s unchanged", project.FilePath())
		return gate, nil
	}

	backupPath, err := project.Backup()
	if err != nil {
		return gate, err
	}
	gate.BackupPath = backupPath
	glog.Infof("Backed up %s to %s", project.FilePath(), backupPath)

	glog.Infof("Saving %s", project.FilePath())
	if err := project.Save(); err != nil {
		return gate, err
	}
	gate.Saved = true
	return gate, nil
}

type Args struct {
	ProjectRoot string
	AssetDir    string
	AppID       string
	APIKey      string
}

func (a Args) Validate() error {
	switch {
	case a.ProjectRoot == "":
		return errors.New("project root is empty")
	case a.AssetDir == "":
		return errors.New("asset directory is empty")
	case a.AppID == "":
		return errors.New("app id is empty")
	case a.APIKey == "":
		return errors.New("api key is empty")
	}
	return nil
}

type Report struct {
	ManifestPath    string
	ProjectPath     string
	FrameworksAdded []string
	Sync            assetsync.Result
	GateResult
}

// Run patches the manifest below args.ProjectRoot and then edits the
// project descriptor inside WithProject.
func Run(cfg config.Config, args Args) (Report, error) {
	report := Report{
		ManifestPath: filepath.Join(args.ProjectRoot, manifest.FileName),
		ProjectPath:  cfg.ProjectPath(args.ProjectRoot),
	}
	if err := args.Validate(); err != nil {
		return report, err
	}

	err := manifest.Patch(args.ProjectRoot, manifest.PatchOptions{
		AppID:           args.AppID,
		APIKey:          args.APIKey,
		AppIDKey:        cfg.AppIDKey,
		APIKeyKey:       cfg.APIKeyKey,
		URLSchemePrefix: cfg.URLSchemePrefix,
	})
	if err != nil {
		return report, err
	}

	gate, err := WithProject(report.ProjectPath, func(project *pbxproj.PbxProject) error {
		added, err := RegisterFrameworks(project, cfg.Frameworks, cfg.Target)
		report.FrameworksAdded = added
		if err != nil {
			return err
		}

		report.Sync, err = assetsync.Sync(project, assetsync.Options{
			Mode:         cfg.Mode,
			Source:       args.AssetDir,
			StagingDir:   cfg.StagingPath(args.ProjectRoot),
			HiddenPrefix: cfg.HiddenPrefix,
			MetaExt:      cfg.MetaExt,
			Excludes:     cfg.Excludes,
			Target:       cfg.Target,
		})
		return err
	})
	report.GateResult = gate
	return report, err
}
