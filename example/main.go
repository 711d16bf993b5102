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

// Command example edits Unity-iPhone.xcodeproj in the working directory with
// the library API instead of the CLI.
package main

import (
	"flag"
	"os"

	"github.com/golang/glog"

	"github.com/gocarrot/teak-xcpost/assetsync"
	"github.com/gocarrot/teak-xcpost/config"
	"github.com/gocarrot/teak-xcpost/pbxproj"
	"github.com/gocarrot/teak-xcpost/postprocess"
)

func main() {
	flag.Set("logtostderr", "true")
	flag.Parse()
	defer glog.Flush()

	cfg := config.Default(assetsync.ModeReference)
	projectPath := cfg.ProjectPath(".")

	dumpToFile := func(project *pbxproj.PbxProject, name string) {
		file, err := os.Create(name)
		if err != nil {
			glog.Fatal(err)
		}
		defer file.Close()
		if err := project.Dump(file); err != nil {
			glog.Fatal(err)
		}
	}

	gate, err := postprocess.WithProject(projectPath, func(project *pbxproj.PbxProject) error {
		dumpToFile(project, "OriginalProject.json")

		if _, err := postprocess.RegisterFrameworks(project, cfg.Frameworks, cfg.Target); err != nil {
			return err
		}
		if _, err := project.AddFramework("Vendor/FooKit.framework", pbxproj.PbxFileOptions{
			CustomFramework: true,
			Link:            true,
		}); err != nil {
			glog.Warning(err)
		}
		if _, err := project.AddFileIfNotExist("Classes/TeakHooks.mm", pbxproj.PbxFileOptions{}); err != nil {
			return err
		}

		dumpToFile(project, "ModifiedProject.json")
		return nil
	})
	if err != nil {
		glog.Fatal(err)
	}
	glog.Infof("saved: %v, backup: %q", gate.Saved, gate.BackupPath)
}
