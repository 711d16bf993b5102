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

package cli

import (
	"flag"
	"fmt"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/gocarrot/teak-xcpost/config"
	"github.com/gocarrot/teak-xcpost/postprocess"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string

	configFile string
	modeFlag   string
	targetFlag string
)

var rootCmd = &cobra.Command{
	Use:   "teak-xcpost <project-root> <asset-dir> <app-id> <api-key>",
	Short: "Prepare an exported Unity iOS project for the Teak SDK",
	Long: `teak-xcpost writes the Teak app id and API key into Info.plist, links the
frameworks the SDK needs and adds the SDK's native plugin files to
Unity-iPhone.xcodeproj. The project file is backed up and saved only when it
changed.`,
	Args:          cobra.ExactArgs(4),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runPostProcess,
}

func init() {
	// glog writes to files by default; console output is what build logs keep.
	_ = flag.Set("logtostderr", "true")
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	rootCmd.Flags().StringVar(&configFile, "config", "", "Config file (yaml, json or toml)")
	rootCmd.Flags().StringVar(&modeFlag, "mode", "", "stage copies the plugin files into the project, reference adds them in place (default stage)")
	rootCmd.Flags().StringVar(&targetFlag, "target", "", "Native target to build the plugin files into (default first target)")
}

func runPostProcess(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	glog.V(1).Infof("mode %s, frameworks %v", cfg.Mode, cfg.Frameworks)

	report, err := postprocess.Run(cfg, postprocess.Args{
		ProjectRoot: args[0],
		AssetDir:    args[1],
		AppID:       args[2],
		APIKey:      args[3],
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Patched %s\n", report.ManifestPath)
	for _, framework := range report.FrameworksAdded {
		fmt.Fprintf(out, "Linked %s\n", framework)
	}
	fmt.Fprintf(out, "Added %d entries (%s), skipped %d\n", len(report.Sync.Added), report.Sync.Status, len(report.Sync.Skipped))
	if report.Saved {
		fmt.Fprintf(out, "Saved %s (backup %s)\n", report.ProjectPath, report.BackupPath)
	} else {
		fmt.Fprintf(out, "%s unchanged\n", report.ProjectPath)
	}
	return nil
}

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date
	defer glog.Flush()

	if err := rootCmd.Execute(); err != nil {
		glog.Errorf("%v", err)
		return err
	}
	return nil
}
