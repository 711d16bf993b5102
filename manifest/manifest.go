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

// Package manifest edits the Info.plist of an exported iOS project.
package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/golang/glog"
	"howett.net/plist"
)

const (
	FileName = "Info.plist"

	// Info.plist entries holding the AppId and ApiKey arguments.
	DefaultAppIDKey  = "TeakAppId"
	DefaultAPIKeyKey = "TeakApiKey"

	URLTypesKey   = "CFBundleURLTypes"
	URLRoleKey    = "CFBundleTypeRole"
	URLSchemesKey = "CFBundleURLSchemes"
	URLRoleEditor = "Editor"
)

var ErrNotArray = errors.New("value is not an array")

// Document is a decoded property list together with the format it was
// stored in, so that Save writes it back the same way.
type Document struct {
	Values map[string]interface{}

	path   string
	format int
	mode   fs.FileMode
}

func Load(path string) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	values := map[string]interface{}{}
	format, err := plist.Unmarshal(raw, &values)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return &Document{
		Values: values,
		path:   path,
		format: format,
		mode:   info.Mode().Perm(),
	}, nil
}

func (d *Document) Path() string {
	return d.path
}

// Format is one of the howett.net/plist format constants.
func (d *Document) Format() int {
	return d.format
}

func (d *Document) Get(key string) (interface{}, bool) {
	v, ok := d.Values[key]
	return v, ok
}

func (d *Document) Set(key string, value interface{}) {
	d.Values[key] = value
}

// AddURLScheme appends a URL type record claiming scheme. Records already
// present are left alone, even when they claim the same scheme.
func (d *Document) AddURLScheme(scheme string) error {
	record := map[string]interface{}{
		URLRoleKey:    URLRoleEditor,
		URLSchemesKey: []interface{}{scheme},
	}
	existing, ok := d.Values[URLTypesKey]
	if !ok {
		d.Values[URLTypesKey] = []interface{}{record}
		return nil
	}
	list, ok := existing.([]interface{})
	if !ok {
		return fmt.Errorf("%s in %s: %w", URLTypesKey, d.path, ErrNotArray)
	}
	d.Values[URLTypesKey] = append(list, record)
	return nil
}

func (d *Document) Save() error {
	data, err := plist.MarshalIndent(d.Values, d.format, "\t")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", d.path, err)
	}
	if err := os.WriteFile(d.path, data, d.mode); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

type PatchOptions struct {
	AppID  string
	APIKey string

	// AppIDKey and APIKeyKey name the manifest entries. Empty selects
	// DefaultAppIDKey and DefaultAPIKeyKey.
	AppIDKey  string
	APIKeyKey string

	// URLSchemePrefix, when set, registers the URL scheme prefix+AppID.
	URLSchemePrefix string
}

// Patch writes the SDK identifiers into <dir>/Info.plist. The file is
// always rewritten, even when the values did not change.
func Patch(dir string, opts PatchOptions) error {
	path := filepath.Join(dir, FileName)
	glog.Infof("Patching %s", path)

	doc, err := Load(path)
	if err != nil {
		return err
	}

	appIDKey, apiKeyKey := opts.AppIDKey, opts.APIKeyKey
	if appIDKey == "" {
		appIDKey = DefaultAppIDKey
	}
	if apiKeyKey == "" {
		apiKeyKey = DefaultAPIKeyKey
	}
	doc.Set(appIDKey, opts.AppID)
	doc.Set(apiKeyKey, opts.APIKey)

	if opts.URLSchemePrefix != "" {
		scheme := opts.URLSchemePrefix + opts.AppID
		glog.V(1).Infof("registering URL scheme %s", scheme)
		if err := doc.AddURLScheme(scheme); err != nil {
			return err
		}
	}
	return doc.Save()
}
