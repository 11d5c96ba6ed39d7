// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package fleet

import (
	"os"

	"gopkg.in/yaml.v3"

	ferrors "grimm.is/firelet/internal/errors"
)

// Manifest maps hostname to management address list. The deployer uses an
// entry only for a hostname that the model has rows for but no mng-flagged
// row yet; a hostname absent from the model is never contacted.
type Manifest struct {
	Hosts map[string][]string `yaml:"hosts"`
}

// LoadManifest reads a fleet manifest YAML file of the shape:
//
//	hosts:
//	  fw: ["10.0.0.1"]
//	  webserver: ["10.0.0.2", "10.0.0.2.internal"]
func LoadManifest(path string) (Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, ferrors.Wrapf(err, ferrors.KindInternal, "reading fleet manifest %s", path)
	}
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return Manifest{}, ferrors.Wrapf(err, ferrors.KindBadData, "parsing fleet manifest %s", path)
	}
	return m, nil
}
