/*
Copyright (C) 2026 Schulfunk Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schulmanager

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// defaultSubjects maps the plan's course abbreviations to display names.
// Overridable with a YAML file, since the abbreviations are specific to the
// student's course selection.
var defaultSubjects = map[string]string{
	"MU G1": "Musik GK 1",
	"PH L1": "Physik LK 1",
	"E5 G3": "Englisch GK 3",
	"PA G1": "Pädagogik GK 1",
	"GE G2": "Geschichte GK 2",
	"M L2":  "Mathematik LK 2",
	"E5 P1": "Englisch PJK 1",
	"D G4":  "Deutsch GK 4",
	"SP G5": "Sport GK 5",
	"KR G1": "Religion GK 1",
	"IF G2": "Informatik GK 2",
	"SW ZK": "Sozialwissenschaften ZK 2",
}

// LoadSubjectMap returns the subject abbreviation map. With an empty path the
// built-in defaults apply; otherwise the YAML file replaces them entirely.
func LoadSubjectMap(path string) (map[string]string, error) {
	if path == "" {
		subjects := make(map[string]string, len(defaultSubjects))
		for k, v := range defaultSubjects {
			subjects[k] = v
		}
		return subjects, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read subject map: %w", err)
	}
	var subjects map[string]string
	if err := yaml.Unmarshal(data, &subjects); err != nil {
		return nil, fmt.Errorf("parse subject map %s: %w", path, err)
	}
	return subjects, nil
}
